package streams_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sendlr/sendlr/internal/queue/streams"
)

func TestDispatcherMovesMaturedEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	publisher := streams.NewPublisher(client)
	now := time.Now()

	// One event already due, one far in the future.
	if err := publisher.PublishRawAt(ctx, streams.StreamDeliver, streams.EventTypeDeliver,
		map[string]interface{}{"user_id": "due"}, now.Add(-time.Minute)); err != nil {
		t.Fatalf("publish due event: %v", err)
	}
	if err := publisher.PublishRawAt(ctx, streams.StreamDeliver, streams.EventTypeDeliver,
		map[string]interface{}{"user_id": "future"}, now.Add(time.Hour)); err != nil {
		t.Fatalf("publish future event: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	dispatcher := streams.NewDispatcher(client, publisher, time.Second, logger)
	if err := dispatcher.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	length, err := client.XLen(ctx, streams.StreamDeliver).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if length != 1 {
		t.Fatalf("expected exactly the due event on the stream, got %d entries", length)
	}

	// Second sweep must not re-deliver the already-moved event.
	if err := dispatcher.Sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	length, _ = client.XLen(ctx, streams.StreamDeliver).Result()
	if length != 1 {
		t.Fatalf("sweep re-delivered events, got %d entries", length)
	}
}
