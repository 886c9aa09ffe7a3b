package streams

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const dispatchLockKey = "sendlr:delayed:lock"

// Dispatcher moves matured envelopes from the delayed sorted set onto
// their target streams. Multiple dispatchers may run; a Redis lock keeps
// each sweep single-writer.
type Dispatcher struct {
	client    *redis.Client
	publisher *Publisher
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// NewDispatcher constructs a dispatcher polling at the given interval.
func NewDispatcher(client *redis.Client, publisher *Publisher, interval time.Duration, logger *log.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Dispatcher{
		client:    client,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Run blocks until the context is cancelled, sweeping on every tick.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				d.logger.Printf("sweep failed: %v", err)
			}
		}
	}
}

// Sweep publishes every envelope whose due time has passed and removes
// it from the sorted set. It is a no-op when another dispatcher holds
// the lock.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	ok, err := d.client.SetNX(ctx, dispatchLockKey, "1", d.interval).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer d.client.Del(ctx, dispatchLockKey)

	members, err := d.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(d.now().Unix(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		var entry delayedEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			// Unreadable entries would wedge the set forever; drop them.
			d.logger.Printf("dropping malformed delayed entry: %v", err)
			_ = d.client.ZRem(ctx, delayedKey, member).Err()
			continue
		}
		if _, err := d.publisher.Publish(ctx, entry.Stream, entry.Envelope); err != nil {
			d.logger.Printf("dispatch %s: %v", entry.Envelope.EventID, err)
			continue
		}
		if err := d.client.ZRem(ctx, delayedKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}
