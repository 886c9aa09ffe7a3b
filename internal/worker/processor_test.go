package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/sendlr/sendlr/internal/delivery"
	"github.com/sendlr/sendlr/internal/news"
	"github.com/sendlr/sendlr/internal/queue/streams"
)

type stubConsumer struct {
	batches [][]streams.Message
	acked   []string
	cancel  context.CancelFunc
}

func (s *stubConsumer) Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error) {
	if len(s.batches) == 0 {
		// Out of fixtures: stop the processor loop.
		s.cancel()
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *stubConsumer) Ack(ctx context.Context, stream string, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}

func (s *stubConsumer) AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]streams.Message, string, error) {
	return nil, "0-0", nil
}

type stubRunner struct {
	runs    []delivery.Request
	results map[string]delivery.Result
	err     error
}

func (s *stubRunner) Run(ctx context.Context, req delivery.Request) (delivery.Result, error) {
	s.runs = append(s.runs, req)
	if s.err != nil {
		return delivery.Result{}, s.err
	}
	if res, ok := s.results[req.UserID]; ok {
		return res, nil
	}
	return delivery.Result{Success: true, EmailSent: true, ArticleCount: 3}, nil
}

type stubClaimStore struct {
	claimed map[string]bool
}

func (s *stubClaimStore) ClaimIdempotency(ctx context.Context, scope, key string) (bool, error) {
	if s.claimed == nil {
		s.claimed = map[string]bool{}
	}
	if s.claimed[scope+"/"+key] {
		return false, nil
	}
	s.claimed[scope+"/"+key] = true
	return true, nil
}

func deliverMessage(t *testing.T, id, eventID, userID string) streams.Message {
	t.Helper()
	req := delivery.Request{
		UserID:      userID,
		Email:       userID + "@example.com",
		Categories:  []news.Category{news.CategoryTechnology},
		IsImmediate: true,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return streams.Message{
		ID: id,
		Envelope: streams.Envelope{
			EventID:    eventID,
			EventType:  streams.EventTypeDeliver,
			OccurredAt: time.Now().UTC(),
			Data:       data,
		},
	}
}

func runProcessor(t *testing.T, consumer *stubConsumer, runner *stubRunner, st StoreAPI) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	consumer.cancel = cancel

	p := NewProcessor(log.New(io.Discard, "", 0), st, consumer, runner, "")
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestProcessorRunsAndAcks(t *testing.T) {
	consumer := &stubConsumer{batches: [][]streams.Message{{
		deliverMessage(t, "1-0", "evt-a", "user-a"),
		deliverMessage(t, "2-0", "evt-b", "user-b"),
	}}}
	runner := &stubRunner{}

	runProcessor(t, consumer, runner, &stubClaimStore{})

	if len(runner.runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runner.runs))
	}
	if runner.runs[0].UserID != "user-a" || runner.runs[1].UserID != "user-b" {
		t.Fatalf("unexpected run order: %+v", runner.runs)
	}
	if len(consumer.acked) != 2 {
		t.Fatalf("expected 2 acks, got %v", consumer.acked)
	}
}

func TestProcessorSkipsDuplicateEvents(t *testing.T) {
	consumer := &stubConsumer{batches: [][]streams.Message{
		{deliverMessage(t, "1-0", "evt-a", "user-a")},
		{deliverMessage(t, "2-0", "evt-a", "user-a")},
	}}
	runner := &stubRunner{}

	runProcessor(t, consumer, runner, &stubClaimStore{})

	if len(runner.runs) != 1 {
		t.Fatalf("duplicate event must run once, got %d runs", len(runner.runs))
	}
	if len(consumer.acked) != 2 {
		t.Fatalf("duplicates must still be acked, got %v", consumer.acked)
	}
}

func TestProcessorAcksFailedRuns(t *testing.T) {
	consumer := &stubConsumer{batches: [][]streams.Message{{
		deliverMessage(t, "1-0", "evt-a", "user-a"),
	}}}
	runner := &stubRunner{err: errors.New("send failed")}

	runProcessor(t, consumer, runner, &stubClaimStore{})

	if len(consumer.acked) != 1 {
		t.Fatalf("failed run must still ack, got %v", consumer.acked)
	}
}

func TestProcessorAcksCancelledDeliveries(t *testing.T) {
	consumer := &stubConsumer{batches: [][]streams.Message{{
		deliverMessage(t, "1-0", "evt-a", "user-a"),
	}}}
	runner := &stubRunner{results: map[string]delivery.Result{
		"user-a": {Cancelled: true, Reason: "subscription paused"},
	}}

	runProcessor(t, consumer, runner, &stubClaimStore{})

	if len(runner.runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.runs))
	}
	if len(consumer.acked) != 1 {
		t.Fatalf("cancelled delivery must ack, got %v", consumer.acked)
	}
}

func TestProcessorAcksMalformedPayloads(t *testing.T) {
	msg := streams.Message{
		ID: "1-0",
		Envelope: streams.Envelope{
			EventID:    "evt-bad",
			EventType:  streams.EventTypeDeliver,
			OccurredAt: time.Now().UTC(),
			Data:       json.RawMessage(`{"user_id":`),
		},
	}
	consumer := &stubConsumer{batches: [][]streams.Message{{msg}}}
	runner := &stubRunner{}

	runProcessor(t, consumer, runner, &stubClaimStore{})

	if len(runner.runs) != 0 {
		t.Fatalf("malformed payload must not run, got %d runs", len(runner.runs))
	}
	if len(consumer.acked) != 1 {
		t.Fatalf("malformed payload must ack, got %v", consumer.acked)
	}
}
