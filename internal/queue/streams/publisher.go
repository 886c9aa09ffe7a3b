package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// delayedKey is the sorted set holding envelopes scored by their due time.
const delayedKey = "sendlr:delayed"

// Publisher wraps Redis Stream publishing for delivery trigger events.
type Publisher struct {
	client *redis.Client
}

// PublishOption allows configuring Redis XADD behaviour.
type PublishOption func(*redis.XAddArgs)

// WithMaxLenApprox sets an approximate max length for the stream.
func WithMaxLenApprox(maxLen int64) PublishOption {
	return func(args *redis.XAddArgs) {
		if maxLen > 0 {
			args.MaxLen = maxLen
			args.Approx = true
		}
	}
}

// NewPublisher creates a Publisher instance.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish validates the envelope and appends it to the given Redis stream.
func (p *Publisher) Publish(ctx context.Context, stream string, envelope Envelope, opts ...PublishOption) (string, error) {
	if stream == "" {
		return "", fmt.Errorf("stream name is required")
	}
	if envelope.EventID == "" {
		envelope.EventID = uuid.NewString()
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = time.Now().UTC()
	}
	raw, err := envelope.Marshal()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"envelope": raw},
	}
	for _, opt := range opts {
		opt(args)
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// PublishRaw wraps an arbitrary payload in an envelope before publishing.
func (p *Publisher) PublishRaw(ctx context.Context, stream, eventType string, payload interface{}, opts ...PublishOption) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		EventType: eventType,
		Data:      data,
	}
	return p.Publish(ctx, stream, env, opts...)
}

type delayedEntry struct {
	Stream   string   `json:"stream"`
	Envelope Envelope `json:"envelope"`
}

// PublishAt parks the envelope in the delayed sorted set until the due
// time; the Dispatcher moves it onto the stream once it matures.
func (p *Publisher) PublishAt(ctx context.Context, stream string, envelope Envelope, due time.Time) error {
	if stream == "" {
		return fmt.Errorf("stream name is required")
	}
	if envelope.EventID == "" {
		envelope.EventID = uuid.NewString()
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = time.Now().UTC()
	}
	if err := envelope.ValidateBasic(); err != nil {
		return err
	}
	member, err := json.Marshal(delayedEntry{Stream: stream, Envelope: envelope})
	if err != nil {
		return fmt.Errorf("marshal delayed entry: %w", err)
	}
	if err := p.client.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due.Unix()), Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	return nil
}

// PublishRawAt wraps a payload in an envelope and parks it until due.
func (p *Publisher) PublishRawAt(ctx context.Context, stream, eventType string, payload interface{}, due time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.PublishAt(ctx, stream, Envelope{EventType: eventType, Data: data}, due)
}
