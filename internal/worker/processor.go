// Package worker consumes delivery trigger events and runs the
// newsletter pipeline for each one.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sendlr/sendlr/internal/delivery"
	"github.com/sendlr/sendlr/internal/queue/streams"
)

// Group is the consumer group all workers join.
const Group = "sendlr-workers"

// idempotencyScope keys processed-event claims in the store.
const idempotencyScope = "delivery"

var deliveriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sendlr_deliveries_processed_total",
	Help: "Delivery trigger events processed, by outcome.",
}, []string{"outcome"})

// Consumer is the slice of the streams consumer the processor needs.
type Consumer interface {
	Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error)
	Ack(ctx context.Context, stream string, ids ...string) error
	AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]streams.Message, string, error)
}

// Runner executes one delivery.
type Runner interface {
	Run(ctx context.Context, req delivery.Request) (delivery.Result, error)
}

// StoreAPI captures the store methods required by the worker.
type StoreAPI interface {
	ClaimIdempotency(ctx context.Context, scope, key string) (bool, error)
}

// Processor drives delivery execution by consuming trigger events.
type Processor struct {
	logger   *log.Logger
	store    StoreAPI
	consumer Consumer
	pipeline Runner
	stream   string
}

// NewProcessor constructs a Processor.
func NewProcessor(logger *log.Logger, st StoreAPI, cons Consumer, pipeline Runner, stream string) *Processor {
	if stream == "" {
		stream = streams.StreamDeliver
	}
	return &Processor{
		logger:   logger,
		store:    st,
		consumer: cons,
		pipeline: pipeline,
		stream:   stream,
	}
}

// Start blocks, continuously processing trigger events until the
// context is cancelled.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Printf("worker processor starting; consuming stream %s", p.stream)

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("worker processor stopping: %v", ctx.Err())
			return nil
		default:
		}

		msgs, err := p.consumer.Read(ctx, p.stream, streams.WithBlock(5*time.Second), streams.WithCount(16))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Printf("error reading stream: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			// Idle moment: pick up deliveries abandoned by dead workers.
			claimed, _, err := p.consumer.AutoClaim(ctx, p.stream, time.Minute, "0-0", 16)
			if err != nil && ctx.Err() == nil {
				p.logger.Printf("error reclaiming pending messages: %v", err)
			}
			msgs = claimed
		}

		for _, msg := range msgs {
			if ctx.Err() != nil {
				// Do not ack what we did not process; another worker
				// will reclaim it.
				break
			}
			if err := p.handle(ctx, msg); err != nil {
				p.logger.Printf("error handling event %s: %v", msg.Envelope.EventID, err)
			}
			if err := p.consumer.Ack(ctx, p.stream, msg.ID); err != nil {
				p.logger.Printf("warn: failed to ack message %s: %v", msg.ID, err)
			}
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg streams.Message) error {
	claimed, err := p.store.ClaimIdempotency(ctx, idempotencyScope, msg.Envelope.EventID)
	if err != nil {
		return fmt.Errorf("claim idempotency: %w", err)
	}
	if !claimed {
		p.logger.Printf("skip event %s: already processed", msg.Envelope.EventID)
		deliveriesProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	var req delivery.Request
	if err := json.Unmarshal(msg.Envelope.Data, &req); err != nil {
		deliveriesProcessed.WithLabelValues("invalid").Inc()
		return fmt.Errorf("unmarshal delivery request: %w", err)
	}

	result, err := p.pipeline.Run(ctx, req)
	if err != nil {
		deliveriesProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("run delivery for %s: %w", req.UserID, err)
	}
	if result.Cancelled {
		p.logger.Printf("delivery for %s cancelled: %s", req.UserID, result.Reason)
		deliveriesProcessed.WithLabelValues("cancelled").Inc()
		return nil
	}
	p.logger.Printf("delivered %d articles to %s (%s)", result.ArticleCount, req.Email, req.Kind())
	deliveriesProcessed.WithLabelValues("delivered").Inc()
	return nil
}
