// Package executor runs a delivery plan as an ordered chain of durable
// steps with per-step retry and checkpointing.
package executor

import (
	"context"
	"fmt"
	"time"
)

// Step is one unit of work in a delivery plan.
type Step struct {
	Name       string
	MaxRetries int
	RetryDelay time.Duration
}

// Plan is an ordered list of steps executed front to back.
type Plan struct {
	Steps []Step
}

// ErrDuplicateStep indicates a plan names the same step twice.
var ErrDuplicateStep = fmt.Errorf("duplicate step")

// Validate rejects plans the executor cannot run unambiguously.
func (p Plan) Validate() error {
	seen := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("step with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// StepRunner executes the concrete work for a step.
type StepRunner interface {
	RunStep(ctx context.Context, runID string, step Step) error
}

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	RetryCounter func(context.Context, Step, int)
	Duration     func(context.Context, Step, time.Duration)
}

// Executor walks plans step by step, checkpointing progress.
type Executor struct {
	checkpoints CheckpointManager
	metrics     Metrics
}

// Option configures executor behaviour.
type Option func(*Executor)

// WithCheckpointManager sets the checkpoint manager implementation.
func WithCheckpointManager(mgr CheckpointManager) Option {
	return func(ex *Executor) {
		ex.checkpoints = mgr
	}
}

// WithMetrics sets executor metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(ex *Executor) {
		ex.metrics = m
	}
}

// New creates a new Executor instance.
func New(opts ...Option) *Executor {
	ex := &Executor{checkpoints: NewNoopCheckpointManager()}
	for _, opt := range opts {
		opt(ex)
	}
	if ex.checkpoints == nil {
		ex.checkpoints = NewNoopCheckpointManager()
	}
	return ex
}

// Execute runs every step of the plan in order and returns the names of
// the steps that completed. A step that exhausts its retries fails the
// whole run; later steps never start.
func (e *Executor) Execute(ctx context.Context, runID string, plan Plan, runner StepRunner) ([]string, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkpoints.StartRun(ctx, runID); err != nil {
		return nil, err
	}

	completed := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		maxRetries := step.MaxRetries
		if maxRetries < 0 {
			maxRetries = 0
		}
		attempt := 0
		for {
			attemptStart := time.Now()
			if err := e.checkpoints.SaveStepStart(ctx, runID, step, attempt); err != nil {
				return nil, err
			}
			var runErr error
			if runner != nil {
				runErr = runner.RunStep(ctx, runID, step)
			}
			if runErr == nil {
				if err := e.checkpoints.SaveStepSuccess(ctx, runID, step, attempt); err != nil {
					return nil, err
				}
				if e.metrics.Duration != nil {
					e.metrics.Duration(ctx, step, time.Since(attemptStart))
				}
				break
			}
			nextAttempt := attempt + 1
			if err := e.checkpoints.SaveStepFailure(ctx, runID, step, nextAttempt, runErr); err != nil {
				return nil, err
			}
			if e.metrics.RetryCounter != nil {
				e.metrics.RetryCounter(ctx, step, nextAttempt)
			}
			if nextAttempt > maxRetries {
				return completed, runErr
			}
			attempt = nextAttempt
			if step.RetryDelay > 0 {
				select {
				case <-ctx.Done():
					return completed, ctx.Err()
				case <-time.After(step.RetryDelay):
				}
			}
		}
		completed = append(completed, step.Name)
	}
	return completed, nil
}
