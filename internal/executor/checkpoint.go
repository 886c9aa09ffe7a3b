package executor

import "context"

// CheckpointManager persists executor progress so an operator can see
// where a failed delivery stopped.
type CheckpointManager interface {
	StartRun(ctx context.Context, runID string) error
	SaveStepStart(ctx context.Context, runID string, step Step, attempt int) error
	SaveStepSuccess(ctx context.Context, runID string, step Step, attempt int) error
	SaveStepFailure(ctx context.Context, runID string, step Step, attempt int, err error) error
}

// NoopCheckpointManager is a default implementation that records nothing.
type NoopCheckpointManager struct{}

// NewNoopCheckpointManager returns a checkpoint manager that does nothing.
func NewNoopCheckpointManager() *NoopCheckpointManager { return &NoopCheckpointManager{} }

func (NoopCheckpointManager) StartRun(ctx context.Context, runID string) error { return nil }
func (NoopCheckpointManager) SaveStepStart(ctx context.Context, runID string, step Step, attempt int) error {
	return nil
}
func (NoopCheckpointManager) SaveStepSuccess(ctx context.Context, runID string, step Step, attempt int) error {
	return nil
}
func (NoopCheckpointManager) SaveStepFailure(ctx context.Context, runID string, step Step, attempt int, err error) error {
	return nil
}
