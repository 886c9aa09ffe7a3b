package executor

import (
	"context"

	"github.com/sendlr/sendlr/internal/store"
)

type checkpointStore interface {
	UpsertCheckpoint(ctx context.Context, cp store.Checkpoint) error
}

// StoreCheckpointManager persists step progress to delivery_checkpoints.
type StoreCheckpointManager struct {
	store checkpointStore
}

// NewStoreCheckpointManager constructs a CheckpointManager backed by store.Store.
func NewStoreCheckpointManager(st checkpointStore) *StoreCheckpointManager {
	return &StoreCheckpointManager{store: st}
}

func (m *StoreCheckpointManager) StartRun(ctx context.Context, runID string) error {
	// Progress is tracked at step granularity.
	return nil
}

func (m *StoreCheckpointManager) SaveStepStart(ctx context.Context, runID string, step Step, attempt int) error {
	if m.store == nil {
		return nil
	}
	return m.store.UpsertCheckpoint(ctx, store.Checkpoint{
		RunID:   runID,
		Step:    step.Name,
		Status:  store.CheckpointStatusRunning,
		Attempt: attempt,
	})
}

func (m *StoreCheckpointManager) SaveStepSuccess(ctx context.Context, runID string, step Step, attempt int) error {
	if m.store == nil {
		return nil
	}
	return m.store.UpsertCheckpoint(ctx, store.Checkpoint{
		RunID:   runID,
		Step:    step.Name,
		Status:  store.CheckpointStatusCompleted,
		Attempt: attempt,
	})
}

func (m *StoreCheckpointManager) SaveStepFailure(ctx context.Context, runID string, step Step, attempt int, err error) error {
	if m.store == nil {
		return nil
	}
	cp := store.Checkpoint{
		RunID:   runID,
		Step:    step.Name,
		Status:  store.CheckpointStatusFailed,
		Attempt: attempt,
	}
	if err != nil {
		cp.Detail = err.Error()
	}
	return m.store.UpsertCheckpoint(ctx, cp)
}

var _ CheckpointManager = (*StoreCheckpointManager)(nil)
