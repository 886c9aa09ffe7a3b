// Package store is the Postgres persistence layer: users, delivery
// preferences, delivery runs and step checkpoints.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// Checkpoint statuses persisted for delivery steps.
const (
	CheckpointStatusRunning   = "running"
	CheckpointStatusCompleted = "completed"
	CheckpointStatusFailed    = "failed"
)

// Delivery run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Checkpoint captures durable progress for one step of a delivery run.
type Checkpoint struct {
	RunID     string
	Step      string
	Status    string
	Attempt   int
	Detail    string
	UpdatedAt time.Time
}

// Preferences is a subscriber's delivery profile.
type Preferences struct {
	UserID       string
	Email        string
	Categories   []string
	Frequency    string
	SendTime     string
	ScheduleCron string
	IsActive     bool
	UpdatedAt    time.Time
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Preference operations

// GetPreferences loads a subscriber's delivery profile. The bool reports
// whether a profile exists.
func (s *Store) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	var (
		p    Preferences
		cron sql.NullString
	)
	row := s.DB.QueryRowContext(ctx, `
SELECT user_id::text, email, categories, frequency, send_time, schedule_cron, is_active, updated_at
FROM user_preferences
WHERE user_id = $1`, userID)
	if err := row.Scan(&p.UserID, &p.Email, pq.Array(&p.Categories), &p.Frequency, &p.SendTime, &cron, &p.IsActive, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Preferences{}, false, nil
		}
		return Preferences{}, false, err
	}
	p.ScheduleCron = cron.String
	return p, true, nil
}

// UpsertPreferences stores the full delivery profile for a user.
func (s *Store) UpsertPreferences(ctx context.Context, p Preferences) error {
	if p.UserID == "" || p.Email == "" {
		return fmt.Errorf("user_id and email are required")
	}
	var cron interface{}
	if p.ScheduleCron != "" {
		cron = p.ScheduleCron
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_preferences (user_id, email, categories, frequency, send_time, schedule_cron, is_active, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (user_id) DO UPDATE SET
  email         = EXCLUDED.email,
  categories    = EXCLUDED.categories,
  frequency     = EXCLUDED.frequency,
  send_time     = EXCLUDED.send_time,
  schedule_cron = EXCLUDED.schedule_cron,
  is_active     = EXCLUDED.is_active,
  updated_at    = NOW();
`, p.UserID, p.Email, pq.Array(p.Categories), p.Frequency, p.SendTime, cron, p.IsActive)
	return err
}

// SetActive pauses or resumes a subscriber's recurring deliveries.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE user_preferences SET is_active=$2, updated_at=NOW() WHERE user_id=$1`, userID, active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delivery run operations

// CreateDeliveryRun opens a run record and returns its ID.
func (s *Store) CreateDeliveryRun(ctx context.Context, userID, kind string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO delivery_runs (user_id, kind, status) VALUES ($1,$2,$3) RETURNING id`, userID, kind, RunStatusRunning).Scan(&id)
	return id, err
}

// FinishDeliveryRun records the terminal status of a run.
func (s *Store) FinishDeliveryRun(ctx context.Context, runID, status string, errMsg *string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE delivery_runs SET status=$2, error=$3, finished_at=NOW() WHERE id=$1`, runID, status, errMsg)
	return err
}

// Checkpoint operations

// UpsertCheckpoint persists checkpoint progress for a run step.
func (s *Store) UpsertCheckpoint(ctx context.Context, cp Checkpoint) error {
	if cp.RunID == "" || cp.Step == "" {
		return fmt.Errorf("run_id and step are required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO delivery_checkpoints (run_id, step, status, attempt, detail, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (run_id, step) DO UPDATE SET
  status     = EXCLUDED.status,
  attempt    = EXCLUDED.attempt,
  detail     = EXCLUDED.detail,
  updated_at = NOW();
`, cp.RunID, cp.Step, cp.Status, cp.Attempt, cp.Detail)
	return err
}

// GetCheckpoint retrieves a checkpoint for a run/step. The bool indicates
// whether a record was found.
func (s *Store) GetCheckpoint(ctx context.Context, runID, step string) (Checkpoint, bool, error) {
	var cp Checkpoint
	row := s.DB.QueryRowContext(ctx, `
SELECT run_id::text, step, status, attempt, detail, updated_at
FROM delivery_checkpoints
WHERE run_id = $1 AND step = $2`, runID, step)
	if err := row.Scan(&cp.RunID, &cp.Step, &cp.Status, &cp.Attempt, &cp.Detail, &cp.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}

// ListCheckpoints returns every checkpoint recorded for a run.
func (s *Store) ListCheckpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT run_id::text, step, status, attempt, detail, updated_at
FROM delivery_checkpoints
WHERE run_id = $1
ORDER BY updated_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.RunID, &cp.Step, &cp.Status, &cp.Attempt, &cp.Detail, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// ClaimIdempotency attempts to register a processed event. It returns
// false if the key already exists.
func (s *Store) ClaimIdempotency(ctx context.Context, scope, key string) (bool, error) {
	if scope == "" || key == "" {
		return false, fmt.Errorf("scope and key must be provided")
	}
	var inserted bool
	err := s.DB.QueryRowContext(ctx, `INSERT INTO idempotency_keys (scope, key) VALUES ($1,$2) ON CONFLICT DO NOTHING RETURNING true`, scope, key).Scan(&inserted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return inserted, nil
}
