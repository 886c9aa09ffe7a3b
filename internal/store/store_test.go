package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Store{DB: db}, mock
}

func TestGetPreferences(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"user_id", "email", "categories", "frequency", "send_time", "schedule_cron", "is_active", "updated_at"}).
		AddRow("u1", "a@b.c", pq.Array([]string{"technology", "sports"}), "weekly", "09:00", nil, true, time.Now())
	mock.ExpectQuery("SELECT user_id::text, email, categories").
		WithArgs("u1").
		WillReturnRows(rows)

	p, ok, err := st.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if !ok {
		t.Fatalf("expected preferences to exist")
	}
	if p.Email != "a@b.c" || len(p.Categories) != 2 || p.Frequency != "weekly" || !p.IsActive {
		t.Fatalf("unexpected preferences: %+v", p)
	}
	if p.ScheduleCron != "" {
		t.Fatalf("null schedule_cron should scan as empty, got %q", p.ScheduleCron)
	}
}

func TestGetPreferencesMissing(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT user_id::text, email, categories").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := st.GetPreferences(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("missing row must not be an error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing preferences")
	}
}

func TestUpsertPreferences(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO user_preferences").
		WithArgs("u1", "a@b.c", sqlmock.AnyArg(), "daily", "07:30", nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.UpsertPreferences(context.Background(), Preferences{
		UserID:     "u1",
		Email:      "a@b.c",
		Categories: []string{"technology"},
		Frequency:  "daily",
		SendTime:   "07:30",
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("UpsertPreferences: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertPreferencesRequiresIdentity(t *testing.T) {
	st, _ := newMockStore(t)
	if err := st.UpsertPreferences(context.Background(), Preferences{Email: "a@b.c"}); err == nil {
		t.Fatalf("expected error without user_id")
	}
	if err := st.UpsertPreferences(context.Background(), Preferences{UserID: "u1"}); err == nil {
		t.Fatalf("expected error without email")
	}
}

func TestSetActiveMissingUser(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("UPDATE user_preferences SET is_active").
		WithArgs("nobody", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.SetActive(context.Background(), "nobody", false); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDeliveryRunLifecycle(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO delivery_runs").
		WithArgs("u1", "recurring", RunStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-1"))

	id, err := st.CreateDeliveryRun(context.Background(), "u1", "recurring")
	if err != nil || id != "run-1" {
		t.Fatalf("CreateDeliveryRun: id=%q err=%v", id, err)
	}

	msg := "send failed"
	mock.ExpectExec("UPDATE delivery_runs SET status").
		WithArgs("run-1", RunStatusFailed, &msg).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := st.FinishDeliveryRun(context.Background(), "run-1", RunStatusFailed, &msg); err != nil {
		t.Fatalf("FinishDeliveryRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertCheckpointValidation(t *testing.T) {
	st, _ := newMockStore(t)
	if err := st.UpsertCheckpoint(context.Background(), Checkpoint{Step: "send"}); err == nil {
		t.Fatalf("expected error without run_id")
	}
}

func TestGetCheckpoint(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"run_id", "step", "status", "attempt", "detail", "updated_at"}).
		AddRow("run-1", "send", CheckpointStatusFailed, 2, "boom", time.Now())
	mock.ExpectQuery("SELECT run_id::text, step, status").
		WithArgs("run-1", "send").
		WillReturnRows(rows)

	cp, ok, err := st.GetCheckpoint(context.Background(), "run-1", "send")
	if err != nil || !ok {
		t.Fatalf("GetCheckpoint: ok=%v err=%v", ok, err)
	}
	if cp.Status != CheckpointStatusFailed || cp.Attempt != 2 || cp.Detail != "boom" {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
}

func TestClaimIdempotency(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs("delivery", "evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"true"}).AddRow(true))
	ok, err := st.ClaimIdempotency(context.Background(), "delivery", "evt-1")
	if err != nil || !ok {
		t.Fatalf("first claim should succeed: ok=%v err=%v", ok, err)
	}

	mock.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs("delivery", "evt-1").
		WillReturnError(sql.ErrNoRows)
	ok, err = st.ClaimIdempotency(context.Background(), "delivery", "evt-1")
	if err != nil {
		t.Fatalf("duplicate claim must not error: %v", err)
	}
	if ok {
		t.Fatalf("duplicate claim should return false")
	}
}

func TestClaimIdempotencyValidation(t *testing.T) {
	st, _ := newMockStore(t)
	if _, err := st.ClaimIdempotency(context.Background(), "", "k"); err == nil {
		t.Fatalf("expected error for empty scope")
	}
}
