package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

type leaveSnapshot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestOutboxRepository_Publish(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	notified := 0
	repo.NotifyOnCommit(func() { notified++ })

	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	e := event.New("LeaveApprovedEvent", "leave", "leave-1", leaveSnapshot{ID: "leave-1", Status: "approved"})
	e.ID = "evt-1"
	e.OccurredAt = at

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs("evt-1", "LeaveApprovedEvent", "leave", "leave-1", at, []byte(`{"id":"leave-1","status":"approved"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected notifier to run once outside a transaction, got %d", notified)
	}
}

func TestOutboxRepository_Publish_NotifiesAfterCommit(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)
	tm := pgdb.NewTransactionManager(mock)

	notified := 0
	repo.NotifyOnCommit(func() { notified++ })

	e := event.New("TrainingStartedEvent", "training", "tr-1", map[string]string{"id": "tr-1"})
	e.ID = "evt-2"

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs("evt-2", "TrainingStartedEvent", "training", "tr-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(txCtx context.Context) error {
		if err := repo.Publish(txCtx, e); err != nil {
			return err
		}
		if notified != 0 {
			t.Errorf("notifier ran before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinReadWrite returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected notifier after commit, got %d", notified)
	}
}

func TestOutboxRepository_Publish_EncodeError(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	e := event.New("BrokenEvent", "leave", "leave-1", map[string]any{"bad": make(chan int)})
	if err := repo.Publish(context.Background(), e); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestOutboxRepository_FetchPending(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)
	at := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE published_at IS NULL ORDER BY seq LIMIT $1 FOR UPDATE SKIP LOCKED")).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "event_id", "name", "aggregate_type", "aggregate_id", "occurred_at", "payload"}).
			AddRow(int64(7), "evt-7", "LeaveCreatedEvent", "leave", "leave-1", at, []byte(`{"id":"leave-1"}`)))

	entries, err := repo.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchPending returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Seq != 7 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Envelope.Key() != "leave:leave-1" {
		t.Fatalf("unexpected key: %s", entries[0].Envelope.Key())
	}
	if !json.Valid(entries[0].Envelope.Payload) {
		t.Fatalf("expected valid payload")
	}
}

func TestOutboxRepository_MarkPublished(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events SET published_at = $1 WHERE seq = ANY($2)")).
		WithArgs(at, []int64{1, 2}).
		WillReturnError(errors.New("connection reset"))

	if err := repo.MarkPublished(context.Background(), []int64{1, 2}, at); err == nil {
		t.Fatalf("expected error")
	}
	if err := repo.MarkPublished(context.Background(), nil, at); err != nil {
		t.Fatalf("expected no-op for empty seqs, got %v", err)
	}
}
