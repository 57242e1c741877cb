package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/Elzohary/unifiedcontract/internal/platform/outbox"
)

// OutboxRepository はドメインイベントを outbox_events に書き込むトランザクショナルアウトボックスです。
// Publish は呼び出し元のトランザクションに参加するため、イベントはエンティティと同時にコミットされます。
type OutboxRepository struct {
	pool   pgdb.Queryer
	notify func()
}

// NewOutboxRepository は OutboxRepository を生成します。
func NewOutboxRepository(pool pgdb.Queryer) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

var (
	_ event.Publisher = (*OutboxRepository)(nil)
	_ outbox.Store    = (*OutboxRepository)(nil)
)

// NotifyOnCommit は書き込みを含むトランザクションのコミット後に呼ばれる関数を設定します。
func (r *OutboxRepository) NotifyOnCommit(fn func()) {
	r.notify = fn
}

// Publish はイベントをエンコードしてアウトボックスに追加します。
func (r *OutboxRepository) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	for _, e := range events {
		env, err := event.Encode(e)
		if err != nil {
			return err
		}
		if _, err := exec.Exec(ctx, `
            INSERT INTO outbox_events (event_id, name, aggregate_type, aggregate_id, occurred_at, payload)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (event_id) DO NOTHING
        `, env.ID, env.Name, env.AggregateType, env.AggregateID, env.OccurredAt, []byte(env.Payload)); err != nil {
			return fmt.Errorf("insert outbox event %s: %w", env.Name, err)
		}
	}

	if r.notify != nil {
		pgdb.AfterCommit(ctx, r.notify)
	}
	return nil
}

// FetchPending は未配信のイベントを seq 順に取得し行ロックします。
// 他インスタンスがロック中の行は読み飛ばします。
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT seq, event_id, name, aggregate_type, aggregate_id, occurred_at, payload
          FROM outbox_events
         WHERE published_at IS NULL
         ORDER BY seq
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox events: %w", err)
	}
	defer rows.Close()

	entries := make([]outbox.Entry, 0, limit)
	for rows.Next() {
		var (
			entry   outbox.Entry
			payload []byte
		)
		env := &entry.Envelope
		if err := rows.Scan(&entry.Seq, &env.ID, &env.Name, &env.AggregateType, &env.AggregateID, &env.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		env.Payload = payload
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch outbox events: %w", err)
	}
	return entries, nil
}

// MarkPublished は配信済み時刻を記録します。
func (r *OutboxRepository) MarkPublished(ctx context.Context, seqs []int64, at time.Time) error {
	if len(seqs) == 0 {
		return nil
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `UPDATE outbox_events SET published_at = $1 WHERE seq = ANY($2)`, at, seqs); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}
