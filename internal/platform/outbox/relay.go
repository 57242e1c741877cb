// Package outbox はトランザクショナルアウトボックスに書かれたイベントをブローカーへ中継します。
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/platform/metrics"
)

// Entry はアウトボックスの未配信行です。
type Entry struct {
	Seq      int64
	Envelope event.Envelope
}

// Store はアウトボックス行の取得と配信済み記録を行います。
// FetchPending は呼び出し元のトランザクション内で行ロックを取得します。
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, seqs []int64, at time.Time) error
}

// Sender はエンコード済みイベントをブローカーへ送信します。
type Sender interface {
	Send(ctx context.Context, envelopes ...event.Envelope) error
}

// Locker は複数インスタンスのうち 1 つだけが中継するための排他制御です。
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Relay はアウトボックスを定期的にポーリングして中継するワーカーです。
type Relay struct {
	store     Store
	sender    Sender
	tx        shared.TransactionManager
	clock     shared.Clock
	locker    Locker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	wake      chan struct{}
}

// Option は Relay を設定します。
type Option func(*Relay)

// WithLogger はログ出力先を設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics はメトリクスを設定します。
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithLocker はインスタンス間の排他制御を設定します。
func WithLocker(l Locker) Option {
	return func(r *Relay) {
		r.locker = l
	}
}

// WithClock は配信時刻の取得元を設定します。
func WithClock(c shared.Clock) Option {
	return func(r *Relay) {
		r.clock = c
	}
}

// WithPolling はポーリング間隔とバッチサイズを設定します。
func WithPolling(interval time.Duration, batchSize int) Option {
	return func(r *Relay) {
		if interval > 0 {
			r.interval = interval
		}
		if batchSize > 0 {
			r.batchSize = batchSize
		}
	}
}

// NewRelay は Relay を生成します。
func NewRelay(store Store, sender Sender, tx shared.TransactionManager, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		sender:    sender,
		tx:        tx,
		clock:     shared.RealClock{},
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
		wake:      make(chan struct{}, 1),
	}
	if r.tx == nil {
		r.tx = shared.NoopTransactionManager{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notify は次のポーリングを待たずに中継を行うよう通知します。ブロックしません。
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run は ctx がキャンセルされるまで中継を繰り返します。
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.release()

	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		case <-r.wake:
		}

		if err := r.tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("outbox relay batch failed", "error", err)
		}
	}
}

func (r *Relay) tick(ctx context.Context) error {
	if r.locker != nil {
		held, err := r.locker.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if !held {
			r.logger.Debug("outbox relay lease held by another instance")
			return nil
		}
	}

	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			return err
		}
		if n < r.batchSize {
			return nil
		}
	}
}

// RelayOnce は未配信行を 1 バッチ分中継し、中継した件数を返します。
// 送信と配信済み記録は同じトランザクションで行うため、送信失敗時は行が未配信のまま残ります。
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	start := time.Now()
	var relayed int
	err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		entries, err := r.store.FetchPending(txCtx, r.batchSize)
		if err != nil {
			return fmt.Errorf("outbox: fetch pending: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		envelopes := make([]event.Envelope, 0, len(entries))
		seqs := make([]int64, 0, len(entries))
		for _, e := range entries {
			envelopes = append(envelopes, e.Envelope)
			seqs = append(seqs, e.Seq)
		}

		if err := r.sender.Send(txCtx, envelopes...); err != nil {
			return fmt.Errorf("outbox: send: %w", err)
		}
		if err := r.store.MarkPublished(txCtx, seqs, r.clock.Now()); err != nil {
			return fmt.Errorf("outbox: mark published: %w", err)
		}
		relayed = len(entries)
		return nil
	})

	if r.metrics != nil {
		r.metrics.ObserveBatch(start, relayed)
		if err != nil {
			r.metrics.OutboxRelayFailures.Inc()
		} else {
			r.metrics.OutboxRelayed.Add(float64(relayed))
		}
	}
	if err != nil {
		return 0, err
	}
	if relayed > 0 {
		r.logger.Debug("outbox entries relayed", "count", relayed)
	}
	return relayed, nil
}

func (r *Relay) release() {
	if r.locker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.locker.Release(ctx); err != nil {
		r.logger.Warn("outbox relay lease release failed", "error", err)
	}
}
