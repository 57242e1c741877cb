package postgres

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer は閾値を超えたクエリを警告ログに出力する pgx.QueryTracer です。
// 引数には個人情報が含まれるため出力しません。
type SlowQueryTracer struct {
	logger    *slog.Logger
	threshold time.Duration
	now       func() time.Time
}

var _ pgx.QueryTracer = (*SlowQueryTracer)(nil)

// NewSlowQueryTracer は SlowQueryTracer を生成します。
func NewSlowQueryTracer(logger *slog.Logger, threshold time.Duration) *SlowQueryTracer {
	return &SlowQueryTracer{logger: logger, threshold: threshold, now: time.Now}
}

// TraceQueryStart は開始時刻をコンテキストに記録します。
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: t.now(), sql: data.SQL})
}

// TraceQueryEnd は所要時間が閾値以上であれば出力します。
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.now().Sub(start.at)
	if elapsed < t.threshold {
		return
	}

	attrs := []slog.Attr{
		slog.String("sql", compactSQL(start.sql)),
		slog.Duration("elapsed", elapsed),
		slog.String("command", data.CommandTag.String()),
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
	}
	t.logger.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
