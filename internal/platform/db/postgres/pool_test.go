package postgres

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elzohary/unifiedcontract/internal/platform/config"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            "localhost",
		Port:            15432,
		User:            "user",
		Password:        "pass",
		Name:            "db",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(testDatabaseConfig())
	require.NoError(t, err)

	assert.EqualValues(t, 20, poolCfg.MaxConns)
	assert.EqualValues(t, 5, poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, 10*time.Minute, poolCfg.MaxConnIdleTime)
	assert.Equal(t, "db", poolCfg.ConnConfig.Database)
	assert.Equal(t, applicationName, poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "UTC", poolCfg.ConnConfig.RuntimeParams["timezone"])
	assert.Nil(t, poolCfg.ConnConfig.Tracer)
}

func TestBuildPoolConfig_IdleExceedsMax(t *testing.T) {
	t.Parallel()

	cfg := testDatabaseConfig()
	cfg.MaxOpenConns = 2
	cfg.MaxIdleConns = 3

	_, err := BuildPoolConfig(cfg)
	assert.ErrorContains(t, err, "exceeds max_open_conns")
}

func TestBuildPoolConfig_SlowQueryLog(t *testing.T) {
	t.Parallel()

	cfg := testDatabaseConfig()
	logger := slog.New(slog.DiscardHandler)

	poolCfg, err := BuildPoolConfig(cfg, WithSlowQueryLog(logger, cfg))
	require.NoError(t, err)
	assert.Nil(t, poolCfg.ConnConfig.Tracer, "zero threshold disables tracing")

	cfg.SlowQueryThreshold = 200 * time.Millisecond
	poolCfg, err = BuildPoolConfig(cfg, WithSlowQueryLog(logger, cfg))
	require.NoError(t, err)
	assert.IsType(t, &SlowQueryTracer{}, poolCfg.ConnConfig.Tracer)
}

func TestSlowQueryTracer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tracer := NewSlowQueryTracer(slog.New(slog.NewJSONHandler(&buf, nil)), 100*time.Millisecond)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	tracer.now = func() time.Time { return clock }

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1\n   FROM leaves"})
	clock = base.Add(50 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	assert.Empty(t, buf.String())

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE employees\n SET off_days = $1", Args: []any{25}})
	clock = clock.Add(250 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("deadlock detected")})

	out := buf.String()
	assert.Contains(t, out, `"msg":"slow query"`)
	assert.Contains(t, out, `"sql":"UPDATE employees SET off_days = $1"`)
	assert.Contains(t, out, "deadlock detected")
	assert.NotContains(t, out, `"args"`)
}

func TestPoolStatsCollector(t *testing.T) {
	t.Parallel()

	cfg := testDatabaseConfig()
	cfg.MaxIdleConns = 0
	poolCfg, err := BuildPoolConfig(cfg)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	assert.Equal(t, 7, testutil.CollectAndCount(NewPoolStatsCollector(pool)))
}
