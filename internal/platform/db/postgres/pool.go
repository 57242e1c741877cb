package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Elzohary/unifiedcontract/internal/platform/config"
)

const applicationName = "unifiedcontract"

// PoolOption は接続プール生成時の追加設定です。
type PoolOption func(*pgxpool.Config)

// WithSlowQueryLog は cfg.SlowQueryThreshold を超えたクエリを logger へ出力します。
// 閾値が 0 の場合は何もしません。
func WithSlowQueryLog(logger *slog.Logger, cfg config.DatabaseConfig) PoolOption {
	return func(pc *pgxpool.Config) {
		if cfg.SlowQueryThreshold <= 0 || logger == nil {
			return
		}
		pc.ConnConfig.Tracer = NewSlowQueryTracer(logger, cfg.SlowQueryThreshold)
	}
}

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
func BuildPoolConfig(cfg config.DatabaseConfig, opts ...PoolOption) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if poolCfg.MinConns > poolCfg.MaxConns {
		return nil, fmt.Errorf("postgres: max_idle_conns %d exceeds max_open_conns %d", poolCfg.MinConns, poolCfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	// 監査列とアウトボックスの時刻は UTC で扱います。
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	for _, opt := range opts {
		opt(poolCfg)
	}
	return poolCfg, nil
}

// NewPool は pgxpool.Pool を生成し疎通確認を行います。
func NewPool(ctx context.Context, cfg config.DatabaseConfig, opts ...PoolOption) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping %s/%s: %w", cfg.Host, cfg.Name, err)
	}

	return pool, nil
}
