// Package redis は Redis クライアントとアウトボックス中継用のリースを提供します。
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Elzohary/unifiedcontract/internal/platform/config"
)

// Client は go-redis クライアントにヘルスチェックを加えたものです。
type Client struct {
	*redis.Client
}

// New は設定から Client を生成し疎通確認を行います。URL が空の場合は nil を返します。
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health は Redis 接続が正常かを確認します。
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
