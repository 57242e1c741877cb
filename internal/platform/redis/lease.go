package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 値が自分のトークンと一致する場合のみ削除する。
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// 値が自分のトークンと一致する場合のみ期限を延長する。
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// ErrLeaseLost はリースを他のインスタンスに奪われた場合に返却されます。
var ErrLeaseLost = errors.New("redis: lease lost")

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Lease は単一インスタンスだけが処理を実行するための排他リースです。
type Lease struct {
	store leaseStore
	key   string
	token string
	ttl   time.Duration
}

// NewLease は key に対するリースを生成します。トークンはインスタンスごとに一意です。
func NewLease(store leaseStore, key string, ttl time.Duration) *Lease {
	return &Lease{store: store, key: key, token: uuid.NewString(), ttl: ttl}
}

// TryAcquire はリースの取得を試みます。既に保持している場合は期限を延長します。
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.store.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lease %s: %w", l.key, err)
	}
	if ok {
		return true, nil
	}

	if err := l.Renew(ctx); err != nil {
		if errors.Is(err, ErrLeaseLost) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Renew は保持中のリースの期限を延長します。
func (l *Lease) Renew(ctx context.Context) error {
	n, err := l.store.Eval(ctx, renewScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis: renew lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release は保持中のリースを解放します。他者のリースは削除しません。
func (l *Lease) Release(ctx context.Context) error {
	if err := l.store.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis: release lease %s: %w", l.key, err)
	}
	return nil
}
