package shared

import (
	"context"
	"strings"
)

// SystemActor はリクエスト元が特定できない場合の操作者です。
const SystemActor = "system"

type actorKey struct{}

// WithActor は操作者 ID をコンテキストに格納します。
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext はコンテキストから操作者 ID を取り出します。未設定なら SystemActor を返します。
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
