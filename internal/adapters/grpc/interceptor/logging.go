package interceptor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ActorMetadataKey は呼び出し元の操作者を伝える gRPC メタデータのキーです。
const ActorMetadataKey = "x-actor"

// UnaryActor はメタデータの操作者をコンテキストへ設定します。
func UnaryActor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
				ctx = shared.WithActor(ctx, values[0])
			}
		}
		return handler(ctx, req)
	}
}

// UnaryLogging は RPC ごとの結果と所要時間を記録します。
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		switch code {
		case codes.OK, codes.NotFound, codes.InvalidArgument, codes.AlreadyExists, codes.FailedPrecondition:
		default:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.LogAttrs(ctx, level, "grpc request", attrs...)
		return resp, err
	}
}
