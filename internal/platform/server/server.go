package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/Elzohary/unifiedcontract/internal/adapters/grpc/interceptor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。
// ヘルスチェックサービスと共通インターセプターを登録します。
func New(listenAddr string, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLogging(logger),
			interceptor.UnaryErrors(),
			interceptor.UnaryActor(),
		),
	}, opts...)
	srv := grpc.NewServer(opts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     healthSrv,
		logger:     logger,
	}
}

// Health はサービスごとの稼働状態を更新するためのヘルスサーバーを返します。
func (s *Server) Health() *health.Server {
	return s.health
}

// RegisterService は追加の gRPC サービスを登録します。Run より前に呼び出します。
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl any) {
	s.grpcServer.RegisterService(desc, impl)
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は既存のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("grpc server listening", slog.String("addr", lis.Addr().String()))

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
