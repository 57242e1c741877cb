// Package httpserver は運用向けの HTTP エンドポイント (/healthz, /readyz, /metrics) を提供します。
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 2 * time.Second

// Checker は依存先の疎通確認を行います。
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc は関数を Checker として扱います。
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// Server は運用 HTTP サーバーです。
type Server struct {
	listenAddr      string
	shutdownTimeout time.Duration
	handler         http.Handler
	logger          *slog.Logger
}

// New は運用ルーターを構築します。checks の各要素は /readyz で確認されます。
func New(listenAddr string, shutdownTimeout time.Duration, gatherer prometheus.Gatherer, checks map[string]Checker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		listenAddr:      listenAddr,
		shutdownTimeout: shutdownTimeout,
		handler:         NewRouter(gatherer, checks),
		logger:          logger,
	}
}

// Handler はルーターを返します。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// NewRouter は /healthz, /readyz, /metrics を持つ chi ルーターを返します。
func NewRouter(gatherer prometheus.Gatherer, checks map[string]Checker) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", readinessHandler(checks))

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return router
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func readinessHandler(checks map[string]Checker) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name, c := range checks {
		if c != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		report := readinessReport{Status: "ready", Checks: make(map[string]string, len(names))}
		code := http.StatusOK
		for _, name := range names {
			if err := checks[name].Health(ctx); err != nil {
				report.Checks[name] = err.Error()
				report.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると Shutdown します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は既存のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	s.logger.Info("ops http server listening", slog.String("addr", lis.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
