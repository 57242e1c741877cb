package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Elzohary/unifiedcontract/internal/adapters/eventbus/kafka"
	"github.com/Elzohary/unifiedcontract/internal/adapters/repository/postgres"
	"github.com/Elzohary/unifiedcontract/internal/app"
	"github.com/Elzohary/unifiedcontract/internal/platform/config"
	pg "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/Elzohary/unifiedcontract/internal/platform/httpserver"
	"github.com/Elzohary/unifiedcontract/internal/platform/logger"
	"github.com/Elzohary/unifiedcontract/internal/platform/metrics"
	"github.com/Elzohary/unifiedcontract/internal/platform/outbox"
	"github.com/Elzohary/unifiedcontract/internal/platform/redis"
	"github.com/Elzohary/unifiedcontract/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging, os.Stdout)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database, pg.WithSlowQueryLog(log.With("component", "postgres"), cfg.Database))
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), pg.NewPoolStatsCollector(dbPool))
	m := metrics.New(registry)

	tx := pg.NewTransactionManager(dbPool)
	outboxRepo := postgres.NewOutboxRepository(dbPool)
	services := app.NewServices(app.Deps{
		DB:        dbPool,
		Tx:        tx,
		Publisher: metrics.InstrumentPublisher(outboxRepo, m),
	})

	checks := map[string]httpserver.Checker{
		"postgres": httpserver.CheckerFunc(dbPool.Ping),
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient
	}

	var relay *outbox.Relay
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
		checks["kafka"] = producer

		if cfg.Outbox.Enabled {
			opts := []outbox.Option{
				outbox.WithLogger(log.With("component", "outbox")),
				outbox.WithMetrics(m),
				outbox.WithPolling(cfg.Outbox.PollInterval, cfg.Outbox.BatchSize),
			}
			if redisClient != nil {
				opts = append(opts, outbox.WithLocker(redis.NewLease(redisClient, cfg.Outbox.LeaseKey, cfg.Outbox.LeaseTTL)))
			}
			relay = outbox.NewRelay(outboxRepo, producer, tx, opts...)
			outboxRepo.NotifyOnCommit(relay.Notify)
		}
	}

	grpcServer := server.New(cfg.Server.ListenAddr, log.With("component", "grpc"))
	for _, name := range services.Names() {
		grpcServer.Health().SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	opsServer := httpserver.New(cfg.Ops.ListenAddr, cfg.Ops.ShutdownTimeout, registry, checks, log.With("component", "ops"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Run(gctx) })
	g.Go(func() error { return opsServer.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
