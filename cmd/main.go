package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	appregistry "github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/registry"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/server"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/worker"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/config"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/logger"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/metrics"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/telemetry"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/plugins/postgres"
	redisPlugin "github.com/hiten-mitsurugi/alumni-system-sub001/internal/plugins/redis"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN, "err", err)
		return
	}
	log.Info("postgres connected")
	defer pdb.Close()
	var rdb *goredis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return
	}
	log.Info("redis connected")
	defer rdb.Close()

	// Metrics
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	// Adapters
	presenceRepo := postgres.NewPresenceRepository(pdb)
	txManager := postgres.NewTxManager(pdb)
	liveness := redisPlugin.NewRedisLivenessStore(rdb, 75*time.Second)
	var bridge contracts.EventBridge
	if cfg.Bridge.Enabled {
		bridge = redisPlugin.NewRedisBridge(log, rdb, cfg.Bridge.NodeID)
	}

	// Core
	groups := appregistry.NewGroupTable()
	reg := appregistry.NewRegistry(groups, m)
	dispatcher := services.NewDispatcherService(log, reg, groups, bridge, m)
	presence := services.NewPresenceService(log, dispatcher, liveness, presenceRepo, txManager, m)
	manager := services.NewManagerService(log, reg, groups, dispatcher, presence)
	tokenSvc := services.NewTokenService(cfg.Secret)

	if bridge != nil {
		bw := worker.NewBridgeWorker(log, bridge, dispatcher)
		go bw.Run(ctx)
		log.Info("cross-node bridge enabled", "node_id", cfg.Bridge.NodeID)
	}

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, reg, manager, dispatcher, presence, tokenSvc, promReg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
	}
	log.Info("server stopped")
}
