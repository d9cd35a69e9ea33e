package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exemee/Laba8-server/internal/collection"
	"github.com/exemee/Laba8-server/internal/dispatch"
	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/pool"
	"github.com/exemee/Laba8-server/internal/server"
	"github.com/exemee/Laba8-server/internal/session"
	"github.com/exemee/Laba8-server/pkg/config"
	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/metrics"
	prommetrics "github.com/exemee/Laba8-server/pkg/metrics/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	listenAddr := flag.String("listen", "", "Listen address override (host:port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// CLI flags win over file and environment.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set log output: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence store per config; the collection mirrors it from the
	// first moment.
	st, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Store close failed: %v", err)
		}
	}()

	coll := collection.New()
	groups, err := st.LoadGroups(ctx)
	if err != nil {
		log.Fatalf("Failed to load groups: %v", err)
	}
	coll.Hydrate(groups)
	logger.Info("Hydrated collection with %d groups from %s store", len(groups), cfg.Store.Type)

	var cmdMetrics metrics.CommandMetrics
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		cmdMetrics = prommetrics.NewCommandMetrics()
		metricsSrv = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
	} else {
		cmdMetrics = metrics.NewNoopCommandMetrics()
	}

	gate := session.NewGate(st)
	validator := group.NewValidator()
	dispatcher := dispatch.New(gate, st, validator, coll)

	fixedPool := pool.NewFixed(cfg.Server.Pools.FixedWorkers, cfg.Server.Pools.FixedQueue)
	scanPool := pool.NewScan(cfg.Server.Pools.ScanParallel)

	srv := server.New(server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		MaxConnections:  cfg.Server.MaxConnections,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		SyncInterval:    cfg.Server.SyncInterval,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, dispatcher, fixedPool, scanPool, cmdMetrics)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received %s, shutting down", sig)
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	fixedPool.Close()
	scanPool.Close()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Stop(shutdownCtx); err != nil {
			logger.Warn("Metrics server stop failed: %v", err)
		}
	}

	logger.Info("Server stopped")
}
