package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dealchain/config"
	"dealchain/core/events"
	"dealchain/core/state"
	"dealchain/native/admin"
	"dealchain/native/deals"
	"dealchain/observability"
	"dealchain/observability/logging"
	telemetry "dealchain/observability/otel"
	"dealchain/rpc"
	"dealchain/rpc/middleware"
	"dealchain/storage"
)

const serviceName = "dealsd"

func main() {
	var cfgPath string
	var listenOverride string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to node configuration")
	flag.StringVar(&listenOverride, "listen", "", "override the configured listen address")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if strings.TrimSpace(listenOverride) != "" {
		cfg.ListenAddress = listenOverride
	}

	env := cfg.Logging.Env
	if override := strings.TrimSpace(os.Getenv("DEALCHAIN_ENV")); override != "" {
		env = override
	}
	logger := logging.Setup(serviceName, env, logging.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open ledger", "dataDir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	genesis, err := cfg.LedgerGenesis()
	if err != nil {
		logger.Error("build genesis", "error", err)
		os.Exit(1)
	}
	applied, err := manager.ApplyGenesis(genesis)
	if err != nil {
		logger.Error("apply genesis", "error", err)
		os.Exit(1)
	}
	if applied {
		logger.Info("genesis applied", "network", cfg.NetworkName, "accounts", len(genesis.Allocs), "feeBps", genesis.FeeBps)
	}

	feed := events.NewFeed(events.DefaultFeedCapacity)
	emitter := events.Multi{feed, observability.Deals(), newEventLogger(logger)}

	engine := deals.NewEngine(manager)
	adminModule := admin.NewModule(manager, engine.Vault())
	engine.SetEmitter(emitter)
	adminModule.SetEmitter(emitter)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled(),
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  cfg.Auth.ClockSkew.Duration,
	}, logger)
	if !cfg.Auth.Enabled() {
		logger.Warn("bearer authentication disabled; trusting the " + middleware.CallerHeader + " header")
	} else {
		logger.Info("bearer authentication enabled", logging.Secret("hmacSecret", cfg.Auth.HMACSecret), "issuer", cfg.Auth.Issuer)
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
	}, logger)

	server := rpc.NewServer(rpc.Config{
		Engine:        engine,
		Admin:         adminModule,
		Feed:          feed,
		Authenticator: auth,
		RateLimiter:   limiter,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: serviceName,
			LogRequests: strings.EqualFold(env, "dev"),
		}, logger),
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go limiter.Run(ctx)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", "address", cfg.ListenAddress, "error", err)
		os.Exit(1)
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", listener.Addr().String(), "network", cfg.NetworkName)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("serve", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
