package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/api"
	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/config"
	"github.com/platinummonkey/acquisitions/pkg/middleware"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/policy"
	"github.com/platinummonkey/acquisitions/pkg/storage/postgres"
)

const dbHealthInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("acquisitions: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName).
		WithField("env", cfg.App.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("OpenTelemetry unavailable, continuing without it")
		providers = nil
	}

	// Database
	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		Debug:       cfg.Database.Debug,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, cm.SQL()); err != nil {
			cm.Close()
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	// Rate windows live in Redis when configured, otherwise in process memory
	var (
		redisClient *postgres.RedisClient
		redisHealth redis.UniversalClient
		redisStats  observability.RedisStatsSource
		windows     policy.WindowStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = postgres.NewRedisClient(postgres.RedisConfig{
			URL:        cfg.Redis.URL,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		})
		if err != nil {
			cm.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		redisHealth = redisClient.Client()
		redisStats = redisClient
		windows = policy.NewRedisWindowStore(redisClient.Client())
		logger.Info("Redis connected, rate windows are shared")
	} else {
		windows = policy.NewMemoryWindowStore(cfg.Policy.WindowCacheSize)
		logger.Warn("REDIS_URL not set, rate windows are kept in memory")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Security pipeline
	botMode, shieldMode, rateMode, err := cfg.Policy.Modes()
	if err != nil {
		return err
	}
	allowedBots, err := cfg.Policy.BotCategories()
	if err != nil {
		return err
	}
	engine := policy.NewEngine(policy.EngineConfig{
		Key:         []byte(cfg.Policy.Key),
		BotMode:     botMode,
		ShieldMode:  shieldMode,
		AllowedBots: allowedBots,
		Windows:     []policy.Window{cfg.Policy.BurstWindow(rateMode)},
		Logger:      logger,
		Recorder:    metrics,
	}, windows)

	tokens := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	security := middleware.NewSecurityMiddleware(middleware.SecurityConfig{
		Oracle:     engine,
		Verifier:   tokens,
		Limits:     middleware.NewRoleLimits(nil, middleware.DefaultLimitInterval, rateMode),
		TrustProxy: cfg.Server.TrustProxy,
	})

	// API
	userStore := postgres.NewUserStore(cm.DB())
	health := observability.NewHealthChecker(cm.SQL(), redisHealth, cfg.Observability.OTelServiceVersion)

	apiCfg := api.Config{
		Accounts:      accounts.NewService(userStore, auth.NewBcryptHasher(auth.DefaultBcryptCost), logger),
		Directory:     userStore,
		Tokens:        tokens,
		Logger:        logger,
		Security:      security,
		Health:        health,
		CORSOrigins:   cfg.Server.CORSOrigins,
		SecureCookies: cfg.App.IsProduction(),
	}
	if cfg.Observability.MetricsEnabled {
		apiCfg.Metrics = metrics
	}
	handler := api.NewServer(apiCfg).Handler()
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "acquisitions-api")
	}

	// net/http reports TLS handshake and connection errors here
	errWriter := logger.ErrorWriter()
	defer errWriter.Close()
	errorLog := log.New(errWriter, "", 0)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     errorLog,
	}

	// Ops: metrics and probes on their own port
	opsMux := http.NewServeMux()
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	observability.RegisterHealthRoutes(opsMux, health)
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          errorLog,
	}

	collector := observability.NewPoolStatsCollector(metrics, cm, redisStats, logger)
	if err := collector.Start(observability.DefaultCollectSchedule); err != nil {
		return err
	}
	cm.StartHealthCheckRoutine(ctx, dbHealthInterval, logger)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer("api", apiServer)
	shutdown.RegisterServer("ops", opsServer)
	shutdown.RegisterShutdownFunc("pool stats collector", collector.Stop)
	shutdown.RegisterShutdownFunc("database", func(context.Context) error {
		return cm.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Listening on http://%s", apiServer.Addr)
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.Infof("Ops server listening on http://%s", opsServer.Addr)
		return serve(opsServer)
	})
	g.Go(func() error {
		shutdown.WaitForSignal(gctx)
		cancel()
		return shutdown.Shutdown()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// serve runs srv until it is shut down
func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}
