package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solvys/predictipulse/internal/backtest"
	"github.com/solvys/predictipulse/internal/cache"
	"github.com/solvys/predictipulse/internal/config"
	"github.com/solvys/predictipulse/internal/engine"
	"github.com/solvys/predictipulse/internal/feeds/espn"
	"github.com/solvys/predictipulse/internal/gateway"
	httpHandler "github.com/solvys/predictipulse/internal/handler/http"
	"github.com/solvys/predictipulse/internal/messaging"
	"github.com/solvys/predictipulse/internal/metrics"
	"github.com/solvys/predictipulse/internal/scanner"
	"github.com/solvys/predictipulse/internal/service"
	"github.com/solvys/predictipulse/internal/settings"
	"github.com/solvys/predictipulse/internal/tracker"
	"github.com/solvys/predictipulse/pkg/consensus"
)

func main() {
	configPath := flag.String("config", os.Getenv("PREDICTIPULSE_CONFIG"), "optional config file (yaml, json or toml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("starting predictipulse")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probability cache: Redis when enabled, in-process otherwise
	var probCache service.Cache
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache = cache.NewRedisCache(
			cache.RedisCacheConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				TTL:      cfg.Redis.TTL,
			},
			logger,
		)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		probCache = redisCache
	} else {
		probCache = cache.NewMemoryCache(cfg.Redis.TTL, logger)
	}
	defer probCache.Close()

	// Sharp consensus model and the probability service over it
	model := consensus.NewConsensus(cfg.Consensus.ToConsensusParams(), logger)
	probService := service.NewProbabilityService(model, probCache, logger)

	// Trading settings
	var store settings.Store
	switch cfg.Settings.Backend {
	case "redis":
		if redisCache == nil {
			logger.Fatal().Msg("settings.backend=redis requires redis.enabled")
		}
		store = settings.NewRedisStore(redisCache.Client(), cfg.Settings.Key, logger)
	default:
		store = settings.NewFileStore(cfg.Settings.Path, logger)
	}
	values, err := store.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load trading settings")
	}

	// Performance tracker
	perf, err := tracker.New(cfg.Storage.DSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("dsn", cfg.Storage.DSN).Msg("failed to open performance tracker")
	}
	defer perf.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Execution venue
	venue := buildVenue(cfg, logger)

	deps := engine.Deps{
		Scanner: scanner.New(probService, logger),
		Sink:    perf,
		Metrics: m,
		Logger:  logger,
	}
	if venue != nil {
		deps.Venue = venue
		var sources []gateway.MarketDataSource
		if src, ok := venue.(gateway.MarketDataSource); ok {
			sources = append(sources, src)
		}
		deps.MarketData = gateway.NewMarketData(sources, gateway.MarketDataConfig{
			SourceTimeout: cfg.Venue.Timeout * 2,
			MaxAttempts:   2,
		}, logger)
	}

	// Kafka: odds ingestion and the event mirror
	if cfg.Kafka.Enabled {
		consumer := messaging.NewKafkaConsumer(
			messaging.KafkaConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.OddsTopic,
				GroupID: cfg.Kafka.GroupID,
			},
			model,
			probCache,
			logger,
		)
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Kafka consumer failed")
			}
		}()

		publisher := messaging.NewKafkaPublisher(messaging.KafkaPublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		}, logger)
		defer publisher.Close()
		deps.Mirror = publisher
	}

	// BoltOdds sharp odds feed
	startOddsFeed(ctx, cfg, values, probService, logger)

	eng := engine.New(deps, engineOptions(cfg), values)
	logger.Info().Bool("venue", venue != nil).Bool("demo", cfg.Engine.DemoMode).Msg("engine initialized")

	results := espn.NewClient(cfg.Odds.ESPNBaseURL, cfg.Odds.Timeout, logger)
	backtester := backtest.New(results, cfg.Engine.Seed, logger)

	apiHandler := httpHandler.NewHandler(eng, store, perf, backtester, logger)

	// Setup HTTP server routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health and monitoring endpoints
	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		readyHandler(w, r, perf, probCache)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Register API routes
	apiHandler.RegisterRoutes(r)
	logger.Info().Msg("API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")

	eng.Stop()
	cancel()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		ScanInterval:        cfg.Engine.ScanInterval,
		SimulationInterval:  cfg.Engine.SimulationInterval,
		StopTimeout:         cfg.Engine.StopTimeout,
		ConnectTimeout:      cfg.Engine.ConnectTimeout,
		SimTradeProbability: cfg.Engine.SimTradeProbability,
		MinSimStake:         cfg.Engine.MinSimStake,
		PaperBankroll:       cfg.Engine.PaperBankroll,
		Seed:                cfg.Engine.Seed,
		DemoMode:            cfg.Engine.DemoMode,
		AutoTrade:           cfg.Engine.AutoTrade,
	}
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set format
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return log.Logger.With().Str("service", "predictipulse").Logger()
}

// healthHandler returns 200 if service is running
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type pinger interface {
	Ping(ctx context.Context) error
}

// readyHandler returns 200 once the tracker database and the cache respond
func readyHandler(w http.ResponseWriter, r *http.Request, perf, probCache pinger) {
	if err := perf.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("tracker unavailable"))
		return
	}
	if err := probCache.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("cache unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
