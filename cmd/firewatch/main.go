package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"firewatch/internal/api"
	"firewatch/internal/broadcast"
	"firewatch/internal/broker"
	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/pipeline"
	"firewatch/internal/rules"
	"firewatch/internal/store"
)

func main() {
	cfg := config.FromEnv()
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rule store. The redis backend also powers the latest-reading cache.
	var (
		ruleStore   rules.Store
		latestCache *store.LatestCache
	)
	switch cfg.Rules.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:       cfg.Rules.RedisAddr,
			Password:   cfg.Rules.RedisPassword,
			DB:         cfg.Rules.RedisDB,
			MaxRetries: 3,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Rules.RedisAddr).Msg("redis unreachable")
		}
		ruleStore = rules.NewRedisStore(rdb)
		latestCache = store.NewLatestCache(rdb, cfg.Rules.LatestTTL)
		log.Info().Str("addr", cfg.Rules.RedisAddr).Msg("redis rule store initialized")
	case "memory":
		ruleStore = rules.NewMemoryStore()
	default:
		log.Fatal().Str("backend", cfg.Rules.Backend).Msg("unknown rules backend")
	}
	defer ruleStore.Close()

	// Reading store.
	var readingStore store.ReadingStore
	switch cfg.Store.Backend {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Store.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize postgres store")
		}
		readingStore = s
		log.Info().Msg("postgres reading store initialized")
	case "remote":
		readingStore = store.NewRemoteStore(cfg.Store.RemoteBaseURL, cfg.Store.AppendTimeout)
		log.Info().Str("base_url", cfg.Store.RemoteBaseURL).Msg("remote reading store initialized")
	case "memory":
		readingStore = store.NewMemoryStore()
	default:
		log.Fatal().Str("backend", cfg.Store.Backend).Msg("unknown store backend")
	}
	defer readingStore.Close()

	// Live broadcaster.
	hub := broadcast.NewHub()
	go hub.Run(ctx)

	// Ingestion pipeline.
	coordinator := pipeline.New(pipeline.Config{
		Rules:        ruleStore,
		Store:        readingStore,
		Broadcaster:  hub,
		LatestCache:  latestCache,
		StoreTimeout: cfg.Store.AppendTimeout,
	})
	dispatcher := pipeline.NewDispatcher(pipeline.DispatcherConfig{
		Coordinator: coordinator,
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
	})
	dispatcher.Start()

	// Broker source.
	var source broker.Source
	switch cfg.Broker.Kind {
	case "kafka":
		s, err := broker.NewKafkaSource(cfg.Broker)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize kafka source")
		}
		source = s
	case "mqtt":
		source = broker.NewMQTTSource(cfg.Broker)
	default:
		log.Fatal().Str("kind", cfg.Broker.Kind).Msg("unknown broker kind")
	}

	go func() {
		if err := source.Run(ctx, dispatcher.HandleMessage); err != nil {
			log.Error().Err(err).Msg("broker source exited")
			cancel()
		}
	}()

	// Retention loop, when configured.
	if cfg.Store.Retention > 0 {
		go retentionLoop(ctx, readingStore, cfg.Store.Retention, cfg.Store.PruneInterval)
	}

	// Query gateway.
	gateway := api.NewGateway(api.GatewayConfig{
		Rules:       ruleStore,
		Readings:    readingStore,
		LatestCache: latestCache,
		Hub:         hub,
		Coordinator: coordinator,
	})
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      gateway.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	// Wait for termination.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}

	// Graceful shutdown: stop consuming, drain the pipeline, then stop
	// serving queries.
	source.Close()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	cancel()
	log.Info().Msg("stopped")
}

// retentionLoop periodically prunes readings older than the retention
// window.
func retentionLoop(ctx context.Context, readings store.ReadingStore, retention, interval time.Duration) {
	log := logger.WithComponent("retention")
	if interval <= 0 {
		interval = 12 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			dropped, err := readings.Prune(ctx, cutoff)
			if err != nil {
				log.Error().Err(err).Msg("retention prune failed")
				continue
			}
			log.Info().Int64("dropped", dropped).Time("cutoff", cutoff).Msg("retention prune completed")
		}
	}
}
