package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ymalspace/search-gateway/internal/aggregate"
	"github.com/ymalspace/search-gateway/internal/cache"
	"github.com/ymalspace/search-gateway/internal/config"
	"github.com/ymalspace/search-gateway/internal/fanout"
	"github.com/ymalspace/search-gateway/internal/handler"
	"github.com/ymalspace/search-gateway/internal/logger"
	"github.com/ymalspace/search-gateway/internal/metasearch"
	"github.com/ymalspace/search-gateway/internal/metrics"
	"github.com/ymalspace/search-gateway/internal/promoted"
	"github.com/ymalspace/search-gateway/internal/search"
)

func main() {
	dotEnvErr := config.LoadDotEnv()
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Service:    "search-gateway",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer log.Sync()
	if dotEnvErr != nil {
		log.Warn("could not load .env file", zap.Error(dotEnvErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := buildRegistry(cfg.Search, log)
	if len(registry.Names()) == 0 {
		log.Fatal("no search sources enabled", zap.Strings("requested", cfg.Search.Sources))
	}

	resultCache, closeCache := buildCache(ctx, cfg.Cache, log)
	defer closeCache()

	m := metrics.New()
	fan := fanout.New(registry, resultCache, m, log, fanout.Config{
		Timeout:         cfg.Search.Timeout,
		Retries:         cfg.Search.Retries,
		CacheTTL:        cfg.Cache.TTL,
		BreakerFailures: uint32(max(cfg.Search.BreakerFailures, 0)),
		BreakerCooldown: cfg.Search.BreakerCooldown,
	})

	loader, closeLoader, err := buildPromotedLoader(ctx, cfg.Promoted)
	if err != nil {
		log.Fatal("promoted inventory", zap.Error(err))
	}
	defer closeLoader()
	catalog := promoted.NewCatalog(loader, log)
	if _, err := catalog.Reload(ctx); err != nil {
		log.Warn("starting without promoted inventory", zap.Error(err))
	}
	go catalog.Run(ctx, cfg.Promoted.Refresh)

	svc := metasearch.New(fan, aggregate.New(), catalog, m, log, metasearch.Config{
		PageSize:    cfg.Search.PageSize,
		MaxPageSize: cfg.Search.MaxPageSize,
		PerSource:   cfg.Search.PerSource,
	})

	router := handler.NewRouter(handler.RouterOptions{
		Service: svc,
		Admin: handler.AdminOptions{
			Username:     cfg.AdminUser,
			PasswordHash: cfg.AdminPassHash,
			JWTSecret:    cfg.JWTSecret,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m.Handler(),
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("gateway listening",
			zap.String("addr", srv.Addr),
			zap.Strings("sources", registry.Names()),
			zap.String("cache", cfg.Cache.Backend),
			zap.String("promoted", cfg.Promoted.Source),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildRegistry(cfg config.SearchConfig, log *zap.Logger) *search.Registry {
	var providers []search.Provider
	for _, name := range cfg.Sources {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case search.ProviderSearxng:
			providers = append(providers, search.NewSearxngProvider(cfg.SearxngInstances, cfg.SearxngAPIKey, cfg.Timeout))
		case search.ProviderGoogle:
			providers = append(providers, search.NewGoogleProvider(cfg.GoogleEndpoint, cfg.GoogleAPIKey, cfg.GoogleCX, cfg.Timeout))
		case search.ProviderDuckDuckGo:
			providers = append(providers, search.NewDuckDuckGoProvider(cfg.DuckEndpoint, cfg.Timeout))
		case search.ProviderWikipedia:
			providers = append(providers, search.NewWikipediaProvider(cfg.WikiEndpoint, cfg.WikiLang, cfg.Timeout))
		case search.ProviderWorker:
			providers = append(providers, search.NewWorkerProvider(cfg.WorkerEndpoints, cfg.Timeout))
		default:
			log.Warn("ignoring unknown search source", zap.String("source", name))
		}
	}
	return search.NewRegistry(providers...)
}

func buildCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (cache.Cache, func()) {
	switch cfg.Backend {
	case "none", "off":
		return cache.Nop{}, func() {}
	case "redis":
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, falling back to in-memory cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = rc.Close()
			return cache.NewMemory(cfg.Capacity, cfg.TTL), func() {}
		}
		return rc, func() { _ = rc.Close() }
	default:
		return cache.NewMemory(cfg.Capacity, cfg.TTL), func() {}
	}
}

func buildPromotedLoader(ctx context.Context, cfg config.PromotedConfig) (promoted.Loader, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case "", "none":
		return promoted.StaticLoader(nil), noop, nil
	case "file":
		return promoted.FileLoader{Path: cfg.File}, noop, nil
	case "s3":
		l, err := promoted.NewObjectLoader(promoted.ObjectConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Secure:    cfg.S3Secure,
			Bucket:    cfg.S3Bucket,
			Object:    cfg.S3Object,
		})
		return l, noop, err
	case "postgres":
		l, err := promoted.NewPostgresLoader(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return l, l.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown promoted source %q", cfg.Source)
	}
}

