package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"amlaw-directory/internal/authgate"
	"amlaw-directory/internal/config"
	"amlaw-directory/internal/httpapi"
	"amlaw-directory/internal/kstream"
	"amlaw-directory/internal/lists"
	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/lookup"
	"amlaw-directory/internal/metrics"
	"amlaw-directory/internal/search"
	"amlaw-directory/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "directory-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	if !cfg.Auth.AuthConfigured() {
		log.Warn("identity provider not configured; every protected route redirects to login")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	client, err := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, m)
	if err != nil {
		return err
	}

	storage, closeStorage, err := newListStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher", zap.Error(err))
		}
	}()

	gate := authgate.New(authgate.Options{
		Provider:    authgate.Provider{URL: cfg.Auth.ProviderURL, AnonKey: cfg.Auth.AnonKey},
		LoginPath:   cfg.Auth.LoginPath,
		PublicPaths: cfg.Auth.PublicPaths,
	})

	opts := httpapi.Options{
		Logger: log,
		Gate:   gate,
		Services: []httpapi.RouteRegistrar{
			lookup.NewService(lookup.NewResolver(client, cfg.Upstream.APIPrefix, m)),
			search.NewService(client, search.Options{
				SearchPath: cfg.Upstream.SearchPath,
				FacetsPath: cfg.Upstream.FacetsPath,
				SiteURL:    cfg.Site.BaseURL,
			}, m),
			lists.NewService(lists.NewStore(storage, cfg.Lists.KeyPrefix, publisher)),
		},
		Upstream:           client,
		UpstreamHealthPath: cfg.Upstream.FacetsPath,
	}
	if m != nil {
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = m.Handler()
	}
	if cfg.HTTP.RateLimitEnabled {
		opts.RateLimiter = httpapi.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	server := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      httpapi.NewHandler(opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.Info("directory API listening",
			zap.String("addr", cfg.App.Addr),
			zap.String("upstream", client.BaseURL()),
			zap.String("lists_backend", cfg.Lists.Backend),
			zap.String("events_backend", cfg.Events.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newListStorage(cfg *config.Config) (lists.Storage, func(), error) {
	switch cfg.Lists.Backend {
	case "file":
		fs, err := lists.NewFileStorage(cfg.Lists.DataDir)
		return fs, func() {}, err
	case "redis":
		// redis/go-redis/v9: one client shared by every request.
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr, err)
		}
		return lists.NewRedisStorage(rdb), func() { _ = rdb.Close() }, nil
	default:
		return lists.NewMemoryStorage(), func() {}, nil
	}
}

func newPublisher(cfg *config.Config, log *zap.Logger) (kstream.Publisher, error) {
	switch cfg.Events.Backend {
	case "kafka":
		return kstream.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, log)
	case "file":
		return kstream.NewFilePublisher(cfg.Events.DataDir)
	default:
		return kstream.NopPublisher{}, nil
	}
}
