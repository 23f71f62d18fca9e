package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tweetcompare/internal/amqp"
	"tweetcompare/internal/backend"
	"tweetcompare/internal/cache"
	"tweetcompare/internal/cli"
	"tweetcompare/internal/config"
	"tweetcompare/internal/core"
	apphttp "tweetcompare/internal/http"
	"tweetcompare/internal/loader"
	"tweetcompare/internal/log"
	"tweetcompare/internal/metrics"
	"tweetcompare/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting tweetcompare", log.FieldOperation, log.OpStartup, "version", version)
	cfg := cli.LoadAndValidateConfig(logger)

	m := metrics.New(version)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	posts, err := loadPosts(loadCtx, cfg, logger, m)
	cancelLoad()
	if err != nil {
		logger.Error("Failed to load posts",
			log.FieldOperation, log.OpLoad,
			log.FieldSource, cfg.PostsSource,
			"error_type", log.ErrorTypeData,
			log.FieldError, err.Error())
		os.Exit(1)
	}

	var (
		publisher  services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.ConnectWithRetry(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 3, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, comparison events disabled",
				"error_type", log.ErrorTypeNetwork,
				log.FieldError, err.Error())
		} else {
			amqpClient, publisher = c, c
			logger.Info("Publishing comparison events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewComparisonService(posts, services.ComparisonOptions{
		Keywords: cfg.Keywords,
		Defaults: core.ComparisonRequest{
			YearA: cfg.DefaultYearA,
			YearB: cfg.DefaultYearB,
			Month: cfg.DefaultMonth,
		},
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(svc.CacheCleaner())
	cacheManager.StartCleanup(cfg.CacheTTL)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Service:   svc,
		Metrics:   m,
		Logger:    logger,
		RateLimit: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	go func() {
		logger.Info("Starting tweetcompare server",
			"port", cfg.Port,
			log.FieldSource, cfg.PostsSource,
			log.FieldPostCount, posts.Len(),
			"years", posts.Years(),
			"version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// loadPosts reads the configured source once and records the load outcome.
func loadPosts(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) (*core.PostSet, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	policy, err := loader.ParsePolicy(cfg.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	src, err := backend.NewFactory(logger).CreateSource(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("Failed to close post source", log.FieldError, err.Error())
		}
	}()

	posts, report, err := loader.Load(log.WithLogger(ctx, logger), src.Reader, loader.Options{Policy: policy})
	if err != nil {
		return nil, err
	}
	m.ObserveLoad(report.PostsKept, report.DroppedMissingFlags, report.DroppedMalformed)
	return posts, nil
}
