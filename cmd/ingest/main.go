package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/adapter/postgres"
	redisadapter "github.com/apecorreia/ProductScraper/internal/adapter/redis"
	"github.com/apecorreia/ProductScraper/internal/adapter/spill"
	"github.com/apecorreia/ProductScraper/internal/api"
	"github.com/apecorreia/ProductScraper/internal/config"
	"github.com/apecorreia/ProductScraper/internal/extract"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/normalize"
	"github.com/apecorreia/ProductScraper/internal/pipeline"
	"github.com/apecorreia/ProductScraper/internal/progress"
	"github.com/apecorreia/ProductScraper/internal/source"
	"github.com/apecorreia/ProductScraper/internal/source/gridhtml"
	pkglogger "github.com/apecorreia/ProductScraper/pkg/logger"
)

func main() {
	// Bootstrap logger until the configured level is known
	boot, _ := zap.NewProduction()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("could not load config", zap.Error(err))
	}

	logger, err := pkglogger.New(cfg.LogLevel)
	if err != nil {
		boot.Fatal("could not build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Storage Layer
	db, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	// Initialize Monitoring
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	// Repositories
	productRepo := postgres.NewProductRepo(db)
	diagsRepo := postgres.NewDiagnosticsRepo(db)
	progressRepo := postgres.NewProgressRepo(db)
	fpIndex := redisadapter.NewFingerprintCache(
		redisClient,
		postgres.NewFingerprintIndex(db),
		time.Duration(cfg.FingerprintTTLDays)*24*time.Hour,
		logger,
	)

	// Extraction and normalization tables
	normalizer, err := normalize.Load(cfg.CategoryMappingPath, diagsRepo, logger)
	if err != nil {
		logger.Fatal("failed to load category mapping", zap.Error(err))
	}
	brandList, err := extract.LoadBrands(cfg.BrandListPath)
	if err != nil {
		logger.Fatal("failed to load brand list", zap.Error(err))
	}
	brands := extract.NewBrandExtractor(brandList)

	// Progress tracking
	tracker := progress.NewTracker(progressRepo, cfg.DailyUnitLimit, logger)

	// Per-source pipeline
	spillWriter := spill.NewNDJSONWriter(cfg.SpillDir)
	build := func(src string) *pipeline.Ingestor {
		committer := pipeline.NewCommitter(src, productRepo, spillWriter,
			cfg.BatchThreshold, cfg.FlushRetries,
			time.Duration(cfg.FlushBackoffMS)*time.Millisecond,
			metrics, logger)
		return pipeline.NewIngestor(src, normalizer, brands, fpIndex, committer, diagsRepo, metrics, logger)
	}

	feeds := make([]source.Feed, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		feeds = append(feeds, gridhtml.NewFeed(cfg.FeedDir, src))
	}
	runner := pipeline.NewRunner(feeds, tracker, build, metrics, logger)

	// Ops Server
	server := api.NewServer(cfg, db, redisClient, tracker, registry, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()
	logger.Info("ops server started", zap.String("port", cfg.ServerPort))

	// A signal cancels the run; in-flight batches flush on the way out.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping run...")
		cancel()
	}()

	results, err := runner.Run(ctx)
	if err != nil {
		logger.Error("ingestion run interrupted", zap.Error(err))
	}
	for src, stats := range results {
		logger.Info("run summary",
			zap.String("source", src),
			zap.Int("ingested", stats.Ingested),
			zap.Int("inserted", stats.Commit.Inserted),
			zap.Int("updated", stats.Commit.Updated),
			zap.Int("spilled", stats.Commit.Spilled),
			zap.Int("flagged", stats.Flagged))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("ingestion run finished")
}
