package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/cache"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/config"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/database"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/repository"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/telemetry"
	"github.com/skywardops/telemetry-quality-engine/internal/metrics"
	"github.com/skywardops/telemetry-quality-engine/internal/service/validation"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to config file")
		inputPath  = flag.String("input", "", "NDJSON record file to replay, '-' for stdin")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, *inputPath); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, inputPath string) error {
	slog.Info("starting telemetry quality engine",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"metrics_port", cfg.Server.MetricsPort)

	otelCfg := telemetry.DefaultConfig()
	otelCfg.ServiceVersion = cfg.Version
	otelCfg.Environment = cfg.Environment
	provider, err := telemetry.Initialize(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create infra logger: %w", err)
	}
	defer zapLogger.Sync()

	registry, err := metrics.NewRegistry("tqe.engine")
	if err != nil {
		return fmt.Errorf("create metrics registry: %w", err)
	}

	opts := validation.Options{
		Registry: registry,
		Logger:   slog.Default(),
	}

	if cfg.Redis.URL != "" {
		queue, err := cache.NewQuarantineQueue(&cfg.Redis, zapLogger)
		if err != nil {
			return fmt.Errorf("connect quarantine queue: %w", err)
		}
		defer queue.Close()
		opts.Quarantine = queue
	}

	if cfg.Database.URL != "" {
		pool, err := database.NewPool(ctx, &cfg.Database, zapLogger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		repo := repository.NewVerdictRepository(pool.Pgx())
		opts.Repository = repo
		opts.History = repo
	}

	scorer, err := quality.NewScorer(cfg.QualityDomainConfig())
	if err != nil {
		return fmt.Errorf("build scorer: %w", err)
	}
	detector, err := anomaly.NewDetector(cfg.AnomalyDomainConfig())
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}

	svc := instrument(validation.NewService(scorer, detector, opts))

	pipeline, err := validation.NewPipeline(validation.PipelineConfig{
		Workers:    cfg.Pipeline.Workers,
		QueueDepth: cfg.Pipeline.QueueDepth,
	}, svc, registry, slog.Default())
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	metricsServer := startMetricsServer(cfg.Server.MetricsPort)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}()

	source, closeSource, err := openSource(inputPath)
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer closeSource()
	}

	if source == nil {
		slog.Info("no input configured, serving metrics until shutdown")
		<-ctx.Done()
		slog.Info("shutting down gracefully")
		return nil
	}

	err = pipeline.Run(ctx, source)
	stats := svc.Stats()
	slog.Info("pipeline finished",
		"records_processed", stats.RecordsProcessed,
		"records_quarantined", stats.RecordsQuarantined,
		"mean_score", stats.MeanScore())
	return err
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return server
}

// openSource resolves the -input flag into a record source. An empty path
// means the daemon has nothing to replay.
func openSource(path string) (validation.RecordSource, func() error, error) {
	switch path {
	case "":
		return nil, nil, nil
	case "-":
		return NewNDJSONSource(os.Stdin), nil, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open input %s: %w", path, err)
		}
		return NewNDJSONSource(f), f.Close, nil
	}
}
