package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/analyzer"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/cache"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/config"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/queue"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/storage"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/tracing"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/webhook"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}
	logger = logger.WithField("service", "worker")

	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing.Enabled, tracing.Config{
		ServiceName:  cfg.Tracing.ServiceName + "-worker",
		AgentHost:    cfg.Tracing.AgentHost,
		AgentPort:    cfg.Tracing.AgentPort,
		SamplerParam: cfg.Tracing.SamplerParam,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracerCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stor, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue, cfg.Worker.MaxAttempts, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	healthChecks := map[string]metrics.Check{
		"queue":   q.Ping,
		"storage": stor.Ping,
	}

	processor := &Processor{
		store:    stor,
		notifier: webhook.NewService(cfg.Webhook, logger),
		tempDir:  cfg.Analysis.TempDir,
		lockTTL:  cfg.Worker.LockTTL,
		logger:   logger,
	}

	if cfg.Redis.Enabled() {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer c.Close()
		processor.locker = c
		healthChecks["redis"] = c.Ping
	} else {
		logger.Warn("Redis not configured, jobs are processed without locking")
	}

	if cfg.Analysis.Enabled {
		opener, err := video.NewOpener(video.OpenerConfig{
			Backend:     cfg.Analysis.Decoder,
			FFmpegPath:  cfg.Analysis.FFmpegPath,
			FFprobePath: cfg.Analysis.FFprobePath,
		})
		if err != nil {
			logger.Fatalf("Failed to create video decoder: %v", err)
		}
		svc, err := analyzer.NewService(opener, analyzer.Config{
			MaxSamples: cfg.Analysis.MaxSamples,
			Timeout:    cfg.Analysis.Timeout,
		}, logger)
		if err != nil {
			logger.Fatalf("Failed to create analyzer: %v", err)
		}
		processor.analyzer = svc
	}

	if err := os.MkdirAll(cfg.Analysis.TempDir, 0o755); err != nil {
		logger.Fatalf("Failed to create temp dir: %v", err)
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, "worker", healthChecks)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
		go q.ReportDepth(ctx, 30*time.Second)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	logger.Infof("Worker started with %d goroutines, waiting for jobs...", cfg.Worker.Concurrency)
	if err := q.Consume(ctx, cfg.Worker.Concurrency, processor.Handle); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	logger.Info("Worker stopped")
}
