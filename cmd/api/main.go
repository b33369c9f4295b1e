package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/analyzer"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/cache"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/config"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/middleware"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/queue"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/storage"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/tracing"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
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
	logger = logger.WithField("service", "api")

	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing.Enabled, tracing.Config{
		ServiceName:  cfg.Tracing.ServiceName,
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

	api := &API{
		analysisEnabled: cfg.Analysis.Enabled,
		tempDir:         cfg.Analysis.TempDir,
		maxUploadSize:   cfg.Analysis.MaxUploadSize,
		checks:          map[string]HealthCheck{},
		logger:          logger,
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
		api.analyzer = svc
	} else {
		logger.Warn("Video analysis disabled, serving guidance only")
	}

	// Storage and queue back the asynchronous job API only, so the
	// server still starts without them
	stor, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Warn("Object storage unavailable, job API disabled")
	} else {
		api.storage = stor
		api.checks["storage"] = stor.Ping
	}

	q, err := queue.New(cfg.Queue, cfg.Worker.MaxAttempts, logger)
	if err != nil {
		logger.WithError(err).Warn("Queue unavailable, job API disabled")
	} else {
		defer q.Close()
		api.queue = q
	}

	var limiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.Redis.Enabled() {
			c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				logger.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer c.Close()
			api.checks["redis"] = c.Ping
			limiter = middleware.DistributedRateLimit(c, int64(cfg.RateLimit.RequestsPerMinute), time.Minute, logger)
		} else {
			rl := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimit.RequestsPerMinute), cfg.RateLimit.Burst)
			go rl.Cleanup(ctx, 10*time.Minute, 30*time.Minute)
			limiter = middleware.RateLimit(rl)
		}
	}

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !auth.Enabled() {
		logger.Warn("JWT secret not set, job API is unauthenticated")
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, "api", nil)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api, auth, limiter, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}

	logger.Info("Server stopped")
}
