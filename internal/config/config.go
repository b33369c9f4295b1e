package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Analysis  AnalysisConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Webhook   WebhookConfig
	Worker    WorkerConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AnalysisConfig controls the video classifier
type AnalysisConfig struct {
	// Enabled switches the classifier on. When off, callers only get
	// the analysis-free guidance.
	Enabled       bool
	MaxSamples    int
	Decoder       string
	FFmpegPath    string
	FFprobePath   string
	TempDir       string
	MaxUploadSize int64
	Timeout       time.Duration
}

// RedisConfig holds Redis configuration. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// URL returns the AMQP connection URL
func (q QueueConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", q.User, q.Password, q.Host, q.Port, q.Vhost)
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// AuthConfig holds JWT settings for the job submission API. An empty
// secret leaves the job API open.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// WebhookConfig holds result callback settings
type WebhookConfig struct {
	Secret     string
	Timeout    time.Duration
	MaxRetries int
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	Concurrency int
	LockTTL     time.Duration
	MaxAttempts int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds the metrics server settings
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger settings
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	AgentHost    string
	AgentPort    int
	SamplerParam float64
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks values the services cannot start without
func (c *Config) Validate() error {
	if c.Analysis.MaxSamples <= 0 {
		return fmt.Errorf("analysis.maxSamples must be positive, got %d", c.Analysis.MaxSamples)
	}
	switch c.Analysis.Decoder {
	case "ffmpeg", "gocv":
	default:
		return fmt.Errorf("analysis.decoder must be ffmpeg or gocv, got %q", c.Analysis.Decoder)
	}
	if c.Analysis.MaxUploadSize <= 0 {
		return fmt.Errorf("analysis.maxUploadSize must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "120s")
	v.SetDefault("server.shutdownTimeout", "10s")

	// Analysis defaults
	v.SetDefault("analysis.enabled", true)
	v.SetDefault("analysis.maxSamples", 15)
	v.SetDefault("analysis.decoder", "ffmpeg")
	v.SetDefault("analysis.ffmpegPath", "ffmpeg")
	v.SetDefault("analysis.ffprobePath", "ffprobe")
	v.SetDefault("analysis.tempDir", "/tmp/emergencyprep")
	v.SetDefault("analysis.maxUploadSize", 200*1024*1024) // 200MB
	v.SetDefault("analysis.timeout", "60s")

	// Redis defaults
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "emergency-videos")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")

	// Rate limit defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 30)
	v.SetDefault("rateLimit.burst", 10)

	// Auth defaults
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "emergencyprep")

	// Webhook defaults
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.maxRetries", 3)

	// Worker defaults
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.lockTTL", "5m")
	v.SetDefault("worker.maxAttempts", 3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "emergencyprep")
	v.SetDefault("tracing.agentHost", "localhost")
	v.SetDefault("tracing.agentPort", 6831)
	v.SetDefault("tracing.samplerParam", 1.0)
}
