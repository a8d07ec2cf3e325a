// Package config provides environment-driven configuration for the
// newsfeeds services, validated once at process start and injected into
// each component.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Recognized STORAGE_BACKEND values.
const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"
)

const (
	defaultPort            = "8080"
	defaultDatabaseURL     = "user=postgres password=password dbname=newsfeeds host=localhost port=5432 sslmode=disable"
	defaultRedisURL        = "redis://localhost:6379/0"
	defaultQueueName       = "newsfeeds-demo"
	defaultBucket          = "newsfeeds"
	defaultRegion          = "us-east-1"
	defaultSearchBaseURL   = "http://localhost:8002"
	defaultLocalStorePath  = "_output"
	defaultDeadLetterKey   = "newsfeeds:dead_letter"
	defaultResultLimit     = 5
	defaultMaxAttempts     = 3
	defaultPoolSize        = 5
	defaultIntervalHours   = 4
	defaultVisibilitySec   = 120
	defaultInitialDelayMs  = 2000
	defaultMaxDelayMs      = 60000
	defaultBackoffMultiple = 2.0
)

// Configuration validation errors.
var (
	ErrMissingS3Endpoint        = errors.New("S3_ENDPOINT is required")
	ErrMissingS3Credentials     = errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	ErrInvalidBucket            = errors.New("S3_BUCKET cannot be empty")
	ErrInvalidQueueName         = errors.New("QUEUE_NAME cannot be empty")
	ErrInvalidDeadLetterKey     = errors.New("DEAD_LETTER_KEY cannot be empty")
	ErrInvalidMaxAttempts       = errors.New("MAX_ATTEMPTS must be at least 1")
	ErrInvalidPoolSize          = errors.New("WORKER_POOL_SIZE must be at least 1")
	ErrInvalidInterval          = errors.New("SCHEDULE_INTERVAL_HOURS must be at least 1")
	ErrInvalidVisibility        = errors.New("VISIBILITY_TIMEOUT_SEC must be at least 1")
	ErrInvalidResultLimit       = errors.New("SEARCH_RESULT_LIMIT must be between 1 and 10")
	ErrInvalidInitialDelay      = errors.New("RETRY_INITIAL_DELAY_MS must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("RETRY_BACKOFF_MULTIPLIER must be >= 1.0")
	ErrInvalidStorageBackend    = errors.New(`STORAGE_BACKEND must be "s3" or "local"`)
	ErrInvalidLocalStorePath    = errors.New("LOCAL_STORAGE_PATH cannot be empty")
)

// RetryPolicy defines retry pacing for failed jobs.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelayMs    int
	MaxDelayMs        int
	BackoffMultiplier float64
}

// Delay calculates the exponential backoff delay before the given attempt
// number, capped at the configured maximum.
func (rp RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Compare before converting: a large multiplier can push the float
	// past MaxInt, where an int conversion would wrap.
	if delayMs > float64(rp.MaxDelayMs) {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// Config holds every recognized setting for the newsfeeds services.
type Config struct {
	Port        string
	DatabaseURL string

	// Broker (job queue + dead-letter list)
	RedisURL          string
	QueueName         string
	DeadLetterKey     string
	VisibilityTimeout time.Duration
	Retry             RetryPolicy

	// Object store. StorageBackend selects between the S3-compatible
	// store and a local-filesystem store for offline runs.
	StorageBackend   string
	LocalStoragePath string
	S3Endpoint       string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3UseSSL         bool
	S3Bucket         string

	// Search provider
	SearchBaseURL     string
	SearchResultLimit int

	// Coordination
	ScheduleInterval time.Duration
	WorkerPoolSize   int
}

// Load reads the full configuration from the environment, applying
// defaults and logging warnings where a local-development fallback is
// used. Call Validate before handing the result to any component.
func Load() Config {
	cfg := Config{
		Port:              getEnv("PORT", defaultPort),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          getEnv("REDIS_URL", defaultRedisURL),
		QueueName:         getEnv("QUEUE_NAME", defaultQueueName),
		DeadLetterKey:     getEnv("DEAD_LETTER_KEY", defaultDeadLetterKey),
		VisibilityTimeout: time.Duration(getEnvInt("VISIBILITY_TIMEOUT_SEC", defaultVisibilitySec)) * time.Second,
		Retry: RetryPolicy{
			MaxAttempts:       getEnvInt("MAX_ATTEMPTS", defaultMaxAttempts),
			InitialDelayMs:    getEnvInt("RETRY_INITIAL_DELAY_MS", defaultInitialDelayMs),
			MaxDelayMs:        getEnvInt("RETRY_MAX_DELAY_MS", defaultMaxDelayMs),
			BackoffMultiplier: getEnvFloat("RETRY_BACKOFF_MULTIPLIER", defaultBackoffMultiple),
		},
		StorageBackend:    getEnv("STORAGE_BACKEND", StorageBackendS3),
		LocalStoragePath:  getEnv("LOCAL_STORAGE_PATH", defaultLocalStorePath),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getEnv("S3_REGION", defaultRegion),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:          getEnvBool("S3_USE_SSL", false),
		S3Bucket:          getEnv("S3_BUCKET", defaultBucket),
		SearchBaseURL:     getEnv("SEARCH_API_BASE_URL", defaultSearchBaseURL),
		SearchResultLimit: getEnvInt("SEARCH_RESULT_LIMIT", defaultResultLimit),
		ScheduleInterval:  time.Duration(getEnvInt("SCHEDULE_INTERVAL_HOURS", defaultIntervalHours)) * time.Hour,
		WorkerPoolSize:    getEnvInt("WORKER_POOL_SIZE", defaultPoolSize),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
		log.Println("WARNING: DATABASE_URL not set, using default local connection string.")
	}
	if cfg.S3AccessKey == "" && cfg.S3SecretKey == "" {
		cfg.S3AccessKey = "minioadmin"
		cfg.S3SecretKey = "minioadmin"
		log.Println("WARNING: S3 credentials not set, using local MinIO defaults.")
	}

	return cfg
}

// Validate checks every knob a component depends on. Configuration errors
// are fatal: callers should exit non-zero rather than run degraded.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case StorageBackendS3:
		if c.S3Endpoint == "" {
			return ErrMissingS3Endpoint
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return ErrMissingS3Credentials
		}
		if c.S3Bucket == "" {
			return ErrInvalidBucket
		}
	case StorageBackendLocal:
		if c.LocalStoragePath == "" {
			return ErrInvalidLocalStorePath
		}
	default:
		return ErrInvalidStorageBackend
	}
	if c.QueueName == "" {
		return ErrInvalidQueueName
	}
	if c.DeadLetterKey == "" {
		return ErrInvalidDeadLetterKey
	}
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}
	if c.WorkerPoolSize < 1 {
		return ErrInvalidPoolSize
	}
	if c.ScheduleInterval < time.Hour {
		return ErrInvalidInterval
	}
	if c.VisibilityTimeout < time.Second {
		return ErrInvalidVisibility
	}
	if c.SearchResultLimit < 1 || c.SearchResultLimit > 10 {
		return ErrInvalidResultLimit
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a number, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a boolean, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

// String returns a loggable summary without credentials.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Queue: %s, Bucket: %s, PoolSize: %d, MaxAttempts: %d, Interval: %s}",
		c.QueueName, c.S3Bucket, c.WorkerPoolSize, c.Retry.MaxAttempts, c.ScheduleInterval,
	)
}
