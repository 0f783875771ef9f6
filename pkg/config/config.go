package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"examseat/pkg/client"
	"examseat/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret string

	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int
	SlotLockTTL    time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		KafkaBrokers: getEnvList(EnvKafkaBrokers),
		KafkaTopic:   getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		SlotLockTTL:    getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.SlotLockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("SlotLockTTL must be positive, got: %s", cfg.SlotLockTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
