package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "examseat"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultKafkaTopic = "reservation-events"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB
	DefaultSlotLockTTL    = 10 * time.Second

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
