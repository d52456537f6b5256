package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	LogLevel      string
	LogFormat     string

	PoolCapacity           int // 0 = derive from device memory tier
	PreloadAhead           int
	PreloadBehind          int
	MaxConcurrentCreations int
	CancelDistance         int
	PositionInterval       time.Duration
	BroadcastInterval      time.Duration

	RuntimeCreateDelay time.Duration
	RuntimeBufferDelay time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "clipstream"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),

		PoolCapacity:           int(getEnvInt64("POOL_CAPACITY", 0)),
		PreloadAhead:           int(getEnvInt64("PRELOAD_AHEAD", 2)),
		PreloadBehind:          int(getEnvInt64("PRELOAD_BEHIND", 1)),
		MaxConcurrentCreations: int(getEnvInt64("MAX_CONCURRENT_CREATIONS", 2)),
		CancelDistance:         int(getEnvInt64("CANCEL_DISTANCE_THRESHOLD", 3)),
		PositionInterval:       time.Duration(getEnvInt64("POSITION_INTERVAL_MS", 250)) * time.Millisecond,
		BroadcastInterval:      time.Duration(getEnvInt64("BROADCAST_INTERVAL_MS", 1000)) * time.Millisecond,

		RuntimeCreateDelay: time.Duration(getEnvInt64("RUNTIME_CREATE_DELAY_MS", 20)) * time.Millisecond,
		RuntimeBufferDelay: time.Duration(getEnvInt64("RUNTIME_BUFFER_DELAY_MS", 50)) * time.Millisecond,
	}
}

// EffectivePoolCapacity resolves POOL_CAPACITY=0 to a default for the
// device's memory tier.
func (c Config) EffectivePoolCapacity() int {
	if c.PoolCapacity > 0 {
		return c.PoolCapacity
	}
	return CapacityForMemory(totalMemoryBytes())
}

// Memory tier thresholds. Low-memory devices keep only the visible item and
// its immediate neighbors alive.
const (
	lowMemoryBytes    = 3 << 30
	mediumMemoryBytes = 6 << 30

	lowTierCapacity    = 3
	mediumTierCapacity = 5
	highTierCapacity   = 8
)

// CapacityForMemory classifies total device memory into low/medium/high
// tiers and returns the pool capacity for that tier. Unknown (zero) memory
// is treated as low.
func CapacityForMemory(totalBytes int64) int {
	switch {
	case totalBytes <= 0 || totalBytes < lowMemoryBytes:
		return lowTierCapacity
	case totalBytes < mediumMemoryBytes:
		return mediumTierCapacity
	default:
		return highTierCapacity
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}
