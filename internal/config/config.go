package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	LogLevel string

	AnchorBackend    string
	AnchorTimeoutMS  int
	AnchorWireFormat string
	AnchorGatewayURL string

	PostgresDSN string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	PolicyEnabled    bool
	PolicyBundlePath string
	PolicyMaxRecords int

	BuildWorkers int

	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
	HealthAddr        string
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

func FromEnv() Config {
	return Config{
		LogLevel:          envDefault("LOG_LEVEL", "info"),
		AnchorBackend:     envDefault("ANCHOR_BACKEND", BackendMemory),
		AnchorTimeoutMS:   envIntDefault("ANCHOR_TIMEOUT_MS", 2000),
		AnchorWireFormat:  envDefault("ANCHOR_WIRE_FORMAT", "json"),
		AnchorGatewayURL:  os.Getenv("ANCHOR_GATEWAY_URL"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envIntDefault("REDIS_DB", 0),
		RedisKeyPrefix:    envDefault("REDIS_KEY_PREFIX", "batchattest:"),
		PolicyEnabled:     envBoolDefault("POLICY_ENABLED", true),
		PolicyBundlePath:  os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyMaxRecords:  envIntDefault("POLICY_MAX_RECORDS", 1_000_000),
		BuildWorkers:      envIntDefault("BUILD_WORKERS", 0),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         envDefault("TEMPORAL_TASK_QUEUE", "batchattest-anchor"),
		HealthAddr:        envDefault("HEALTH_ADDR", ":8090"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) AnchorTimeout() time.Duration {
	if c.AnchorTimeoutMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.AnchorTimeoutMS) * time.Millisecond
}
