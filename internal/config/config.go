package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	Postgres     PostgresConfig
	Privacy      PrivacyConfig
	Freshness    FreshnessConfig
	CrossedPaths CrossedPathsConfig
	Nearby       NearbyConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	Push         PushConfig
	Stream       StreamConfig
	Env          string
}

type ServerConfig struct {
	Port string
	Host string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type PostgresConfig struct {
	URL string
}

type PrivacyConfig struct {
	MinRadiusMeters       int
	MaxRadiusMeters       int
	HiddenMinRadiusMeters int
	HiddenMaxRadiusMeters int
}

type FreshnessConfig struct {
	SolidMaxAge time.Duration
	FadedMaxAge time.Duration
}

type CrossedPathsConfig struct {
	PublishCooldown time.Duration
	NotifyCooldown  time.Duration
	PairDedupe      time.Duration
	RecencyWindow   time.Duration
	RadiusMeters    int
}

type NearbyConfig struct {
	QueryRadiusMeters   int
	VisibleCutoffMeters int
}

type SessionConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RecordsPerMin        int
	NearbyPerMin         int
	SessionsPerIPPerHour int
	RequestsPerMinute    int
}

type PushConfig struct {
	GatewayURL string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
}

type StreamConfig struct {
	GeohashPrecision uint
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			URL: getEnv("POSTGRES_URL", "postgres://localhost:5432/nearby?sslmode=disable"),
		},
		Privacy: PrivacyConfig{
			MinRadiusMeters:       getEnvAsInt("FUZZ_MIN_RADIUS_METERS", 20),
			MaxRadiusMeters:       getEnvAsInt("FUZZ_MAX_RADIUS_METERS", 100),
			HiddenMinRadiusMeters: getEnvAsInt("FUZZ_HIDDEN_MIN_RADIUS_METERS", 200),
			HiddenMaxRadiusMeters: getEnvAsInt("FUZZ_HIDDEN_MAX_RADIUS_METERS", 400),
		},
		Freshness: FreshnessConfig{
			SolidMaxAge: getEnvAsHours("FRESH_SOLID_HOURS", 72),
			FadedMaxAge: getEnvAsHours("FRESH_FADED_HOURS", 144),
		},
		CrossedPaths: CrossedPathsConfig{
			PublishCooldown: getEnvAsHours("PUBLISH_COOLDOWN_HOURS", 6),
			NotifyCooldown:  getEnvAsHours("CROSSED_NOTIFY_COOLDOWN_HOURS", 6),
			PairDedupe:      getEnvAsHours("CROSSED_PAIR_DEDUPE_HOURS", 24),
			RecencyWindow:   getEnvAsHours("CROSSED_WINDOW_HOURS", 24),
			RadiusMeters:    getEnvAsInt("CROSSED_RADIUS_METERS", 2000),
		},
		Nearby: NearbyConfig{
			QueryRadiusMeters:   getEnvAsInt("NEARBY_QUERY_RADIUS_METERS", 2000),
			VisibleCutoffMeters: getEnvAsInt("NEARBY_VISIBLE_CUTOFF_METERS", 2000),
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RecordsPerMin:        getEnvAsInt("RATE_LIMIT_RECORDS_PER_MIN", 6),
			NearbyPerMin:         getEnvAsInt("RATE_LIMIT_NEARBY_PER_MIN", 30),
			SessionsPerIPPerHour: getEnvAsInt("RATE_LIMIT_SESSIONS_PER_IP_PER_HOUR", 10),
			RequestsPerMinute:    getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MIN", 100),
		},
		Push: PushConfig{
			GatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
			Secret:     getEnv("PUSH_GATEWAY_SECRET", ""),
			Timeout:    time.Duration(getEnvAsInt("PUSH_TIMEOUT_SECONDS", 5)) * time.Second,
			MaxRetries: getEnvAsInt("PUSH_MAX_RETRIES", 3),
		},
		Stream: StreamConfig{
			GeohashPrecision: uint(getEnvAsInt("GEOHASH_PRECISION", 5)),
		},
		Env: getEnv("ENV", "development"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsHours(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Hour
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
