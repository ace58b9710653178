package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string         `json:"env"`
	Http     HttpConfig     `json:"http"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Hub      HubConfig      `json:"hub"`
	Dedup    DedupConfig    `json:"dedup"`
	APIKey   string         `json:"api_key,omitempty"`
	Static   StaticConfig   `json:"static"`
}

type HttpConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode"`

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type HubConfig struct {
	// SnapshotLimit caps how many recent reports a joining session receives.
	SnapshotLimit int           `json:"snapshot_limit"`
	SessionBuffer int           `json:"session_buffer"`
	SnapshotTTL   time.Duration `json:"snapshot_ttl"`
	// RefreshInterval re-warms the snapshot cache from Postgres.
	RefreshInterval time.Duration `json:"refresh_interval"`
}

type DedupConfig struct {
	// BucketDegrees is the spatial bucket edge used by clients of this
	// deployment. 0.0005 degrees is roughly 50-60 meters.
	BucketDegrees float64 `json:"bucket_degrees"`
}

type StaticConfig struct {
	// Dir holds the pre-built frontend; empty disables static serving.
	Dir string `json:"dir"`
}

func Load(ctx context.Context) (*Config, error) {

	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLogger.Warn(".env load warning", slog.Any("error", err))
	}

	cfg := &Config{
		Env: getEnv("ENV", "local"),
		Http: HttpConfig{
			Port:            getEnv("HTTP_PORT", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "pg-local"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Database:        getEnv("POSTGRES_DB", "quietmap_db"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConns:        20,
			MinConns:        1,
			MaxConnLifetime: 1 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "redis-local:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Hub: HubConfig{
			SnapshotLimit:   getEnvInt("HUB_SNAPSHOT_LIMIT", 100),
			SessionBuffer:   getEnvInt("HUB_SESSION_BUFFER", 32),
			SnapshotTTL:     getEnvDuration("HUB_SNAPSHOT_TTL", time.Minute),
			RefreshInterval: getEnvDuration("HUB_REFRESH_INTERVAL", 30*time.Second),
		},
		Dedup: DedupConfig{
			BucketDegrees: getEnvFloat("DEDUP_BUCKET_DEGREES", 0.0005),
		},
		APIKey: getEnv("API_KEY", "super-secret-key"),
		Static: StaticConfig{
			Dir: getEnv("STATIC_DIR", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stdLogger.Info("Config loaded successfully",
		slog.String("env", cfg.Env),
		slog.String("http_port", cfg.Http.Port),
		slog.String("postgres_db", cfg.Postgres.Database),
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.Int("snapshot_limit", cfg.Hub.SnapshotLimit),
		slog.Float64("bucket_degrees", cfg.Dedup.BucketDegrees))

	return cfg, nil
}

func (c *Config) Validate() error {

	if c.Http.Port == "" || (len(c.Http.Port) > 0 && c.Http.Port[0] != ':') {
		return errors.New("HTTP_PORT must start with ':' like ':8080'")
	}

	if c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST required")
	}

	if c.Hub.SnapshotLimit <= 0 {
		return errors.New("HUB_SNAPSHOT_LIMIT must be positive")
	}

	if c.Dedup.BucketDegrees <= 0 {
		return errors.New("DEDUP_BUCKET_DEGREES must be positive")
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
