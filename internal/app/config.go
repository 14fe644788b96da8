package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	redisclient "github.com/yungbote/burstreply-backend/internal/clients/redis"
	"github.com/yungbote/burstreply-backend/internal/data/db"
	"github.com/yungbote/burstreply-backend/internal/modules/grouping"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/envutil"
	"github.com/yungbote/burstreply-backend/internal/temporalx"
)

const (
	SchedulerAuto     = "auto"
	SchedulerTemporal = "temporal"
	SchedulerLocal    = "local"
)

type Config struct {
	Port            string
	LogMode         string
	Environment     string
	Version         string
	ShutdownTimeout time.Duration

	DB          db.Config
	AutoMigrate bool
	Redis       redisclient.Config
	Temporal    temporalx.Config

	Scheduler             string
	EmbedTemporalWorker   bool
	WorkerConcurrency     int
	JobTimeout            time.Duration
	MemorySweepInterval   time.Duration
	Grouping              grouping.Config
	WebhookRateLimitRPS   float64
	WebhookRateLimitBurst int
	CORSOrigins           []string

	MetricsEnabled        bool
	MetricsAddr           string
	MetricsScrapeInterval time.Duration
	Otel                  observability.OtelConfig
}

// LoadConfig reads the environment, after seeding it from the optional YAML file at
// path. Variables already present in the environment are never overridden.
func LoadConfig(path string) (Config, error) {
	if path = strings.TrimSpace(path); path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		if err := applyConfigFile(path); err != nil {
			return Config{}, err
		}
	}

	defaults := grouping.DefaultConfig()
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		Environment:     envutil.String("ENVIRONMENT", "development"),
		Version:         envutil.String("APP_VERSION", "dev"),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),

		DB: db.Config{
			Driver:           envutil.String("DATABASE_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "burstreply"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", ""),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true),
		Redis: redisclient.Config{
			Addr:        envutil.String("REDIS_ADDR", ""),
			Password:    envutil.String("REDIS_PASSWORD", ""),
			DB:          envutil.Int("REDIS_DB", 0),
			KeyPrefix:   envutil.String("REDIS_KEY_PREFIX", ""),
			DialTimeout: envutil.Seconds("REDIS_DIAL_TIMEOUT_SECONDS", 5*time.Second),
		},
		Temporal: temporalx.LoadConfig(),

		Scheduler:           strings.ToLower(envutil.String("SCHEDULER", SchedulerAuto)),
		EmbedTemporalWorker: envutil.Bool("TEMPORAL_EMBEDDED_WORKER", true),
		WorkerConcurrency:   envutil.Int("WORKER_CONCURRENCY", 8),
		JobTimeout:          envutil.Seconds("JOB_TIMEOUT_SECONDS", 30*time.Second),
		MemorySweepInterval: envutil.Seconds("MEMORY_SWEEP_INTERVAL_SECONDS", time.Minute),
		Grouping: grouping.Config{
			BufferTTL:   envutil.Millis("BUFFER_TTL_MS", defaults.BufferTTL),
			Freshness:   envutil.Millis("BUFFER_FRESHNESS_MS", defaults.Freshness),
			GroupTTL:    envutil.Millis("GROUP_TTL_MS", defaults.GroupTTL),
			LockTTL:     envutil.Millis("GROUP_LOCK_TTL_MS", defaults.LockTTL),
			Delay:       envutil.Millis("GROUP_DEBOUNCE_DELAY_MS", defaults.Delay),
			ReplyHeader: envutil.String("AGGREGATE_REPLY_HEADER", defaults.ReplyHeader),
		},
		WebhookRateLimitRPS:   envutil.Float("WEBHOOK_RATE_LIMIT_RPS", 50),
		WebhookRateLimitBurst: envutil.Int("WEBHOOK_RATE_LIMIT_BURST", 100),
		CORSOrigins:           splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		MetricsEnabled:        envutil.Bool("METRICS_ENABLED", false),
		MetricsAddr:           envutil.String("METRICS_ADDR", ":9090"),
		MetricsScrapeInterval: envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 15*time.Second),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "burstreply"),
			Environment: envutil.String("ENVIRONMENT", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Scheduler {
	case SchedulerAuto, SchedulerTemporal, SchedulerLocal:
	default:
		return fmt.Errorf("invalid SCHEDULER %q (want auto|temporal|local)", c.Scheduler)
	}
	if c.Scheduler == SchedulerTemporal && !c.Temporal.Enabled() {
		return fmt.Errorf("SCHEDULER=temporal requires TEMPORAL_ADDRESS")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}
	return c.Grouping.Validate()
}

// applyConfigFile exports every top-level key of a flat YAML document as an
// environment variable unless that variable is already set.
func applyConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]interface{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, val := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || val == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var s string
		switch v := val.(type) {
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			s = strings.Join(parts, ",")
		case map[string]interface{}:
			return fmt.Errorf("config file %s: key %s must be a scalar or list", path, key)
		default:
			s = fmt.Sprint(v)
		}
		if err := os.Setenv(key, s); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
