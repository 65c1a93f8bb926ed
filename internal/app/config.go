package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fleetdb "github.com/yungbote/railfleet-backend/internal/data/db"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
	"github.com/yungbote/railfleet-backend/internal/platform/envutil"
)

const defaultActor = "fleetctl"

type Config struct {
	LogMode     string
	AutoMigrate bool
	Database    fleetdb.Config
	Redis       events.RedisConfig

	MetricsEnabled bool
	MetricsAddr    string
	Otel           observability.OtelConfig

	// Actor attributes CLI-driven transitions when no --actor is given.
	Actor                 string
	RevertScanConcurrency int
}

// settings resolves a key from the environment first, then the optional
// YAML overlay, then the default.
type settings struct {
	file map[string]string
}

// LoadConfig reads FLEET_CONFIG_FILE (if set) and the environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	s := settings{}
	if path := strings.TrimSpace(os.Getenv("FLEET_CONFIG_FILE")); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		s.file = file
		if log != nil {
			log.Info("Loaded config overlay", "path", path, "keys", len(file))
		}
	}

	cfg := Config{
		LogMode:     s.str("LOG_MODE", "development"),
		AutoMigrate: s.boolean("DATABASE_AUTO_MIGRATE", true),
		Database: fleetdb.Config{
			Driver:          s.str("DATABASE_DRIVER", fleetdb.DriverPostgres),
			Host:            s.str("POSTGRES_HOST", "localhost"),
			Port:            s.str("POSTGRES_PORT", "5432"),
			User:            s.str("POSTGRES_USER", "postgres"),
			Password:        s.str("POSTGRES_PASSWORD", ""),
			Name:            s.str("POSTGRES_NAME", "railfleet"),
			SSLMode:         s.str("POSTGRES_SSLMODE", "disable"),
			SQLitePath:      s.str("SQLITE_PATH", "railfleet.db"),
			MaxOpenConns:    s.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    s.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: s.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			SlowThreshold:   s.duration("DATABASE_SLOW_THRESHOLD", time.Second),
		},
		Redis: events.RedisConfig{
			Addr:     s.str("REDIS_ADDR", ""),
			Password: s.str("REDIS_PASSWORD", ""),
			DB:       s.integer("REDIS_DB", 0),
			Channel:  s.str("REDIS_CHANNEL", "fleet.events"),
		},
		MetricsEnabled: s.boolean("METRICS_ENABLED", false),
		MetricsAddr:    s.str("METRICS_ADDR", ":9464"),
		Otel: observability.OtelConfig{
			Enabled:     s.boolean("OTEL_ENABLED", false),
			ServiceName: s.str("OTEL_SERVICE_NAME", "railfleet"),
			Environment: s.str("APP_ENV", "development"),
			Version:     s.str("APP_VERSION", "dev"),
			Exporter:    s.str("OTEL_EXPORTER", ""),
			Endpoint:    s.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    s.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: s.float("OTEL_SAMPLE_RATIO", 1),
		},
		Actor:                 s.str("FLEET_ACTOR", defaultActor),
		RevertScanConcurrency: s.integer("REVERT_SCAN_CONCURRENCY", 8),
	}
	if cfg.RevertScanConcurrency <= 0 {
		cfg.RevertScanConcurrency = 8
	}
	return cfg, nil
}

func readConfigFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		if v == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out, nil
}

func (s settings) fromFile(name string) (string, bool) {
	v, ok := s.file[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s settings) str(name, def string) string {
	if v, ok := s.fromFile(name); ok {
		def = v
	}
	return envutil.String(name, def)
}

func (s settings) integer(name string, def int) int {
	if v, ok := s.fromFile(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			def = n
		}
	}
	return envutil.Int(name, def)
}

func (s settings) float(name string, def float64) float64 {
	if v, ok := s.fromFile(name); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			def = f
		}
	}
	return envutil.Float(name, def)
}

func (s settings) boolean(name string, def bool) bool {
	if v, ok := s.fromFile(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			def = b
		}
	}
	return envutil.Bool(name, def)
}

func (s settings) duration(name string, def time.Duration) time.Duration {
	if v, ok := s.fromFile(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			def = d
		} else if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			def = time.Duration(n) * time.Second
		}
	}
	return envutil.Duration(name, def)
}
