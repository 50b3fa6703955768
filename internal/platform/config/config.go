package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "dor/pkg/platform/strings"
)

// Config is the full service configuration. It is built once in main and the
// sub-structs are handed to the components that need them.
type Config struct {
	Server    Server
	Auth      Auth
	Catalog   Catalog
	Store     Store
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Release   Release
	LogLevel  string
	LogFormat string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Auth holds the credentials accepted by the API.
type Auth struct {
	HMACSecret string
	// ServiceUser and ServicePasswordHash enable HTTP basic auth for callers
	// that cannot mint tokens. The hash is bcrypt.
	ServiceUser         string
	ServicePasswordHash string
}

// Catalog configures the Symphony client.
type Catalog struct {
	// JSONURL must contain a {catkey} placeholder.
	JSONURL string
	// BarcodeSearchURL must contain a {barcode} placeholder.
	BarcodeSearchURL string
	Headers          map[string]string
	Timeout          time.Duration
	BreakerFailures  int
	BreakerSuccesses int
	BreakerCooldown  time.Duration
}

// Store selects the object store backend.
type Store struct {
	Backend string
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
}

// KafkaConfig enables the event publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Release configures release tag resolution.
type Release struct {
	MaxDepth int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            getEnv("DOR_ADDR", ":8080"),
			ShutdownTimeout: getDuration("DOR_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: Auth{
			HMACSecret:          os.Getenv("DOR_HMAC_SECRET"),
			ServiceUser:         os.Getenv("DOR_SERVICE_USER"),
			ServicePasswordHash: os.Getenv("DOR_SERVICE_PASSWORD_HASH"),
		},
		Catalog: Catalog{
			JSONURL:          getEnv("DOR_SYMPHONY_JSON_URL", "http://localhost:8081/symws/catalog/bib/key/{catkey}?includeFields=bib"),
			BarcodeSearchURL: getEnv("DOR_BARCODE_SEARCH_URL", "http://localhost:8082/barcode/{barcode}"),
			Headers:          parseHeaders(os.Getenv("DOR_SYMPHONY_HEADERS")),
			Timeout:          getDuration("DOR_SYMPHONY_TIMEOUT", 15*time.Second),
			BreakerFailures:  getInt("DOR_SYMPHONY_BREAKER_FAILURES", 5),
			BreakerSuccesses: getInt("DOR_SYMPHONY_BREAKER_SUCCESSES", 2),
			BreakerCooldown:  getDuration("DOR_SYMPHONY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Store: Store{
			Backend: getEnv("DOR_STORE", BackendMemory),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DOR_REDIS_URL"),
			PoolSize:     getInt("DOR_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("DOR_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("DOR_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("DOR_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("DOR_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DOR_DATABASE_URL"),
			MaxOpenConns: getInt("DOR_DATABASE_MAX_OPEN_CONNS", 10),
		},
		Kafka: KafkaConfig{
			Brokers: platformstrings.SplitList(os.Getenv("DOR_KAFKA_BROKERS"), ","),
			Topic:   getEnv("DOR_KAFKA_TOPIC", "dor.object-events"),
		},
		Release: Release{
			MaxDepth: getInt("DOR_RELEASE_MAX_DEPTH", 32),
		},
		LogLevel:  getEnv("DOR_LOG_LEVEL", "info"),
		LogFormat: getEnv("DOR_LOG_FORMAT", "json"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail on first use.
func (c Config) Validate() error {
	var errs []error
	if !strings.Contains(c.Catalog.JSONURL, "{catkey}") {
		errs = append(errs, errors.New("catalog JSON URL must contain {catkey}"))
	}
	if !strings.Contains(c.Catalog.BarcodeSearchURL, "{barcode}") {
		errs = append(errs, errors.New("barcode search URL must contain {barcode}"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis store requires DOR_REDIS_URL"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres store requires DOR_DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Release.MaxDepth < 1 {
		errs = append(errs, errors.New("release max depth must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}


// parseHeaders reads "Name=value;Other=value" pairs.
func parseHeaders(v string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(v, ";") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers
}
