package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Matching MatchingConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
	LogJSON     bool
	LogDebug    bool
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis host is configured at all.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
	AccessTTL    time.Duration
}

type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

type MatchingConfig struct {
	Store           StoreKind
	MatchTTL        time.Duration
	QueryRadiusKm   float64
	SweepInterval   time.Duration
	LockWait        time.Duration
	NotifyWorkers   int
	NotifyBuffer    int
	PendingCacheTTL time.Duration
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

// Load reads the environment, after applying an optional .env file from the
// working directory. Variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{}

	var missing, invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		return v
	}
	optBool := func(key string) bool {
		v := opt(key, "false")
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, key)
		}
		return b
	}
	optInt := func(key string, def int) int {
		v := opt(key, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, key)
			return def
		}
		return n
	}
	optFloat := func(key string, def float64) float64 {
		v := opt(key, "")
		if v == "" {
			return def
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			invalid = append(invalid, key)
			return def
		}
		return f
	}
	optDuration := func(key string, def time.Duration) time.Duration {
		v := opt(key, "")
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
		LogJSON:     optBool("LOG_JSON"),
		LogDebug:    optBool("LOG_DEBUG"),
	}

	cfg.Matching = MatchingConfig{
		Store:           StoreKind(strings.ToLower(opt("MATCH_STORE", string(StorePostgres)))),
		MatchTTL:        optDuration("MATCH_TTL", 30*time.Minute),
		QueryRadiusKm:   optFloat("MATCH_QUERY_RADIUS_KM", 0),
		SweepInterval:   optDuration("MATCH_SWEEP_INTERVAL", time.Minute),
		LockWait:        optDuration("MATCH_LOCK_WAIT", 3*time.Second),
		NotifyWorkers:   optInt("NOTIFY_WORKERS", 4),
		NotifyBuffer:    optInt("NOTIFY_BUFFER", 1024),
		PendingCacheTTL: optDuration("PENDING_CACHE_TTL", 30*time.Second),
	}
	switch cfg.Matching.Store {
	case StorePostgres, StoreMemory:
	default:
		invalid = append(invalid, "MATCH_STORE")
	}

	if cfg.Matching.Store == StorePostgres {
		cfg.Database = DatabaseConfig{
			DBHost:     req("DB_HOST"),
			DBPort:     opt("DB_PORT", "5432"),
			DBName:     req("DB_NAME"),
			DBUser:     req("DB_USER"),
			DBPassword: opt("DB_PASSWORD", ""),
			DBSSLMode:  opt("DB_SSL_MODE", "disable"),

			ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS", 0)),
			PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS", 0)),
			PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME", 0),
			PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME", 0),
			PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD", 0),
		}
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST", ""),
		Port:     opt("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD", ""),
		DB:       optInt("REDIS_DB", 0),
		TTL:      time.Duration(optInt("REDIS_TTL", 600)) * time.Second,
	}

	cfg.JWT = JWTConfig{
		AccessSecret: opt("JWT_ACCESS_SECRET", ""),
		Issuer:       opt("JWT_ISSUER", "gig-match"),
		AccessTTL:    optDuration("JWT_ACCESS_TTL", time.Hour),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}
