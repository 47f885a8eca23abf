package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a Postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Redis stores the ephemeral registry connection settings.
type Redis struct {
	Addr string
}

// Kafka stores the event transport settings.
type Kafka struct {
	Brokers  []string
	ClientID string
	GroupID  string
}

// Matching stores dispatch tunables.
type Matching struct {
	PickupEstimate time.Duration
	SnapshotTTL    time.Duration
	LocationTTL    time.Duration
}

// RateLimit stores throttling settings for courier location updates.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores credentials for the profiling endpoints. Loopback requests
// never need them.
type Pprof struct {
	User string
	Pass string
}

// Config stores the full service configuration.
type Config struct {
	Port      int
	DB        DB
	Redis     Redis
	Kafka     Kafka
	Matching  Matching
	RateLimit RateLimit
	Pprof     Pprof
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      defaultPort,
		DB:        defaultDB,
		Redis:     defaultRedis,
		Kafka:     defaultKafka,
		Matching:  defaultMatching,
		RateLimit: defaultRateLimit,
	}
	applyEnv(cfg)

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	setEnv(&cfg.DB.Host, "POSTGRES_HOST")
	setEnv(&cfg.DB.Port, "POSTGRES_PORT")
	setEnv(&cfg.DB.User, "POSTGRES_USER")
	setEnv(&cfg.DB.Pass, "POSTGRES_PASSWORD")
	setEnv(&cfg.DB.Name, "POSTGRES_DB")
	setEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setEnv(&cfg.Pprof.User, "PPROF_USER")
	setEnv(&cfg.Pprof.Pass, "PPROF_PASSWORD")
	setEnv(&cfg.Kafka.ClientID, "KAFKA_CLIENT_ID")
	setEnv(&cfg.Kafka.GroupID, "KAFKA_GROUP_ID")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitBrokers(v)
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RateLimit.Enabled = b
		}
	}
	if v := os.Getenv("RATE_LIMIT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimit.Rate = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.Burst = n
		}
	}
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			out = append(out, b)
		}
	}
	return out
}
