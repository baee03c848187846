package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig   `env:", prefix=LOGGER_"`
	Postgres PostgresConfig `env:", prefix=POSTGRES_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	Kafka    KafkaConfig    `env:", prefix=KAFKA_"`
	Export   ExportConfig   `env:", prefix=EXPORT_"`
}

type ServerConfig struct {
	AppEnv         string        `env:"APP_ENV, default=dev"`
	Store          string        `env:"STORE, default=postgres"` // postgres or memory
	HTTPPort       string        `env:"HTTP_PORT, default=:8080"`
	GRPCPort       string        `env:"GRPC_PORT"` // empty disables the gRPC listener
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT, default=30s"`
	RateLimit      int           `env:"HTTP_RATE_LIMIT, default=0"` // requests per minute per IP, 0 disables
	StrictStatus   bool          `env:"HTTP_STRICT_STATUS, default=false"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS, default=*"`
}

type LoggerConfig struct {
	Level             string `env:"LEVEL, default=debug"`
	Encoding          string `env:"ENCODING, default=console"`
	DisableCaller     bool   `env:"DISABLE_CALLER, default=false"`
	DisableStacktrace bool   `env:"DISABLE_STACKTRACE, default=true"`
}

type PostgresConfig struct {
	Host            string `env:"HOST, default=localhost"`
	Port            string `env:"PORT, default=5432"`
	User            string `env:"USER, default=omnipos"`
	Password        string `env:"PASSWORD, default=omnipos"`
	DBName          string `env:"DB, default=omnipos_supply"`
	SSLMode         string `env:"SSLMODE, default=disable"`
	MaxOpenConns    int    `env:"MAX_OPEN_CONNS, default=10"`
	MaxIdleConns    int    `env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime int    `env:"CONN_MAX_LIFETIME, default=300"`
	ConnMaxIdleTime int    `env:"CONN_MAX_IDLE_TIME, default=60"`
	AutoMigrate     bool   `env:"AUTO_MIGRATE, default=true"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"` // empty disables the export cache
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB, default=0"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS"` // empty disables movement events
	Topic   string   `env:"TOPIC_MOVEMENTS, default=inventory.movements"`
}

type ExportConfig struct {
	CacheTTL time.Duration `env:"CACHE_TTL, default=30s"`
}

// LoadEnv reads the process environment into a Config.
func LoadEnv(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	switch cfg.Server.Store {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Server.Store)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}
