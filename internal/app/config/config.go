package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Server   ServerConfig
	Gateway  GatewayConfig
	IPN      IPNConfig
	Poller   PollerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Notify   NotifyConfig

	SecretKey  string `env:"APP_SECRET_KEY,default=ChangeMe"`
	LogVerbose bool   `env:"APP_VERBOSE,default=0"`
	LogPretty  bool   `env:"APP_PRETTY,default=0"`
}

type ServerConfig struct {
	Listen       string        `env:"RUN_ADDRESS,default=localhost:8088"`
	TimeoutRead  time.Duration `env:"SERVER_TIMEOUT_READ,default=5s"`
	TimeoutWrite time.Duration `env:"SERVER_TIMEOUT_WRITE,default=10s"`
	TimeoutIdle  time.Duration `env:"SERVER_TIMEOUT_IDLE,default=1m"`
}

type DatabaseConfig struct {
	// DSN is ignored when Store is "memory".
	DSN   string `env:"DATABASE_URI,default="`
	Store string `env:"APP_STORE,default=postgres"`
}

type GatewayConfig struct {
	RemoteURL string        `env:"GATEWAY_ADDRESS,required"`
	APIKey    string        `env:"GATEWAY_API_KEY,default="`
	Timeout   time.Duration `env:"GATEWAY_TIMEOUT,default=30s"`
}

type IPNConfig struct {
	// Secret signs inbound webhook payloads. Empty disables verification
	// (degraded mode, logged at startup).
	Secret string `env:"IPN_SECRET,default="`
}

type PollerConfig struct {
	Interval time.Duration `env:"POLL_INTERVAL,default=60s"`
	Workers  int           `env:"POLL_WORKERS,default=4"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
	Channel  string `env:"REDIS_NOTIFY_CHANNEL,default=paybridge:notify"`
	Enabled  bool   `env:"REDIS_NOTIFY_ENABLED,default=0"`
}

type NotifyConfig struct {
	AdminRef string `env:"NOTIFY_ADMIN_REF,default="`
}

// New config constructor
func New() Config {
	return Config{}
}

// Load config from environment and from .env file (if exists) and from flags
func (cfg *Config) Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env load: %w", err)
	}

	if err := envdecode.StrictDecode(cfg); err != nil {
		return fmt.Errorf("env decode: %w", err)
	}

	pflag.StringVarP(&cfg.Server.Listen, "listen-addr", "a", cfg.Server.Listen, "Server address to listen on")
	pflag.StringVarP(&cfg.Database.DSN, "database-uri", "d", cfg.Database.DSN, "Database URI")
	pflag.StringVarP(&cfg.Gateway.RemoteURL, "gateway-url", "g", cfg.Gateway.RemoteURL, "Payment gateway base URL")
	pflag.DurationVarP(&cfg.Poller.Interval, "poll-interval", "i", cfg.Poller.Interval, "Gateway poll interval")
	pflag.BoolVarP(&cfg.LogVerbose, "verbose", "v", cfg.LogVerbose, "Verbose output")
	pflag.BoolVarP(&cfg.LogPretty, "pretty", "p", cfg.LogPretty, "Pretty output")
	pflag.Parse()

	return nil
}
