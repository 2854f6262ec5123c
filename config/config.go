package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StoreConfig selects and configures the catalog store
type StoreConfig struct {
	Driver   string // bolt, postgres or memory
	BoltPath string
	DSN      string
	Seed     bool
}

// AdminConfig holds the passphrase gate and session cookie settings
type AdminConfig struct {
	Passphrase    string
	SessionSecret string
	SessionMaxAge int
	SecureCookie  bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Mode       string // production or development
	Level      string
	FileEnable bool
	Filename   string
}

// ExportConfig controls the order sheet
type ExportConfig struct {
	Title    string
	Locale   string
	Location *time.Location
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Admin   AdminConfig
	Log     LogConfig
	Export  ExportConfig
	Metrics MetricsConfig
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	location, err := time.LoadLocation(getEnv("EXPORT_TIMEZONE", "Asia/Tokyo"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid EXPORT_TIMEZONE")
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: cast.ToDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "10s")),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("STORE_DRIVER", "bolt")),
			BoltPath: getEnv("STORE_BOLT_PATH", "letra-products.db"),
			DSN:      getEnv("STORE_DSN", ""),
			Seed:     cast.ToBool(getEnv("STORE_SEED", "true")),
		},
		Admin: AdminConfig{
			Passphrase:    os.Getenv("ADMIN_PASSPHRASE"),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			SessionMaxAge: cast.ToInt(getEnv("SESSION_MAX_AGE", "43200")),
			SecureCookie:  cast.ToBool(getEnv("SESSION_SECURE_COOKIE", "false")),
		},
		Log: LogConfig{
			Mode:       getEnv("LOG_MODE", "development"),
			Level:      getEnv("LOG_LEVEL", "info"),
			FileEnable: cast.ToBool(getEnv("LOG_FILE_ENABLE", "false")),
			Filename:   getEnv("LOG_FILENAME", "logs/order-sheet.log"),
		},
		Export: ExportConfig{
			Title:    getEnv("EXPORT_TITLE", "Letra卸事業部 注文シート"),
			Locale:   getEnv("EXPORT_LOCALE", "ja"),
			Location: location,
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "order_sheet"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "bolt":
		if c.Store.BoltPath == "" {
			return errors.New("STORE_BOLT_PATH is required for the bolt driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("STORE_DSN is required for the postgres driver")
		}
	case "memory":
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if len(c.Admin.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
