package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Store driver names accepted by the *_DB_TYPE variables.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Admin   AdminConfig
	Cache   CacheConfig
	Storage StorageConfig

	Users       StoreConfig `envconfig:"USERS_DB"`
	Inventory   StoreConfig `envconfig:"INVENTORY_DB"`
	Preferences StoreConfig `envconfig:"PREFERENCES_DB"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	TLSCertFile     string        `envconfig:"SERVER_TLS_CERT" default:""`
	TLSKeyFile      string        `envconfig:"SERVER_TLS_KEY" default:""`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"prstocks-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"2.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// AdminConfig controls admin verification. PasswordHash is a bcrypt hash;
// generate one with cmd/hash-password.
type AdminConfig struct {
	PasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" default:""`
	TokenTTL     time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"1h"`
	RequireToken bool          `envconfig:"ADMIN_REQUIRE_TOKEN" default:"false"`
}

// CacheConfig selects where admin tokens live.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds settings shared by the three stores.
type StorageConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"./databases"`
}

// StoreConfig describes one record store. Fields are read with the store's
// prefix only (USERS_DB_TYPE, INVENTORY_DB_PATH, ...).
type StoreConfig struct {
	Type            string `default:"sqlite"` // sqlite, postgres, mysql; mongodb for preferences only
	Path            string // sqlite file, defaults to DATA_DIR/<store>.db
	DSN             string // postgres/mysql DSN or mongodb URI
	MongoDatabase   string `split_words:"true" default:"prstocks"`
	MongoCollection string `split_words:"true" default:"user_preferences"`
}

// SQLitePath returns the database file for a store, falling back to
// <dataDir>/<name>.db.
func (s *StoreConfig) SQLitePath(dataDir, name string) string {
	if s.Path != "" {
		return s.Path
	}
	return filepath.Join(dataDir, name+".db")
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TLSEnabled reports whether both certificate and key were supplied.
func (s *ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

func (c *Config) validate() error {
	stores := []struct {
		name  string
		store StoreConfig
		mongo bool
	}{
		{"users", c.Users, false},
		{"inventory", c.Inventory, false},
		{"preferences", c.Preferences, true},
	}

	for _, s := range stores {
		switch s.store.Type {
		case DriverSQLite:
		case DriverPostgres, DriverMySQL:
			if s.store.DSN == "" {
				return fmt.Errorf("%s store: %s requires a DSN", s.name, s.store.Type)
			}
		case DriverMongoDB:
			if !s.mongo {
				return fmt.Errorf("%s store: mongodb is only supported for preferences", s.name)
			}
			if s.store.DSN == "" {
				return fmt.Errorf("%s store: mongodb requires a DSN (connection URI)", s.name)
			}
		default:
			return fmt.Errorf("%s store: unknown type %q", s.name, s.store.Type)
		}
	}

	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("SERVER_TLS_CERT and SERVER_TLS_KEY must be set together")
	}

	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
