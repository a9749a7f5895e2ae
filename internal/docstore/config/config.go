package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Supported document providers
const (
	ProviderMemory    = "memory"
	ProviderMongoDB   = "mongodb"
	ProviderFirestore = "firestore"
)

// Config holds all configuration for the document store module.
type Config struct {
	Provider string `env:"DOCUMENT_PROVIDER" envDefault:"memory"`

	// MongoDB
	MongoDBURI   string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string        `env:"MONGODB_DATABASE" envDefault:"gym_assistant"`
	PollInterval time.Duration `env:"DOCUMENT_POLL_INTERVAL" envDefault:"0s"`

	// Firestore
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`

	Redis RedisConfig
}

// RedisConfig configures the cross-process change notifier.
type RedisConfig struct {
	Enabled         bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// GetAddr returns host:port.
func (c RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load document store configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, errors.New("failed to load redis configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider specific settings. An empty provider, as left
// by DOCUMENT_PROVIDER= in a .env file, means memory.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderMemory
	}
	switch c.Provider {
	case ProviderMemory:
	case ProviderMongoDB:
		if c.MongoDBURI == "" {
			return errors.New("MONGODB_URI is required for the mongodb document provider")
		}
	case ProviderFirestore:
		if c.FirestoreProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore document provider")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_PROVIDER %q", c.Provider)
	}
	if c.PollInterval < 0 {
		return errors.New("DOCUMENT_POLL_INTERVAL must not be negative")
	}
	return nil
}

// DefaultConfig returns an in-memory configuration for development and tests.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderMemory,
		MongoDBURI:   "mongodb://localhost:27017",
		DatabaseName: "gym_assistant",
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
		},
	}
}
