package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Supported identity providers
const (
	IdentityLocal = "local"
	IdentityOIDC  = "oidc"
)

// Supported account stores for the local identity provider
const (
	AccountStoreMemory  = "memory"
	AccountStoreMongoDB = "mongodb"
)

// Config holds all configuration for the auth module.
type Config struct {
	IdentityProvider string `env:"IDENTITY_PROVIDER" envDefault:"local"`
	AccountStore     string `env:"ACCOUNT_STORE" envDefault:"memory"`

	// JWT Configuration
	JWTSecretKey    string        `env:"JWT_SECRET_KEY"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"gym-assistant"`
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"168h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// Local accounts
	BcryptCost        int     `env:"BCRYPT_COST" envDefault:"10"`
	MinPasswordLength int     `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
	SignInRate        float64 `env:"SIGN_IN_RATE" envDefault:"0.2"` // attempts per second per email
	SignInBurst       int     `env:"SIGN_IN_BURST" envDefault:"5"`

	// OpenID Connect
	OIDCIssuerURL    string   `env:"OIDC_ISSUER_URL"`
	OIDCClientID     string   `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string   `env:"OIDC_CLIENT_SECRET"`
	OIDCScopes       []string `env:"OIDC_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`

	// Cookie Configuration
	CookieName     string `env:"COOKIE_NAME" envDefault:"gym_session"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"` // Set to true in production
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"` // "Lax", "Strict", "None"
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error() +
			". Please ensure all required environment variables are set.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the config and checks provider specific settings.
func (c *Config) Validate() error {
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.AccountStore = strings.ToLower(strings.TrimSpace(c.AccountStore))
	if c.IdentityProvider == "" {
		c.IdentityProvider = IdentityLocal
	}
	if c.AccountStore == "" {
		c.AccountStore = AccountStoreMemory
	}

	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if c.SessionTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}

	switch c.IdentityProvider {
	case IdentityLocal:
		if c.AccountStore != AccountStoreMemory && c.AccountStore != AccountStoreMongoDB {
			return errors.New("account_store must be one of 'memory' or 'mongodb'")
		}
		if c.MinPasswordLength < 1 {
			return errors.New("min_password_length must be positive")
		}
		if c.SignInRate <= 0 || c.SignInBurst < 1 {
			return errors.New("sign-in rate and burst must be positive")
		}
	case IdentityOIDC:
		if c.OIDCIssuerURL == "" || c.OIDCClientID == "" {
			return errors.New("oidc_issuer_url and oidc_client_id are required for the oidc identity provider")
		}
	default:
		return errors.New("identity_provider must be one of 'local' or 'oidc'")
	}

	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		c.CookieSameSite = "Lax"
	case "strict":
		c.CookieSameSite = "Strict"
	case "none":
		c.CookieSameSite = "None"
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}
	return nil
}

// DefaultConfig returns a local, in-memory configuration for tests and
// development.
func DefaultConfig() *Config {
	return &Config{
		IdentityProvider:  IdentityLocal,
		AccountStore:      AccountStoreMemory,
		JWTSecretKey:      "dev-secret-key-for-local-use-only-0000",
		JWTIssuer:         "gym-assistant",
		SessionTokenTTL:   168 * time.Hour,
		ResetTokenTTL:     time.Hour,
		BcryptCost:        10,
		MinPasswordLength: 6,
		SignInRate:        0.2,
		SignInBurst:       5,
		OIDCScopes:        []string{"openid", "email", "profile"},
		CookieName:        "gym_session",
		CookiePath:        "/",
		CookieHTTPOnly:    true,
		CookieSameSite:    "Lax",
	}
}
