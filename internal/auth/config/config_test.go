package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-32-characters-long-12345")
	t.Setenv("COOKIE_SAME_SITE", "strict")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, IdentityLocal, cfg.IdentityProvider)
	assert.Equal(t, AccountStoreMemory, cfg.AccountStore)
	assert.Equal(t, 168*time.Hour, cfg.SessionTokenTTL)
	assert.Equal(t, 6, cfg.MinPasswordLength)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.OIDCScopes)
	assert.Equal(t, "Strict", cfg.CookieSameSite)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecretKey = "" }, "jwt_secret_key is required"},
		{"unknown provider", func(c *Config) { c.IdentityProvider = "saml" }, "identity_provider"},
		{"unknown store", func(c *Config) { c.AccountStore = "postgres" }, "account_store"},
		{"oidc without issuer", func(c *Config) { c.IdentityProvider = "OIDC" }, "oidc_issuer_url"},
		{"oidc complete", func(c *Config) {
			c.IdentityProvider = IdentityOIDC
			c.OIDCIssuerURL = "https://id.example.com"
			c.OIDCClientID = "gym"
		}, ""},
		{"bad same site", func(c *Config) { c.CookieSameSite = "sometimes" }, "cookie_same_site"},
		{"zero rate", func(c *Config) { c.SignInRate = 0 }, "rate"},
		{"empty provider and store", func(c *Config) { c.IdentityProvider, c.AccountStore = "", " " }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
