package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.AuthEnabled)
	assert.False(t, cfg.Google.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", " DynamoDB ")
	t.Setenv("DYNAMODB_TABLE", "allowance")
	t.Setenv("ADMIN_EMAILS", "Admin@Example.com, ,other@example.com")
	t.Setenv("AUTHORIZED_EMAILS", "parent@example.com")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-1")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.StorageBackend)
	assert.Equal(t, "allowance", cfg.DynamoDB.Table)
	assert.Equal(t, []string{"admin@example.com", "other@example.com"}, cfg.AdminEmails)
	assert.Equal(t, []string{"parent@example.com"}, cfg.AuthorizedEmails)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.Sheets.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigRejectsBadValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	_, err := NewConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"auth without secret", func(c *Config) { c.JWTSecretKey = "" }, "JWT_SECRET_KEY"},
		{"auth disabled without secret", func(c *Config) { c.AuthEnabled = false; c.JWTSecretKey = "" }, ""},
		{"unknown backend", func(c *Config) { c.StorageBackend = "mongo" }, "unknown STORAGE_BACKEND"},
		{"dynamodb without table", func(c *Config) { c.StorageBackend = BackendDynamoDB }, "DYNAMODB_TABLE"},
		{"half google config", func(c *Config) { c.Google.ClientID = "id" }, "GOOGLE_CLIENT_SECRET"},
		{"negative burst", func(c *Config) { c.RateLimitBurst = -1 }, "rate limit"},
		{"zero burst with limiter on", func(c *Config) { c.RateLimitRPS = 20; c.RateLimitBurst = 0 }, "RATE_LIMIT_BURST"},
		{"zero burst with limiter off", func(c *Config) { c.RateLimitRPS = 0; c.RateLimitBurst = 0 }, ""},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} }, "TRUSTED_PROXIES"},
		{"trusted proxies", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.10"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				StorageBackend: BackendMemory,
				AuthEnabled:    true,
				JWTSecretKey:   "secret",
			}
			tt.mutate(cfg)
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

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := &Config{TrustedProxies: []string{"10.1.2.3/8", " 192.0.2.10 ", "", "2001:db8::/32"}}
	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.10/32", prefixes[1].String())
	assert.Equal(t, "2001:db8::/32", prefixes[2].String())

	cfg.TrustedProxies = []string{"proxy.internal"}
	_, err = cfg.TrustedProxyPrefixes()
	assert.Error(t, err)
}
