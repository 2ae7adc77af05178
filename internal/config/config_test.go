package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TABLE_NAME", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(64<<10), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "contact_messages", cfg.Store.Table)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "contact-desk", cfg.Auth.Issuer)
	assert.Equal(t, "memory", cfg.Auth.RevocationDriver)
	assert.False(t, cfg.Triage.LLMEnabled)
	assert.Equal(t, 3*time.Second, cfg.Triage.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SERVER_MAX_BODY_BYTES", "1024")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("TABLE_NAME", "inbox")
	t.Setenv("AUTH_TOKEN_TTL", "15m")
	t.Setenv("AUTH_REVOCATION_DRIVER", "redis")
	t.Setenv("TRIAGE_LLM_ENABLED", "true")
	t.Setenv("ARK_TEMPERATURE", "0.2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "inbox", cfg.Store.Table)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "redis", cfg.Auth.RevocationDriver)
	assert.True(t, cfg.Triage.LLMEnabled)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.2, *cfg.AI.Temperature, 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short secret", "AUTH_JWT_SECRET", "short"},
		{"bad port", "PORT", "eighty"},
		{"bad ttl", "AUTH_TOKEN_TTL", "forever"},
		{"negative ttl", "AUTH_TOKEN_TTL", "-1m"},
		{"bad revocation driver", "AUTH_REVOCATION_DRIVER", "etcd"},
		{"bad body limit", "SERVER_MAX_BODY_BYTES", "0"},
		{"bad bool", "TRIAGE_LLM_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", testSecret)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAuthOperators(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "operators.yaml")
	content := "operators:\n  - username: ada\n    displayName: Ada\n    passwordHash: hash-a\n  - username: root\n    passwordHash: old\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := AuthConfig{OperatorsFile: path, AdminUsername: "root", AdminPasswordHash: "new"}
	operators, err := cfg.Operators()
	require.NoError(t, err)
	require.Len(t, operators, 3)
	assert.Equal(t, "root", operators[2].Username)
	assert.Equal(t, "new", operators[2].PasswordHash)

	_, err = AuthConfig{AdminUsername: "root"}.Operators()
	assert.Error(t, err)

	_, err = AuthConfig{}.Operators()
	assert.Error(t, err)
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{}.Enabled())
	assert.False(t, AIConfig{APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{APIKey: "k", Model: "m"}.Enabled())
	assert.True(t, AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}.Enabled())
}
