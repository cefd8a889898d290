package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_ALGORITHM", "")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "")
	t.Setenv("TOKEN_RENEWAL_THRESHOLD_SECONDS", "")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 360*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.VerificationTTL)
	assert.Equal(t, 300*time.Second, cfg.Auth.RenewalThreshold)

	// dev without a secret signs with a random per-process key, never an empty one
	assert.True(t, cfg.JWT.Ephemeral)
	assert.Len(t, cfg.JWT.Secret, 64)
	assert.NotEqual(t, cfg.JWT.Secret, Load().JWT.Secret)
}

func TestLoad_ProdKeepsMissingSecretEmpty(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg := Load()

	assert.Empty(t, cfg.JWT.Secret)
	assert.False(t, cfg.JWT.Ephemeral)
	require.Error(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("JWT_ALGORITHM", "hs512")
	t.Setenv("ADMIN_DEFAULT_EMAIL", "root@speakup.local")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, "root@speakup.local", cfg.Admin.Email)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DBURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadIntegerFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "half")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.InDelta(t, 1.0, cfg.TraceSampleRatio, 0)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "missing secret in prod",
			mutate:  func(c *Config) { c.Env = "prod"; c.JWT.Secret = "" },
			wantErr: "JWT_SECRET_KEY",
		},
		{
			name:    "empty secret in dev",
			mutate:  func(c *Config) { c.Env = "dev"; c.JWT.Secret = "" },
			wantErr: "JWT_SECRET_KEY",
		},
		{
			name:    "asymmetric algorithm rejected",
			mutate:  func(c *Config) { c.JWT.Algorithm = "RS256" },
			wantErr: "JWT_ALGORITHM",
		},
		{
			name:    "threshold longer than lifetime",
			mutate:  func(c *Config) { c.Auth.RenewalThreshold = 7 * time.Hour },
			wantErr: "renewal threshold",
		},
		{
			name:    "smtp without host",
			mutate:  func(c *Config) { c.MailDriver = "smtp" },
			wantErr: "SMTP_HOST",
		},
		{
			name:    "sample ratio out of range",
			mutate:  func(c *Config) { c.TraceSampleRatio = 1.5 },
			wantErr: "OTEL_TRACES_SAMPLER_ARG",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.StoreDriver = "mongo" },
			wantErr: "STORE_DRIVER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
