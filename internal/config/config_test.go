package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTRememberTTL)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "Africa/Nairobi", cfg.Location.String())
	assert.Empty(t, cfg.RabbitURL)

	require.Len(t, cfg.Tenants, 2)
	arobisca, playbox := cfg.Tenants[0], cfg.Tenants[1]
	assert.Equal(t, "arobisca", arobisca.Name)
	assert.Equal(t, "arobisca", arobisca.MongoDB)
	assert.False(t, arobisca.Loyalty)
	assert.Equal(t, "playbox", playbox.Name)
	assert.True(t, playbox.Loyalty)
	assert.Equal(t, 587, playbox.SMTP.Port)
	assert.False(t, playbox.K2.Enabled())
}

func TestLoad_TenantOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AROBISCA_MONGO_URI", "mongodb://arobisca-db:27017")
	t.Setenv("AROBISCA_SMTP_PORT", "465")
	t.Setenv("AROBISCA_SMTP_SSL", "true")
	t.Setenv("AROBISCA_LOYALTY", "true")
	t.Setenv("PLAYBOX_K2_BASE_URL", "https://sandbox.kopokopo.com")
	t.Setenv("PLAYBOX_K2_CLIENT_ID", "id")
	t.Setenv("PLAYBOX_K2_CLIENT_SECRET", "secret")
	t.Setenv("NOTIFICATION_SWEEP_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, "mongodb://arobisca-db:27017", cfg.Tenants[0].MongoURI)
	assert.Equal(t, 465, cfg.Tenants[0].SMTP.Port)
	assert.True(t, cfg.Tenants[0].SMTP.SSL)
	assert.True(t, cfg.Tenants[0].Loyalty)
	assert.True(t, cfg.Tenants[1].K2.Enabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "JWT_TTL": "tomorrow"}},
		{"bad port", map[string]string{"JWT_SECRET": "x", "PLAYBOX_SMTP_PORT": "smtp"}},
		{"bad bool", map[string]string{"JWT_SECRET": "x", "AROBISCA_LOYALTY": "maybe"}},
		{"bad timezone", map[string]string{"JWT_SECRET": "x", "TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
