package configs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzarena/internal/configs"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := configs.Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.UserIdleTimeout)
	assert.Equal(t, 30*time.Minute, cfg.AreaIdleTimeout)
	assert.Equal(t, time.Minute, cfg.ReapInterval)
	assert.Equal(t, 16, cfg.AreaMaxOccupants)
	assert.Equal(t, 0, cfg.PowDifficulty)
	assert.Equal(t, 30*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, 5*time.Second, cfg.CountdownDuration)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("USER_IDLE_TIMEOUT", "90s")

	cfg, err := configs.Parse()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.UserIdleTimeout)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "privileged port", env: map[string]string{"PORT": "80"}},
		{name: "malformed port", env: map[string]string{"PORT": "eighty"}},
		{name: "missing secret in production", env: map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": ""}},
		{name: "zero reap interval", env: map[string]string{"REAP_INTERVAL": "0s"}},
		{name: "negative capacity", env: map[string]string{"AREA_MAX_OCCUPANTS": "-1"}},
		{name: "excessive pow difficulty", env: map[string]string{"POW_DIFFICULTY": "12"}},
		{name: "zero response timeout", env: map[string]string{"RESPONSE_TIMEOUT": "0s"}},
		{name: "negative countdown", env: map[string]string{"COUNTDOWN_DURATION": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := configs.Parse()
			assert.Error(t, err)
		})
	}
}
