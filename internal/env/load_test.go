package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
)

var allKeys = []string{
	"NOMINATIM_BASE_URL", "NOMINATIM_USER_AGENT", "NOMINATIM_EMAIL",
	"OVERPASS_MIRRORS", "OVERPASS_PARALLEL", "STRUCTURED_TIMEOUT", "SPATIAL_TIMEOUT",
	"RESULT_LIMIT", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "DEFAULT_MODEL",
	"AGENT_MAX_STEPS", "AGENT_TEMPERATURE", "LOG_LEVEL", "METRICS_ADDR",
}

// clearEnv blanks every variable Load reads; empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, location.DefaultBaseURL, cfg.NominatimBaseURL)
	assert.Equal(t, DefaultUserAgent, cfg.NominatimUserAgent)
	assert.Equal(t, overpass.DefaultMirrors, cfg.OverpassMirrors)
	assert.False(t, cfg.OverpassParallel)
	assert.Equal(t, 20*time.Second, cfg.StructuredTimeout)
	assert.Equal(t, 25*time.Second, cfg.SpatialTimeout)
	assert.Equal(t, 20, cfg.ResultLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OpenRouterAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOMINATIM_BASE_URL", "http://localhost:8080")
	t.Setenv("NOMINATIM_EMAIL", "ops@example.org")
	t.Setenv("OVERPASS_MIRRORS", " http://a.test/api , http://b.test/api ,")
	t.Setenv("OVERPASS_PARALLEL", "true")
	t.Setenv("STRUCTURED_TIMEOUT", "5")
	t.Setenv("SPATIAL_TIMEOUT", "1500ms")
	t.Setenv("RESULT_LIMIT", "5")
	t.Setenv("AGENT_TEMPERATURE", "0.2")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.NominatimBaseURL)
	assert.Equal(t, "ops@example.org", cfg.NominatimEmail)
	assert.Equal(t, []string{"http://a.test/api", "http://b.test/api"}, cfg.OverpassMirrors)
	assert.True(t, cfg.OverpassParallel)
	assert.Equal(t, 5*time.Second, cfg.StructuredTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SpatialTimeout)
	assert.Equal(t, 5, cfg.ResultLimit)
	assert.InDelta(t, 0.2, cfg.AgentTemperature, 1e-9)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed integer", "RESULT_LIMIT", "many"},
		{"zero limit", "RESULT_LIMIT", "0"},
		{"malformed bool", "OVERPASS_PARALLEL", "sometimes"},
		{"malformed duration", "SPATIAL_TIMEOUT", "soon"},
		{"mirror is not a url", "OVERPASS_MIRRORS", "not a url"},
		{"bad email", "NOMINATIM_EMAIL", "nobody"},
		{"unknown level", "LOG_LEVEL", "chatty"},
		{"temperature out of range", "AGENT_TEMPERATURE", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}
