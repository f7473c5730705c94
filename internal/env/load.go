// Package env reads the process configuration from the environment, with an
// optional .env file.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mapagent/internal/agent"
	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
)

// DefaultUserAgent identifies us to the public OSM services.
const DefaultUserAgent = "AgenticMapApp/1.0 (contact: dev@example.com)"

// Config is everything the resolver and the CLIs need.
type Config struct {
	NominatimBaseURL   string        `validate:"required,url"`
	NominatimUserAgent string        `validate:"required"`
	NominatimEmail     string        `validate:"omitempty,email"`
	OverpassMirrors    []string      `validate:"required,min=1,dive,url"`
	OverpassParallel   bool
	StructuredTimeout  time.Duration `validate:"gt=0"`
	SpatialTimeout     time.Duration `validate:"gt=0"`
	ResultLimit        int           `validate:"gt=0"`

	OpenRouterAPIKey  string
	OpenRouterBaseURL string  `validate:"omitempty,url"`
	DefaultModel      string  `validate:"required"`
	AgentMaxSteps     int     `validate:"gt=0"`
	AgentTemperature  float64 `validate:"gte=0,lte=2"`

	LogLevel    string `validate:"oneof=debug info warn error"`
	MetricsAddr string
}

// LoadEnv loads .env from the working directory when there is one.
func LoadEnv(logger *zap.Logger) {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Debug("no .env file found, using the process environment")
	}
}

// Load reads and validates the configuration. Unset variables take their
// defaults; malformed values are errors.
func Load() (Config, error) {
	r := reader{}
	cfg := Config{
		NominatimBaseURL:   r.str("NOMINATIM_BASE_URL", location.DefaultBaseURL),
		NominatimUserAgent: r.str("NOMINATIM_USER_AGENT", DefaultUserAgent),
		NominatimEmail:     r.str("NOMINATIM_EMAIL", ""),
		OverpassMirrors:    r.list("OVERPASS_MIRRORS", overpass.DefaultMirrors),
		OverpassParallel:   r.boolean("OVERPASS_PARALLEL", false),
		StructuredTimeout:  r.duration("STRUCTURED_TIMEOUT", 20*time.Second),
		SpatialTimeout:     r.duration("SPATIAL_TIMEOUT", 25*time.Second),
		ResultLimit:        r.integer("RESULT_LIMIT", 20),
		OpenRouterAPIKey:   r.str("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:  r.str("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:       r.str("DEFAULT_MODEL", "openai/gpt-4o-mini"),
		AgentMaxSteps:      r.integer("AGENT_MAX_STEPS", agent.DefaultMaxSteps),
		AgentTemperature:   r.float("AGENT_TEMPERATURE", agent.DefaultTemperature),
		LogLevel:           strings.ToLower(r.str("LOG_LEVEL", "info")),
		MetricsAddr:        r.str("METRICS_ADDR", ":9090"),
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustGetEnv returns a variable that has no sensible default, exiting when it
// is unset.
func MustGetEnv(logger *zap.Logger, key string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		logger.Fatal("environment variable not set", zap.String("key", key))
	}
	return val
}

// reader keeps the first parse error so Load can report it once.
type reader struct {
	err error
}

func (r *reader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("parse %s=%q: %w", key, value, err)
	}
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *reader) list(key string, def []string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
	}
	return b
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
	}
	return f
}

// duration accepts Go durations ("20s") and bare seconds ("20").
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
	}
	return d
}
