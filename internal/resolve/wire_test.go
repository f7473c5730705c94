package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapagent/internal/env"
)

func TestFromConfig_NoAPIKeyFallsBackToProvider(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"osm_type":"node","osm_id":1,"lat":"41.0","lon":"29.0","display_name":"Cafe X, Kadıköy","namedetails":{"name":"Cafe X"}}]`))
	}))
	defer srv.Close()

	cfg := env.Config{
		NominatimBaseURL:   srv.URL,
		NominatimUserAgent: "test-agent/1.0",
		OverpassMirrors:    []string{srv.URL},
		StructuredTimeout:  time.Second,
		SpatialTimeout:     time.Second,
		ResultLimit:        5,
		DefaultModel:       "m",
		AgentMaxSteps:      2,
	}
	c := FromConfig(cfg, nil)

	out := c.Resolver.Resolve(context.Background(), "cafes in Kadikoy", "")

	require.Len(t, out.Places, 1)
	assert.Equal(t, "Cafe X", out.Places[0].Name)
	assert.True(t, strings.HasPrefix(out.Response, "Places found for 'cafes in Kadikoy':"))
	assert.Equal(t, "test-agent/1.0", userAgent)
	assert.Len(t, c.Toolbox.Definitions(), 4)
}
