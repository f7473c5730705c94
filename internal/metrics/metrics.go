// Package metrics exposes Prometheus counters for upstream calls and the
// fallback tiers that consume them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mapagent"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	// providerRequestsTotal counts upstream requests.
	// Labels: provider (nominatim, overpass), outcome (ok, error)
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Upstream provider requests by provider and outcome",
	}, []string{"provider", "outcome"})

	// mirrorAttemptsTotal counts attempts against individual spatial mirrors.
	mirrorAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "overpass",
		Name:      "mirror_attempts_total",
		Help:      "Spatial query attempts by mirror and outcome",
	}, []string{"mirror", "outcome"})

	// toolTiersTotal counts fallback tiers run by the search tools.
	// Labels: tool, tier, outcome (ok, empty, error)
	toolTiersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "tiers_total",
		Help:      "Fallback tiers executed by tool, tier and outcome",
	}, []string{"tool", "tier", "outcome"})

	// resolvesTotal counts resolve requests by the path that produced places.
	// Labels: path (tool_outputs, final_answer, fallback, none)
	resolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolve",
		Name:      "requests_total",
		Help:      "Resolve requests by the path that produced the places",
	}, []string{"path"})
)

func RecordProviderRequest(provider string, err error) {
	providerRequestsTotal.WithLabelValues(provider, outcomeOf(err)).Inc()
}

func RecordMirrorAttempt(mirror string, err error) {
	mirrorAttemptsTotal.WithLabelValues(mirror, outcomeOf(err)).Inc()
}

// RecordTier records one fallback tier; a nil error with zero hits is "empty".
func RecordTier(tool, tier string, hits int, err error) {
	outcome := outcomeOf(err)
	if err == nil && hits == 0 {
		outcome = OutcomeEmpty
	}
	toolTiersTotal.WithLabelValues(tool, tier, outcome).Inc()
}

func RecordResolve(path string) {
	resolvesTotal.WithLabelValues(path).Inc()
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
