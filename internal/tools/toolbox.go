// Package tools implements the place search tools offered to the reasoning
// loop. Every tool returns plain text: failures become an error line, never
// a Go error, because the caller can only read text.
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mapagent/internal/metrics"
	"mapagent/pkg/geo"
	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
)

// DefaultResultLimit caps both the provider request and the printed list.
const DefaultResultLimit = 20

// DefaultRadius is used by NearbySearch when no positive radius is given.
const DefaultRadius = 1500

// metersPerDegree approximates one degree of latitude.
const metersPerDegree = 111000.0

// StructuredSearcher is the geocoding/search provider.
type StructuredSearcher interface {
	Search(ctx context.Context, p location.Params) ([]location.Hit, error)
}

// SpatialQuerier is the tag-based proximity provider.
type SpatialQuerier interface {
	Query(ctx context.Context, query string) (*overpass.Dataset, error)
}

// Toolbox runs the tiered fallback chains behind each tool.
type Toolbox struct {
	structured StructuredSearcher
	spatial    SpatialQuerier
	normalizer *geo.Normalizer
	limit      int
	logger     *zap.Logger
}

// NewToolbox wires the providers. limit <= 0 selects DefaultResultLimit and a
// nil logger disables logging.
func NewToolbox(structured StructuredSearcher, spatial SpatialQuerier, limit int, logger *zap.Logger) *Toolbox {
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{
		structured: structured,
		spatial:    spatial,
		normalizer: geo.Default(),
		limit:      limit,
		logger:     logger,
	}
}

// tier is one structured-provider attempt of a fallback chain.
type tier struct {
	name   string
	params location.Params
}

// runTiers tries each tier in order and returns the usable hits of the first
// one that has any. A failing tier counts as empty; the last failure is
// returned only when every tier came back empty.
func (t *Toolbox) runTiers(ctx context.Context, tool string, tiers []tier) ([]location.Hit, error) {
	var lastErr error
	for _, tr := range tiers {
		hits, err := t.structured.Search(ctx, tr.params)
		usable := withCoordinates(hits)
		metrics.RecordTier(tool, tr.name, len(usable), err)
		if err != nil {
			t.logger.Debug("tier failed", zap.String("tool", tool), zap.String("tier", tr.name), zap.Error(err))
			lastErr = err
			continue
		}
		t.logger.Debug("tier finished", zap.String("tool", tool), zap.String("tier", tr.name), zap.Int("hits", len(usable)))
		if len(usable) > 0 {
			return usable, nil
		}
	}
	return nil, lastErr
}

func withCoordinates(hits []location.Hit) []location.Hit {
	var out []location.Hit
	for _, h := range hits {
		if _, _, ok := h.Coordinates(); ok {
			out = append(out, h)
		}
	}
	return out
}

// guard converts a panic inside a tool into an error line.
func (t *Toolbox) guard(out *string, what string) {
	if r := recover(); r != nil {
		t.logger.Error("tool panicked", zap.String("tool", what), zap.Any("panic", r))
		*out = errorLine(what, fmt.Errorf("%v", r))
	}
}

func errorLine(what string, err error) string {
	return fmt.Sprintf("An error occurred during %s: %v", what, err)
}
