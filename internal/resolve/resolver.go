// Package resolve turns a natural-language prompt into a search result
// envelope: it runs the reasoning loop, extracts places from what the loop
// produced and falls back to the structured provider when the loop fails.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mapagent/internal/agent"
	"mapagent/internal/metrics"
	"mapagent/internal/tools"
	"mapagent/models"
	"mapagent/pkg/extract"
	"mapagent/pkg/geo"
	"mapagent/pkg/location"
)

// Resolve paths, as recorded in metrics.
const (
	PathToolOutputs = "tool_outputs"
	PathFinalAnswer = "final_answer"
	PathFallback    = "fallback"
	PathNone        = "none"
)

// Answers containing one of these are replaced when the fallback finds places.
var failureMarkers = []string{"no results", "sonuç bulamadım", "error"}

// Resolver assembles envelopes. It holds no per-request state.
type Resolver struct {
	factory    agent.Factory
	structured tools.StructuredSearcher
	extractor  extract.Extractor
	normalizer *geo.Normalizer
	limit      int
	logger     *zap.Logger
}

// NewResolver wires a resolver. A nil extractor selects the pattern extractor
// and limit <= 0 selects tools.DefaultResultLimit.
func NewResolver(factory agent.Factory, structured tools.StructuredSearcher, extractor extract.Extractor, limit int, logger *zap.Logger) *Resolver {
	if extractor == nil {
		extractor = extract.NewPatternExtractor()
	}
	if limit <= 0 {
		limit = tools.DefaultResultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		factory:    factory,
		structured: structured,
		extractor:  extractor,
		normalizer: geo.Default(),
		limit:      limit,
		logger:     logger,
	}
}

// Resolve always returns a well-formed envelope; failures end up in its
// response text.
func (r *Resolver) Resolve(ctx context.Context, prompt, model string) models.SearchResultEnvelope {
	log := r.logger.With(zap.String("request_id", uuid.NewString()), zap.String("model", model))

	tr, loopErr := r.invoke(ctx, prompt, model)
	if loopErr != nil {
		log.Warn("reasoning loop failed", zap.Error(loopErr), zap.Int("tool_calls", len(tr.Invocations)))
	}

	path := PathToolOutputs
	places := extract.Collect(r.extractor, tr.ToolOutputs())
	if len(places) == 0 {
		path = PathFinalAnswer
		places = extract.Collect(r.extractor, []string{tr.FinalText})
	}

	answer := tr.FinalText
	if loopErr != nil && len(places) == 0 {
		if found := r.fallback(ctx, log, prompt); len(found) > 0 {
			path = PathFallback
			places = found
			if needsSynthesis(answer) {
				answer = synthesize(prompt, places)
			}
		}
	}

	if strings.TrimSpace(answer) == "" {
		if len(places) > 0 {
			answer = synthesize(prompt, places)
		} else {
			answer = fmt.Sprintf("No results found for '%s'.", prompt)
			if loopErr != nil {
				answer += "\nAgent error: " + loopErr.Error()
			}
		}
	}
	if len(places) == 0 {
		path = PathNone
	}

	metrics.RecordResolve(path)
	log.Info("resolved", zap.String("path", path), zap.Int("places", len(places)))
	return models.NewEnvelope(prompt, answer, places)
}

func (r *Resolver) invoke(ctx context.Context, prompt, model string) (agent.Transcript, error) {
	if r.factory == nil {
		return agent.Transcript{}, &agent.Error{Op: "create", Err: agent.ErrMissingAPIKey}
	}
	loop, err := r.factory(model)
	if err != nil {
		return agent.Transcript{}, err
	}
	return loop.Invoke(ctx, prompt)
}

// fallback searches the structured provider directly with the translated
// prompt, then once more with the prompt as written.
func (r *Resolver) fallback(ctx context.Context, log *zap.Logger, prompt string) []models.PlaceRecord {
	if r.structured == nil {
		return nil
	}
	translated := r.normalizer.Translate(prompt)
	queries := []string{translated}
	if translated != prompt {
		queries = append(queries, prompt)
	}
	for _, q := range queries {
		hits, err := r.structured.Search(ctx, location.Params{Query: q, Limit: r.limit, Details: true})
		if err != nil {
			log.Warn("fallback search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		if places := models.Dedup(location.Records(hits)); len(places) > 0 {
			return places
		}
	}
	return nil
}

func needsSynthesis(answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return true
	}
	lower := strings.ToLower(answer)
	for _, m := range failureMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// synthesize writes a numbered list in the same layout the tools use, so the
// answer stays readable by the extractor.
func synthesize(prompt string, places []models.PlaceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Places found for '%s':\n\n", prompt)
	for i, p := range places {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "   📍 Coordinates: %s, %s\n\n", models.FormatCoordinate(p.Lat), models.FormatCoordinate(p.Lon))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
