package resolve

import (
	"go.uber.org/zap"

	"mapagent/internal/agent"
	"mapagent/internal/env"
	"mapagent/internal/tools"
	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
)

// Components are the pieces built from one configuration.
type Components struct {
	Structured *location.Client
	Spatial    *overpass.Client
	Toolbox    *tools.Toolbox
	Resolver   *Resolver
}

// FromConfig builds the provider clients, the toolbox and a resolver whose
// reasoning loop talks to the configured OpenAI-compatible endpoint.
func FromConfig(cfg env.Config, logger *zap.Logger) Components {
	if logger == nil {
		logger = zap.NewNop()
	}
	structured := location.NewClient(location.Config{
		BaseURL:   cfg.NominatimBaseURL,
		UserAgent: cfg.NominatimUserAgent,
		Email:     cfg.NominatimEmail,
		Timeout:   cfg.StructuredTimeout,
	})
	spatial := overpass.NewClient(overpass.Config{
		Mirrors:   cfg.OverpassMirrors,
		UserAgent: cfg.NominatimUserAgent,
		Timeout:   cfg.SpatialTimeout,
		Parallel:  cfg.OverpassParallel,
	}, logger.Named("overpass"))
	tb := tools.NewToolbox(structured, spatial, cfg.ResultLimit, logger.Named("tools"))
	factory := agent.NewOpenRouterFactory(agent.Config{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.DefaultModel,
		MaxSteps:    cfg.AgentMaxSteps,
		Temperature: cfg.AgentTemperature,
	}, tb.Definitions(), logger.Named("agent"))

	return Components{
		Structured: structured,
		Spatial:    spatial,
		Toolbox:    tb,
		Resolver:   NewResolver(factory, structured, nil, cfg.ResultLimit, logger.Named("resolve")),
	}
}
