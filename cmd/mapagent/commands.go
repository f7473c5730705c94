package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mapagent/internal/env"
	"mapagent/internal/logging"
	"mapagent/internal/resolve"
	"mapagent/internal/tools"
)

// app is filled in by the root command before any subcommand runs.
type app struct {
	logger     *zap.Logger
	components resolve.Components
	cfg        env.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:   "mapagent",
		Short: "Resolve natural-language place requests against OpenStreetMap",
		Long: `mapagent turns requests such as "Kadıköy kafeler" into places with coordinates.

The resolve command runs the full pipeline through the language model; the
other commands call one search tool directly and print its text output.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.LoadEnv(nil)
			cfg, err := env.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			a.components = resolve.FromConfig(cfg, logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")

	root.AddCommand(
		a.resolveCmd(),
		a.textSearchCmd(),
		a.nearbyCmd(),
		a.geocodeCmd(),
		a.detailsCmd(),
	)
	return root
}

func (a *app) resolveCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "resolve [prompt]",
		Short: "Run the full pipeline and print the result envelope as JSON",
		Example: `  mapagent resolve "Kadıköy'de kahve içebileceğim yerler"
  mapagent resolve --model openai/gpt-4o-mini "bars near Taksim"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = a.cfg.DefaultModel
			}
			out := a.components.Resolver.Resolve(cmd.Context(), strings.Join(args, " "), model)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model identifier (default from DEFAULT_MODEL)")
	return cmd
}

func (a *app) textSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text-search [query]",
		Short: "Search places by free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd, a.components.Toolbox.TextSearch(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func (a *app) nearbyCmd() *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:     "nearby <lat> <lon> <place-type>",
		Short:   "List places of a type around a point",
		Example: "  mapagent nearby 40.9903 29.0290 cafe --radius 800",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("latitude: %w", err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("longitude: %w", err)
			}
			return a.print(cmd, a.components.Toolbox.NearbySearch(cmd.Context(), lat, lon, args[2], radius))
		},
	}
	cmd.Flags().IntVar(&radius, "radius", tools.DefaultRadius, "Search radius in meters")
	return cmd
}

func (a *app) geocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode [address]",
		Short: "Resolve an address or area name to coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd, a.components.Toolbox.Geocode(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func (a *app) detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "details <kind/id>",
		Short:   "Show tags of one OSM object",
		Example: "  mapagent details node/123456",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd, a.components.Toolbox.PlaceDetails(cmd.Context(), args[0]))
		},
	}
}

func (a *app) print(cmd *cobra.Command, text string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
	return err
}
