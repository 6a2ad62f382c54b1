package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/mapgate/internal/agent"
	"github.com/haasonsaas/mapgate/internal/agent/providers"
	"github.com/haasonsaas/mapgate/internal/config"
	"github.com/haasonsaas/mapgate/internal/dispatch"
	"github.com/haasonsaas/mapgate/internal/history"
	"github.com/haasonsaas/mapgate/internal/mapcmd"
	"github.com/haasonsaas/mapgate/internal/observability"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/internal/server"
	"github.com/haasonsaas/mapgate/internal/session"
	"github.com/haasonsaas/mapgate/internal/store"
	"github.com/haasonsaas/mapgate/internal/tools/googlemaps"
	"github.com/haasonsaas/mapgate/internal/tools/websearch"
)

// buildServeCmd creates the "serve" command that starts the gateway.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mapgate gateway server",
		Long: `Start the gateway server.

The server will:
1. Load configuration from the specified file
2. Open the session store (memory or sqlite)
3. Register the enabled tool capabilities
4. Initialize the reasoning backend (OpenAI or Anthropic)
5. Start the HTTP server

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  mapgate serve

  # Start with custom config
  mapgate serve --config /etc/mapgate/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "mapgate.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// expiryPurger is implemented by stores that can drop expired entries
// eagerly instead of on read.
type expiryPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// runServe implements the serve command logic.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	slog.SetDefault(logger)

	logger.Info("starting mapgate gateway",
		"version", version,
		"commit", commit,
		"config", configPath,
		"store", cfg.Store.Driver,
		"llm_provider", cfg.LLM.Provider,
	)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Periodic sweep so expired sessions do not pile up between reads.
	sweeper := cron.New()
	if p, ok := st.(expiryPurger); ok {
		_, err := sweeper.AddFunc(cfg.Store.SweepSchedule, func() {
			n, err := p.PurgeExpired(context.Background())
			if err != nil {
				logger.Warn("store sweep failed", "error", err)
				return
			}
			if n > 0 {
				logger.Debug("store sweep purged entries", "count", n)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Store.SweepSchedule, err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	metrics := observability.NewMetrics()
	sessions := session.NewManager(st, cfg.Session.TTL, cfg.Session.MagicLifetime, logger)

	reg, maps, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(reg, logger, metrics)
	if err := dispatcher.RegisterExpander(mapcmd.CapabilityName, mapcmd.ExpandCommands); err != nil {
		return fmt.Errorf("failed to register map expander: %w", err)
	}

	provider, err := providers.New(providers.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize llm provider: %w", err)
	}

	loop := agent.NewLoop(provider, dispatcher, reg, cfg.LLM.MaxRounds, cfg.LLM.MaxTokens, logger)
	summarizer := agent.NewHistorySummarizer(provider, cfg.LLM.MaxTokens)
	hist := history.NewManager(cfg.History.Limit, summarizer, logger)

	srv := server.New(server.Options{
		Config:   cfg,
		Sessions: sessions,
		History:  hist,
		Loop:     loop,
		Registry: reg,
		Maps:     maps,
		Metrics:  metrics,
		Logger:   logger,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("mapgate gateway stopped")
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildRegistry assembles the capability catalog from the configured
// credentials. The map capability is always present; server tools are
// registered only when their keys are set. The Google client is shared
// with the typeahead endpoint and is nil without a key.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, *googlemaps.Client, error) {
	reg := registry.New()

	if err := reg.RegisterClient(mapcmd.Descriptor()); err != nil {
		return nil, nil, fmt.Errorf("failed to register map capability: %w", err)
	}

	if cfg.Tools.TavilyAPIKey != "" {
		if err := reg.RegisterServer(websearch.New(websearch.Config{APIKey: cfg.Tools.TavilyAPIKey})); err != nil {
			return nil, nil, fmt.Errorf("failed to register web search: %w", err)
		}
	} else {
		logger.Info("web search disabled: no tavily api key")
	}

	var maps *googlemaps.Client
	if cfg.Tools.GoogleMapsAPIKey != "" {
		maps = googlemaps.NewClient(googlemaps.Config{APIKey: cfg.Tools.GoogleMapsAPIKey})
		for _, tool := range []registry.Tool{
			googlemaps.NewPlacesTool(maps),
			googlemaps.NewGeocodeTool(maps),
			googlemaps.NewRouteTool(maps),
		} {
			if err := reg.RegisterServer(tool); err != nil {
				return nil, nil, fmt.Errorf("failed to register %s: %w", tool.Name(), err)
			}
		}
	} else {
		logger.Info("google maps tools disabled: no api key")
	}

	return reg, maps, nil
}
