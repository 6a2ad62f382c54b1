// Package main provides the CLI entry point for the mapgate server.
//
// Mapgate is an agentic gateway between a browser map application and an
// LLM: it manages sessions, offers the model a catalog of map and search
// capabilities, executes server-side tools, and returns deferred map
// commands for the browser to run.
//
// # Basic Usage
//
// Start the server:
//
//	mapgate serve --config mapgate.yaml
//
// # Environment Variables
//
// Configuration values may reference environment variables with ${VAR}
// syntax, e.g.:
//
//   - OPENAI_API_KEY / ANTHROPIC_API_KEY: reasoning backend credentials
//   - TAVILY_API_KEY: web search tool
//   - GOOGLE_MAPS_API_KEY: places, geocoding, routing, and typeahead
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mapgate",
		Short: "Mapgate - LLM gateway for an interactive map application",
		Long: `Mapgate connects a browser map application to an LLM with tool execution.

The model can search the web, look up places, geocode addresses, and plan
routes on the server, and it can drive the map itself through deferred
commands the browser executes and reports back.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
	)

	return rootCmd
}
