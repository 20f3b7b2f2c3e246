// Command agentstore discovers AI agent capabilities (MCP servers and
// OpenClaw skills), scores them and publishes the catalog.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstore/agentstore/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "agentstore",
	Short: "Discover and score AI agent capabilities",
	Long: `AgentStore builds a scored catalog of AI agent capabilities.

It discovers MCP servers and OpenClaw skills from curated lists,
registries and package indexes, collects repository metadata from
GitHub, runs security scans, has an AI model evaluate each capability,
and publishes the merged catalog as JSON and SQLite.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig reads configuration from the optional YAML file and the
// environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
