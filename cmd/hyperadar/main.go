package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"HypeRadar/internal/di"
	"HypeRadar/pkg/config"
	"HypeRadar/pkg/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hyperadar",
	Short: "Meme-stock early-warning scoring engine",
	Long: `HypeRadar scores a watchlist on unusual options flow, volume spikes and
social mentions, publishes alert levels over HTTP and websocket, and notifies
when a ticker reaches CRITICAL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default $CONFIG_PATH or "+config.DefaultPath+")")
}

// buildApp loads configuration and wires the application graph.
func buildApp() (*server.App, *config.Config, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, cfg, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
