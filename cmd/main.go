/*
Package main is the entry point for the dmchat server.

The default command loads configuration, initializes the global logging system,
wires the stores and the chat manager, serves HTTP and WebSocket traffic and shuts
down gracefully on SIGINT or SIGTERM. The migrate command only applies database
migrations.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dmchat/internal/configs"
	"dmchat/internal/pkg/logx"
)

var rootCmd = &cobra.Command{
	Use:           "dmchat",
	Short:         "Real-time direct messaging server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes the global logger.
func loadConfig() (*configs.AppConfig, error) {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("storage_driver", cfg.StorageDriver).
		Bool("database", cfg.DatabaseDSN != "").
		Dur("ping_interval", cfg.PingInterval).
		Dur("pong_timeout", cfg.PongTimeout).
		Msg("Configuration loaded successfully")

	return cfg, nil
}
