package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orpheus/config"
	"orpheus/logger"
	"orpheus/server"
)

var rootCmd = &cobra.Command{
	Use:   "orpheus",
	Short: "Orpheus turns text prompts into finished music tracks.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Bare invocation runs the server, same as the server subcommand.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
