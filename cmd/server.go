package cmd

import (
	"github.com/spf13/cobra"

	"orpheus/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the generation API server",
	Long:  `Starts the HTTP server exposing the music generation, planning and lyrics endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
