package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mydms/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mydms",
	Short: "Application state hub for the mydms document manager",
	Long: `mydms keeps the shared application state of the document manager's
front-end: application info, search text, progress, the show-amount
preference and reload requests. Browsers attach over a WebSocket; the
navbar command drives the same state from a terminal.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
