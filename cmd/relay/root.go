package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - model-switching LLM reverse proxy",
	Long: `Relay is a reverse proxy that multiplexes one GPU across several
llama.cpp-style model services on the same host.

It exposes an OpenAI-compatible API and provides:
  - Automatic systemd service switching when a request names a cold model
  - Tool-call normalization and JSON repair of backend output
  - Fake streaming replay for clients that require SSE
  - Persistent memory injected into every conversation
  - Raw request/response tracing for offline debugging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
