package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"gpuswitch/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply defaults and report every
validation failure.

Examples:
  # Validate the default config
  relay validate

  # Validate a specific file
  relay validate --config /etc/relay/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Println()
	fmt.Printf("Listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("Backend:        %s\n", cfg.Backend.BaseURL)

	models := make([]string, 0, len(cfg.Models))
	for model := range cfg.Models {
		models = append(models, model)
	}
	sort.Strings(models)

	fmt.Printf("Models:         %d\n", len(models))
	for _, model := range models {
		fmt.Printf("  %s -> %s\n", model, cfg.Models[model])
	}

	if cfg.Memory.Path != "" {
		fmt.Printf("Memory file:    %s\n", cfg.Memory.Path)
	}
	if cfg.Trace.Backend != "" {
		fmt.Printf("Trace backend:  %s (%s)\n", cfg.Trace.Backend, cfg.Trace.Path)
	}

	return nil
}
