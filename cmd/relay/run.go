package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gpuswitch/relay/pkg/config"
	"gpuswitch/relay/pkg/memory"
	"gpuswitch/relay/pkg/proxy/handlers"
	"gpuswitch/relay/pkg/rewrite"
	"gpuswitch/relay/pkg/server"
	"gpuswitch/relay/pkg/switchboard"
	"gpuswitch/relay/pkg/systemd"
	"gpuswitch/relay/pkg/telemetry/metrics"
	"gpuswitch/relay/pkg/trace"
	"gpuswitch/relay/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxy server",
	Long: `Start the proxy server with the specified configuration.

The server listens on the configured address, switches the backing model
service when a request names a cold model, and forwards completions to the
local inference backend.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8081

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	setupLogging(cfg)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Relay v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Process control and backend access.
	ctl := systemd.NewUserController(
		cfg.Switch.SystemctlPath,
		systemd.WithCommandTimeout(cfg.Switch.CommandTimeout),
	)
	backend := upstream.New(
		cfg.Backend.BaseURL,
		upstream.WithChatTimeout(cfg.Backend.RequestTimeout),
		upstream.WithHealthTimeout(cfg.Backend.HealthTimeout),
	)

	// Metrics are optional; the switchboard takes them as an observer.
	var m *metrics.Metrics
	switchOpts := []switchboard.Option{
		switchboard.WithPollInterval(cfg.Switch.PollInterval),
		switchboard.WithPollAttempts(cfg.Switch.PollAttempts),
	}
	if cfg.Telemetry.Metrics.Enabled {
		m = metrics.New(cfg.Telemetry.Metrics.Namespace)
		switchOpts = append(switchOpts, switchboard.WithObserver(m))
	}

	switcher := switchboard.New(cfg.Models, ctl, backend, switchOpts...)
	fmt.Printf("✓ Model registry loaded (%d models)\n", len(cfg.Models))

	repairer := rewrite.JSONRepairer{}
	rewriter := rewrite.New(repairer)

	// Persistent memory is enabled by configuring a path.
	var augmenter *memory.Augmenter
	if cfg.Memory.Path != "" {
		store, err := memory.NewStore(cfg.Memory.Path)
		if err != nil {
			return fmt.Errorf("failed to open memory store: %w", err)
		}
		defer store.Close()
		augmenter = memory.NewAugmenter(store, repairer)
		fmt.Printf("✓ Memory store: %s\n", cfg.Memory.Path)
	}

	recorder, cleanup, err := buildRecorder(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	chat := handlers.NewChatHandler(switcher, backend, rewriter, augmenter, recorder, requestObserver(m), slog.Default())
	h := server.Handlers{
		Chat:   chat,
		Models: handlers.NewModelsHandler(switcher),
		Health: handlers.NewHealthHandler(switcher),
	}
	if m != nil {
		h.Metrics = m.Handler()
	}

	srv := server.New(cfg, h)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(context.Background())
}

// buildRecorder creates the configured trace backend. The returned cleanup
// closes the backend and stops its retention scheduler, if any.
func buildRecorder(cfg *config.Config) (trace.Recorder, func(), error) {
	switch cfg.Trace.Backend {
	case "":
		return trace.Nop{}, nil, nil

	case "file":
		fmt.Printf("✓ Trace log: %s\n", cfg.Trace.Path)
		return trace.NewFileRecorder(cfg.Trace.Path), nil, nil

	case "sqlite":
		rec, err := trace.NewSQLiteRecorder(trace.SQLiteConfig{Path: cfg.Trace.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace database: %w", err)
		}

		var pruner *trace.Pruner
		if cfg.Trace.Retention.PruneSchedule != "" {
			pruner = trace.NewPruner(rec, trace.PrunerConfig{
				RetentionDays: cfg.Trace.Retention.Days,
				MaxRecords:    cfg.Trace.Retention.MaxRecords,
				Schedule:      cfg.Trace.Retention.PruneSchedule,
			})
			if err := pruner.Start(context.Background()); err != nil {
				slog.Warn("failed to start trace retention scheduler", "error", err)
				pruner = nil
			}
		}

		cleanup := func() {
			if pruner != nil {
				pruner.Stop()
			}
			if err := rec.Close(); err != nil {
				slog.Error("error closing trace database", "error", err)
			}
		}

		fmt.Printf("✓ Trace database: %s\n", cfg.Trace.Path)
		return rec, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unsupported trace backend: %s", cfg.Trace.Backend)
	}
}

// requestObserver adapts the optional metrics value to the handler interface
// without handing it a typed nil.
func requestObserver(m *metrics.Metrics) handlers.RequestObserver {
	if m == nil {
		return nil
	}
	return m
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Telemetry.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Telemetry.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
