package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	admincmd "github.com/rzbill/segstore/internal/cmd/admin"
	serverrun "github.com/rzbill/segstore/internal/cmd/server"
	cfgpkg "github.com/rzbill/segstore/internal/config"
	"github.com/rzbill/segstore/internal/runtime"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "segstore",
		Short:         "Segment archive CLI",
		Long:          "segstore publishes and inspects log segments kept in object storage (S3, GCS, NATS JetStream or a local Pebble bucket).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SEGSTORE_CONFIG"), "Config file (.json, .yaml or .yml)")

	// loadConfig reads --config and overlays SEGSTORE_* variables.
	loadConfig := func() (cfgpkg.Config, error) {
		cfg, err := cfgpkg.Load(configPath)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfgpkg.FromEnv(&cfg)
		return cfg, nil
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the segstore HTTP server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, _ := cmd.Flags().GetString("http")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg, HTTPAddr: httpAddr}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default from config, :8080)")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// admin commands open the bucket directly
	open := func(ctx context.Context) (*runtime.Runtime, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		level, err := logpkg.ParseLevel(os.Getenv("SEGSTORE_LOG_LEVEL"))
		if err != nil || os.Getenv("SEGSTORE_LOG_LEVEL") == "" {
			level = logpkg.WarnLevel
		}
		logger := logpkg.NewLogger(
			logpkg.WithLevel(level),
			logpkg.WithFormatter(&logpkg.TextFormatter{}),
			logpkg.WithOutput(logpkg.NewConsoleOutput()),
		)
		return runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
	}
	rootCmd.AddCommand(admincmd.NewSegmentsCommand(open))
	rootCmd.AddCommand(admincmd.NewMetadataCommand(open))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
