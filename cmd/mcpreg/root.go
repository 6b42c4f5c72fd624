package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mcpreg",
	Short: "Manage and inspect MCP tool servers from a YAML config",
	Long: `mcpreg launches the MCP servers declared in a YAML configuration file,
connects to each over stdio, and collects the tools they expose.

Configuration is read from mcp_server_config.yaml in the current
directory or ~/.config/mcpreg/, unless --config points elsewhere.`,
	Example: `  mcpreg servers                   # Connect everything and list server status
  mcpreg tools                     # Aggregate tools across all servers
  mcpreg tools filesystem          # Tools from one server
  mcpreg search "read file"        # Full-text search over tool descriptors
  mcpreg serve --addr :8701        # Run the HTTP registry API`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the server configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	return rootCmd.Execute()
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// withRegistry loads the configuration, connects every configured server, runs
// fn, and tears the registry down afterwards. Servers that fail to connect are
// reported on stderr and skipped.
func withRegistry(ctx context.Context, fn func(*mcpreg.Registry) error) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	reg := mcpreg.New(&mcpreg.Options{Logger: logger})
	if err := reg.LoadConfig(configPath); err != nil {
		return err
	}
	report, err := reg.InitializeAll(ctx)
	if err != nil {
		return err
	}
	// Teardown should run to completion even when the run context was
	// cancelled (e.g. serve interrupted by a signal).
	defer reg.Close(context.WithoutCancel(ctx))

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s failed to start: %v\n", res.Server, res.Err)
		}
	}
	if len(reg.ServerNames()) == 0 {
		return fmt.Errorf("no servers connected")
	}
	return fn(reg)
}
