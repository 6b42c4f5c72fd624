package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
	registryapi "github.com/voxkit/mcp-server-registry-go/pkg/registry-api"
	"github.com/voxkit/mcp-server-registry-go/pkg/toolindex"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP registry API over the configured servers",
	Long: `Connects every configured server and serves registry state over HTTP
until interrupted. Endpoints include /v1/servers, /v1/tools, /v1/refresh,
and /v1/search.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8701", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withRegistry(ctx, func(reg *mcpreg.Registry) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		idx, err := toolindex.New()
		if err != nil {
			return err
		}
		defer idx.Close()
		if err := idx.Sync(reg.ToolSnapshot()); err != nil {
			return err
		}

		api, err := registryapi.New(reg, &registryapi.Options{
			Addr:   serveAddr,
			Logger: logger,
			Index:  idx,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "serving registry API on %s\n", serveAddr)
		if err := api.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
