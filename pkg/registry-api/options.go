package registryapi

import (
	"log/slog"
	"time"

	"github.com/voxkit/mcp-server-registry-go/pkg/toolindex"
)

// Options configure an API instance.
type Options struct {
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8701".
	Addr string
	// Logger receives structured request diagnostics.
	Logger *slog.Logger
	// Index optionally backs the /v1/search endpoint. When nil, search
	// responds with 503.
	Index *toolindex.Index
	// AllowedOrigins configures CORS for browser consumers. Defaults to "*".
	AllowedOrigins []string
	// RequestTimeout bounds refresh and aggregation requests.
	RequestTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Addr == "" {
		opts.Addr = ":8701"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return opts
}
