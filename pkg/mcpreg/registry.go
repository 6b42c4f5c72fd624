package mcpreg

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options configure a Registry instance.
type Options struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// ClientName is the client identity advertised to servers during the
	// MCP handshake. Defaults to "mcpreg".
	ClientName string
	// ClientVersion is the semantic version reported to servers.
	ClientVersion string
	// ShutdownGrace bounds how long Close waits between asking a stuck
	// subprocess to terminate and killing it. Defaults to one second.
	ShutdownGrace time.Duration
}

func (o *Options) normalized() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ClientName == "" {
		opts.ClientName = "mcpreg"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = time.Second
	}
	return opts
}

// Registry owns a named collection of MCP server handles and the tool
// descriptors each reported. Bulk operations proceed one server at a time in
// sorted name order and are designed for maximum partial progress: a single
// server's failure never aborts the rest.
type Registry struct {
	mu sync.RWMutex

	opts   Options
	logger *slog.Logger

	config  *Config
	handles map[string]ServerHandle
	tools   map[string][]*mcp.Tool
}

// New constructs an empty Registry. Pass nil options for defaults.
func New(opts *Options) *Registry {
	options := opts.normalized()
	return &Registry{
		opts:    options,
		logger:  options.Logger,
		handles: make(map[string]ServerHandle),
		tools:   make(map[string][]*mcp.Tool),
	}
}

// LoadConfig reads and parses the configuration file, replacing any
// previously loaded configuration. An empty path searches the default
// locations. Fails with *ConfigError when the file is missing or malformed.
func (r *Registry) LoadConfig(path string) error {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
	r.logger.Info("configuration loaded", "servers", len(cfg.Servers))
	return nil
}

// Config returns the currently loaded configuration, or nil before LoadConfig.
func (r *Registry) Config() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// InitializeAll connects every configured server, loading the default
// configuration first when none is loaded. Per-server failures are logged,
// recorded in the report, and skipped; the returned error is non-nil only
// when the implicit configuration load fails. After the call the registry
// contains exactly the servers that connected successfully.
func (r *Registry) InitializeAll(ctx context.Context) (*InitReport, error) {
	r.mu.RLock()
	cfg := r.config
	r.mu.RUnlock()
	if cfg == nil {
		if err := r.LoadConfig(""); err != nil {
			return nil, err
		}
		cfg = r.Config()
	}

	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &InitReport{}
	for _, name := range names {
		entry := cfg.Servers[name]
		handle := NewStdioServer(name, entry.Params, entry.CacheEnabled(),
			WithLogger(r.logger),
			WithClientInfo(r.opts.ClientName, r.opts.ClientVersion),
		)
		r.logger.Info("initializing server", "server", name, "command", entry.Params.Command)
		if err := r.AddServer(ctx, handle); err != nil {
			r.logger.Error("server initialization failed", "server", name, "error", err)
			report.Results = append(report.Results, ServerResult{Server: name, Err: err})
			continue
		}
		tools, _ := r.ServerTools(name)
		r.logger.Info("server initialized", "server", name, "tools", len(tools))
		report.Results = append(report.Results, ServerResult{Server: name, Tools: len(tools)})
	}
	return report, nil
}

// AddServer connects the handle and fetches its initial tool list, then
// registers both under the handle's name. When the name is already
// registered, the prior handle is closed best-effort before being replaced.
// On failure the name is absent from the registry and a *ConnectError is
// returned.
func (r *Registry) AddServer(ctx context.Context, handle ServerHandle) error {
	name := handle.Name()

	r.mu.Lock()
	prior, hadPrior := r.handles[name]
	delete(r.handles, name)
	delete(r.tools, name)
	r.mu.Unlock()

	if hadPrior {
		// Close-then-replace: never leak the displaced subprocess.
		if err := prior.Cleanup(ctx); err != nil {
			r.logger.Warn("failed to close replaced server", "server", name, "error", err)
		}
	}

	if err := handle.Connect(ctx); err != nil {
		return &ConnectError{Server: name, Err: err}
	}
	tools, err := handle.ListTools(ctx)
	if err != nil {
		if cerr := handle.Cleanup(ctx); cerr != nil {
			r.logger.Warn("cleanup after failed tool fetch", "server", name, "error", cerr)
		}
		return &ConnectError{Server: name, Err: err}
	}

	r.mu.Lock()
	r.handles[name] = handle
	r.tools[name] = tools
	r.mu.Unlock()
	return nil
}

// Server returns the handle registered under name, if any. Pure lookup.
func (r *Registry) Server(name string) (ServerHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[name]
	return handle, ok
}

// ServerNames returns the registered names in sorted order.
func (r *Registry) ServerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerTools returns the cached tool list for name, or false when the name
// is not registered. It never triggers a refresh.
func (r *Registry) ServerTools(name string) ([]*mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return append([]*mcp.Tool(nil), tools...), true
}

// ToolSnapshot returns a copy of the full tool cache keyed by server name.
func (r *Registry) ToolSnapshot() map[string][]*mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string][]*mcp.Tool, len(r.tools))
	for name, tools := range r.tools {
		snapshot[name] = append([]*mcp.Tool(nil), tools...)
	}
	return snapshot
}

// AllTools aggregates tool descriptors across every registered handle via
// AggregateTools, in sorted name order. Handles with caching enabled serve
// their memoized lists.
func (r *Registry) AllTools(ctx context.Context) ([]*mcp.Tool, error) {
	names := r.ServerNames()
	handles := make([]ServerHandle, 0, len(names))
	for _, name := range names {
		if handle, ok := r.Server(name); ok {
			handles = append(handles, handle)
		}
	}
	return AggregateTools(ctx, handles)
}

// RefreshTools re-fetches the tool list of every registered handle and
// replaces the cached entries. A failed fetch is logged and recorded but
// keeps the stale cache and the handle registered.
func (r *Registry) RefreshTools(ctx context.Context) *RefreshReport {
	report := &RefreshReport{}
	for _, name := range r.ServerNames() {
		handle, ok := r.Server(name)
		if !ok {
			continue
		}
		if inv, ok := handle.(ToolCacheInvalidator); ok {
			inv.InvalidateToolsCache()
		}
		tools, err := handle.ListTools(ctx)
		if err != nil {
			r.logger.Error("tool refresh failed", "server", name, "error", err)
			report.Results = append(report.Results, ServerResult{Server: name, Err: err})
			continue
		}
		r.mu.Lock()
		r.tools[name] = tools
		r.mu.Unlock()
		r.logger.Info("tools refreshed", "server", name, "tools", len(tools))
		report.Results = append(report.Results, ServerResult{Server: name, Tools: len(tools)})
	}
	return report
}

// Close disconnects every registered handle, falling back to forceful
// subprocess termination when a graceful cleanup fails and the handle exposes
// process control. Handles are removed regardless of per-server outcome and
// the tool cache is cleared; the call never fails as a whole and never needs
// to be repeated.
func (r *Registry) Close(ctx context.Context) *CloseReport {
	report := &CloseReport{}
	for _, name := range r.ServerNames() {
		handle, ok := r.Server(name)
		if !ok {
			continue
		}
		result := ServerResult{Server: name}
		if err := handle.Cleanup(ctx); err != nil {
			r.logger.Error("graceful shutdown failed", "server", name, "error", err)
			result.Err = err
			if pc, ok := handle.(ProcessController); ok {
				result.Forced = true
				r.forceStop(ctx, name, pc)
			}
		}
		r.mu.Lock()
		delete(r.handles, name)
		delete(r.tools, name)
		r.mu.Unlock()
		report.Results = append(report.Results, result)
	}
	r.mu.Lock()
	r.tools = make(map[string][]*mcp.Tool)
	r.mu.Unlock()
	return report
}

// forceStop asks the subprocess to terminate, waits out the grace period,
// and kills it if it is still alive.
func (r *Registry) forceStop(ctx context.Context, name string, pc ProcessController) {
	if err := pc.Terminate(); err != nil {
		r.logger.Warn("terminate failed", "server", name, "error", err)
	}
	select {
	case <-time.After(r.opts.ShutdownGrace):
	case <-ctx.Done():
	}
	if !pc.Alive() {
		return
	}
	r.logger.Warn("subprocess did not exit, killing", "server", name)
	if err := pc.Kill(); err != nil {
		r.logger.Error("kill failed", "server", name, "error", err)
	}
}
