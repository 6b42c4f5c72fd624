package mcpreg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerHandle is an established or establishable connection to one MCP
// server. The registry owns handles exclusively: callers interact with them
// only through the documented Registry operations or after looking one up via
// Server.
type ServerHandle interface {
	// Name returns the unique server name the handle is registered under.
	Name() string
	// Connect establishes the session. For subprocess servers this spawns
	// the process and performs the MCP handshake.
	Connect(ctx context.Context) error
	// ListTools returns the tool descriptors the server exposes. Handles
	// created with tool-list caching enabled return the memoized first
	// result on subsequent calls.
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	// Cleanup disconnects the session and releases resources.
	Cleanup(ctx context.Context) error
}

// ProcessController is implemented by handles that own a raw subprocess and
// can terminate it out-of-band. The registry's Close falls back to it when a
// graceful Cleanup fails; handles without process control simply skip the
// fallback.
type ProcessController interface {
	// Terminate asks the subprocess to exit.
	Terminate() error
	// Kill forcefully ends the subprocess.
	Kill() error
	// Alive reports whether the subprocess is still running.
	Alive() bool
}

// ToolCacheInvalidator is implemented by handles that memoize their tool
// list. RefreshTools invalidates before re-fetching so caching handles
// observe server-side changes.
type ToolCacheInvalidator interface {
	InvalidateToolsCache()
}

// StdioServerOption customizes a StdioServer.
type StdioServerOption func(*StdioServer)

// WithLogger sets the structured logger used for handle diagnostics.
func WithLogger(logger *slog.Logger) StdioServerOption {
	return func(s *StdioServer) { s.logger = logger }
}

// WithTransport overrides the subprocess transport, bypassing command launch.
// Intended for in-memory transports in tests and for hosts that manage their
// own transport setup.
func WithTransport(t mcp.Transport) StdioServerOption {
	return func(s *StdioServer) { s.transport = t }
}

// WithClientInfo overrides the client identity advertised during the MCP
// handshake.
func WithClientInfo(name, version string) StdioServerOption {
	return func(s *StdioServer) { s.clientName, s.clientVersion = name, version }
}

// StdioServer is the production ServerHandle: it launches the configured
// command as a subprocess and speaks MCP over its stdin/stdout through the
// go-sdk client.
type StdioServer struct {
	name           string
	params         ServerParams
	cacheToolsList bool

	logger        *slog.Logger
	transport     mcp.Transport
	clientName    string
	clientVersion string

	mu      sync.Mutex
	client  *mcp.Client
	session *mcp.ClientSession
	cmd     *exec.Cmd
	tools   []*mcp.Tool
	cached  bool
}

// NewStdioServer builds an unconnected handle for a named server. When
// cacheToolsList is true the first successful ListTools result is memoized
// until InvalidateToolsCache.
func NewStdioServer(name string, params ServerParams, cacheToolsList bool, opts ...StdioServerOption) *StdioServer {
	s := &StdioServer{
		name:           name,
		params:         params,
		cacheToolsList: cacheToolsList,
		logger:         slog.Default(),
		clientName:     "mcpreg",
		clientVersion:  "1.0.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the server name.
func (s *StdioServer) Name() string { return s.name }

// CacheEnabled reports whether the handle memoizes its tool list.
func (s *StdioServer) CacheEnabled() bool { return s.cacheToolsList }

// Connected reports whether a session is currently established.
func (s *StdioServer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Connect spawns the subprocess (unless a transport override is set) and
// performs the MCP handshake. Calling Connect on an already-connected handle
// is a no-op.
func (s *StdioServer) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil
	}

	transport := s.transport
	if transport == nil {
		cmd, err := s.buildCommand()
		if err != nil {
			return err
		}
		s.cmd = cmd
		transport = &mcp.CommandTransport{Command: cmd}
	}

	client := mcp.NewClient(&mcp.Implementation{Name: s.clientName, Version: s.clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		s.cmd = nil
		return fmt.Errorf("mcpreg: connect %s: %w", s.name, err)
	}
	s.client = client
	s.session = session
	return nil
}

func (s *StdioServer) buildCommand() (*exec.Cmd, error) {
	if s.params.Command == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(s.params.Command, s.params.Args...)
	if len(s.params.Env) > 0 {
		env := os.Environ()
		for k, v := range s.params.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}
	if s.params.Cwd != "" {
		cmd.Dir = s.params.Cwd
	}
	return cmd, nil
}

// ListTools fetches the server's tool descriptors, returning the memoized
// list when caching is enabled and a fetch already succeeded.
func (s *StdioServer) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	s.mu.Lock()
	session := s.session
	if s.cacheToolsList && s.cached {
		tools := append([]*mcp.Tool(nil), s.tools...)
		s.mu.Unlock()
		return tools, nil
	}
	s.mu.Unlock()

	if session == nil {
		return nil, ErrNotConnected
	}
	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpreg: list tools %s: %w", s.name, err)
	}
	tools := append([]*mcp.Tool(nil), res.Tools...)

	s.mu.Lock()
	s.tools = tools
	s.cached = true
	s.mu.Unlock()
	return append([]*mcp.Tool(nil), tools...), nil
}

// InvalidateToolsCache discards the memoized tool list so the next ListTools
// performs a fresh fetch.
func (s *StdioServer) InvalidateToolsCache() {
	s.mu.Lock()
	s.tools = nil
	s.cached = false
	s.mu.Unlock()
}

// Session exposes the underlying SDK session for advanced scenarios such as
// calling tools directly. Nil until Connect succeeds.
func (s *StdioServer) Session() *mcp.ClientSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Cleanup closes the session, which also terminates the subprocess owned by
// the command transport. The context bounds how long the close may take.
func (s *StdioServer) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.client = nil
	s.cached = false
	s.tools = nil
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan error, 1)
	go func() { done <- session.Close() }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("mcpreg: cleanup %s: %w", s.name, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mcpreg: cleanup %s: %w", s.name, err)
		}
		return nil
	}
}

// Terminate asks the subprocess to exit via SIGTERM.
func (s *StdioServer) Terminate() error {
	proc := s.process()
	if proc == nil {
		return nil
	}
	return proc.Signal(syscall.SIGTERM)
}

// Kill forcefully ends the subprocess.
func (s *StdioServer) Kill() error {
	proc := s.process()
	if proc == nil {
		return nil
	}
	return proc.Kill()
}

// Alive reports whether the subprocess is still running. Always false when
// the handle was built with a transport override.
func (s *StdioServer) Alive() bool {
	proc := s.process()
	if proc == nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (s *StdioServer) process() *os.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	return s.cmd.Process
}
