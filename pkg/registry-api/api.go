package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
)

const requestIDHeader = "X-Request-Id"

// connectedReporter is the optional capability handles expose to report
// whether a session is live. StdioServer implements it.
type connectedReporter interface {
	Connected() bool
}

// API serves registry state over HTTP.
type API struct {
	registry *mcpreg.Registry
	opts     Options
	handler  http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New builds an API over the given registry. Pass nil options for defaults.
func New(registry *mcpreg.Registry, opts *Options) (*API, error) {
	if registry == nil {
		return nil, fmt.Errorf("registryapi: registry is required")
	}
	a := &API{registry: registry, opts: opts.withDefaults()}
	a.handler = a.buildHandler()
	return a, nil
}

// Handler returns the fully wrapped HTTP handler, for hosts that mount the
// API into their own server.
func (a *API) Handler() http.Handler {
	return a.handler
}

func (a *API) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/servers", a.handleServers)
	mux.HandleFunc("GET /v1/servers/{name}/tools", a.handleServerTools)
	mux.HandleFunc("GET /v1/tools", a.handleAllTools)
	mux.HandleFunc("POST /v1/refresh", a.handleRefresh)
	mux.HandleFunc("GET /v1/search", a.handleSearch)

	c := cors.New(cors.Options{
		AllowedOrigins: a.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})
	return a.withRequestLog(c.Handler(mux))
}

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (a *API) ListenAndServe(ctx context.Context) error {
	a.mu.Lock()
	if a.server != nil {
		addr := a.server.Addr
		a.mu.Unlock()
		return fmt.Errorf("registryapi: server already running on %s", addr)
	}
	srv := &http.Server{Addr: a.opts.Addr, Handler: a.handler}
	a.server = srv
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		if a.server == srv {
			a.server = nil
		}
		a.mu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.RequestTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (a *API) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

type serverStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Tools     int    `json:"tools"`
}

func (a *API) handleServers(w http.ResponseWriter, r *http.Request) {
	names := a.registry.ServerNames()
	out := make([]serverStatus, 0, len(names))
	for _, name := range names {
		status := serverStatus{Name: name}
		if tools, ok := a.registry.ServerTools(name); ok {
			status.Tools = len(tools)
		}
		if handle, ok := a.registry.Server(name); ok {
			if cr, ok := handle.(connectedReporter); ok {
				status.Connected = cr.Connected()
			} else {
				// Registered handles without the capability are treated as live.
				status.Connected = true
			}
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, map[string]any{"servers": out})
}

func (a *API) handleServerTools(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tools, ok := a.registry.ServerTools(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown server %q", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"server": name, "tools": tools})
}

func (a *API) handleAllTools(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.opts.RequestTimeout)
	defer cancel()
	tools, err := a.registry.AllTools(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

type refreshResult struct {
	Server string `json:"server"`
	Tools  int    `json:"tools"`
	Error  string `json:"error,omitempty"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.opts.RequestTimeout)
	defer cancel()
	report := a.registry.RefreshTools(ctx)
	if a.opts.Index != nil {
		if err := a.opts.Index.Sync(a.registry.ToolSnapshot()); err != nil {
			a.opts.Logger.Error("index sync after refresh failed", "error", err)
		}
	}
	out := make([]refreshResult, 0, len(report.Results))
	for _, res := range report.Results {
		rr := refreshResult{Server: res.Server, Tools: res.Tools}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		out = append(out, rr)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if a.opts.Index == nil {
		writeError(w, http.StatusServiceUnavailable, "tool index not configured")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	hits, err := a.opts.Index.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (a *API) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		a.opts.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start),
			"request_id", requestID,
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
