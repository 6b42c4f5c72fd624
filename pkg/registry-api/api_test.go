package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
	"github.com/voxkit/mcp-server-registry-go/pkg/toolindex"
)

// stubHandle is a minimal ServerHandle for API tests.
type stubHandle struct {
	name       string
	tools      []*mcp.Tool
	connected  bool
	refreshErr error
	lists      int
}

func (s *stubHandle) Name() string { return s.name }

func (s *stubHandle) Connect(context.Context) error {
	s.connected = true
	return nil
}

func (s *stubHandle) ListTools(context.Context) ([]*mcp.Tool, error) {
	s.lists++
	if s.lists > 1 && s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.tools, nil
}

func (s *stubHandle) Cleanup(context.Context) error {
	s.connected = false
	return nil
}

func (s *stubHandle) Connected() bool { return s.connected }

func testAPI(t *testing.T, idx *toolindex.Index) (*API, *mcpreg.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := mcpreg.New(&mcpreg.Options{Logger: logger})
	api, err := New(reg, &Options{Logger: logger, Index: idx})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return api, reg
}

func addStub(t *testing.T, reg *mcpreg.Registry, h *stubHandle) {
	t.Helper()
	if err := reg.AddServer(context.Background(), h); err != nil {
		t.Fatalf("AddServer(%s): %v", h.name, err)
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func TestServersEndpoint(t *testing.T) {
	t.Parallel()

	api, reg := testAPI(t, nil)
	addStub(t, reg, &stubHandle{name: "fs", tools: []*mcp.Tool{{Name: "read"}, {Name: "write"}}})
	addStub(t, reg, &stubHandle{name: "db", tools: []*mcp.Tool{{Name: "query"}}})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	var payload struct {
		Servers []struct {
			Name      string `json:"name"`
			Connected bool   `json:"connected"`
			Tools     int    `json:"tools"`
		} `json:"servers"`
	}
	resp := getJSON(t, srv, "/v1/servers", &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("responses should carry a request ID")
	}
	if len(payload.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %+v", payload.Servers)
	}
	// Sorted name order: db first.
	if payload.Servers[0].Name != "db" || payload.Servers[0].Tools != 1 {
		t.Fatalf("unexpected first server: %+v", payload.Servers[0])
	}
	if !payload.Servers[1].Connected {
		t.Fatalf("fs should report connected: %+v", payload.Servers[1])
	}
}

func TestServerToolsEndpoint(t *testing.T) {
	t.Parallel()

	api, reg := testAPI(t, nil)
	addStub(t, reg, &stubHandle{name: "fs", tools: []*mcp.Tool{{Name: "read_file"}}})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	var payload struct {
		Server string      `json:"server"`
		Tools  []*mcp.Tool `json:"tools"`
	}
	resp := getJSON(t, srv, "/v1/servers/fs/tools", &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload.Server != "fs" || len(payload.Tools) != 1 || payload.Tools[0].Name != "read_file" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	resp = getJSON(t, srv, "/v1/servers/nope/tools", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown server should 404, got %d", resp.StatusCode)
	}
}

func TestAllToolsEndpoint(t *testing.T) {
	t.Parallel()

	api, reg := testAPI(t, nil)
	addStub(t, reg, &stubHandle{name: "a", tools: []*mcp.Tool{{Name: "one"}, {Name: "two"}}})
	addStub(t, reg, &stubHandle{name: "b", tools: []*mcp.Tool{{Name: "three"}}})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	var payload struct {
		Tools []*mcp.Tool `json:"tools"`
	}
	resp := getJSON(t, srv, "/v1/tools", &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(payload.Tools) != 3 {
		t.Fatalf("expected 3 aggregated tools, got %d", len(payload.Tools))
	}
}

func TestRefreshEndpointReportsFailures(t *testing.T) {
	t.Parallel()

	idx, err := toolindex.New()
	if err != nil {
		t.Fatalf("toolindex.New: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	api, reg := testAPI(t, idx)
	addStub(t, reg, &stubHandle{name: "good", tools: []*mcp.Tool{{Name: "steady"}}})
	addStub(t, reg, &stubHandle{name: "bad", tools: []*mcp.Tool{{Name: "flaky"}}, refreshErr: errors.New("gone")})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Post(srv.URL+"/v1/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/refresh: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		Results []struct {
			Server string `json:"server"`
			Error  string `json:"error"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", payload.Results)
	}
	for _, res := range payload.Results {
		if res.Server == "bad" && res.Error == "" {
			t.Fatalf("failed refresh should surface its error: %+v", res)
		}
	}

	// The refresh synced the index, so the surviving tools are searchable.
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count == 0 {
		t.Fatal("index should be populated after refresh")
	}
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()

	idx, err := toolindex.New()
	if err != nil {
		t.Fatalf("toolindex.New: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	if err := idx.IndexServer("fs", []*mcp.Tool{{Name: "read_file", Description: "Read a file"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}

	api, _ := testAPI(t, idx)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	var payload struct {
		Hits []toolindex.Hit `json:"hits"`
	}
	resp := getJSON(t, srv, "/v1/search?q=read", &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(payload.Hits) != 1 || payload.Hits[0].Tool != "read_file" {
		t.Fatalf("unexpected hits: %+v", payload.Hits)
	}

	resp = getJSON(t, srv, "/v1/search?q=read&limit=zero", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit should 400, got %d", resp.StatusCode)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	t.Parallel()

	api, _ := testAPI(t, nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	resp := getJSON(t, srv, "/v1/search?q=read", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("search without index should 503, got %d", resp.StatusCode)
	}
}
