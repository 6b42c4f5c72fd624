// Package mcpreg manages a named collection of Model Context Protocol (MCP)
// tool servers launched as subprocesses. It loads connection parameters from a
// YAML configuration file, spawns and handshakes each server through the
// modelcontextprotocol/go-sdk client, caches the tool descriptors every server
// exposes, and coordinates best-effort shutdown including a forceful
// termination fallback for subprocesses that refuse to exit.
//
// # Core entry points
//
//   - Registry is the long-lived orchestration type. Construct it with New,
//     load configuration via LoadConfig, then call InitializeAll to connect
//     every configured server, or AddServer to register handles one at a time.
//   - ServerHandle is the connection abstraction the registry manages.
//     StdioServer is the production implementation backed by a subprocess
//     stdio transport; hosts and tests may supply their own.
//   - Bulk operations (InitializeAll, RefreshTools, Close) never fail as a
//     whole because of one server: per-server outcomes are logged and
//     collected into InitReport, RefreshReport, and CloseReport values.
//
// After initialization, query cached descriptors with ServerTools, aggregate
// across servers with AllTools, and re-fetch with RefreshTools. A Registry is
// an explicit value owned by the hosting application; the package exposes no
// process-wide shared instance.
package mcpreg
