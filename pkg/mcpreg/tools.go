package mcpreg

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AggregateTools combines the tool descriptors of many handles into one
// sequence, preserving the order of the handles and the per-server descriptor
// order. Handles with caching enabled contribute their memoized lists without
// a round-trip. The first failing handle aborts aggregation.
func AggregateTools(ctx context.Context, handles []ServerHandle) ([]*mcp.Tool, error) {
	var all []*mcp.Tool
	for _, handle := range handles {
		tools, err := handle.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("mcpreg: aggregate tools from %s: %w", handle.Name(), err)
		}
		all = append(all, tools...)
	}
	return all, nil
}
