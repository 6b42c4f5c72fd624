// Package toolindex maintains a full-text search index over the tool
// descriptors cached by a server registry, so hosting applications can rank
// and discover tools across many MCP servers by name or description.
package toolindex

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Hit is one ranked search result.
type Hit struct {
	// Server is the registry name of the server exposing the tool.
	Server string `json:"server"`
	// Tool is the tool name as reported by the server.
	Tool string `json:"tool"`
	// Description is the tool's advertised description.
	Description string `json:"description"`
	// Score is the relevance score assigned by the index.
	Score float64 `json:"score"`
}

// Index is an in-memory searchable view of tool descriptors keyed by server.
// Feed it with IndexServer or Sync after registry initialization or refresh.
type Index struct {
	mu   sync.Mutex
	idx  bleve.Index
	docs map[string][]string
}

// New builds an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("toolindex: create index: %w", err)
	}
	return &Index{idx: idx, docs: make(map[string][]string)}, nil
}

// IndexServer replaces the indexed documents for one server with the given
// descriptors.
func (i *Index) IndexServer(server string, tools []*mcp.Tool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.indexServerLocked(server, tools)
}

func (i *Index) indexServerLocked(server string, tools []*mcp.Tool) error {
	batch := i.idx.NewBatch()
	for _, id := range i.docs[server] {
		batch.Delete(id)
	}
	ids := make([]string, 0, len(tools))
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		id := server + "/" + tool.Name
		if err := batch.Index(id, map[string]string{
			"server":      server,
			"name":        tool.Name,
			"description": tool.Description,
		}); err != nil {
			return fmt.Errorf("toolindex: index %s: %w", id, err)
		}
		ids = append(ids, id)
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("toolindex: apply batch for %s: %w", server, err)
	}
	i.docs[server] = ids
	return nil
}

// RemoveServer drops all documents for a server.
func (i *Index) RemoveServer(server string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	batch := i.idx.NewBatch()
	for _, id := range i.docs[server] {
		batch.Delete(id)
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("toolindex: remove %s: %w", server, err)
	}
	delete(i.docs, server)
	return nil
}

// Sync replaces the entire index contents with a registry tool snapshot.
// Servers missing from the snapshot are removed.
func (i *Index) Sync(snapshot map[string][]*mcp.Tool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for server := range i.docs {
		if _, ok := snapshot[server]; ok {
			continue
		}
		batch := i.idx.NewBatch()
		for _, id := range i.docs[server] {
			batch.Delete(id)
		}
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("toolindex: remove %s: %w", server, err)
		}
		delete(i.docs, server)
	}
	for server, tools := range snapshot {
		if err := i.indexServerLocked(server, tools); err != nil {
			return err
		}
	}
	return nil
}

// Search runs a ranked match query over tool names and descriptions. An
// empty query matches everything, which is useful for listings.
func (i *Index) Search(text string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	var q query.Query = bleve.NewMatchAllQuery()
	if text != "" {
		q = bleve.NewMatchQuery(text)
	}
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"server", "name", "description"}
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("toolindex: search %q: %w", text, err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, Hit{
			Server:      fieldString(hit.Fields, "server"),
			Tool:        fieldString(hit.Fields, "name"),
			Description: fieldString(hit.Fields, "description"),
			Score:       hit.Score,
		})
	}
	return hits, nil
}

// DocCount returns the number of indexed tool descriptors.
func (i *Index) DocCount() (uint64, error) {
	return i.idx.DocCount()
}

// Close releases index resources.
func (i *Index) Close() error {
	return i.idx.Close()
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
