package toolindex

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSearchRanksMatchingTools(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)
	err := idx.IndexServer("filesystem", []*mcp.Tool{
		{Name: "read_file", Description: "Read the contents of a file"},
		{Name: "write_file", Description: "Write data to a file"},
	})
	if err != nil {
		t.Fatalf("IndexServer(filesystem): %v", err)
	}
	err = idx.IndexServer("mongodb", []*mcp.Tool{
		{Name: "find_documents", Description: "Query documents in a collection"},
	})
	if err != nil {
		t.Fatalf("IndexServer(mongodb): %v", err)
	}

	hits, err := idx.Search("file", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for %q, got %d", "file", len(hits))
	}
	for _, hit := range hits {
		if hit.Server != "filesystem" {
			t.Fatalf("hit from unexpected server: %+v", hit)
		}
		if hit.Score <= 0 {
			t.Fatalf("hit should carry a positive score: %+v", hit)
		}
	}

	hits, err = idx.Search("documents", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Tool != "find_documents" {
		t.Fatalf("expected find_documents, got %+v", hits)
	}
}

func TestEmptyQueryListsEverything(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)
	if err := idx.IndexServer("a", []*mcp.Tool{{Name: "one"}, {Name: "two"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}
	hits, err := idx.Search("", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("empty query should match all, got %d", len(hits))
	}
}

func TestIndexServerReplacesPriorDocuments(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)
	if err := idx.IndexServer("a", []*mcp.Tool{{Name: "old_tool"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}
	if err := idx.IndexServer("a", []*mcp.Tool{{Name: "new_tool"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}

	// "old" only appears in the replaced document.
	hits, err := idx.Search("old", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("replaced documents should be gone, got %+v", hits)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("DocCount = %d, expected 1", count)
	}
}

func TestRemoveServerAndSync(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)
	if err := idx.IndexServer("a", []*mcp.Tool{{Name: "alpha_tool"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}
	if err := idx.IndexServer("b", []*mcp.Tool{{Name: "beta_tool"}}); err != nil {
		t.Fatalf("IndexServer: %v", err)
	}

	if err := idx.RemoveServer("a"); err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	count, _ := idx.DocCount()
	if count != 1 {
		t.Fatalf("DocCount after remove = %d", count)
	}

	// Sync drops servers missing from the snapshot and replaces the rest.
	err := idx.Sync(map[string][]*mcp.Tool{
		"c": {{Name: "gamma_tool"}, {Name: "delta_tool"}},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	count, _ = idx.DocCount()
	if count != 2 {
		t.Fatalf("DocCount after sync = %d, expected 2", count)
	}
	hits, err := idx.Search("beta", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("synced-away server should be gone, got %+v", hits)
	}
}
