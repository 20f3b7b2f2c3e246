package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleList = `# Awesome MCP Servers

A curated list.

## 📂 File Systems

- [filesystem](https://github.com/alice/fs-server) 🐍 ☁️ - Secure file operations.
- [s3-browse](https://github.com/bob/s3-browse/tree/main/pkg) - Browse S3 buckets.

### 🔎 Search & Web

- [websearch](https://github.com/carol/websearch#readme) - Web search for agents.
- [websearch-dup](https://github.com/carol/websearch) - Same repo, listed twice.

Not an entry line.
- [no-github](https://example.com/whatever) - Ignored, not a GitHub link.
`

func TestParseAwesomeList(t *testing.T) {
	entries := ParseAwesomeList(sampleList, "mcp")
	require.Len(t, entries, 3)

	fs := entries[0]
	assert.Equal(t, "filesystem", fs.Name)
	assert.Equal(t, "mcp", fs.Source)
	assert.Equal(t, "alice/fs-server", fs.SourceID)
	assert.Equal(t, "mcp-alice/fs-server", fs.Slug())
	assert.Equal(t, "alice", fs.Provider)
	assert.Equal(t, "Secure file operations.", fs.Description)
	assert.Equal(t, "File Systems", fs.Category)
	assert.Equal(t, "https://github.com/alice/fs-server", fs.RepoURL)
	assert.Equal(t, "mcp", fs.Protocol)

	s3 := entries[1]
	assert.Equal(t, "bob/s3-browse", s3.SourceID)
	assert.Equal(t, "Browse S3 buckets.", s3.Description)

	ws := entries[2]
	assert.Equal(t, "carol/websearch", ws.SourceID)
	assert.Equal(t, "Search & Web", ws.Category)
}

func TestParseAwesomeListSourceTag(t *testing.T) {
	entries := ParseAwesomeList("- [x](https://github.com/a/b) - Desc.", "mcp-official")
	require.Len(t, entries, 1)
	assert.Equal(t, "mcp-official", entries[0].Source)
	assert.Equal(t, "mcp-official-a/b", entries[0].Slug())
}

func TestParseAwesomeListCategoryContext(t *testing.T) {
	md := "- [early](https://github.com/a/early) - Before any header.\n" +
		"## Databases\n" +
		"- [later](https://github.com/a/later) - After the header.\n"
	entries := ParseAwesomeList(md, "mcp")
	require.Len(t, entries, 2)
	assert.Equal(t, "other", entries[0].Category)
	assert.Equal(t, "Databases", entries[1].Category)
}

func TestParseAwesomeListAnchorHeader(t *testing.T) {
	// A bare anchor right after the hashes is stripped cleanly.
	md := `## <a name="databases"></a>Databases` + "\n" +
		"- [db](https://github.com/a/db) - A database server.\n"
	entries := ParseAwesomeList(md, "mcp")
	require.Len(t, entries, 1)
	assert.Equal(t, "Databases", entries[0].Category)
}

func TestParseAwesomeListDriftReturnsNothing(t *testing.T) {
	// Format drift is an expected failure mode: fewer or zero entries,
	// never an error.
	assert.Empty(t, ParseAwesomeList("完全不同的格式\n1. some | table | rows\n", "mcp"))
	assert.Empty(t, ParseAwesomeList("", "mcp"))
}

func TestAwesomeListDiscoverer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleList))
	}))
	defer srv.Close()

	d := &AwesomeListDiscoverer{URL: srv.URL, SourceTag: "mcp", SourceName: "test-list"}
	entries, err := d.Discover(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2) // limit applied
}

func TestAwesomeListDiscovererHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := &AwesomeListDiscoverer{URL: srv.URL, SourceTag: "mcp", SourceName: "test-list"}
	_, err := d.Discover(context.Background(), 10)
	assert.Error(t, err)
}
