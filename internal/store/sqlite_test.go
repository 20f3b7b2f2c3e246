package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstore/agentstore/internal/catalog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "data", "agentstore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	capabilities := []catalog.Capability{
		{
			Slug: "mcp-alice/tool", Name: "tool", Source: "mcp", SourceID: "alice/tool",
			Provider: "alice", Category: "development", Protocol: "mcp",
			Stars: 42, OverallScore: 7.4,
			Scores:           catalog.DimensionScores{Reliability: 8.0, Safety: 7.5},
			Dependencies:     []string{"axios"},
			SupportedClients: []string{"claude desktop"},
		},
		{Slug: "openclaw-weather", Name: "weather", Source: "openclaw", SourceID: "weather", Provider: "bob"},
	}

	require.NoError(t, db.Upsert(ctx, capabilities))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertReplacesBySlug(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, []catalog.Capability{
		{Slug: "mcp-alice/tool", Name: "tool", Source: "mcp", SourceID: "alice/tool", Provider: "alice", Stars: 1},
	}))
	require.NoError(t, db.Upsert(ctx, []catalog.Capability{
		{Slug: "mcp-alice/tool", Name: "tool", Source: "mcp", SourceID: "alice/tool", Provider: "alice", Stars: 99},
	}))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var stars int
	require.NoError(t, db.db.QueryRowContext(ctx,
		"SELECT stars FROM capabilities WHERE slug = ?", "mcp-alice/tool").Scan(&stars))
	assert.Equal(t, 99, stars)
}

func TestUpsertEncodesListsAsJSON(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, []catalog.Capability{
		{
			Slug: "mcp-alice/tool", Name: "tool", Source: "mcp", SourceID: "alice/tool", Provider: "alice",
			Dependencies:     []string{"axios", "zod"},
			SupportedClients: nil,
		},
	}))

	var dependencies, clients string
	require.NoError(t, db.db.QueryRowContext(ctx,
		"SELECT dependencies, supported_clients FROM capabilities WHERE slug = ?", "mcp-alice/tool").
		Scan(&dependencies, &clients))
	assert.JSONEq(t, `["axios","zod"]`, dependencies)
	assert.Equal(t, "[]", clients, "nil list stored as empty JSON array")
}

func TestUpsertEmptyBatch(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Upsert(context.Background(), nil))

	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
