package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClawHubResponse(t *testing.T) {
	raw := clawHubResponse{Skills: []clawHubSkill{
		{ID: "s1", Name: "summarize", Author: "alice", Description: "Summarizes docs",
			Category: "productivity", RepoURL: "https://github.com/alice/summarize"},
		{ID: "s2", Name: "no-author"},
		{ID: "", Name: "broken"},
		{ID: "s3", Name: ""},
	}}

	entries := ParseClawHubResponse(raw)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "openclaw-s1", first.Slug())
	assert.Equal(t, "openclaw", first.Protocol)
	assert.Equal(t, "alice", first.Provider)
	assert.Equal(t, "productivity", first.Category)

	second := entries[1]
	assert.Equal(t, "unknown", second.Provider)
	assert.Equal(t, "other", second.Category)
}

func TestOpenClawDiscoverer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/skills", r.URL.Path)
		assert.Equal(t, "installs", r.URL.Query().Get("sort"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"skills":[{"id":"s1","name":"summarize","author":"alice"}]}`))
	}))
	defer srv.Close()

	d := &OpenClawDiscoverer{BaseURL: srv.URL}
	entries, err := d.Discover(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "openclaw-s1", entries[0].Slug())
}

func TestOpenClawDiscovererUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := &OpenClawDiscoverer{BaseURL: srv.URL}
	_, err := d.Discover(context.Background(), 5)
	assert.Error(t, err)
}
