package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstore/agentstore/internal/catalog"
	"github.com/agentstore/agentstore/internal/config"
	"github.com/agentstore/agentstore/internal/discovery"
	"github.com/agentstore/agentstore/internal/scoring"
	"github.com/agentstore/agentstore/internal/store"
)

type fakeDiscoverer struct {
	name    string
	entries []catalog.CapabilityEntry
}

func (f fakeDiscoverer) Name() string { return f.name }

func (f fakeDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeCollector struct {
	collected [][]catalog.CapabilityEntry
}

func (f *fakeCollector) Collect(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.RepoData {
	f.collected = append(f.collected, entries)
	repos := make([]catalog.RepoData, len(entries))
	for i := range entries {
		repos[i] = catalog.RepoData{Stars: 100, ReadmeLength: 2000, ReadmeText: "readme", LastUpdated: "2026-02-01T00:00:00Z"}
	}
	return repos
}

type fakeScanner struct{}

func (fakeScanner) ScanEntries(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.ScanResult {
	scans := make([]catalog.ScanResult, len(entries))
	for i := range entries {
		scans[i] = catalog.ScanResult{Tool: "secret_scanner"}
	}
	return scans
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Name() string { return "fake" }

func (fakeAnalyzer) Analyze(ctx context.Context, name, readme, description string) (catalog.AnalysisResult, error) {
	return catalog.AnalysisResult{
		ReliabilityScore: 8, SafetyScore: 8, CapabilityScore: 7, UsabilityScore: 7,
		Summary: "summary of " + name, OneLiner: name + " in one line",
	}, nil
}

// scoreBySlug lets tests force specific overall scores per entry.
type scoreBySlug map[string]float64

func (s scoreBySlug) Calculate(dataList []catalog.CapabilityData) []catalog.Scores {
	scores := make([]catalog.Scores, len(dataList))
	for i, data := range dataList {
		scores[i] = catalog.Scores{Overall: s[data.Entry.Slug()]}
	}
	return scores
}

func newTestPipeline(t *testing.T, entries []catalog.CapabilityEntry) (*Pipeline, *fakeCollector) {
	t.Helper()
	dir := t.TempDir()
	collector := &fakeCollector{}
	return &Pipeline{
		Config: &config.Config{OpenClawLimit: 100, MCPLimit: 200},
		MCPDiscoverers: []discovery.Discoverer{
			fakeDiscoverer{name: "fake-source", entries: entries},
		},
		Collector: collector,
		Scanner:   fakeScanner{},
		Analyzer:  fakeAnalyzer{},
		Scorer:    scoring.Engine{},
		Snapshot:  &store.Snapshot{Path: filepath.Join(dir, "capabilities.json")},
		UpdateLog: &store.UpdateLog{Path: filepath.Join(dir, "update_log.json")},
	}, collector
}

func testEntries() []catalog.CapabilityEntry {
	return []catalog.CapabilityEntry{
		{Source: "mcp", SourceID: "alice/tool", Name: "tool", Provider: "alice", Category: "other", RepoURL: "https://github.com/alice/tool"},
		{Source: "mcp", SourceID: "bob/helper", Name: "helper", Provider: "bob", Category: "other", RepoURL: "https://github.com/bob/helper"},
	}
}

func TestRunProcessesNewEntries(t *testing.T) {
	p, _ := newTestPipeline(t, testEntries())

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalDiscovered)
	assert.Equal(t, 0, result.TotalExisting)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, result.TotalMerged)

	saved, slugs, err := p.Snapshot.Load()
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Contains(t, slugs, "mcp-alice/tool")
	assert.NotEmpty(t, saved[0].AISummary)
	assert.GreaterOrEqual(t, saved[0].OverallScore, saved[1].OverallScore, "snapshot sorted by score descending")

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].NewCount)
}

func TestRunIsIdempotent(t *testing.T) {
	p, collector := newTestPipeline(t, testEntries())

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, collector.collected, 1)

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Empty(t, result.NewEntries, "second run discovers nothing new")
	assert.Len(t, collector.collected, 1, "no entries re-collected")
	assert.Equal(t, 2, result.TotalExisting)
	assert.Equal(t, 2, result.TotalMerged)

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Zero(t, records[1].NewCount)
}

func TestRunForceReprocessesEverything(t *testing.T) {
	p, collector := newTestPipeline(t, testEntries())

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)

	assert.Len(t, result.NewEntries, 2, "force ignores the snapshot")
	assert.Len(t, collector.collected, 2)
	assert.Equal(t, 2, result.TotalMerged)

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	assert.True(t, records[1].Forced)
}

func TestRunDryRun(t *testing.T) {
	p, collector := newTestPipeline(t, testEntries())

	result, err := p.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Len(t, result.NewEntries, 2)
	assert.Empty(t, collector.collected, "dry run executes no stages")

	_, slugs, err := p.Snapshot.Load()
	require.NoError(t, err)
	assert.Empty(t, slugs, "dry run writes nothing")

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunExcludesZeroScoreEntries(t *testing.T) {
	entries := testEntries()
	p, _ := newTestPipeline(t, entries)
	p.Scorer = scoreBySlug{
		"mcp-alice/tool": 7.5,
		"mcp-bob/helper": 0,
	}

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{"mcp-bob/helper"}, result.Failed)

	saved, slugs, err := p.Snapshot.Load()
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Contains(t, slugs, "mcp-alice/tool")

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].NewCount)
	assert.Equal(t, []string{"mcp-bob/helper"}, records[0].Failed)
}

// panicScorer simulates a stage blowing up wholesale.
type panicScorer struct{}

func (panicScorer) Calculate([]catalog.CapabilityData) []catalog.Scores {
	panic("scoring stage failure")
}

func TestRunSurvivesStageWidePanic(t *testing.T) {
	// Seed the snapshot with a successful run first.
	p, _ := newTestPipeline(t, testEntries())
	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	// A later run discovers one more entry and then the scoring stage
	// panics: the run's entries all fail, the persisted snapshot keeps
	// its previous contents, and the log still records the run.
	extra := append(testEntries(), catalog.CapabilityEntry{
		Source: "mcp", SourceID: "carol/new", Name: "new", Provider: "carol",
		Category: "other", RepoURL: "https://github.com/carol/new",
	})
	p.MCPDiscoverers = []discovery.Discoverer{fakeDiscoverer{name: "fake-source", entries: extra}}
	p.Scorer = panicScorer{}

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, []string{"mcp-carol/new"}, result.Failed)
	assert.Equal(t, 2, result.TotalMerged)

	saved, slugs, err := p.Snapshot.Load()
	require.NoError(t, err)
	require.Len(t, saved, 2, "previously persisted entries untouched")
	assert.NotContains(t, slugs, "mcp-carol/new")

	records, err := p.UpdateLog.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[1].NewCount)
	assert.Equal(t, []string{"mcp-carol/new"}, records[1].Failed)
}

func TestRunScanStageOptional(t *testing.T) {
	p, _ := newTestPipeline(t, testEntries())
	p.Scanner = nil

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
}

func TestMergeCapabilitiesReplacesBySlug(t *testing.T) {
	existing := []catalog.Capability{
		{Slug: "mcp-a/keep", OverallScore: 6.0},
		{Slug: "mcp-b/stale", OverallScore: 9.0},
	}
	fresh := []catalog.Capability{
		{Slug: "mcp-b/stale", OverallScore: 4.0},
		{Slug: "mcp-c/new", OverallScore: 8.0},
	}

	merged := mergeCapabilities(existing, fresh, false)

	require.Len(t, merged, 3)
	assert.Equal(t, "mcp-c/new", merged[0].Slug)
	assert.Equal(t, "mcp-a/keep", merged[1].Slug)
	assert.Equal(t, "mcp-b/stale", merged[2].Slug)
	assert.Equal(t, 4.0, merged[2].OverallScore, "fresh result replaces the stale one")
}

func TestMergeCapabilitiesForce(t *testing.T) {
	existing := []catalog.Capability{{Slug: "mcp-a/old", OverallScore: 6.0}}
	fresh := []catalog.Capability{{Slug: "mcp-c/new", OverallScore: 8.0}}

	merged := mergeCapabilities(existing, fresh, true)

	require.Len(t, merged, 1)
	assert.Equal(t, "mcp-c/new", merged[0].Slug)
}

func TestDiscoverGroupsAndDedupes(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	p.OpenClawDiscoverers = []discovery.Discoverer{
		fakeDiscoverer{name: "openclaw", entries: []catalog.CapabilityEntry{
			{Source: "openclaw", SourceID: "weather", Name: "weather", RepoURL: "https://github.com/alice/weather"},
		}},
	}
	p.MCPDiscoverers = []discovery.Discoverer{
		fakeDiscoverer{name: "mcp", entries: []catalog.CapabilityEntry{
			{Source: "mcp", SourceID: "alice/weather", Name: "weather", RepoURL: "https://github.com/alice/weather"},
			{Source: "mcp", SourceID: "bob/tool", Name: "tool", RepoURL: "https://github.com/bob/tool"},
		}},
	}

	entries := p.discover(context.Background())

	require.Len(t, entries, 2)
	assert.Equal(t, "openclaw", entries[0].Source, "openclaw entry wins the shared repo URL")
	assert.Equal(t, "mcp", entries[1].Source)
}
