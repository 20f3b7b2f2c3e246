// Package pipeline orchestrates a full catalog update: discover
// candidates, diff against the existing snapshot, collect repository
// data, scan, analyze and score the new entries, then merge and persist
// the results.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/agentstore/agentstore/internal/analyzer"
	"github.com/agentstore/agentstore/internal/catalog"
	"github.com/agentstore/agentstore/internal/config"
	"github.com/agentstore/agentstore/internal/discovery"
	"github.com/agentstore/agentstore/internal/github"
	"github.com/agentstore/agentstore/internal/scanner"
	"github.com/agentstore/agentstore/internal/scoring"
	"github.com/agentstore/agentstore/internal/store"
)

// Collector fetches repository metadata for a batch of entries, results
// aligned by position.
type Collector interface {
	Collect(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.RepoData
}

// RepoScanner runs security scans for a batch of entries, results
// aligned by position.
type RepoScanner interface {
	ScanEntries(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.ScanResult
}

// Scorer turns assembled data into dimension scores, results aligned by
// position. scoring.Engine is the production implementation.
type Scorer interface {
	Calculate(dataList []catalog.CapabilityData) []catalog.Scores
}

// Pipeline wires every stage together. Construct with NewFromConfig for
// real runs; tests assemble one directly from stubs.
type Pipeline struct {
	Config *config.Config

	// OpenClaw and MCP discoverers run as separate groups with separate
	// limits. Order within a group encodes source priority for dedupe.
	OpenClawDiscoverers []discovery.Discoverer
	MCPDiscoverers      []discovery.Discoverer

	Collector Collector
	Scanner   RepoScanner // nil skips the scan stage
	Analyzer  analyzer.Analyzer
	Scorer    Scorer

	Snapshot  *store.Snapshot
	UpdateLog *store.UpdateLog
	DB        *store.DB // nil skips the database mirror
}

// Options controls one run.
type Options struct {
	// Force reprocesses every discovered entry, ignoring the snapshot.
	Force bool

	// DryRun reports which entries would be processed without running
	// any stage or writing anything.
	DryRun bool
}

// Result summarizes one run.
type Result struct {
	TotalDiscovered int
	TotalExisting   int
	NewEntries      []catalog.CapabilityEntry
	Succeeded       int
	Failed          []string
	TotalMerged     int
	DryRun          bool
}

// NewFromConfig assembles the production pipeline. The scan stage is
// skipped with a warning when git is unavailable; everything else is
// required.
func NewFromConfig(cfg *config.Config) (*Pipeline, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	ai, err := analyzer.New(cfg)
	if err != nil {
		return nil, err
	}

	var repoScanner RepoScanner
	if svc, err := scanner.NewService(""); err != nil {
		slog.Warn("security scanning disabled", "error", err)
	} else {
		repoScanner = svc
	}

	var db *store.DB
	if cfg.DatabasePath != "" {
		db, err = store.OpenDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening catalog database: %w", err)
		}
	}

	var webMirror string
	if cfg.WebDataDir != "" {
		webMirror = cfg.WebDataDir + "/capabilities.json"
	}

	return &Pipeline{
		Config: cfg,
		OpenClawDiscoverers: []discovery.Discoverer{
			discovery.NewOpenClawHub(httpClient),
		},
		MCPDiscoverers: []discovery.Discoverer{
			discovery.NewCuratedList(httpClient),
			discovery.NewOfficialRegistry(httpClient),
			discovery.NewGitHubSearch(httpClient, cfg.GitHubToken),
			discovery.NewGitHubTopics(httpClient, cfg.GitHubToken),
			discovery.NewNPMSearch(httpClient),
		},
		Collector: github.NewCollector(github.NewClient(httpClient, cfg.GitHubToken)),
		Scanner:   repoScanner,
		Analyzer:  ai,
		Scorer:    scoring.Engine{},
		Snapshot:  &store.Snapshot{Path: cfg.SnapshotPath(), WebMirrorPath: webMirror},
		UpdateLog: &store.UpdateLog{Path: cfg.UpdateLogPath()},
		DB:        db,
	}, nil
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

// Run executes one update. Repeating a run against an unchanged upstream
// is a no-op: every discovered entry is already in the snapshot, so
// nothing is reprocessed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	existing, existingSlugs, err := p.Snapshot.Load()
	if err != nil {
		return nil, err
	}
	slog.Info("loaded snapshot", "existing", len(existing))

	if opts.Force {
		slog.Info("force mode, reprocessing all discovered entries")
		existingSlugs = map[string]struct{}{}
	}

	discovered := p.discover(ctx)
	slog.Info("discovery finished", "total", len(discovered))

	var newEntries []catalog.CapabilityEntry
	for _, entry := range discovered {
		if _, seen := existingSlugs[entry.Slug()]; !seen {
			newEntries = append(newEntries, entry)
		}
	}
	slog.Info("diffed against snapshot", "new", len(newEntries), "skipped", len(discovered)-len(newEntries))

	result := &Result{
		TotalDiscovered: len(discovered),
		TotalExisting:   len(existing),
		NewEntries:      newEntries,
		DryRun:          opts.DryRun,
	}

	if opts.DryRun {
		return result, nil
	}

	if len(newEntries) == 0 {
		if err := p.UpdateLog.Append(store.NewUpdateRecord(len(discovered), len(existing), 0, nil, opts.Force)); err != nil {
			return nil, err
		}
		result.TotalMerged = len(existing)
		return result, nil
	}

	successful, failed := p.processSafely(ctx, newEntries)
	result.Succeeded = len(successful)
	result.Failed = failed

	merged := mergeCapabilities(existing, successful, opts.Force)
	result.TotalMerged = len(merged)

	if err := p.Snapshot.Save(merged); err != nil {
		return nil, err
	}
	if p.DB != nil && len(successful) > 0 {
		if err := p.DB.Upsert(ctx, successful); err != nil {
			return nil, err
		}
	}
	if err := p.UpdateLog.Append(store.NewUpdateRecord(len(discovered), len(existing), len(successful), failed, opts.Force)); err != nil {
		return nil, err
	}

	return result, nil
}

// discover fans out both source groups and removes cross-source
// duplicates, OpenClaw entries taking priority over MCP ones.
func (p *Pipeline) discover(ctx context.Context) []catalog.CapabilityEntry {
	openclaw := discovery.RunAll(ctx, p.OpenClawDiscoverers, p.Config.OpenClawLimit)
	mcp := discovery.RunAll(ctx, p.MCPDiscoverers, p.Config.MCPLimit)
	return discovery.Dedupe(append(openclaw, mcp...))
}

// processSafely runs process with a stage-wide safety net: if an entire
// stage panics, every entry of this run is reported failed, the existing
// snapshot stays as it was, and the update log still records the run.
func (p *Pipeline) processSafely(ctx context.Context, entries []catalog.CapabilityEntry) (successful []catalog.Capability, failed []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("processing stage panicked, failing all entries of this run", "panic", r)
			successful = nil
			failed = make([]string, 0, len(entries))
			for _, entry := range entries {
				failed = append(failed, entry.Slug())
			}
		}
	}()
	return p.process(ctx, entries)
}

// process runs collect, scan, analyze and score over the new entries and
// assembles the persisted records. Entries that end up with a zero
// overall score are reported as failed and excluded from the output.
func (p *Pipeline) process(ctx context.Context, entries []catalog.CapabilityEntry) ([]catalog.Capability, []string) {
	slog.Info("collecting repository data", "entries", len(entries))
	repos := p.Collector.Collect(ctx, entries)

	var scans []catalog.ScanResult
	if p.Scanner != nil {
		slog.Info("scanning repositories", "entries", len(entries))
		scans = p.Scanner.ScanEntries(ctx, entries)
	} else {
		scans = make([]catalog.ScanResult, len(entries))
	}

	slog.Info("analyzing capabilities", "analyzer", p.Analyzer.Name(), "entries", len(entries))
	analyses := analyzer.AnalyzeAll(ctx, p.Analyzer, entries, repos)

	dataList := make([]catalog.CapabilityData, len(entries))
	for i, entry := range entries {
		dataList[i] = catalog.CapabilityData{
			Entry:    entry,
			Repo:     repos[i],
			Analysis: analyses[i],
			Scan:     scans[i],
		}
	}
	scores := p.Scorer.Calculate(dataList)

	var successful []catalog.Capability
	var failed []string
	for i, entry := range entries {
		capability := catalog.Assemble(entry, repos[i], analyses[i], scores[i])
		if capability.OverallScore > 0 {
			successful = append(successful, capability)
		} else {
			failed = append(failed, entry.Slug())
		}
	}
	slog.Info("processing finished", "succeeded", len(successful), "failed", len(failed))

	return successful, failed
}

// mergeCapabilities folds new results into the existing snapshot. New
// entries replace existing ones with the same slug; force discards the
// existing snapshot entirely. Output is sorted by overall score,
// descending.
func mergeCapabilities(existing, fresh []catalog.Capability, force bool) []catalog.Capability {
	var merged []catalog.Capability
	if force {
		merged = append(merged, fresh...)
	} else {
		freshSlugs := make(map[string]struct{}, len(fresh))
		for _, c := range fresh {
			freshSlugs[c.Slug] = struct{}{}
		}
		for _, c := range existing {
			if _, replaced := freshSlugs[c.Slug]; !replaced {
				merged = append(merged, c)
			}
		}
		merged = append(merged, fresh...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].OverallScore > merged[j].OverallScore
	})
	return merged
}
