// Package discovery pulls capability candidates from the upstream
// registries: curated awesome lists, the official MCP servers repo, GitHub
// search, GitHub topics and the npm registry.
//
// Every discoverer is independently failable: a source that errors logs and
// contributes zero entries, and never blocks its siblings.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentstore/agentstore/internal/catalog"
)

// Discoverer produces capability candidates from one upstream source.
type Discoverer interface {
	// Name identifies the source in logs.
	Name() string

	// Discover returns up to limit candidate entries.
	Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error)
}

// RunAll fans out all discoverers concurrently and concatenates their
// results in discoverer order, so the caller's ordering encodes source
// priority for the later dedupe. A failed discoverer is logged and yields
// nothing; it never cancels the others.
func RunAll(ctx context.Context, discoverers []Discoverer, limit int) []catalog.CapabilityEntry {
	results := make([][]catalog.CapabilityEntry, len(discoverers))

	// Errors are absorbed per discoverer, so the group never cancels and
	// Wait's error is always nil.
	var g errgroup.Group
	for i, d := range discoverers {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("discoverer panicked", "source", d.Name(), "panic", r)
				}
			}()
			entries, err := d.Discover(ctx, limit)
			if err != nil {
				slog.Warn("discoverer failed", "source", d.Name(), "error", err)
				return nil
			}
			slog.Info("discoverer finished", "source", d.Name(), "entries", len(entries))
			results[i] = entries
			return nil
		})
	}
	g.Wait()

	var all []catalog.CapabilityEntry
	for _, entries := range results {
		all = append(all, entries...)
	}
	return all
}

// Dedupe removes cross-source duplicates. Entries with a repository URL are
// keyed by the normalized URL, others by slug. First seen wins, so the
// input order (discoverer priority) decides which source's entry survives.
func Dedupe(entries []catalog.CapabilityEntry) []catalog.CapabilityEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]catalog.CapabilityEntry, 0, len(entries))

	for _, e := range entries {
		key := e.Slug()
		if e.RepoURL != "" {
			key = normalizeRepoURL(e.RepoURL)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// normalizeRepoURL case-folds and strips the trailing slash so the same
// repository discovered by different sources collapses to one key.
func normalizeRepoURL(url string) string {
	return strings.TrimSuffix(strings.ToLower(url), "/")
}
