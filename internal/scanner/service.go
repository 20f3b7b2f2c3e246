package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/agentstore/agentstore/internal/catalog"
)

const (
	// maxConcurrentClones caps simultaneous git clones so a large batch
	// does not saturate disk and network.
	maxConcurrentClones = 3

	cloneTimeout = 60 * time.Second
)

// Service shallow-clones capability repositories and runs the configured
// scanners over each checkout.
type Service struct {
	gitPath  string
	scanners []Scanner
	sem      *semaphore.Weighted

	// scratchRoot holds per-repository checkout directories. Empty means
	// the system temp dir.
	scratchRoot string

	// cloneRepo performs one checkout; tests substitute it.
	cloneRepo func(ctx context.Context, repoURL, dest string) error
}

// NewService locates git and builds a service running the default scanner
// set. It returns an error when git is not installed, since every scan
// needs a checkout.
func NewService(scratchRoot string) (*Service, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}
	s := &Service{
		gitPath:     gitPath,
		scanners:    []Scanner{PatternScanner{}, SemgrepScanner{}, TrivyScanner{}},
		sem:         semaphore.NewWeighted(maxConcurrentClones),
		scratchRoot: scratchRoot,
	}
	s.cloneRepo = s.gitClone
	return s, nil
}

// ScanEntries scans every entry's repository concurrently and returns
// results aligned with the input order. Entries without a repository URL
// and entries whose clone fails get a zero result.
func (s *Service) ScanEntries(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.ScanResult {
	results := make([]catalog.ScanResult, len(entries))

	done := make(chan struct{}, len(entries))
	for i, entry := range entries {
		go func(i int, entry catalog.CapabilityEntry) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("scan panicked", "slug", entry.Slug(), "panic", r)
				}
				done <- struct{}{}
			}()
			results[i] = s.scanOne(ctx, entry)
		}(i, entry)
	}
	for range entries {
		<-done
	}

	return results
}

func (s *Service) scanOne(ctx context.Context, entry catalog.CapabilityEntry) catalog.ScanResult {
	if entry.RepoURL == "" {
		return catalog.ScanResult{}
	}

	dest, err := s.clone(ctx, entry)
	if err != nil {
		slog.Warn("clone failed, skipping scan", "slug", entry.Slug(), "repo", entry.RepoURL, "error", err)
		return catalog.ScanResult{}
	}
	defer os.RemoveAll(dest)

	return RunAll(ctx, s.scanners, dest)
}

// clone checks the repository out shallowly into a scratch directory and
// returns its path. The caller removes the directory when done.
func (s *Service) clone(ctx context.Context, entry catalog.CapabilityEntry) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	dest, err := os.MkdirTemp(s.scratchRoot, "agentstore-scan-"+sanitizeSlug(entry.Slug())+"-")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	if err := s.cloneRepo(cloneCtx, entry.RepoURL, dest); err != nil {
		os.RemoveAll(dest)
		if cloneCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("clone timed out after %s", cloneTimeout)
		}
		return "", err
	}

	return dest, nil
}

// gitClone is the production cloneRepo: a shallow, quiet checkout.
func (s *Service) gitClone(ctx context.Context, repoURL, dest string) error {
	cmd := exec.CommandContext(ctx, s.gitPath, "clone", "--depth", "1", "--quiet", repoURL, dest)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// sanitizeSlug makes a slug safe to embed in a directory name.
func sanitizeSlug(slug string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, slug)
}
