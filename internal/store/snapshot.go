// Package store persists pipeline output: the capabilities.json snapshot
// (plus its web mirror), the append-only update log, and the SQLite
// mirror the API serves from.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentstore/agentstore/internal/catalog"
)

// Snapshot reads and writes the capabilities.json file that every
// pipeline run merges into.
type Snapshot struct {
	// Path is the canonical snapshot location.
	Path string

	// WebMirrorPath, when non-empty, receives an identical copy for the
	// static frontend to serve.
	WebMirrorPath string
}

// Load returns the current snapshot contents and the set of known slugs.
// A missing or corrupt file yields an empty snapshot rather than an
// error, so a damaged file means a fresh full run instead of a dead
// pipeline.
func (s *Snapshot) Load() ([]catalog.Capability, map[string]struct{}, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var capabilities []catalog.Capability
	if err := json.Unmarshal(data, &capabilities); err != nil {
		slog.Warn("snapshot is corrupt, starting from empty", "path", s.Path, "error", err)
		return nil, map[string]struct{}{}, nil
	}

	slugs := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		if c.Slug != "" {
			slugs[c.Slug] = struct{}{}
		}
	}
	return capabilities, slugs, nil
}

// Save writes the snapshot and, when configured, its web mirror.
func (s *Snapshot) Save(capabilities []catalog.Capability) error {
	data, err := json.MarshalIndent(capabilities, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := writeFile(s.Path, data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if s.WebMirrorPath != "" {
		if err := writeFile(s.WebMirrorPath, data); err != nil {
			return fmt.Errorf("writing web mirror: %w", err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
