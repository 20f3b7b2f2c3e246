package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentstore/agentstore/internal/catalog"
)

const capabilitiesSchema = `
CREATE TABLE IF NOT EXISTS capabilities (
    slug TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    source TEXT NOT NULL,
    source_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    description TEXT,
    category TEXT,
    repo_url TEXT,
    endpoint TEXT,
    protocol TEXT DEFAULT 'rest',
    stars INTEGER DEFAULT 0,
    forks INTEGER DEFAULT 0,
    language TEXT,
    last_updated TEXT,
    contributors INTEGER DEFAULT 0,
    has_tests BOOLEAN DEFAULT 0,
    has_typescript BOOLEAN DEFAULT 0,
    readme_length INTEGER DEFAULT 0,
    reliability REAL DEFAULT 0,
    safety REAL DEFAULT 0,
    capability REAL DEFAULT 0,
    reputation REAL DEFAULT 0,
    usability REAL DEFAULT 0,
    overall_score REAL DEFAULT 0,
    dependencies TEXT DEFAULT '[]',
    latest_version TEXT DEFAULT '',
    supported_clients TEXT DEFAULT '[]',
    ai_summary TEXT,
    one_liner TEXT,
    install_guide TEXT,
    usage_guide TEXT,
    safety_notes TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// DB mirrors the capability snapshot into SQLite for the API to query.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating directories and schema as needed) the catalog
// database at path. WAL mode keeps concurrent readers from blocking the
// writer during a pipeline run.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(capabilitiesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// Upsert writes capabilities keyed by slug, replacing existing rows. The
// whole batch commits or rolls back together.
func (d *DB) Upsert(ctx context.Context, capabilities []catalog.Capability) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT OR REPLACE INTO capabilities
        (slug, name, source, source_id, provider, description, category,
         repo_url, endpoint, protocol, stars, forks, language, last_updated,
         contributors, has_tests, has_typescript, readme_length,
         reliability, safety, capability, reputation, usability, overall_score,
         dependencies, latest_version, supported_clients,
         ai_summary, one_liner, install_guide, usage_guide, safety_notes)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range capabilities {
		dependencies, err := json.Marshal(orEmpty(c.Dependencies))
		if err != nil {
			return fmt.Errorf("failed to encode dependencies for %s: %w", c.Slug, err)
		}
		clients, err := json.Marshal(orEmpty(c.SupportedClients))
		if err != nil {
			return fmt.Errorf("failed to encode supported clients for %s: %w", c.Slug, err)
		}

		if _, err := stmt.ExecContext(ctx,
			c.Slug, c.Name, c.Source, c.SourceID, c.Provider, c.Description, c.Category,
			c.RepoURL, c.Endpoint, c.Protocol, c.Stars, c.Forks, c.Language, c.LastUpdated,
			c.Contributors, c.HasTests, c.HasTypeScript, c.ReadmeLength,
			c.Scores.Reliability, c.Scores.Safety, c.Scores.Capability,
			c.Scores.Reputation, c.Scores.Usability, c.OverallScore,
			string(dependencies), c.LatestVersion, string(clients),
			c.AISummary, c.OneLiner, c.InstallGuide, c.UsageGuide, c.SafetyNotes,
		); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", c.Slug, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored capabilities.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM capabilities").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count capabilities: %w", err)
	}
	return n, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
