// Package catalog defines the core data shapes that flow through the
// AgentStore pipeline: discovered entries, collected repository signals,
// scan and analysis results, and the final persisted capability record.
package catalog

import "strings"

// CapabilityEntry is a single capability candidate produced by a discoverer.
// Entries are immutable once created; identity is the Slug.
type CapabilityEntry struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	SourceID    string `json:"source_id"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	Category    string `json:"category"`
	RepoURL     string `json:"repo_url,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Protocol    string `json:"protocol"`
}

// Slug is the deduplication key, unique within a run and across runs.
func (e CapabilityEntry) Slug() string {
	return strings.ToLower(e.Source + "-" + e.SourceID)
}

// RepoData holds signals collected from a capability's GitHub repository.
// A missing or unresolvable repository yields the zero value, never an error.
type RepoData struct {
	Stars            int      `json:"stars"`
	Forks            int      `json:"forks"`
	Language         string   `json:"language"`
	LastUpdated      string   `json:"last_updated"`
	OpenIssues       int      `json:"open_issues"`
	ClosedIssues     int      `json:"closed_issues"`
	Contributors     int      `json:"contributors"`
	HasTypeScript    bool     `json:"has_typescript"`
	HasTests         bool     `json:"has_tests"`
	ReadmeText       string   `json:"-"`
	ReadmeLength     int      `json:"readme_length"`
	Dependencies     []string `json:"dependencies"`
	LatestVersion    string   `json:"latest_version"`
	SupportedClients []string `json:"supported_clients"`
}

// ScanResult is the merged output of the security scanners for one repository.
type ScanResult struct {
	Tool            string   `json:"tool"`
	Vulnerabilities int      `json:"vulnerabilities"`
	SeverityHigh    int      `json:"severity_high"`
	SeverityMedium  int      `json:"severity_medium"`
	SeverityLow     int      `json:"severity_low"`
	Permissions     []string `json:"permissions"`
	HasAPIKeys      bool     `json:"has_api_keys"`
	Details         string   `json:"details"`
}

// AnalysisResult is the AI-derived qualitative judgment. All fields default
// to zero/empty; a parse failure yields the zero value rather than an error.
type AnalysisResult struct {
	ReliabilityScore   float64 `json:"reliability_score"`
	SafetyScore        float64 `json:"safety_score"`
	CapabilityScore    float64 `json:"capability_score"`
	UsabilityScore     float64 `json:"usability_score"`
	Summary            string  `json:"summary"`
	OneLiner           string  `json:"one_liner"`
	InstallGuide       string  `json:"install_guide"`
	UsageGuide         string  `json:"usage_guide"`
	SafetyNotes        string  `json:"safety_notes"`
	CategorySuggestion string  `json:"category_suggestion"`
}

// Scores holds the five dimension scores plus the weighted overall score.
// Derived, never mutated after computation.
type Scores struct {
	Reliability float64 `json:"reliability"`
	Safety      float64 `json:"safety"`
	Capability  float64 `json:"capability"`
	Reputation  float64 `json:"reputation"`
	Usability   float64 `json:"usability"`
	Overall     float64 `json:"overall"`
}

// CapabilityData is the scoring engine's input unit: one entry joined with
// the signals collected for it, index-aligned with the discovery order.
type CapabilityData struct {
	Entry    CapabilityEntry
	Repo     RepoData
	Analysis AnalysisResult
	Scan     ScanResult
}

// DimensionScores is the nested scores mapping of a persisted record.
type DimensionScores struct {
	Reliability float64 `json:"reliability"`
	Safety      float64 `json:"safety"`
	Capability  float64 `json:"capability"`
	Reputation  float64 `json:"reputation"`
	Usability   float64 `json:"usability"`
}

// Capability is the flat persisted record read and written by the pipeline.
// The external storage/API layer ingests exactly this shape.
type Capability struct {
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	Source           string          `json:"source"`
	SourceID         string          `json:"source_id"`
	Provider         string          `json:"provider"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	RepoURL          string          `json:"repo_url"`
	Endpoint         string          `json:"endpoint"`
	Protocol         string          `json:"protocol"`
	Stars            int             `json:"stars"`
	Forks            int             `json:"forks"`
	Language         string          `json:"language"`
	LastUpdated      string          `json:"last_updated"`
	Contributors     int             `json:"contributors"`
	HasTests         bool            `json:"has_tests"`
	HasTypeScript    bool            `json:"has_typescript"`
	ReadmeLength     int             `json:"readme_length"`
	Scores           DimensionScores `json:"scores"`
	OverallScore     float64         `json:"overall_score"`
	AISummary        string          `json:"ai_summary"`
	OneLiner         string          `json:"one_liner"`
	InstallGuide     string          `json:"install_guide"`
	UsageGuide       string          `json:"usage_guide"`
	SafetyNotes      string          `json:"safety_notes"`
	Dependencies     []string        `json:"dependencies"`
	LatestVersion    string          `json:"latest_version"`
	SupportedClients []string        `json:"supported_clients"`
}

// Assemble projects one pipeline run's stage outputs into the persisted
// capability shape. The AI category suggestion wins over the entry category;
// either way the result is normalized to a standard category.
func Assemble(entry CapabilityEntry, repo RepoData, analysis AnalysisResult, scores Scores) Capability {
	category := analysis.CategorySuggestion
	if category == "" {
		category = entry.Category
	}

	return Capability{
		Slug:          entry.Slug(),
		Name:          entry.Name,
		Source:        entry.Source,
		SourceID:      entry.SourceID,
		Provider:      entry.Provider,
		Description:   entry.Description,
		Category:      CleanCategory(category),
		RepoURL:       entry.RepoURL,
		Endpoint:      entry.Endpoint,
		Protocol:      entry.Protocol,
		Stars:         repo.Stars,
		Forks:         repo.Forks,
		Language:      repo.Language,
		LastUpdated:   repo.LastUpdated,
		Contributors:  repo.Contributors,
		HasTests:      repo.HasTests,
		HasTypeScript: repo.HasTypeScript,
		ReadmeLength:  repo.ReadmeLength,
		Scores: DimensionScores{
			Reliability: scores.Reliability,
			Safety:      scores.Safety,
			Capability:  scores.Capability,
			Reputation:  scores.Reputation,
			Usability:   scores.Usability,
		},
		OverallScore:     scores.Overall,
		AISummary:        analysis.Summary,
		OneLiner:         analysis.OneLiner,
		InstallGuide:     analysis.InstallGuide,
		UsageGuide:       analysis.UsageGuide,
		SafetyNotes:      analysis.SafetyNotes,
		Dependencies:     repo.Dependencies,
		LatestVersion:    repo.LatestVersion,
		SupportedClients: repo.SupportedClients,
	}
}
