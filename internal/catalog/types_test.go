package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		entry    CapabilityEntry
		expected string
	}{
		{
			name:     "lowercases source and id",
			entry:    CapabilityEntry{Source: "MCP", SourceID: "Owner/Repo"},
			expected: "mcp-owner/repo",
		},
		{
			name:     "openclaw skill id",
			entry:    CapabilityEntry{Source: "openclaw", SourceID: "t1"},
			expected: "openclaw-t1",
		},
		{
			name:     "npm package",
			entry:    CapabilityEntry{Source: "mcp-npm", SourceID: "my-server"},
			expected: "mcp-npm-my-server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entry.Slug())
		})
	}
}

func TestAssemble(t *testing.T) {
	entry := CapabilityEntry{
		Name:        "test",
		Source:      "openclaw",
		SourceID:    "t1",
		Provider:    "user",
		Description: "desc",
		Category:    "development",
		RepoURL:     "https://github.com/user/test",
		Protocol:    "openclaw",
	}
	repo := RepoData{Stars: 100, Forks: 10, Dependencies: []string{"axios"}, LatestVersion: "v1.2.0"}
	analysis := AnalysisResult{Summary: "Good", OneLiner: "Test tool"}
	scores := Scores{
		Reliability: 7.0, Safety: 8.0, Capability: 6.5,
		Reputation: 5.0, Usability: 7.5, Overall: 7.0,
	}

	cap := Assemble(entry, repo, analysis, scores)

	assert.Equal(t, "openclaw-t1", cap.Slug)
	assert.Equal(t, "test", cap.Name)
	assert.Equal(t, "openclaw", cap.Source)
	assert.Equal(t, 7.0, cap.Scores.Reliability)
	assert.Equal(t, 7.0, cap.OverallScore)
	assert.Equal(t, 100, cap.Stars)
	assert.Equal(t, []string{"axios"}, cap.Dependencies)
	assert.Equal(t, "v1.2.0", cap.LatestVersion)
}

func TestAssembleCategoryPrecedence(t *testing.T) {
	entry := CapabilityEntry{Source: "mcp", SourceID: "a/b", Category: "web"}

	// AI suggestion wins over the entry category.
	cap := Assemble(entry, RepoData{}, AnalysisResult{CategorySuggestion: "data"}, Scores{})
	assert.Equal(t, "data", cap.Category)

	// No suggestion: entry category is used.
	cap = Assemble(entry, RepoData{}, AnalysisResult{}, Scores{})
	assert.Equal(t, "web", cap.Category)

	// Nonstandard names are normalized.
	cap = Assemble(entry, RepoData{}, AnalysisResult{CategorySuggestion: "Healthcare"}, Scores{})
	assert.Equal(t, "data", cap.Category)
}
