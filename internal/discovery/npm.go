package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstore/agentstore/internal/catalog"
)

const npmRegistryBaseURL = "https://registry.npmjs.org"

var npmSearchTerms = []string{"mcp-server", "mcp-plugin", "model-context-protocol"}

// NPMDiscoverer searches the npm registry for MCP servers published as
// packages, many of which never appear in the curated lists. When the
// package metadata links a GitHub repository, the entry adopts it (with any
// trailing ".git" stripped) so the collector can resolve it later.
type NPMDiscoverer struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewNPMSearch(client *http.Client) *NPMDiscoverer {
	return &NPMDiscoverer{HTTPClient: client, BaseURL: npmRegistryBaseURL}
}

func (d *NPMDiscoverer) Name() string { return "npm-search" }

type npmSearchResponse struct {
	Objects []struct {
		Package struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Links       struct {
				Repository string `json:"repository"`
			} `json:"links"`
			Publisher struct {
				Username string `json:"username"`
			} `json:"publisher"`
		} `json:"package"`
	} `json:"objects"`
}

func (d *NPMDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	var entries []catalog.CapabilityEntry
	seen := make(map[string]struct{})

	for _, term := range npmSearchTerms {
		if len(entries) >= limit {
			break
		}
		results, err := d.search(ctx, term)
		if err != nil {
			slog.Warn("npm search failed", "term", term, "error", err)
			continue
		}

		for _, obj := range results.Objects {
			pkg := obj.Package
			if pkg.Name == "" {
				continue
			}

			repoURL := ""
			if strings.Contains(pkg.Links.Repository, "github.com") {
				repoURL = strings.TrimSuffix(strings.TrimSuffix(pkg.Links.Repository, "/"), ".git")
			}

			// Dedupe by package name; the scoped prefix chars would
			// otherwise make near-identical keys.
			key := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(pkg.Name, "/", "-"), "@", ""))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			// Prefer the GitHub owner/repo as the source id so the slug
			// lines up with the same repo found via other sources.
			sourceID := pkg.Name
			if repoURL != "" {
				parts := strings.Split(strings.TrimSuffix(repoURL, "/"), "/")
				if len(parts) >= 2 {
					sourceID = parts[len(parts)-2] + "/" + parts[len(parts)-1]
				}
			}

			provider := pkg.Publisher.Username
			if provider == "" {
				provider = "npm"
			}

			entries = append(entries, catalog.CapabilityEntry{
				Name:        pkg.Name,
				Source:      "mcp-npm",
				SourceID:    sourceID,
				Provider:    provider,
				Description: truncateDescription(pkg.Description),
				Category:    "other",
				RepoURL:     repoURL,
				Protocol:    "mcp",
			})
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (d *NPMDiscoverer) search(ctx context.Context, term string) (*npmSearchResponse, error) {
	params := url.Values{"text": {term}, "size": {"100"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.BaseURL+"/-/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm search: unexpected status %d", resp.StatusCode)
	}

	var decoded npmSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("npm search: failed to decode response: %w", err)
	}
	return &decoded, nil
}
