package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstore/agentstore/internal/catalog"
)

const (
	githubAPIBaseURL = "https://api.github.com"

	// Upstream descriptions get hard-capped so one verbose repo does not
	// bloat the dataset.
	maxDescriptionLen = 300
)

// searchItem is the slice of the GitHub search response we consume.
type searchItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// SearchDiscoverer finds MCP servers via the GitHub repository search API,
// several keyword/topic queries deep, sorted by stars. A 403 rate-limit
// response ends the current query early instead of failing the run.
type SearchDiscoverer struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
}

func NewGitHubSearch(client *http.Client, token string) *SearchDiscoverer {
	return &SearchDiscoverer{HTTPClient: client, BaseURL: githubAPIBaseURL, Token: token}
}

func (d *SearchDiscoverer) Name() string { return "github-search" }

var searchQueries = []string{
	"topic:mcp-server",
	"topic:model-context-protocol",
	"mcp-server in:name,description language:TypeScript",
	"mcp-server in:name,description language:Python",
}

func (d *SearchDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	var entries []catalog.CapabilityEntry
	seen := make(map[string]struct{})

	for _, query := range searchQueries {
		if len(entries) >= limit {
			break
		}
		// Search results cap out quickly; two pages per query is plenty.
		for page := 1; page <= 2 && len(entries) < limit; page++ {
			items, rateLimited, err := d.search(ctx, query, "stars", page)
			if err != nil {
				slog.Warn("github search query failed", "query", query, "page", page, "error", err)
				break
			}
			if rateLimited {
				slog.Warn("github search rate limited, stopping query", "query", query, "collected", len(entries))
				break
			}
			if len(items) == 0 {
				break
			}
			entries = appendSearchItems(entries, seen, items, "mcp-github")
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// search issues one search request. The bool result reports a 403
// rate-limit response, which is a stop signal rather than an error.
func (d *SearchDiscoverer) search(ctx context.Context, query, sort string, page int) ([]searchItem, bool, error) {
	params := url.Values{
		"q":        {query},
		"sort":     {sort},
		"order":    {"desc"},
		"per_page": {"100"},
		"page":     {strconv.Itoa(page)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.BaseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if d.Token != "" {
		req.Header.Set("Authorization", "token "+d.Token)
	}

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("github search: unexpected status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, fmt.Errorf("github search: failed to decode response: %w", err)
	}
	return decoded.Items, false, nil
}

// TopicsDiscoverer complements SearchDiscoverer with topic-tag queries
// sorted by recent activity, catching active repos that star-sorted search
// misses. Queries are paced by a rate limiter to stay clear of GitHub's
// abuse detection.
type TopicsDiscoverer struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Limiter    *rate.Limiter
}

var topicQueries = []string{
	"topic:mcp-plugin",
	"topic:mcp-tool",
	"topic:mcp stars:>5",
	"mcp server in:readme language:TypeScript stars:>10",
	"mcp server in:readme language:Python stars:>10",
}

func NewGitHubTopics(client *http.Client, token string) *TopicsDiscoverer {
	return &TopicsDiscoverer{
		HTTPClient: client,
		BaseURL:    githubAPIBaseURL,
		Token:      token,
		Limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1), // one query per 2s
	}
}

func (d *TopicsDiscoverer) Name() string { return "github-topics" }

func (d *TopicsDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	inner := &SearchDiscoverer{HTTPClient: d.HTTPClient, BaseURL: d.BaseURL, Token: d.Token}

	var entries []catalog.CapabilityEntry
	seen := make(map[string]struct{})

	for _, query := range topicQueries {
		if len(entries) >= limit {
			break
		}
		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				return entries, err
			}
		}
		items, rateLimited, err := inner.search(ctx, query, "updated", 1)
		if err != nil {
			slog.Warn("github topics query failed", "query", query, "error", err)
			continue
		}
		if rateLimited {
			slog.Warn("github topics rate limited, stopping", "collected", len(entries))
			break
		}
		entries = appendSearchItems(entries, seen, items, "mcp-topics")
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// appendSearchItems converts search results into entries, deduplicating by
// owner/repo within the discoverer.
func appendSearchItems(entries []catalog.CapabilityEntry, seen map[string]struct{}, items []searchItem, sourceTag string) []catalog.CapabilityEntry {
	for _, item := range items {
		owner := item.Owner.Login
		if owner == "" || item.Name == "" {
			continue
		}
		key := strings.ToLower(owner + "/" + item.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		repoURL := item.HTMLURL
		if repoURL == "" {
			repoURL = "https://github.com/" + owner + "/" + item.Name
		}

		entries = append(entries, catalog.CapabilityEntry{
			Name:        item.Name,
			Source:      sourceTag,
			SourceID:    owner + "/" + item.Name,
			Provider:    owner,
			Description: truncateDescription(item.Description),
			Category:    "other", // reclassified later by AI analysis
			RepoURL:     repoURL,
			Protocol:    "mcp",
		})
	}
	return entries
}

// truncateDescription caps a description at maxDescriptionLen characters,
// cutting on a rune boundary so multi-byte text stays valid UTF-8.
func truncateDescription(desc string) string {
	if len(desc) <= maxDescriptionLen {
		return desc
	}
	runes := []rune(desc)
	if len(runes) <= maxDescriptionLen {
		return desc
	}
	return string(runes[:maxDescriptionLen-3]) + "..."
}
