package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstore/agentstore/internal/catalog"
)

const openClawHubURL = "https://hub.openclaw.ai/api"

// OpenClawDiscoverer pulls skills from the OpenClaw hub's JSON API, sorted
// by install count. Skills missing required fields are skipped individually.
type OpenClawDiscoverer struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewOpenClawHub(client *http.Client) *OpenClawDiscoverer {
	return &OpenClawDiscoverer{HTTPClient: client, BaseURL: openClawHubURL}
}

func (d *OpenClawDiscoverer) Name() string { return "openclaw-hub" }

type clawHubSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Category    string `json:"category"`
	RepoURL     string `json:"repo_url"`
}

type clawHubResponse struct {
	Skills []clawHubSkill `json:"skills"`
}

// ParseClawHubResponse converts the hub payload into entries, dropping any
// skill without an id or name rather than failing the batch.
func ParseClawHubResponse(raw clawHubResponse) []catalog.CapabilityEntry {
	var entries []catalog.CapabilityEntry
	for _, skill := range raw.Skills {
		if skill.ID == "" || skill.Name == "" {
			continue
		}
		provider := skill.Author
		if provider == "" {
			provider = "unknown"
		}
		category := skill.Category
		if category == "" {
			category = "other"
		}
		entries = append(entries, catalog.CapabilityEntry{
			Name:        skill.Name,
			Source:      "openclaw",
			SourceID:    skill.ID,
			Provider:    provider,
			Description: skill.Description,
			Category:    category,
			RepoURL:     skill.RepoURL,
			Protocol:    "openclaw",
		})
	}
	return entries
}

func (d *OpenClawDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}, "sort": {"installs"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.BaseURL+"/skills?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch openclaw skills: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openclaw hub: unexpected status %d", resp.StatusCode)
	}

	var decoded clawHubResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("openclaw hub: failed to decode response: %w", err)
	}

	entries := ParseClawHubResponse(decoded)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
