package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/agentstore/agentstore/internal/catalog"
)

// Upstream list documents.
const (
	AwesomeListURL     = "https://raw.githubusercontent.com/punkpeye/awesome-mcp-servers/main/README.md"
	OfficialServersURL = "https://raw.githubusercontent.com/modelcontextprotocol/servers/main/README.md"
)

// The list grammar is two line shapes:
//
//	section header:  "## Category" or "### Category" (optional anchor tag)
//	entry:           "- [name](https://github.com/owner/repo...) ... - description"
//
// Header lines set the running category context; entry lines emit one
// capability each. Anything else is ignored, so upstream format drift
// degrades to fewer entries rather than a parse error.
var (
	entryLineRe    = regexp.MustCompile(`^-\s+\[([^\]]+)\]\(https://github\.com/([^/]+)/([^/\s)]+)[^)]*\)\s*(.+)`)
	categoryLineRe = regexp.MustCompile(`^###?\s+.*?(?:<a[^>]*></a>)?(.+)$`)
	decorationRe   = regexp.MustCompile(`[^\w\s&/-]`)
	trailingDescRe = regexp.MustCompile(`\s-\s(.+)$`)
)

// ParseAwesomeList extracts capability entries from an awesome-list style
// markdown document. sourceTag distinguishes which document the entries
// came from. Duplicate (owner, repo) pairs within one document are skipped.
func ParseAwesomeList(md, sourceTag string) []catalog.CapabilityEntry {
	var entries []catalog.CapabilityEntry
	seen := make(map[string]struct{})
	currentCategory := "other"

	for _, line := range strings.Split(md, "\n") {
		if m := categoryLineRe.FindStringSubmatch(line); m != nil {
			rawCat := strings.TrimSpace(decorationRe.ReplaceAllString(strings.TrimSpace(m[1]), ""))
			if rawCat != "" {
				currentCategory = rawCat
			}
			continue
		}

		m := entryLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, owner, repo, rest := m[1], m[2], m[3], m[4]

		// Repo segments can carry a #anchor or trailing slash.
		repo = strings.TrimSuffix(strings.SplitN(repo, "#", 2)[0], "/")

		// The description follows the last " - "; before it sit emoji markers.
		desc := strings.TrimSpace(rest)
		if dm := trailingDescRe.FindStringSubmatch(rest); dm != nil {
			desc = strings.TrimSpace(dm[1])
		}

		key := strings.ToLower(owner + "/" + repo)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		owner = strings.TrimSpace(owner)
		repo = strings.TrimSpace(repo)
		entries = append(entries, catalog.CapabilityEntry{
			Name:        strings.TrimSpace(name),
			Source:      sourceTag,
			SourceID:    owner + "/" + repo,
			Provider:    owner,
			Description: desc,
			Category:    currentCategory,
			RepoURL:     "https://github.com/" + owner + "/" + repo,
			Protocol:    "mcp",
		})
	}
	return entries
}

// AwesomeListDiscoverer fetches a raw markdown list document and parses it.
// Both the curated community list and the official servers repo use this
// with different URLs and source tags.
type AwesomeListDiscoverer struct {
	HTTPClient *http.Client
	URL        string
	SourceTag  string
	SourceName string
}

// NewCuratedList discovers from the community awesome-mcp-servers list.
func NewCuratedList(client *http.Client) *AwesomeListDiscoverer {
	return &AwesomeListDiscoverer{
		HTTPClient: client,
		URL:        AwesomeListURL,
		SourceTag:  "mcp",
		SourceName: "awesome-mcp-servers",
	}
}

// NewOfficialRegistry discovers from the official modelcontextprotocol
// servers repo, tagged separately so entries remain attributable.
func NewOfficialRegistry(client *http.Client) *AwesomeListDiscoverer {
	return &AwesomeListDiscoverer{
		HTTPClient: client,
		URL:        OfficialServersURL,
		SourceTag:  "mcp-official",
		SourceName: "mcp-official-servers",
	}
}

func (d *AwesomeListDiscoverer) Name() string { return d.SourceName }

func (d *AwesomeListDiscoverer) Discover(ctx context.Context, limit int) ([]catalog.CapabilityEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", d.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.URL, err)
	}

	entries := ParseAwesomeList(string(body), d.SourceTag)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (d *AwesomeListDiscoverer) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}
