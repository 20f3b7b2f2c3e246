package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/agentstore/agentstore/internal/catalog"
)

// maxConcurrentRepos bounds simultaneous repository fetches. Hard ceiling,
// enforced by a weighted semaphore.
const maxConcurrentRepos = 5

// maxDependencies caps the declared-dependency list per repository.
const maxDependencies = 10

// clientPatterns map README text to supported-client labels, tested in
// order; each label is reported at most once, in first-match order.
var clientPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\bclaude\s*desktop\b`), "claude"},
	{regexp.MustCompile(`(?i)\bclaude\b`), "claude"},
	{regexp.MustCompile(`(?i)\bcursor\b`), "cursor"},
	{regexp.MustCompile(`(?i)\bwindsurf\b`), "windsurf"},
	{regexp.MustCompile(`(?i)\bvs\s*code\b`), "vscode"},
	{regexp.MustCompile(`(?i)\bvscode\b`), "vscode"},
	{regexp.MustCompile(`(?i)\bcline\b`), "cline"},
}

// testIndicators are top-level file or directory names that signal a test
// suite is present.
var testIndicators = map[string]struct{}{
	"tests": {}, "test": {}, "__tests__": {}, "spec": {}, "__test__": {},
	"pytest.ini": {}, "jest.config.js": {}, "vitest.config.ts": {},
}

var lastPageRe = regexp.MustCompile(`page=(\d+)>; rel="last"`)

// Collector fetches RepoData for capability entries.
type Collector struct {
	client *Client
	sem    *semaphore.Weighted
}

// NewCollector creates a collector sharing one REST client.
func NewCollector(client *Client) *Collector {
	return &Collector{
		client: client,
		sem:    semaphore.NewWeighted(maxConcurrentRepos),
	}
}

// Collect fetches repository data for every entry, at most
// maxConcurrentRepos repositories in flight. The result is aligned by
// position with the input: index i of the output belongs to entries[i].
// Entries without a parseable GitHub URL, and entries whose fetch fails
// outright, get the zero-value RepoData.
func (c *Collector) Collect(ctx context.Context, entries []catalog.CapabilityEntry) []catalog.RepoData {
	results := make([]catalog.RepoData, len(entries))

	done := make(chan int, len(entries))
	for i, entry := range entries {
		go func(i int, entry catalog.CapabilityEntry) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("repo collection panicked", "slug", entry.Slug(), "panic", r)
				}
				done <- i
			}()

			owner, repo, ok := ParseOwnerRepo(entry.RepoURL)
			if !ok {
				return
			}
			if err := c.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer c.sem.Release(1)

			data, err := c.FetchRepoData(ctx, owner, repo)
			if err != nil {
				slog.Warn("repo collection failed", "slug", entry.Slug(), "error", err)
				return
			}
			results[i] = data
		}(i, entry)
	}
	for range entries {
		<-done
	}
	return results
}

// ParseOwnerRepo extracts the owner and repository name from a GitHub URL.
// Deep links like /owner/repo/tree/main resolve to the repository root.
func ParseOwnerRepo(repoURL string) (owner, repo string, ok bool) {
	if repoURL == "" || !strings.Contains(repoURL, "github.com") {
		return "", "", false
	}
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return "", "", false
	}
	var segments []string
	for _, s := range strings.Split(parsed.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", "", false
	}
	return segments[0], segments[1], true
}

// repoInfo is the slice of the repository response we consume.
type repoInfo struct {
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Language        string `json:"language"`
	PushedAt        string `json:"pushed_at"`
	OpenIssuesCount int    `json:"open_issues_count"`
}

type contentEntry struct {
	Name string `json:"name"`
}

type readmeResponse struct {
	Content string `json:"content"`
}

type releaseEntry struct {
	TagName string `json:"tag_name"`
}

type tagEntry struct {
	Name string `json:"name"`
}

// FetchRepoData issues the per-repository metadata queries concurrently.
// Each query's failure degrades only its own fields; the method errors only
// when the context is gone.
func (c *Collector) FetchRepoData(ctx context.Context, owner, repo string) (catalog.RepoData, error) {
	if err := ctx.Err(); err != nil {
		return catalog.RepoData{}, err
	}

	base := fmt.Sprintf("/repos/%s/%s", owner, repo)
	var data catalog.RepoData
	var files map[string]struct{}

	// Independent queries; results land in disjoint fields so no locking
	// is needed beyond the join.
	tasks := []func(){
		func() {
			var info repoInfo
			if c.getJSON(ctx, base, nil, &info) {
				data.Stars = info.StargazersCount
				data.Forks = info.ForksCount
				data.Language = info.Language
				data.LastUpdated = info.PushedAt
				data.OpenIssues = info.OpenIssuesCount
			}
		},
		func() {
			data.Contributors = c.countByLastPage(ctx, base+"/contributors", nil, 1)
		},
		func() {
			data.ClosedIssues = c.countByLastPage(ctx, base+"/issues", url.Values{"state": {"closed"}}, 0)
		},
		func() {
			var readme readmeResponse
			if c.getJSON(ctx, base+"/readme", nil, &readme) {
				if text, err := decodeBase64(readme.Content); err == nil {
					data.ReadmeText = text
					data.ReadmeLength = len(text)
				}
			}
		},
		func() {
			var contents []contentEntry
			if c.getJSON(ctx, base+"/contents", nil, &contents) {
				files = make(map[string]struct{}, len(contents))
				for _, f := range contents {
					files[f.Name] = struct{}{}
				}
			}
		},
		func() {
			var releases []releaseEntry
			if c.getJSON(ctx, base+"/releases", url.Values{"per_page": {"1"}}, &releases) && len(releases) > 0 {
				data.LatestVersion = releases[0].TagName
			}
		},
	}

	var g errgroup.Group
	for _, task := range tasks {
		g.Go(func() error {
			task()
			return nil
		})
	}
	g.Wait()

	// Derived fields need the joined results above.
	if files != nil {
		_, hasTSConfig := files["tsconfig.json"]
		data.HasTypeScript = hasTSConfig || data.Language == "TypeScript"
		for name := range files {
			if _, ok := testIndicators[name]; ok {
				data.HasTests = true
				break
			}
		}
		if _, ok := files["package.json"]; ok {
			data.Dependencies = c.fetchDependencies(ctx, base)
		}
	}

	// No releases: fall back to the most recent git tag.
	if data.LatestVersion == "" {
		var tags []tagEntry
		if c.getJSON(ctx, base+"/tags", url.Values{"per_page": {"1"}}, &tags) && len(tags) > 0 {
			data.LatestVersion = tags[0].Name
		}
	}

	data.SupportedClients = DetectClients(data.ReadmeText)
	return data, nil
}

// fetchDependencies parses package.json for declared runtime dependencies,
// capped at maxDependencies.
func (c *Collector) fetchDependencies(ctx context.Context, base string) []string {
	var pkgFile readmeResponse
	if !c.getJSON(ctx, base+"/contents/package.json", nil, &pkgFile) {
		return nil
	}
	raw, err := decodeBase64(pkgFile.Content)
	if err != nil {
		return nil
	}

	var pkg struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return nil
	}

	deps := make([]string, 0, len(pkg.Dependencies))
	for name := range pkg.Dependencies {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	if len(deps) > maxDependencies {
		deps = deps[:maxDependencies]
	}
	return deps
}

// countByLastPage asks for one item per page and reads the total off the
// Link header's rel="last" page number. With no Link header the body
// length is the count (0 or 1 items); def applies only when the call or
// decode fails.
func (c *Collector) countByLastPage(ctx context.Context, path string, params url.Values, def int) int {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", "1")

	resp, err := c.client.get(ctx, path, params)
	if err != nil {
		return def
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return def
	}

	if link := resp.Header.Get("Link"); strings.Contains(link, `rel="last"`) {
		if m := lastPageRe.FindStringSubmatch(link); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
		return def
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return def
	}
	return len(items)
}

// getJSON fetches and decodes one endpoint, reporting success. Any failure
// (transport, status, decode) leaves the target untouched.
func (c *Collector) getJSON(ctx context.Context, path string, params url.Values, target any) bool {
	resp, err := c.client.get(ctx, path, params)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false
	}
	return json.NewDecoder(resp.Body).Decode(target) == nil
}

// DetectClients reports which agent clients a README mentions, first-match
// order, each label once.
func DetectClients(readme string) []string {
	if readme == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var clients []string
	for _, p := range clientPatterns {
		if _, dup := seen[p.label]; dup {
			continue
		}
		if p.re.MatchString(readme) {
			seen[p.label] = struct{}{}
			clients = append(clients, p.label)
		}
	}
	return clients
}

// decodeBase64 handles GitHub's newline-wrapped base64 content blobs.
func decodeBase64(content string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, content)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
