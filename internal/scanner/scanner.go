// Package scanner runs static security scanners over shallow clones of
// capability repositories.
//
// Three scanners exist: the built-in secret/permission pattern scanner
// (always available), plus semgrep and trivy as soft dependencies: when
// the binary is absent the scanner reports itself as skipped instead of
// failing. Per-repository results merge by summing severity counts,
// unioning permission sets, OR-ing the credential-leak flag and
// concatenating details.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agentstore/agentstore/internal/catalog"
)

// Scanner is one static analysis over a checked-out repository.
type Scanner interface {
	// Name identifies the tool in merged results and logs.
	Name() string

	// Scan inspects the repository at repoPath. Implementations return a
	// skip-flagged result rather than an error when their tool is absent.
	Scan(ctx context.Context, repoPath string) (catalog.ScanResult, error)
}

// Merge combines per-scanner results into one. Counts sum, permissions
// union, the leak flag ORs, tool names join with commas and details with a
// separator line.
func Merge(results []catalog.ScanResult) catalog.ScanResult {
	var merged catalog.ScanResult
	var tools, details []string
	permissions := make(map[string]struct{})

	for _, r := range results {
		if r.Tool != "" {
			tools = append(tools, r.Tool)
		}
		merged.Vulnerabilities += r.Vulnerabilities
		merged.SeverityHigh += r.SeverityHigh
		merged.SeverityMedium += r.SeverityMedium
		merged.SeverityLow += r.SeverityLow
		for _, p := range r.Permissions {
			permissions[p] = struct{}{}
		}
		if r.HasAPIKeys {
			merged.HasAPIKeys = true
		}
		if r.Details != "" {
			details = append(details, r.Details)
		}
	}

	merged.Tool = strings.Join(tools, ",")
	if len(permissions) > 0 {
		merged.Permissions = make([]string, 0, len(permissions))
		for p := range permissions {
			merged.Permissions = append(merged.Permissions, p)
		}
		sort.Strings(merged.Permissions)
	}
	merged.Details = strings.Join(details, "\n---\n")
	return merged
}

// RunAll executes every scanner concurrently against one repository and
// merges their results. A scanner error or panic degrades to an error
// placeholder entry in the merge; it never aborts the other scanners.
func RunAll(ctx context.Context, scanners []Scanner, repoPath string) catalog.ScanResult {
	results := make([]catalog.ScanResult, len(scanners))

	done := make(chan struct{}, len(scanners))
	for i, s := range scanners {
		go func(i int, s Scanner) {
			defer func() {
				if r := recover(); r != nil {
					results[i] = catalog.ScanResult{
						Tool:    "error",
						Details: fmt.Sprintf("scanner %s panicked: %v", s.Name(), r),
					}
				}
				done <- struct{}{}
			}()
			result, err := s.Scan(ctx, repoPath)
			if err != nil {
				slog.Warn("scanner failed", "scanner", s.Name(), "path", repoPath, "error", err)
				results[i] = catalog.ScanResult{
					Tool:    "error",
					Details: fmt.Sprintf("scanner %s failed: %v", s.Name(), err),
				}
				return
			}
			results[i] = result
		}(i, s)
	}
	for range scanners {
		<-done
	}

	return Merge(results)
}
