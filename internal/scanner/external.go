package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/agentstore/agentstore/internal/catalog"
)

// externalScanTimeout bounds one external tool invocation.
const externalScanTimeout = 120 * time.Second

// runTool executes an external scanner binary and returns its stdout. The
// caller has already confirmed the binary exists via exec.LookPath.
func runTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, externalScanTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Scanners exit non-zero when they find issues, so an exit error with
	// parseable stdout is still a success.
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %s", name, externalScanTimeout)
	}
	if err != nil && stdout.Len() == 0 {
		return nil, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return []byte(stdout.String()), nil
}

// SemgrepScanner runs semgrep over the repository when the binary is
// installed, bucketing findings by severity.
type SemgrepScanner struct{}

func (SemgrepScanner) Name() string { return "semgrep" }

func (s SemgrepScanner) Scan(ctx context.Context, repoPath string) (catalog.ScanResult, error) {
	if _, err := exec.LookPath("semgrep"); err != nil {
		return catalog.ScanResult{Tool: "semgrep", Details: "semgrep not installed, skipped"}, nil
	}

	out, err := runTool(ctx, "semgrep", "scan", "--config", "auto", "--json", repoPath)
	if err != nil {
		return catalog.ScanResult{Tool: "semgrep", Details: err.Error()}, nil
	}

	var output struct {
		Results []struct {
			Extra struct {
				Severity string `json:"severity"`
			} `json:"extra"`
		} `json:"results"`
	}
	if err := json.Unmarshal(out, &output); err != nil {
		return catalog.ScanResult{Tool: "semgrep", Details: fmt.Sprintf("semgrep output parse failed: %v", err)}, nil
	}

	var high, medium, low int
	for _, finding := range output.Results {
		switch strings.ToUpper(finding.Extra.Severity) {
		case "ERROR", "HIGH", "CRITICAL":
			high++
		case "WARNING", "MEDIUM":
			medium++
		case "INFO", "LOW":
			low++
		}
	}

	total := high + medium + low
	return catalog.ScanResult{
		Tool:            "semgrep",
		Vulnerabilities: total,
		SeverityHigh:    high,
		SeverityMedium:  medium,
		SeverityLow:     low,
		Details:         fmt.Sprintf("semgrep found %d issues (high=%d, medium=%d, low=%d)", total, high, medium, low),
	}, nil
}

// TrivyScanner runs trivy filesystem scanning for dependency CVEs when
// the binary is installed.
type TrivyScanner struct{}

func (TrivyScanner) Name() string { return "trivy" }

func (s TrivyScanner) Scan(ctx context.Context, repoPath string) (catalog.ScanResult, error) {
	if _, err := exec.LookPath("trivy"); err != nil {
		return catalog.ScanResult{Tool: "trivy", Details: "trivy not installed, skipped"}, nil
	}

	out, err := runTool(ctx, "trivy", "fs", "--format", "json", repoPath)
	if err != nil {
		return catalog.ScanResult{Tool: "trivy", Details: err.Error()}, nil
	}

	var output struct {
		Results []struct {
			Vulnerabilities []struct {
				Severity string `json:"Severity"`
			} `json:"Vulnerabilities"`
		} `json:"Results"`
	}
	if err := json.Unmarshal(out, &output); err != nil {
		return catalog.ScanResult{Tool: "trivy", Details: fmt.Sprintf("trivy output parse failed: %v", err)}, nil
	}

	var high, medium, low int
	for _, target := range output.Results {
		for _, vuln := range target.Vulnerabilities {
			switch strings.ToUpper(vuln.Severity) {
			case "CRITICAL", "HIGH":
				high++
			case "MEDIUM":
				medium++
			case "LOW", "UNKNOWN":
				low++
			}
		}
	}

	total := high + medium + low
	return catalog.ScanResult{
		Tool:            "trivy",
		Vulnerabilities: total,
		SeverityHigh:    high,
		SeverityMedium:  medium,
		SeverityLow:     low,
		Details:         fmt.Sprintf("trivy found %d CVEs (high=%d, medium=%d, low=%d)", total, high, medium, low),
	}, nil
}
