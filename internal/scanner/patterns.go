package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/agentstore/agentstore/internal/catalog"
)

// maxSecretFileSize skips files unlikely to be source text.
const maxSecretFileSize = 1_000_000

// maxSecretFindings caps the details listing, not the counts.
const maxSecretFindings = 20

type secretPattern struct {
	re    *regexp.Regexp
	label string
}

// Credential-shaped token formats. Matches are screened against
// dummyValueRe before they count as leaks.
var secretPatterns = []secretPattern{
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "OpenAI API Key"},
	{regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`), "GitHub Personal Access Token"},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "AWS Access Key ID"},
	{regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`), "Google API Key"},
	{regexp.MustCompile(`xox[bpas]-[a-zA-Z0-9-]{10,}`), "Slack Token"},
}

// dummyValueRe recognizes placeholders, masked sequences and templated
// env-var syntax so documentation samples do not flag as leaks.
var dummyValueRe = regexp.MustCompile(`(?i)(test|fake|dummy|example|placeholder|xxx|your[_-]|changeme|replace|TODO|` +
	`sk-xxx|sk-your|sk-test|INSERT|REPLACE_ME|<[^>]+>|\$\{|process\.env|os\.getenv|` +
	`\.{3,}|0{8,}|1{8,}|a{8,}|x{8,})`)

// testFileRe skips files whose names mark them as test or mock material.
var testFileRe = regexp.MustCompile(`(?i)(test_|_test\.|\.test\.|\.spec\.|mock|fixture)`)

var skipDirs = map[string]struct{}{
	"node_modules": {}, ".git": {}, "__pycache__": {}, "venv": {}, ".venv": {},
	"dist": {}, "build": {}, "tests": {}, "test": {}, "__tests__": {},
	"spec": {}, "__test__": {}, "fixtures": {}, "mocks": {}, "testdata": {},
	"test_data": {}, "examples": {}, "example": {}, "docs": {},
}

var skipFiles = map[string]struct{}{
	"example.env": {}, ".env.example": {}, ".env.sample": {}, ".env.template": {},
	"config.example.js": {}, "config.sample.js": {},
}

var skipExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".woff": {},
	".woff2": {}, ".ttf": {}, ".eot": {}, ".svg": {}, ".mp3": {}, ".mp4": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bin": {}, ".exe": {}, ".dll": {},
	".so": {}, ".dylib": {}, ".pyc": {}, ".pyo": {}, ".bmp": {}, ".tif": {},
	".tiff": {}, ".webp": {}, ".pdf": {}, ".lock": {},
}

// codeExtensions limits permission detection to source files.
var codeExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {}, ".go": {}, ".rs": {},
}

// permissionPatterns maps each permission category to code patterns that
// imply it. Detection stops at the first match per category per file.
var permissionPatterns = map[string][]*regexp.Regexp{
	"filesystem": compileAll(
		`\bopen\s*\(`, `\bos\.path\b`, `\bos\.listdir\b`,
		`\bos\.remove\b`, `\bos\.mkdir\b`, `\bshutil\b`,
		`\bfs\.\w+Sync\b`, `\bfs\.promises\b`, `\breadFileSync\b`,
		`\bwriteFileSync\b`,
	),
	"network": compileAll(
		`\brequests\.\w+\b`, `\bhttpx\.\w+\b`, `\burllib\b`,
		`\baiohttp\b`, `\bfetch\s*\(`, `\baxios\b`,
		`\bsocket\b`, `\bhttp\.get\b`, `\bhttp\.request\b`,
	),
	"env_vars": compileAll(
		`\bos\.environ\b`, `\bos\.getenv\b`,
		`\bprocess\.env\b`, `\bdotenv\b`,
	),
	"subprocess": compileAll(
		`\bsubprocess\b`, `\bos\.system\b`, `\bos\.popen\b`,
		`\bexec\s*\(`, `\beval\s*\(`, `\bchild_process\b`,
		`\bspawn\s*\(`, `\bexecSync\b`,
	),
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}

// PatternScanner detects leaked credentials and requested permission
// categories by walking the repository tree. It has no external
// dependencies and always runs.
type PatternScanner struct{}

func (PatternScanner) Name() string { return "secret_scanner" }

func (s PatternScanner) Scan(ctx context.Context, repoPath string) (catalog.ScanResult, error) {
	var findings []string
	detected := make(map[string]struct{})

	err := filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if _, skip := skipDirs[name]; skip && path != repoPath {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if _, isCode := codeExtensions[ext]; isCode && len(detected) < len(permissionPatterns) {
			if content, readErr := os.ReadFile(path); readErr == nil {
				detectPermissions(content, detected)
			}
		}

		if _, skip := skipExtensions[ext]; skip {
			return nil
		}
		if _, skip := skipFiles[strings.ToLower(name)]; skip {
			return nil
		}
		if testFileRe.MatchString(name) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxSecretFileSize {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		rel, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			rel = path
		}
		for _, p := range secretPatterns {
			for _, match := range p.re.FindAll(content, -1) {
				if dummyValueRe.Match(match) {
					continue
				}
				findings = append(findings, fmt.Sprintf("[%s] %s", p.label, rel))
				break // one finding per file per pattern
			}
		}
		return nil
	})
	if err != nil {
		return catalog.ScanResult{}, err
	}

	var permissions []string
	if len(detected) > 0 {
		for p := range detected {
			permissions = append(permissions, p)
		}
		sort.Strings(permissions)
	}

	details := "no credential leaks detected"
	if len(findings) > 0 {
		listed := findings
		if len(listed) > maxSecretFindings {
			listed = listed[:maxSecretFindings]
		}
		details = strings.Join(listed, "\n")
	}

	return catalog.ScanResult{
		Tool:            "secret_scanner",
		Vulnerabilities: len(findings),
		SeverityHigh:    len(findings), // leaked credentials count as high severity
		Permissions:     permissions,
		HasAPIKeys:      len(findings) > 0,
		Details:         details,
	}, nil
}

func detectPermissions(content []byte, detected map[string]struct{}) {
	for category, patterns := range permissionPatterns {
		if _, ok := detected[category]; ok {
			continue
		}
		for _, re := range patterns {
			if re.Match(content) {
				detected[category] = struct{}{}
				break
			}
		}
	}
}
