package analyzer

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstore/agentstore/internal/catalog"
)

// maxOneLinerLen caps one_liner regardless of what the model returns.
const maxOneLinerLen = 80

// Pre-compiled patterns for response cleanup. Models wrap JSON in code
// fences, leave trailing commas, or pad the object with prose.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// parseResponse turns a raw model reply into an AnalysisResult. Strategy
// sequence: direct parse, fence removal, trailing-comma cleanup, object
// extraction from mixed content. When every strategy fails the zero
// result is returned so scoring treats the entry as unanalyzed.
func parseResponse(raw string) catalog.AnalysisResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return catalog.AnalysisResult{}
	}

	candidates := []string{trimmed}
	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	last := candidates[len(candidates)-1]
	cleaned := strings.TrimSpace(trailingCommaRegex.ReplaceAllString(last, "$1"))
	if cleaned != last {
		candidates = append(candidates, cleaned)
	}
	if extracted := objectRegex.FindString(cleaned); extracted != "" && extracted != cleaned {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var fields map[string]any
		if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
			continue
		}
		return catalog.AnalysisResult{
			ReliabilityScore:   toFloat(fields["reliability_score"]),
			SafetyScore:        toFloat(fields["safety_score"]),
			CapabilityScore:    toFloat(fields["capability_score"]),
			UsabilityScore:     toFloat(fields["usability_score"]),
			Summary:            toString(fields["summary"]),
			OneLiner:           truncate(toString(fields["one_liner"]), maxOneLinerLen),
			InstallGuide:       toString(fields["install_guide"]),
			UsageGuide:         toString(fields["usage_guide"]),
			SafetyNotes:        toString(fields["safety_notes"]),
			CategorySuggestion: toString(fields["category_suggestion"]),
		}
	}

	slog.Debug("model response did not parse as JSON", "preview", truncate(trimmed, 120))
	return catalog.AnalysisResult{}
}

// toFloat coerces the loosely-typed values models emit for scores.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at maxLen characters without splitting a multi-byte
// rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
