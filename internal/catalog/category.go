package catalog

import "strings"

// StandardCategories maps category keys to their display names. The key set
// is shared with the frontend's category filter.
var StandardCategories = map[string]string{
	"development":   "Development",
	"data":          "Data & Database",
	"web":           "Web & Search",
	"productivity":  "Productivity",
	"ai":            "AI & LLM",
	"media":         "Design & Media",
	"trading":       "Trading & Finance",
	"communication": "Communication",
}

// categoryAliases maps known nonstandard category names to standard keys.
var categoryAliases = map[string]string{
	"health":        "data",
	"healthcare":    "data",
	"cloud storage": "data",
	"video":         "media",
	"automation":    "productivity",
}

// keywordRules are fuzzy-match fallbacks, checked in order. The more
// specific buckets come first so e.g. "video" lands in media, not web.
var keywordRules = []struct {
	keywords []string
	target   string
}{
	{[]string{"art", "music", "video", "image", "design", "photo", "media", "creative"}, "media"},
	{[]string{"trade", "finance", "crypto", "bitcoin", "exchange", "payment", "money"}, "trading"},
	{[]string{"chat", "email", "message", "social", "slack", "discord", "telegram"}, "communication"},
	{[]string{"search", "browser", "scrape", "crawl", "http", "url", "web"}, "web"},
	{[]string{"database", "sql", "storage", "analytics", "data"}, "data"},
	{[]string{"llm", "machine learning", "neural", "gpt", "openai", "anthropic"}, "ai"},
	{[]string{"calendar", "todo", "note", "task", "workflow", "automat"}, "productivity"},
	{[]string{"code", "dev", "git", "docker", "deploy", "ci", "test"}, "development"},
}

// CleanCategory normalizes a raw category name to one of the standard keys.
// Strategy: exact standard match, then alias table, then keyword fuzzy
// match, then fall back to "development".
func CleanCategory(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	if _, ok := StandardCategories[normalized]; ok {
		return normalized
	}
	if mapped, ok := categoryAliases[normalized]; ok {
		return mapped
	}

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.target
			}
		}
	}

	return "development"
}
