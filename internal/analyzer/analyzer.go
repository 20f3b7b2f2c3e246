// Package analyzer scores capabilities with an AI model.
//
// Three providers are supported (anthropic, openai, ollama), selected by
// configuration. Every provider receives the same rubric prompt and is
// expected to answer with a JSON object; responses are parsed defensively
// since models wrap JSON in fences or prose more often than not.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/agentstore/agentstore/internal/catalog"
	"github.com/agentstore/agentstore/internal/config"
)

// maxConcurrentAnalyses caps in-flight model calls across a batch.
const maxConcurrentAnalyses = 5

// Analyzer evaluates one capability from its name, README and short
// description.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, name, readme, description string) (catalog.AnalysisResult, error)
}

// New builds the analyzer selected by cfg.AIProvider.
func New(cfg *config.Config) (Analyzer, error) {
	switch cfg.AIProvider {
	case config.ProviderAnthropic:
		return NewAnthropicAnalyzer(cfg.AnthropicAPIKey), nil
	case config.ProviderOpenAI:
		return NewOpenAIAnalyzer(cfg.OpenAIAPIKey), nil
	case config.ProviderOllama:
		return NewOllamaAnalyzer(cfg.OllamaModel, cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %q", cfg.AIProvider)
	}
}

// AnalyzeAll runs the analyzer over every entry concurrently, pairing
// entries with their collected repository data by position. A failed call
// degrades to a zero result for that entry so one flaky response cannot
// sink the batch.
func AnalyzeAll(ctx context.Context, a Analyzer, entries []catalog.CapabilityEntry, repos []catalog.RepoData) []catalog.AnalysisResult {
	results := make([]catalog.AnalysisResult, len(entries))
	sem := semaphore.NewWeighted(maxConcurrentAnalyses)

	done := make(chan struct{}, len(entries))
	for i, entry := range entries {
		go func(i int, entry catalog.CapabilityEntry) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("analysis panicked", "analyzer", a.Name(), "name", entry.Name, "panic", r)
				}
				done <- struct{}{}
			}()

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			var readme string
			if i < len(repos) {
				readme = repos[i].ReadmeText
			}
			result, err := a.Analyze(ctx, entry.Name, readme, entry.Description)
			if err != nil {
				slog.Warn("analysis failed", "analyzer", a.Name(), "name", entry.Name, "error", err)
				return
			}
			results[i] = result
		}(i, entry)
	}
	for range entries {
		<-done
	}

	return results
}
