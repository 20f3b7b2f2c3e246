package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentstore/agentstore/internal/catalog"
)

// OllamaAnalyzer evaluates capabilities with a locally hosted model via
// the Ollama chat API. READMEs are truncated harder than for hosted
// providers since local context windows are small.
type OllamaAnalyzer struct {
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client

	baseURL string
	model   string
}

func NewOllamaAnalyzer(model, baseURL string) *OllamaAnalyzer {
	return &OllamaAnalyzer{
		baseURL: baseURL,
		model:   model,
	}
}

func (a *OllamaAnalyzer) Name() string { return "ollama" }

func (a *OllamaAnalyzer) Analyze(ctx context.Context, name, readme, description string) (catalog.AnalysisResult, error) {
	body, err := json.Marshal(map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(name, readme, description, maxReadmeCharsLocal)},
		},
	})
	if err != nil {
		return catalog.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return catalog.AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return catalog.AnalysisResult{}, fmt.Errorf("ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.AnalysisResult{}, fmt.Errorf("ollama API returned %d", resp.StatusCode)
	}

	var payload struct {
		Message chatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return catalog.AnalysisResult{}, fmt.Errorf("decoding ollama response: %w", err)
	}

	return parseResponse(payload.Message.Content), nil
}

func (a *OllamaAnalyzer) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}
