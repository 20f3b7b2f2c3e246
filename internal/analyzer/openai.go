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

const openAIModel = "gpt-4o-mini"

// OpenAIAnalyzer evaluates capabilities through the OpenAI chat
// completions endpoint.
type OpenAIAnalyzer struct {
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client

	apiKey string
	model  string
}

func NewOpenAIAnalyzer(apiKey string) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		BaseURL: "https://api.openai.com/v1",
		apiKey:  apiKey,
		model:   openAIModel,
	}
}

func (a *OpenAIAnalyzer) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, name, readme, description string) (catalog.AnalysisResult, error) {
	body, err := json.Marshal(map[string]any{
		"model":      a.model,
		"max_tokens": 1500,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(name, readme, description, maxReadmeChars)},
		},
	})
	if err != nil {
		return catalog.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return catalog.AnalysisResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return catalog.AnalysisResult{}, fmt.Errorf("openai API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.AnalysisResult{}, fmt.Errorf("openai API returned %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return catalog.AnalysisResult{}, fmt.Errorf("decoding openai response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return catalog.AnalysisResult{}, fmt.Errorf("openai response has no choices")
	}

	return parseResponse(payload.Choices[0].Message.Content), nil
}

func (a *OpenAIAnalyzer) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}
