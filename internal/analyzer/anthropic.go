package analyzer

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentstore/agentstore/internal/catalog"
)

const anthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicAnalyzer evaluates capabilities with the Anthropic Messages
// API.
type AnthropicAnalyzer struct {
	client anthropic.Client
	model  string
}

func NewAnthropicAnalyzer(apiKey string) *AnthropicAnalyzer {
	return &AnthropicAnalyzer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropicModel,
	}
}

func (a *AnthropicAnalyzer) Name() string { return "anthropic" }

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, name, readme, description string) (catalog.AnalysisResult, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1500,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(name, readme, description, maxReadmeChars))),
		},
	})
	if err != nil {
		return catalog.AnalysisResult{}, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	return parseResponse(responseText), nil
}
