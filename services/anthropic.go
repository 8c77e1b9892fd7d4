package services

import (
	"context"
	"fmt"
)

// ─── Anthropic Claude REST API ────────────────────────────────────────────────
// Docs: https://docs.anthropic.com/en/api/messages

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *LLMRouter) askClaude(ctx context.Context, model, sysPrompt, userPrompt string) (string, error) {
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	payload := claudeRequest{
		Model:     model,
		MaxTokens: 1024,
		System:    sysPrompt,
		Messages:  []claudeMessage{{Role: "user", Content: userPrompt}},
	}
	url := endpoint(r.keys.AnthropicURL, "https://api.anthropic.com") + "/v1/messages"
	headers := map[string]string{
		"x-api-key":         r.keys.AnthropicKey,
		"anthropic-version": "2023-06-01",
	}

	var result claudeResponse
	if err := doJSON(ctx, r.Client, r.Limiter, "Claude", "POST", url, headers, payload, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("Claude API error [%s]: %s", result.Error.Type, result.Error.Message)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("Claude: no text block in reply")
}
