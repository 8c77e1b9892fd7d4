package services

import (
	"context"
	"errors"
	"strings"
)

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *LLMRouter) askOpenAI(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	payload := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: strings.TrimSpace(userPrompt)},
		},
		Temperature: 0.3,
	}

	url := endpoint(r.keys.OpenAIURL, "https://api.openai.com") + "/v1/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + r.keys.OpenAIKey}

	var data openAIResponse
	if err := doJSON(ctx, r.Client, r.Limiter, "OpenAI", "POST", url, headers, payload, &data); err != nil {
		return "", err
	}
	if data.Error != nil {
		return "", errors.New("OpenAI: " + data.Error.Message)
	}
	if len(data.Choices) == 0 {
		return "", errors.New("OpenAI: empty reply")
	}
	return strings.TrimSpace(data.Choices[0].Message.Content), nil
}
