package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ─── Gemini REST API ──────────────────────────────────────────────────────────
// Docs: https://ai.google.dev/api/rest/v1beta/models/generateContent

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *LLMRouter) askGemini(ctx context.Context, model, sysPrompt, userPrompt string) (string, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}

	// The basic REST API has no system role, so the system prompt leads the
	// single user turn.
	payload := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: sysPrompt + "\n\n" + userPrompt}}},
		},
	}
	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		endpoint(r.keys.GeminiURL, "https://generativelanguage.googleapis.com"),
		url.PathEscape(model), url.QueryEscape(r.keys.GeminiKey))

	var result geminiResponse
	if err := doJSON(ctx, r.Client, r.Limiter, "Gemini", "POST", u, nil, payload, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", errors.New("Gemini API error: " + result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("Gemini: empty reply")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
