package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
)

var ErrLLMNotConfigured = errors.New("llm provider has no api key")

// Asker is anything that can answer a system + user prompt.
type Asker interface {
	Ask(ctx context.Context, system, user string) (string, error)
}

// LLMConfig selects the active provider and carries every provider's key.
// The *URL fields override the public endpoints (tests, proxies).
type LLMConfig struct {
	Provider     string
	Model        string
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
	OpenAIURL    string
	AnthropicURL string
	GeminiURL    string
}

// ─── Active LLM config ────────────────────────────────────────────────────────

// LLMRouter is the single call-site for all LLM usage. It routes to OpenAI,
// Gemini or Claude based on the active provider, which may be switched at
// runtime.
type LLMRouter struct {
	mu       sync.RWMutex
	provider string
	model    string

	keys    LLMConfig
	Client  *http.Client
	Limiter *HostLimiter
}

func NewLLMRouter(cfg LLMConfig) *LLMRouter {
	r := &LLMRouter{keys: cfg, provider: "openai"}
	if cfg.Provider != "" {
		r.provider = strings.ToLower(cfg.Provider)
	}
	r.model = cfg.Model
	return r
}

// Set updates the active provider and model.
func (r *LLMRouter) Set(provider, model string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", provider)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = provider
	r.model = model
	log.Printf("[LLM] Provider set to %s / %s", provider, model)
	return nil
}

// Get returns the currently configured provider and model.
func (r *LLMRouter) Get() (provider, model string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.provider, r.model
}

// WithOpenAIKey returns a copy that uses key for OpenAI calls. Requests may
// carry their own key; the router's runtime selection is kept.
func (r *LLMRouter) WithOpenAIKey(key string) *LLMRouter {
	if key == "" {
		return r
	}
	provider, model := r.Get()
	cfg := r.keys
	cfg.OpenAIKey = key
	return &LLMRouter{keys: cfg, provider: provider, model: model, Client: r.Client, Limiter: r.Limiter}
}

// Configured reports whether the active provider has a key.
func (r *LLMRouter) Configured() bool {
	provider, _ := r.Get()
	return r.keyFor(provider) != ""
}

func (r *LLMRouter) keyFor(provider string) string {
	switch provider {
	case "gemini":
		return r.keys.GeminiKey
	case "anthropic":
		return r.keys.AnthropicKey
	default:
		return r.keys.OpenAIKey
	}
}

func (r *LLMRouter) Ask(ctx context.Context, system, user string) (string, error) {
	provider, model := r.Get()
	if r.keyFor(provider) == "" {
		return "", fmt.Errorf("%w: %s", ErrLLMNotConfigured, provider)
	}
	log.Printf("[LLM] Calling %s/%s", provider, model)

	switch provider {
	case "gemini":
		return r.askGemini(ctx, model, system, user)
	case "anthropic":
		return r.askClaude(ctx, model, system, user)
	default:
		return r.askOpenAI(ctx, model, system, user)
	}
}

func endpoint(override, fallback string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	return fallback
}
