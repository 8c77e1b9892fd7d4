package services

import (
	"net/http"
	"time"

	"github.com/tadeyemo32/outreach-batcher/models"
)

// Toolkit holds the server-wide credentials and clients the enrichment
// collaborators are built from.
type Toolkit struct {
	LLM         *LLMRouter
	RapidAPIKey string
	RapidAPIURL string
	ExaKey      string
	ExaURL      string
	Client      *http.Client
	Limiter     *HostLimiter
	Backoff     time.Duration
	Pipeline    PipelineConfig
}

// NewPipeline wires a Pipeline for one request. Keys carried by the request
// win over the server's.
func (k *Toolkit) NewPipeline(req models.PersonalizedSheetRequest) *Pipeline {
	rapidKey := firstNonEmpty(req.SSMastersKey, k.RapidAPIKey)
	exaKey := firstNonEmpty(req.ExaAPIKey, k.ExaKey)

	var llm Asker
	if k.LLM != nil {
		router := k.LLM.WithOpenAIKey(req.OpenAIKey)
		if router.Configured() {
			llm = router
		}
	}

	var summarizer Summarizer = &ScrapeSummarizer{LLM: llm, Client: k.Client, Limiter: k.Limiter}
	if exaKey != "" {
		summarizer = &ExaSummarizer{APIKey: exaKey, BaseURL: k.ExaURL, Backoff: k.Backoff, Client: k.Client, Limiter: k.Limiter}
	}

	cfg := k.Pipeline
	cfg.ProceedOnInvalidEmail = cfg.ProceedOnInvalidEmail || req.ProceedOnInvalidEmail

	return &Pipeline{
		Columns:    &ColumnMapper{LLM: llm},
		Verifier:   &EmailVerifier{APIKey: rapidKey, BaseURL: k.RapidAPIURL, Backoff: k.Backoff, Client: k.Client, Limiter: k.Limiter},
		Profiler:   &LinkedInProfiler{APIKey: rapidKey, BaseURL: k.RapidAPIURL, Backoff: k.Backoff, Client: k.Client, Limiter: k.Limiter},
		Summarizer: summarizer,
		Scorer:     &PriorityScorer{LLM: llm},
		IceBreaker: &IceBreakerWriter{LLM: llm},
		Config:     cfg,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
