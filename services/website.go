package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Summarizer turns a company website into an outreach-ready summary.
type Summarizer interface {
	Summarize(ctx context.Context, websiteURL string) (string, error)
}

const summaryBrief = `You are an expert business analyst.
Given a company's website content, generate a clear, structured company summary for professional outreach. Keep it concise and factual.
FORMAT TO FOLLOW:
COMPANY: [Company Name] - [Brief description: what the company is, what it does].
Industry: [Industry name].
Size/Locations: [Estimated size, revenue or AUM if relevant, and geographic focus or HQ].
SERVICES: [What products/services the company provides].
Target customers: [Type of clients the company serves].
Geographic reach: [Where they operate].
BUSINESS: Revenue model: [How the company makes money].
Key achievements/metrics: [Any measurable accomplishments].
Recent developments: [Recent fundraising, partnerships, product launches, etc.].
OUTREACH ANGLES:
Challenge: [A possible problem or opportunity the company might be facing].
Growth: [How your solution can help them grow, scale, or optimize].
Advantage: [A unique strength you/your firm offers that fits their goals].
Make sure all information is fact-based, and infer only when context clearly allows.`

var errBadSummary = errors.New("summary not in the required format")

// validSummary mirrors the format contract: the structured summary always
// opens its first section with "COMPANY".
func validSummary(s string) bool { return strings.Contains(s, "COMPANY") }

// ─── Exa contents API ─────────────────────────────────────────────────────────

type ExaSummarizer struct {
	APIKey   string
	BaseURL  string
	Attempts int
	Backoff  time.Duration
	Client   *http.Client
	Limiter  *HostLimiter
}

type exaRequest struct {
	URLs    []string `json:"urls"`
	Text    bool     `json:"text"`
	Summary struct {
		Query string `json:"query"`
	} `json:"summary"`
}

type exaResponse struct {
	Results []struct {
		Summary string `json:"summary"`
	} `json:"results"`
}

func (e *ExaSummarizer) Summarize(ctx context.Context, websiteURL string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("exa api key not set")
	}
	payload := exaRequest{URLs: []string{websiteURL}, Text: true}
	payload.Summary.Query = summaryBrief
	u := endpoint(e.BaseURL, "https://api.exa.ai") + "/contents"

	var summary string
	err := retry(ctx, "Exa", attemptsOr(e.Attempts, 3), e.Backoff, func() error {
		var out exaResponse
		if err := doJSON(ctx, e.Client, e.Limiter, "Exa", "POST", u, map[string]string{"x-api-key": e.APIKey}, payload, &out); err != nil {
			return err
		}
		if len(out.Results) == 0 || !validSummary(out.Results[0].Summary) {
			return errBadSummary
		}
		summary = out.Results[0].Summary
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get a valid summary: %w", err)
	}
	return summary, nil
}

// ─── Homepage scrape + LLM ────────────────────────────────────────────────────

var spaceRe = regexp.MustCompile(`\s+`)

// ScrapeSummarizer reads the homepage text with goquery and asks the LLM to
// write the summary. Used when no Exa key is configured.
type ScrapeSummarizer struct {
	LLM      Asker
	Attempts int
	Client   *http.Client
	Limiter  *HostLimiter
	MaxChars int
}

func (s *ScrapeSummarizer) Summarize(ctx context.Context, websiteURL string) (string, error) {
	text, err := s.homepageText(ctx, websiteURL)
	if err != nil {
		return "", err
	}
	if s.LLM == nil {
		return "", ErrLLMNotConfigured
	}

	var summary string
	err = retry(ctx, "Scrape", attemptsOr(s.Attempts, 3), 0, func() error {
		reply, err := s.LLM.Ask(ctx, summaryBrief, fmt.Sprintf("Website: %s\n\nExtracted homepage text:\n%s", websiteURL, text))
		if err != nil {
			return err
		}
		if !validSummary(reply) {
			return errBadSummary
		}
		summary = strings.TrimSpace(reply)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get a valid summary: %w", err)
	}
	return summary, nil
}

func (s *ScrapeSummarizer) homepageText(ctx context.Context, websiteURL string) (string, error) {
	target := strings.TrimSpace(websiteURL)
	if target == "" || target == "-" {
		return "", errors.New("no company website")
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	if err := s.Limiter.WaitURL(ctx, target); err != nil {
		return "", err
	}

	client := s.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return "", err
	}
	// Mimic a real browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed fetching %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned HTTP status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	parts := []string{strings.TrimSpace(doc.Find("title").First().Text())}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		parts = append(parts, desc)
	}
	parts = append(parts, doc.Find("body").Text())
	text := strings.TrimSpace(spaceRe.ReplaceAllString(strings.Join(parts, " "), " "))

	limit := s.MaxChars
	if limit <= 0 {
		limit = 8000
	}
	if len(text) > limit {
		text = text[:limit]
	}
	if text == "" {
		return "", fmt.Errorf("%s has no readable text", target)
	}
	return text, nil
}
