package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ─── Priority score ───────────────────────────────────────────────────────────

// LeadProfile is the slice of a row the scorer reads.
type LeadProfile struct {
	JobTitle    string
	Seniority   string
	Department  string
	Industry    string
	CompanySize string
}

type PriorityScore struct {
	Score  int    `json:"priority_score"`
	Reason string `json:"reason"`
}

const priorityPrompt = `You are an expert assistant for prioritizing B2B leads for a campaign.
Campaign description: %s

Assign a priority score (0-100) and explain your reasoning based on the lead's job title, department and company size.

Company Size 1-50: primary CEO, Founder, Co-Founder, Owner; secondary Director, Head of, VP; exclude Intern, Assistant; all departments.
Company Size 51-100: primary CEO, Founder, Co-Founder, VP; secondary Director, Head of, Senior Manager; exclude Analyst, Coordinator; all departments.
Company Size 101-200: primary Director, VP, Head of; secondary Senior Manager, Manager; exclude CEO, Founder, Analyst; target Sales, Marketing, Operations, Growth; exclude HR, Legal, Finance, Accounting.
Company Size 201-500: primary Director, Head of, Senior Director; secondary VP, Senior Manager; exclude CEO, President, Analyst; same departments as above.
Company Size 501-1000: primary Senior Manager, Director, Head of; secondary Manager, Senior Director; exclude VP, CEO, President; same departments as above.
Company Size 1000+: handled by ABM; return a low score (0-10) and say ABM is more appropriate.

Reply with JSON only: {"priority_score": <int 0-100>, "reason": "<one or two sentences>"}`

// PriorityScorer asks the LLM how promising a lead is for the campaign.
type PriorityScorer struct {
	LLM      Asker
	Attempts int
}

// Score returns the LLM's score, clamped to 0..100. On failure the score is
// 0 with an empty reason, alongside the error.
func (s *PriorityScorer) Score(ctx context.Context, campaign string, lead LeadProfile) (PriorityScore, error) {
	if s.LLM == nil {
		return PriorityScore{}, ErrLLMNotConfigured
	}
	user := fmt.Sprintf("Evaluate the following lead:\n\nJob Title: %s\nSeniority: %s\nDepartment: %s\nIndustry: %s\nCompany Size: %s\n",
		lead.JobTitle, lead.Seniority, lead.Department, lead.Industry, lead.CompanySize)

	var out PriorityScore
	err := retry(ctx, "Priority", attemptsOr(s.Attempts, 3), 0, func() error {
		reply, err := s.LLM.Ask(ctx, fmt.Sprintf(priorityPrompt, campaign), user)
		if err != nil {
			return err
		}
		parsed, err := parsePriority(reply)
		if err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		return PriorityScore{}, fmt.Errorf("unable to get priority score: %w", err)
	}
	return out, nil
}

func parsePriority(reply string) (PriorityScore, error) {
	raw := jsonObject(reply)
	if raw == "" {
		return PriorityScore{}, errors.New("no json object in reply")
	}
	var loose struct {
		Score  json.Number `json:"priority_score"`
		Reason string      `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return PriorityScore{}, fmt.Errorf("decode priority: %w", err)
	}
	f, err := strconv.ParseFloat(loose.Score.String(), 64)
	if err != nil {
		return PriorityScore{}, fmt.Errorf("priority_score %q: %w", loose.Score, err)
	}
	score := int(math.Round(math.Max(0, math.Min(100, f))))
	return PriorityScore{Score: score, Reason: strings.TrimSpace(loose.Reason)}, nil
}

// ─── Ice breakers ─────────────────────────────────────────────────────────────

type IceBreakers struct {
	Options  string
	Selected string
	Reason   string
}

const iceBreakerSystem = `You write authentic peer-to-peer compliments for B2B outreach that sound like genuine industry recognition.
- Casual, conversational tone, no sales language, no questions or asks.
- Combine multiple impressive facts into one observation, under 20 words.
- No exclamation marks. Do not start with "I" or use first person.
- ONLY use facts from the provided summaries; never invent numbers, locations or achievements.
- Refer to the company by a humanised short name (1-2 words).`

const iceBreakerUser = `Website Summary:
%s

LinkedIn Summary:
%s

Write 3 compliment variations: option1 on scale/operations, option2 on strategic positioning, option3 on execution/results.
Pick the one that shows the deepest industry understanding.
Reply with JSON only: {"option1": "...", "option2": "...", "option3": "...", "selected": "option1|option2|option3", "reason": "..."}`

type IceBreakerWriter struct {
	LLM      Asker
	Attempts int
}

func (w *IceBreakerWriter) Write(ctx context.Context, websiteSummary, linkedinSummary string) (IceBreakers, error) {
	if w.LLM == nil {
		return IceBreakers{}, ErrLLMNotConfigured
	}
	var out IceBreakers
	err := retry(ctx, "IceBreakers", attemptsOr(w.Attempts, 3), 0, func() error {
		reply, err := w.LLM.Ask(ctx, iceBreakerSystem, fmt.Sprintf(iceBreakerUser, websiteSummary, linkedinSummary))
		if err != nil {
			return err
		}
		parsed, err := parseIceBreakers(reply)
		if err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		return IceBreakers{}, fmt.Errorf("unable to get ice breakers: %w", err)
	}
	return out, nil
}

func parseIceBreakers(reply string) (IceBreakers, error) {
	raw := jsonObject(reply)
	if raw == "" {
		return IceBreakers{}, errors.New("no json object in reply")
	}
	var r struct {
		Option1  string `json:"option1"`
		Option2  string `json:"option2"`
		Option3  string `json:"option3"`
		Selected string `json:"selected"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return IceBreakers{}, fmt.Errorf("decode ice breakers: %w", err)
	}
	if r.Option1 == "" && r.Option2 == "" && r.Option3 == "" {
		return IceBreakers{}, errors.New("empty ice breakers")
	}

	// "selected" names an option key; older prompts returned the text itself.
	selected := r.Selected
	switch strings.ToLower(strings.TrimSpace(r.Selected)) {
	case "option1":
		selected = r.Option1
	case "option2":
		selected = r.Option2
	case "option3":
		selected = r.Option3
	}
	return IceBreakers{
		Options:  fmt.Sprintf("1.%s \n 2.%s \n 3.%s", r.Option1, r.Option2, r.Option3),
		Selected: selected,
		Reason:   r.Reason,
	}, nil
}
