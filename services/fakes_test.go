package services

import (
	"context"
	"errors"
	"sync"
)

// scriptedAsker replays canned replies in order; the last one repeats.
type scriptedAsker struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (a *scriptedAsker) Ask(_ context.Context, system, user string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, user)
	if a.err != nil {
		return "", a.err
	}
	if len(a.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := a.replies[0]
	if len(a.replies) > 1 {
		a.replies = a.replies[1:]
	}
	return reply, nil
}

func (a *scriptedAsker) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.prompts)
}

type fakeVerifier struct {
	checks map[string]EmailCheck
}

func (v *fakeVerifier) Verify(_ context.Context, email string) (EmailCheck, error) {
	if c, ok := v.checks[email]; ok {
		return c, nil
	}
	return EmailCheck{Status: "-", Provider: "unknown"}, errors.New("unable to verify email")
}

// countingLookup serves both the Summarizer and CompanyProfiler roles.
type countingLookup struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCountingLookup() *countingLookup {
	return &countingLookup{calls: map[string]int{}, fail: map[string]bool{}}
}

func (l *countingLookup) hit(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[key]++
	if l.fail[key] {
		return errors.New("unavailable: " + key)
	}
	return nil
}

func (l *countingLookup) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

func (l *countingLookup) Summarize(_ context.Context, websiteURL string) (string, error) {
	if err := l.hit(websiteURL); err != nil {
		return "", err
	}
	return "COMPANY: " + websiteURL, nil
}

func (l *countingLookup) Profile(_ context.Context, linkedinURL string) (CompanyProfile, error) {
	if err := l.hit(linkedinURL); err != nil {
		return CompanyProfile{}, err
	}
	return CompanyProfile{Description: "About " + linkedinURL, Employees: "42"}, nil
}

type fixedScorer struct {
	score int
}

func (s fixedScorer) Score(_ context.Context, campaign string, lead LeadProfile) (PriorityScore, error) {
	return PriorityScore{Score: s.score, Reason: "fits " + campaign}, nil
}

type fixedIceBreakers struct{}

func (fixedIceBreakers) Write(_ context.Context, site, company string) (IceBreakers, error) {
	return IceBreakers{Options: "1.a \n 2.b \n 3.c", Selected: "b", Reason: "sharpest"}, nil
}
