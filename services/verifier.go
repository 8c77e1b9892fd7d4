package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

const rapidAPIHost = "commande-center.p.rapidapi.com"

// EmailCheck is the verifier's verdict on one address.
type EmailCheck struct {
	Status   string // "valid", "invalid", "risky", ...
	Provider string // "gmail", "outlook", "no_provider", ...
}

func (c EmailCheck) Valid() bool { return strings.EqualFold(c.Status, "valid") }

// EmailVerifier checks deliverability and detects the mailbox provider via
// the RapidAPI email-verifier endpoint.
type EmailVerifier struct {
	APIKey   string
	BaseURL  string
	Attempts int
	Backoff  time.Duration
	Client   *http.Client
	Limiter  *HostLimiter
}

type verifierReply struct {
	Status        string `json:"status"`
	EmailProvider string `json:"email_provider"`
}

// Verify returns the verifier's verdict. When every attempt fails it still
// returns a usable check (status "-", provider "unknown") together with the
// error, so the lead stays in the sheet and is later marked unbatchable.
func (v *EmailVerifier) Verify(ctx context.Context, email string) (EmailCheck, error) {
	failed := EmailCheck{Status: "-", Provider: batching.ProviderUnknown}
	if strings.TrimSpace(email) == "" {
		return failed, errors.New("no email address")
	}
	if v.APIKey == "" {
		return failed, errors.New("email verifier key not set")
	}

	u := endpoint(v.BaseURL, "https://"+rapidAPIHost) + "/email-verifier?email=" + url.QueryEscape(strings.TrimSpace(email))
	headers := map[string]string{
		"x-rapidapi-key":  v.APIKey,
		"x-rapidapi-host": rapidAPIHost,
	}

	var check EmailCheck
	err := retry(ctx, "Verifier", attemptsOr(v.Attempts, 3), v.Backoff, func() error {
		var replies []verifierReply
		if err := doJSON(ctx, v.Client, v.Limiter, "EmailVerifier", "GET", u, headers, nil, &replies); err != nil {
			return err
		}
		if len(replies) == 0 {
			return errors.New("empty verifier reply")
		}
		check = EmailCheck{Status: replies[0].Status, Provider: strings.TrimSpace(replies[0].EmailProvider)}
		if check.Provider == "" {
			check.Provider = batching.ProviderUnknown
		}
		return nil
	})
	if err != nil {
		return failed, fmt.Errorf("unable to verify email: %w", err)
	}
	return check, nil
}

func attemptsOr(n, d int) int {
	if n > 0 {
		return n
	}
	return d
}
