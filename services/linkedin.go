package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CompanyProfile is what the LinkedIn company lookup yields.
type CompanyProfile struct {
	Description string
	Employees   string
}

// LinkedInProfiler fetches a company's description and headcount from its
// LinkedIn page through the RapidAPI linkedin-company-info endpoint.
type LinkedInProfiler struct {
	APIKey   string
	BaseURL  string
	Attempts int
	Backoff  time.Duration
	Client   *http.Client
	Limiter  *HostLimiter
}

type linkedInReply struct {
	CompanyInfo struct {
		Description string `json:"Company Description"`
		Employees   any    `json:"Number of Employees"`
	} `json:"Company Info"`
}

// Profile retries until both description and headcount come back.
func (p *LinkedInProfiler) Profile(ctx context.Context, linkedinURL string) (CompanyProfile, error) {
	linkedinURL = strings.TrimSpace(linkedinURL)
	if linkedinURL == "" || linkedinURL == "-" {
		return CompanyProfile{}, errors.New("no company linkedin url")
	}
	if p.APIKey == "" {
		return CompanyProfile{}, errors.New("linkedin profiler key not set")
	}

	u := endpoint(p.BaseURL, "https://"+rapidAPIHost) + "/linkedin-company-info"
	headers := map[string]string{
		"x-rapidapi-key":  p.APIKey,
		"x-rapidapi-host": rapidAPIHost,
	}

	var profile CompanyProfile
	err := retry(ctx, "LinkedIn", attemptsOr(p.Attempts, 2), p.Backoff, func() error {
		var replies []linkedInReply
		if err := doJSON(ctx, p.Client, p.Limiter, "LinkedIn", "POST", u, headers, map[string]string{"url": linkedinURL}, &replies); err != nil {
			return err
		}
		if len(replies) == 0 {
			return errors.New("empty reply")
		}
		info := replies[0].CompanyInfo
		employees := employeesString(info.Employees)
		if info.Description == "" || employees == "" {
			return errors.New("incomplete company data")
		}
		profile = CompanyProfile{Description: info.Description, Employees: employees}
		return nil
	})
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("unable to get linkedin data: %w", err)
	}
	return profile, nil
}

// The endpoint reports headcount as a number or a string depending on the
// page.
func employeesString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.0f", n)
	case string:
		return strings.TrimSpace(n)
	default:
		return fmt.Sprint(n)
	}
}
