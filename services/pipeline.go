package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

// Columns appended by the enrichment pipeline.
const (
	ColEmailValid         = "Email Valid"
	ColEmailProviders     = "Email Providers"
	ColWebsiteSummary     = "Exa Website Summary"
	ColLinkedInData       = "Company LinkedIn data "
	ColLinkedInEmployees  = "Number of employees (LinkedIn)"
	ColIceBreakerOptions  = "Ice Breakers Options"
	ColIceBreakerSelected = "Ice Breaker Selected"
	ColIceBreakerReason   = "Ice Breaker Selection Reason"
	ColPriorityScore      = "Priority Score"
	ColPriorityReason     = "Priority Score Reason"
	ColErrorLog           = "Error Log"
)

type EmailChecker interface {
	Verify(ctx context.Context, email string) (EmailCheck, error)
}

type CompanyProfiler interface {
	Profile(ctx context.Context, linkedinURL string) (CompanyProfile, error)
}

type LeadScorer interface {
	Score(ctx context.Context, campaign string, lead LeadProfile) (PriorityScore, error)
}

type IceBreakerSource interface {
	Write(ctx context.Context, websiteSummary, linkedinSummary string) (IceBreakers, error)
}

// PipelineConfig bounds one enrichment run. The pause keeps the third-party
// APIs under their per-minute quotas.
type PipelineConfig struct {
	MaxRows               int           `yaml:"max_rows"`
	RowsPerPause          int           `yaml:"rows_per_pause"`
	Pause                 time.Duration `yaml:"pause"`
	ProceedOnInvalidEmail bool          `yaml:"proceed_on_invalid_email"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{MaxRows: 100, RowsPerPause: 5, Pause: 20 * time.Second}
}

// Pipeline enriches a lead sheet row by row: email verification, website
// summary and LinkedIn profile, ice breakers, then a priority score.
type Pipeline struct {
	Columns    *ColumnMapper
	Verifier   EmailChecker
	Profiler   CompanyProfiler
	Summarizer Summarizer
	Scorer     LeadScorer
	IceBreaker IceBreakerSource
	Config     PipelineConfig

	sleep func(ctx context.Context, d time.Duration) error
}

type lookup struct {
	Text      string
	Employees string
}

// Enrich returns a copy of the first MaxRows rows of t with the enrichment
// columns appended and every blank cell set to "-". Per-row failures are
// recorded in the Error Log column and never abort the run.
func (p *Pipeline) Enrich(ctx context.Context, t *batching.Table, cols ColumnMap, campaign string) (*batching.Table, error) {
	cfg := p.Config
	out := t.Head(cfg.MaxRows)
	n := out.Len()
	log.Printf("[Pipeline] Enriching %d rows", n)

	valid := make([]string, n)
	providers := make([]string, n)
	summaries := make([]string, n)
	profiles := make([]string, n)
	employees := make([]string, n)
	options := make([]string, n)
	selected := make([]string, n)
	selectedWhy := make([]string, n)
	scores := make([]string, n)
	scoreWhy := make([]string, n)
	errorLog := make([]string, n)

	websites := NewMemoCache[lookup](0)
	companies := NewMemoCache[lookup](0)

	cell := func(row []string, field string) string {
		idx := out.Index(cols[field])
		if idx < 0 {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for i, row := range out.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var errs []string
		logErr := func(err error) {
			if err != nil {
				errs = append(errs, err.Error())
			}
		}

		check, err := p.Verifier.Verify(ctx, cell(row, FieldEmail))
		logErr(err)
		valid[i] = check.Status
		providers[i] = check.Provider

		if check.Valid() || cfg.ProceedOnInvalidEmail {
			website := cell(row, FieldCompanyWebsite)
			linkedin := cell(row, FieldCompanyLinkedIn)

			site, siteCached := websites.Get(website)
			company, companyCached := companies.Get(linkedin)

			var siteErr, companyErr error
			var g errgroup.Group
			if !siteCached {
				g.Go(func() error {
					text, err := p.Summarizer.Summarize(ctx, website)
					site, siteErr = lookup{Text: text}, err
					return nil
				})
			}
			if !companyCached {
				g.Go(func() error {
					prof, err := p.Profiler.Profile(ctx, linkedin)
					company, companyErr = lookup{Text: prof.Description, Employees: prof.Employees}, err
					return nil
				})
			}
			_ = g.Wait()

			if !siteCached {
				websites.Set(website, site)
				logErr(siteErr)
			}
			if !companyCached {
				companies.Set(linkedin, company)
				logErr(companyErr)
			}
			summaries[i] = site.Text
			profiles[i] = company.Text
			employees[i] = company.Employees

			ib, err := p.IceBreaker.Write(ctx, site.Text, company.Text)
			logErr(err)
			options[i], selected[i], selectedWhy[i] = ib.Options, ib.Selected, ib.Reason

			score, err := p.Scorer.Score(ctx, campaign, LeadProfile{
				JobTitle:    cell(row, FieldJobTitle),
				Seniority:   cell(row, FieldSeniority),
				Department:  cell(row, FieldDepartment),
				Industry:    cell(row, FieldIndustry),
				CompanySize: cell(row, FieldEmployeeCount),
			})
			logErr(err)
			scores[i] = strconv.Itoa(score.Score)
			scoreWhy[i] = score.Reason
		}

		if len(errs) > 0 {
			errorLog[i] = "* " + strings.Join(errs, "\n* ")
			log.Printf("[Pipeline] row %d: %d error(s)", i+1, len(errs))
		}

		if cfg.RowsPerPause > 0 && (i+1)%cfg.RowsPerPause == 0 && i+1 != n {
			log.Printf("[Pipeline] Pausing %s after row %d", cfg.Pause, i+1)
			if err := p.wait(ctx, cfg.Pause); err != nil {
				return nil, err
			}
		}
	}

	out.SetColumn(ColEmailValid, valid)
	out.SetColumn(ColEmailProviders, providers)
	out.SetColumn(ColWebsiteSummary, summaries)
	out.SetColumn(ColLinkedInData, profiles)
	out.SetColumn(ColLinkedInEmployees, employees)
	out.SetColumn(ColIceBreakerOptions, options)
	out.SetColumn(ColIceBreakerSelected, selected)
	out.SetColumn(ColIceBreakerReason, selectedWhy)
	out.SetColumn(ColPriorityScore, scores)
	out.SetColumn(ColPriorityReason, scoreWhy)
	out.SetColumn(ColErrorLog, errorLog)
	out.FillEmpty("-")
	return out, nil
}

func (p *Pipeline) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("pipeline paused: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
