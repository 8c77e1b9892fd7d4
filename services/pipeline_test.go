package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

func leadSheet() *batching.Table {
	return batching.NewTable(
		[]string{"First Name", "Last Name", "Company", "Email", "Title", "Industry", "Website", "Company LinkedIn", "Employees"},
		[][]string{
			{"Ann", "A", "Acme", "ann@acme.com", "CEO", "Software", "acme.com", "linkedin.com/company/acme", "20"},
			{"Bob", "B", "Acme", "bob@acme.com", "VP Sales", "Software", "https://www.acme.com/", "linkedin.com/company/acme", "20"},
			{"Cat", "C", "Beta", "cat@beta.io", "Founder", "Retail", "beta.io", "linkedin.com/company/beta", "60"},
			{"Dan", "D", "Gamma", "dan@gamma.co", "Director", "Retail", "gamma.co", "linkedin.com/company/broken", "150"},
		},
	)
}

type testPipeline struct {
	*Pipeline
	sites   *countingLookup
	company *countingLookup
	pauses  []time.Duration
}

func newTestPipeline(cfg PipelineConfig) *testPipeline {
	tp := &testPipeline{sites: newCountingLookup(), company: newCountingLookup()}
	tp.company.fail["linkedin.com/company/broken"] = true
	tp.Pipeline = &Pipeline{
		Columns: &ColumnMapper{},
		Verifier: &fakeVerifier{checks: map[string]EmailCheck{
			"ann@acme.com": {Status: "valid", Provider: "gmail"},
			"bob@acme.com": {Status: "valid", Provider: "gmail"},
			"cat@beta.io":  {Status: "invalid", Provider: "outlook"},
			"dan@gamma.co": {Status: "valid", Provider: "outlook"},
		}},
		Profiler:   tp.company,
		Summarizer: tp.sites,
		Scorer:     fixedScorer{score: 80},
		IceBreaker: fixedIceBreakers{},
		Config:     cfg,
	}
	tp.Pipeline.sleep = func(_ context.Context, d time.Duration) error {
		tp.pauses = append(tp.pauses, d)
		return nil
	}
	return tp
}

func enrich(t *testing.T, tp *testPipeline) *batching.Table {
	t.Helper()
	table := leadSheet()
	cols, err := tp.Columns.Map(context.Background(), table)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	out, err := tp.Enrich(context.Background(), table, cols, "Retail analytics")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	return out
}

func TestPipelineEnrichesRows(t *testing.T) {
	tp := newTestPipeline(PipelineConfig{MaxRows: 100, RowsPerPause: 2, Pause: 20 * time.Second})
	out := enrich(t, tp)

	if out.Len() != 4 {
		t.Fatalf("rows = %d", out.Len())
	}
	for _, col := range []string{ColEmailValid, ColEmailProviders, ColWebsiteSummary, ColLinkedInData, ColLinkedInEmployees,
		ColIceBreakerOptions, ColIceBreakerSelected, ColIceBreakerReason, ColPriorityScore, ColPriorityReason, ColErrorLog} {
		if !out.Has(col) {
			t.Fatalf("missing column %q in %v", col, out.Header)
		}
	}

	valid := out.Column(ColEmailValid)
	providers := out.Column(ColEmailProviders)
	if valid[0] != "valid" || valid[2] != "invalid" || providers[2] != "outlook" {
		t.Fatalf("verifier columns: %v %v", valid, providers)
	}

	summaries := out.Column(ColWebsiteSummary)
	if summaries[0] != "COMPANY: acme.com" || summaries[1] != "COMPANY: acme.com" {
		t.Fatalf("shared website should reuse the first summary: %v", summaries)
	}
	if tp.sites.total() != 2 || tp.company.total() != 2 {
		t.Fatalf("want one lookup per distinct company, got %d site / %d linkedin", tp.sites.total(), tp.company.total())
	}

	scores := out.Column(ColPriorityScore)
	if scores[0] != "80" || scores[2] != "-" {
		t.Fatalf("scores = %v", scores)
	}
	if got := out.Column(ColPriorityReason)[0]; got != "fits Retail analytics" {
		t.Fatalf("score reason = %q", got)
	}
	if got := out.Column(ColIceBreakerSelected)[3]; got != "b" {
		t.Fatalf("ice breaker = %q", got)
	}

	errorLog := out.Column(ColErrorLog)
	if errorLog[0] != "-" || errorLog[2] != "-" {
		t.Fatalf("clean rows should log nothing: %v", errorLog)
	}
	if errorLog[3] != "* unavailable: linkedin.com/company/broken" {
		t.Fatalf("error log = %q", errorLog[3])
	}
	if emp := out.Column(ColLinkedInEmployees); emp[0] != "42" || emp[3] != "-" {
		t.Fatalf("linkedin employees = %v", emp)
	}

	if len(tp.pauses) != 1 || tp.pauses[0] != 20*time.Second {
		t.Fatalf("pauses = %v", tp.pauses)
	}
	for _, row := range out.Rows {
		for j, cell := range row {
			if strings.TrimSpace(cell) == "" {
				t.Fatalf("blank cell in column %q", out.Header[j])
			}
		}
	}
}

func TestPipelineProceedsOnInvalidEmail(t *testing.T) {
	tp := newTestPipeline(PipelineConfig{MaxRows: 100, ProceedOnInvalidEmail: true})
	out := enrich(t, tp)
	if got := out.Column(ColPriorityScore)[2]; got != "80" {
		t.Fatalf("invalid email should still be scored, got %q", got)
	}
	if len(tp.pauses) != 0 {
		t.Fatalf("no pauses expected without rows_per_pause, got %v", tp.pauses)
	}
}

func TestPipelineCapsRows(t *testing.T) {
	tp := newTestPipeline(PipelineConfig{MaxRows: 2, RowsPerPause: 2, Pause: time.Second})
	out := enrich(t, tp)
	if out.Len() != 2 {
		t.Fatalf("rows = %d", out.Len())
	}
	if len(tp.pauses) != 0 {
		t.Fatalf("no pause after the last row, got %v", tp.pauses)
	}
}

func TestPipelineStopsOnCancel(t *testing.T) {
	tp := newTestPipeline(DefaultPipelineConfig())
	table := leadSheet()
	cols, err := tp.Columns.Map(context.Background(), table)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tp.Enrich(ctx, table, cols, ""); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestBlankProviderIsUnbatchableAfterEnrich(t *testing.T) {
	tp := newTestPipeline(PipelineConfig{MaxRows: 100})
	tp.Verifier = &fakeVerifier{checks: map[string]EmailCheck{
		"ann@acme.com": {Status: "valid", Provider: ""},
		"bob@acme.com": {Status: "valid", Provider: "gmail"},
		"cat@beta.io":  {Status: "valid", Provider: "outlook"},
		"dan@gamma.co": {Status: "valid", Provider: "outlook"},
	}}
	table := leadSheet()
	cols, err := tp.Columns.Map(context.Background(), table)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	enriched, err := tp.Enrich(context.Background(), table, cols, "Retail analytics")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := enriched.Column(ColEmailProviders)[0]; got != "-" {
		t.Fatalf("blank provider cell = %q, want placeholder", got)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, records, err := batching.RunTable(enriched, cols.BatchColumns(), batching.Options{
		Mailboxes: 1, EmailsPerMailbox: 30, BatchDurationDays: 2, StartDate: start,
	})
	if err != nil {
		t.Fatalf("RunTable: %v", err)
	}
	ann := records[0]
	if ann.Status != batching.StatusUnbatchable || ann.Reason != "No valid email provider" || ann.Batch != nil {
		t.Fatalf("ann = %+v", ann)
	}
	for _, rec := range records {
		if rec.Batch != nil && strings.HasPrefix(rec.Batch.Name, "- ") {
			t.Fatalf("placeholder provider scheduled: %+v", rec)
		}
	}
}
