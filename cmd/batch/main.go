// cmd/batch/main.go
// Offline lead batcher.
// Usage: go run ./cmd/batch --csv leads.csv --out batched.csv --mailboxes 5 --per-mailbox 30 --duration 10
//
// Reads a lead export, assigns every row a status, batch and send date, and
// writes the annotated table back out with a run summary on stderr.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

func main() {
	csvPath := flag.String("csv", "", "Path to the lead CSV")
	outPath := flag.String("out", "", "Output CSV (default: <input>_batched.csv)")
	mailboxes := flag.Int("mailboxes", 1, "Number of sending mailboxes")
	perMailbox := flag.Int("per-mailbox", 30, "Emails per mailbox per day")
	duration := flag.Int("duration", 2, "Batch window in days")
	start := flag.String("start", "", "First send date, YYYY-MM-DD (default: today)")
	tiersPath := flag.String("tiers", "", "YAML tier table replacing the built-in one")

	def := batching.DefaultColumns()
	cols := batching.Columns{}
	flag.StringVar(&cols.Company, "col-company", def.Company, "Company column")
	flag.StringVar(&cols.JobTitle, "col-title", def.JobTitle, "Job title column")
	flag.StringVar(&cols.Department, "col-department", def.Department, "Department column")
	flag.StringVar(&cols.EmployeeCount, "col-employees", def.EmployeeCount, "Employee count column")
	flag.StringVar(&cols.PriorityScore, "col-score", def.PriorityScore, "Priority score column")
	flag.StringVar(&cols.Provider, "col-provider", def.Provider, "Email provider column")
	flag.StringVar(&cols.Email, "col-email", def.Email, "Email column")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("--csv flag is required")
	}
	if *outPath == "" {
		ext := filepath.Ext(*csvPath)
		*outPath = strings.TrimSuffix(*csvPath, ext) + "_batched.csv"
	}

	startDate, err := batching.ParseStartDate(*start, time.Now())
	if err != nil {
		log.Fatalf("Invalid --start: %v", err)
	}
	opts := batching.Options{
		Mailboxes:         *mailboxes,
		EmailsPerMailbox:  *perMailbox,
		BatchDurationDays: *duration,
		StartDate:         startDate,
	}
	if *tiersPath != "" {
		tiers, err := batching.LoadTiers(*tiersPath)
		if err != nil {
			log.Fatalf("Cannot load tiers: %v", err)
		}
		opts.Tiers = tiers
	}

	in, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Cannot open CSV: %v", err)
	}
	table, err := batching.ReadCSV(in)
	in.Close()
	if err != nil {
		log.Fatalf("Cannot read CSV: %v", err)
	}

	annotated, records, err := batching.RunTable(table, cols, opts)
	if err != nil {
		log.Fatalf("Batching failed: %v", err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Cannot create %s: %v", *outPath, err)
	}
	if err := annotated.WriteCSV(out); err != nil {
		out.Close()
		log.Fatalf("Cannot write %s: %v", *outPath, err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Cannot write %s: %v", *outPath, err)
	}

	fmt.Fprintln(os.Stderr, renderSummary(batching.Summarize(records), *outPath))
}

func renderSummary(s batching.Summary, outPath string) string {
	row := func(label string, style lipgloss.Style, n int) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), style.Render(fmt.Sprint(n)))
	}

	lines := []string{
		titleStyle.Render("Batch run"),
		row("Leads", lipgloss.NewStyle(), s.Total),
		row("Batched", okStyle, s.Batched),
		row("Future", warnStyle, s.Future),
		row("Unbatchable", badStyle, s.Unbatchable),
	}
	if len(s.Batches) > 0 {
		lines = append(lines, "", titleStyle.Render("Batches"))
		for _, b := range s.Batches {
			lines = append(lines, row(b.Label, lipgloss.NewStyle(), b.Count))
		}
	}
	if len(s.TopReasons) > 0 {
		lines = append(lines, "", titleStyle.Render("Top reasons"))
		for _, r := range s.TopReasons {
			lines = append(lines, fmt.Sprintf("%5d  %s", r.Count, r.Label))
		}
	}
	lines = append(lines, "", labelStyle.Render("Written to")+outPath)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
