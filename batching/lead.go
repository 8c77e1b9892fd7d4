package batching

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a lead within one run.
// Every lead starts ready and ends in exactly one of the other three.
type Status string

const (
	StatusReady       Status = "ready"
	StatusUnbatchable Status = "unbatchable"
	StatusFuture      Status = "future"
	StatusSelected    Status = "selected"
)

// Provider tags that mean the lead has no usable sending channel.
const (
	ProviderNone    = "no_provider"
	ProviderUnknown = "unknown"
	ProviderMissing = "nan"
)

const placeholderCell = "-"

const dateLayout = "2006-01-02"

var ErrInvalidOptions = errors.New("invalid batching options")

// Headcount is an employee count that may be missing or unparseable.
type Headcount struct {
	Value float64
	Valid bool
}

// ParseHeadcount coerces a raw cell to a headcount. Blank, non-numeric,
// NaN and infinite values are invalid.
func ParseHeadcount(raw string) Headcount {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Headcount{}
	}
	return Headcount{Value: v, Valid: true}
}

func (h Headcount) String() string {
	if !h.Valid {
		return ""
	}
	return formatNumber(h.Value)
}

// ParseScore coerces a raw priority score, falling back to 0.
func ParseScore(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NormalizeProvider lower-cases a provider tag. Blank cells and the "-"
// placeholder written by enrichment become "nan".
func NormalizeProvider(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" || p == placeholderCell {
		return ProviderMissing
	}
	return p
}

// HasProvider reports whether a normalized provider tag can send mail.
func HasProvider(provider string) bool {
	switch provider {
	case ProviderNone, ProviderUnknown, ProviderMissing:
		return false
	}
	return true
}

// Lead holds the fields of one input row the engine reads.
type Lead struct {
	Company       string
	JobTitle      string
	Department    string
	Email         string
	EmployeeCount Headcount
	PriorityScore float64
	Provider      string
}

// Batch is the sending slot assigned to a selected lead.
type Batch struct {
	Number   int
	SendDate time.Time
	Name     string
}

// Record is a lead plus the annotations the engine writes.
type Record struct {
	Lead
	Status Status
	Reason string
	Batch  *Batch
}

// SendDateString renders the send date, or "" when unbatched.
func (r Record) SendDateString() string {
	if r.Batch == nil {
		return ""
	}
	return r.Batch.SendDate.Format(dateLayout)
}

// Options are the per-project sending settings.
type Options struct {
	Mailboxes         int
	EmailsPerMailbox  int
	BatchDurationDays int
	StartDate         time.Time
	// Tiers defaults to DefaultTiers when nil.
	Tiers TierTable
}

// DailyCapacity is the number of leads one batch can hold.
func (o Options) DailyCapacity() int {
	return o.Mailboxes * o.EmailsPerMailbox
}

func (o Options) Validate() error {
	switch {
	case o.Mailboxes <= 0:
		return fmt.Errorf("%w: mailboxes must be > 0", ErrInvalidOptions)
	case o.EmailsPerMailbox <= 0:
		return fmt.Errorf("%w: emails per mailbox must be > 0", ErrInvalidOptions)
	case o.BatchDurationDays <= 0:
		return fmt.Errorf("%w: batch duration must be > 0 days", ErrInvalidOptions)
	case o.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", ErrInvalidOptions)
	}
	if o.Tiers != nil {
		if err := o.Tiers.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	return nil
}

// ParseStartDate parses YYYY-MM-DD, defaulting to today when blank.
func ParseStartDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q: %w", raw, err)
	}
	return t, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
