package batching

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Output column names written by Annotate.
const (
	ColStatus    = "Status"
	ColBatch     = "Batch number"
	ColSendDate  = "Send Date"
	ColBatchName = "Batch Name"
	ColReason    = "Reason"
)

var ErrMissingColumns = errors.New("required columns missing")

// Columns names the input columns the engine reads.
type Columns struct {
	Company       string `json:"company" yaml:"company"`
	JobTitle      string `json:"job_title" yaml:"job_title"`
	Department    string `json:"department" yaml:"department"`
	EmployeeCount string `json:"employee_count" yaml:"employee_count"`
	PriorityScore string `json:"priority_score" yaml:"priority_score"`
	Provider      string `json:"email_provider" yaml:"email_provider"`
	Email         string `json:"email" yaml:"email"`
}

// DefaultColumns matches the headers of a typical lead export.
func DefaultColumns() Columns {
	return Columns{
		Company:       "Company",
		JobTitle:      "Title",
		Department:    "Departments",
		EmployeeCount: "Employees",
		PriorityScore: "Priority Score",
		Provider:      "Email Providers",
		Email:         "Email",
	}
}

// Table is an in-memory spreadsheet: a header row and string cells.
// Rows are always padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	for _, row := range rows {
		t.Rows = append(t.Rows, t.pad(row))
	}
	return t
}

// ReadCSV loads a table, tolerating ragged rows and stray quotes.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Header: header}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, t.pad(row))
	}
	return t, nil
}

// WriteCSV writes the header and every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (t *Table) Len() int { return len(t.Rows) }

// Index finds a column by exact name, then case-insensitively. -1 if absent.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Column returns a copy of one column's cells, or nil if absent.
func (t *Table) Column(name string) []string {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// SetColumn overwrites a column or appends it when absent.
func (t *Table) SetColumn(name string, values []string) {
	idx := t.Index(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		idx = len(t.Header) - 1
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}
	for i := range t.Rows {
		if i < len(values) {
			t.Rows[i][idx] = values[i]
		} else {
			t.Rows[i][idx] = ""
		}
	}
}

// Head returns a copy holding at most n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return NewTable(t.Header, t.Rows[:n])
}

func (t *Table) Clone() *Table {
	return t.Head(-1)
}

// FillEmpty replaces blank cells with v.
func (t *Table) FillEmpty(v string) {
	for _, row := range t.Rows {
		for j := range row {
			if strings.TrimSpace(row[j]) == "" {
				row[j] = v
			}
		}
	}
}

// Leads extracts engine input from the table. Absent columns are a
// precondition failure; blank or malformed cells are not.
func (t *Table) Leads(cols Columns) ([]Lead, error) {
	required := []string{cols.Company, cols.JobTitle, cols.Department, cols.EmployeeCount, cols.PriorityScore, cols.Provider, cols.Email}
	var missing []string
	for _, name := range required {
		if name == "" || !t.Has(name) {
			missing = append(missing, strconv.Quote(name))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	company := t.Index(cols.Company)
	title := t.Index(cols.JobTitle)
	dept := t.Index(cols.Department)
	employees := t.Index(cols.EmployeeCount)
	score := t.Index(cols.PriorityScore)
	provider := t.Index(cols.Provider)
	email := t.Index(cols.Email)

	leads := make([]Lead, len(t.Rows))
	for i, row := range t.Rows {
		leads[i] = Lead{
			Company:       strings.TrimSpace(row[company]),
			JobTitle:      strings.TrimSpace(row[title]),
			Department:    strings.TrimSpace(row[dept]),
			Email:         strings.TrimSpace(row[email]),
			EmployeeCount: ParseHeadcount(row[employees]),
			PriorityScore: ParseScore(row[score]),
			Provider:      row[provider],
		}
	}
	return leads, nil
}

// Annotate returns a copy of t with Status, Batch number, Send Date, Batch
// Name and Reason set from records, which must be in row order.
func (t *Table) Annotate(records []Record) *Table {
	out := t.Clone()
	status := make([]string, len(records))
	batch := make([]string, len(records))
	sendDate := make([]string, len(records))
	batchName := make([]string, len(records))
	reason := make([]string, len(records))
	for i, rec := range records {
		status[i] = string(rec.Status)
		reason[i] = rec.Reason
		if rec.Batch != nil {
			batch[i] = strconv.Itoa(rec.Batch.Number)
			sendDate[i] = rec.SendDateString()
			batchName[i] = rec.Batch.Name
		}
	}
	out.SetColumn(ColStatus, status)
	out.SetColumn(ColBatch, batch)
	out.SetColumn(ColSendDate, sendDate)
	out.SetColumn(ColBatchName, batchName)
	out.SetColumn(ColReason, reason)
	return out
}

func (t *Table) pad(row []string) []string {
	out := make([]string, len(t.Header))
	copy(out, row)
	return out
}
