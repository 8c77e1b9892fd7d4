package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

// Canonical input fields of a lead sheet.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldCompanyName     = "company_name"
	FieldEmail           = "email"
	FieldJobTitle        = "job_title"
	FieldSeniority       = "seniority"
	FieldIndustry        = "industry"
	FieldDepartment      = "department"
	FieldCompanyWebsite  = "company_website"
	FieldCompanyLinkedIn = "company_linkedin"
	FieldEmployeeCount   = "employee_count"
)

var Fields = []string{
	FieldFirstName, FieldLastName, FieldCompanyName, FieldEmail, FieldJobTitle,
	FieldSeniority, FieldIndustry, FieldDepartment, FieldCompanyWebsite,
	FieldCompanyLinkedIn, FieldEmployeeCount,
}

// optionalFields get a blank column when the sheet lacks them.
var optionalFields = map[string]string{
	FieldSeniority:  "Seniority",
	FieldDepartment: "Department",
}

var ErrUnmappedColumns = errors.New("required columns not found")

// synonyms are lower-cased header spellings seen in common lead exports.
var synonyms = map[string][]string{
	FieldFirstName:       {"first name", "firstname", "first_name", "given name"},
	FieldLastName:        {"last name", "lastname", "last_name", "surname", "family name"},
	FieldCompanyName:     {"company", "company name", "company_name", "organization", "organisation", "account name"},
	FieldEmail:           {"email", "email address", "work email", "e-mail", "business email"},
	FieldJobTitle:        {"title", "job title", "job_title", "position", "role"},
	FieldSeniority:       {"seniority", "seniority level", "level"},
	FieldIndustry:        {"industry", "sector", "vertical"},
	FieldDepartment:      {"department", "departments", "function", "team"},
	FieldCompanyWebsite:  {"website", "company website", "company_website", "domain", "company domain", "url"},
	FieldCompanyLinkedIn: {"company linkedin url", "company linkedin", "company_linkedin", "linkedin company url", "company linkedin link"},
	FieldEmployeeCount:   {"employees", "# employees", "employee count", "employee_count", "number of employees", "headcount", "company size"},
}

// ColumnMap maps canonical field → header in the user's sheet.
type ColumnMap map[string]string

// ColumnMapper resolves sheet headers to canonical fields: synonyms first,
// then the LLM for whatever is left.
type ColumnMapper struct {
	LLM      Asker
	Attempts int
}

// Map returns a complete mapping or ErrUnmappedColumns naming the fields
// that could not be resolved. Missing optional fields are added to t as
// blank columns.
func (m *ColumnMapper) Map(ctx context.Context, t *batching.Table) (ColumnMap, error) {
	out := MatchSynonyms(t.Header)

	if missing := out.Missing(); len(missing) > 0 && m.LLM != nil {
		guessed, err := m.ask(ctx, t.Header)
		if err != nil {
			log.Printf("[Columns] llm mapping failed: %v", err)
		}
		for field, header := range guessed {
			if out[field] == "" && header != "" && t.Has(header) {
				out[field] = header
			}
		}
	}

	for field, header := range optionalFields {
		if out[field] == "" {
			if !t.Has(header) {
				t.SetColumn(header, nil)
			}
			out[field] = header
		}
	}

	if missing := out.Missing(); len(missing) > 0 {
		return out, fmt.Errorf("%w: %s", ErrUnmappedColumns, strings.Join(missing, ", "))
	}
	return out, nil
}

// MatchSynonyms maps every field whose known spelling appears among headers.
func MatchSynonyms(headers []string) ColumnMap {
	byLower := make(map[string]string, len(headers))
	for _, h := range headers {
		k := strings.ToLower(strings.TrimSpace(h))
		if _, dup := byLower[k]; !dup {
			byLower[k] = h
		}
	}
	out := ColumnMap{}
	for _, field := range Fields {
		for _, syn := range synonyms[field] {
			if h, ok := byLower[syn]; ok {
				out[field] = h
				break
			}
		}
	}
	return out
}

// Missing lists unmapped fields in canonical order.
func (c ColumnMap) Missing() []string {
	var missing []string
	for _, field := range Fields {
		if c[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// BatchColumns names the columns the batching engine reads after
// enrichment has appended the provider and score columns.
func (c ColumnMap) BatchColumns() batching.Columns {
	return batching.Columns{
		Company:       c[FieldCompanyName],
		JobTitle:      c[FieldJobTitle],
		Department:    c[FieldDepartment],
		EmployeeCount: c[FieldEmployeeCount],
		PriorityScore: ColPriorityScore,
		Provider:      ColEmailProviders,
		Email:         c[FieldEmail],
	}
}

const columnPrompt = `You map a list of raw column names to a standardized schema.
Return a JSON object with exactly these keys: %s.
Each value is the closest matching column name (case-insensitive match or synonym) from the provided list, or null when nothing fits.
Reply with JSON only.`

func (m *ColumnMapper) ask(ctx context.Context, headers []string) (ColumnMap, error) {
	var out ColumnMap
	err := retry(ctx, "Columns", attemptsOr(m.Attempts, 3), 0, func() error {
		reply, err := m.LLM.Ask(ctx, fmt.Sprintf(columnPrompt, strings.Join(Fields, ", ")),
			"Here is the list of column names provided by the user:\n"+strings.Join(headers, ", "))
		if err != nil {
			return err
		}
		raw := jsonObject(reply)
		if raw == "" {
			return errors.New("no json object in reply")
		}
		var parsed map[string]*string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return err
		}
		out = ColumnMap{}
		for k, v := range parsed {
			if v != nil {
				out[k] = strings.TrimSpace(*v)
			}
		}
		return nil
	})
	return out, err
}
