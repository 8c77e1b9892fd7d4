package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

// ========================
// PERSISTED MODELS
// ========================

// Project holds the sending settings and targeting preferences of one
// outreach campaign.
type Project struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name               string    `json:"name" gorm:"not null"`
	UserID             string    `json:"user_id" gorm:"index;not null"`
	Description        string    `json:"description"`
	SheetLink          string    `json:"sheet_link"`
	ResponseSheetLink  string    `json:"response_sheet_link"`
	NoOfMailbox        int       `json:"no_of_mailbox" gorm:"default:1"`
	EmailsPerMailbox   int       `json:"emails_per_mailbox" gorm:"default:30"`
	EmailPerContact    int       `json:"email_per_contact" gorm:"default:1"`
	BatchDurationDays  int       `json:"batch_duration_days" gorm:"default:2"`
	DaysBetweenContact int       `json:"days_between_contacts" gorm:"default:3"`
	FollowUpCycleDays  int       `json:"follow_up_cycle_days" gorm:"default:7"`
	CreatedAt          time.Time `json:"created_at"`

	// Stored for the campaign UI; the batching engine uses its own tier table.
	ContactLimitSmall      int      `json:"contact_limit_small" gorm:"default:2"`
	ContactLimitSmallMid   int      `json:"contact_limit_small_mid" gorm:"default:3"`
	ContactLimitMedium     int      `json:"contact_limit_medium" gorm:"default:4"`
	ContactLimitLarge      int      `json:"contact_limit_large" gorm:"default:5"`
	ContactLimitEnterprise int      `json:"contact_limit_enterprise" gorm:"default:6"`
	SmallMax               int      `json:"company_size_small_max" gorm:"default:10"`
	SmallMidMax            int      `json:"company_size_small_mid_max" gorm:"default:50"`
	MediumMax              int      `json:"company_size_medium_max" gorm:"default:200"`
	LargeMax               int      `json:"company_size_large_max" gorm:"default:1000"`
	EnterpriseMin          int      `json:"company_size_enterprise_min" gorm:"default:1001"`
	TargetDepartments      []string `json:"target_departments" gorm:"serializer:json"`
	ExcludedDepartments    []string `json:"excluded_departments" gorm:"serializer:json"`
	SeniorityTier1         []string `json:"seniority_tier_1" gorm:"serializer:json"`
	SeniorityTier2         []string `json:"seniority_tier_2" gorm:"serializer:json"`
	SeniorityTier3         []string `json:"seniority_tier_3" gorm:"serializer:json"`
	SeniorityExcluded      []string `json:"seniority_excluded" gorm:"serializer:json"`
}

// BeforeCreate assigns a fresh UUID when the caller did not supply one.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ApplyDefaults fills zero-valued settings with the campaign defaults.
func (p *Project) ApplyDefaults() {
	setDefault(&p.NoOfMailbox, 1)
	setDefault(&p.EmailsPerMailbox, 30)
	setDefault(&p.EmailPerContact, 1)
	setDefault(&p.BatchDurationDays, 2)
	setDefault(&p.DaysBetweenContact, 3)
	setDefault(&p.FollowUpCycleDays, 7)
	setDefault(&p.ContactLimitSmall, 2)
	setDefault(&p.ContactLimitSmallMid, 3)
	setDefault(&p.ContactLimitMedium, 4)
	setDefault(&p.ContactLimitLarge, 5)
	setDefault(&p.ContactLimitEnterprise, 6)
	setDefault(&p.SmallMax, 10)
	setDefault(&p.SmallMidMax, 50)
	setDefault(&p.MediumMax, 200)
	setDefault(&p.LargeMax, 1000)
	setDefault(&p.EnterpriseMin, 1001)
}

// BatchOptions turns the project's mailbox settings into engine options.
func (p *Project) BatchOptions(start time.Time) batching.Options {
	return batching.Options{
		Mailboxes:         p.NoOfMailbox,
		EmailsPerMailbox:  p.EmailsPerMailbox,
		BatchDurationDays: p.BatchDurationDays,
		StartDate:         start,
	}
}

func setDefault(v *int, d int) {
	if *v <= 0 {
		*v = d
	}
}

// ExportRun is one row of the export ledger.
type ExportRun struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id,omitempty"`
	FileName    string    `json:"file_name"`
	Link        string    `json:"link"`
	Rows        int       `json:"rows"`
	Batched     int       `json:"batched"`
	Future      int       `json:"future"`
	Unbatchable int       `json:"unbatchable"`
	CreatedAt   time.Time `json:"created_at"`
}

// ========================
// API REQUEST PAYLOADS
// ========================

// LeadInput is one lead posted inline to /api/batch. Employee count and
// priority score are taken as sent, number or string, and coerced the same
// way sheet cells are.
type LeadInput struct {
	Company       string          `json:"company"`
	JobTitle      string          `json:"job_title"`
	Department    string          `json:"department"`
	Email         string          `json:"email"`
	EmployeeCount json.RawMessage `json:"employee_count"`
	PriorityScore json.RawMessage `json:"priority_score"`
	EmailProvider string          `json:"email_provider"`
}

// ToLead converts the payload to engine input. A missing or non-numeric
// employee count becomes an invalid headcount and a bad score becomes 0.
func (in LeadInput) ToLead() batching.Lead {
	return batching.Lead{
		Company:       strings.TrimSpace(in.Company),
		JobTitle:      strings.TrimSpace(in.JobTitle),
		Department:    strings.TrimSpace(in.Department),
		Email:         strings.TrimSpace(in.Email),
		EmployeeCount: batching.ParseHeadcount(cellText(in.EmployeeCount)),
		PriorityScore: batching.ParseScore(cellText(in.PriorityScore)),
		Provider:      in.EmailProvider,
	}
}

// cellText flattens a JSON scalar to the text a sheet cell would hold.
// null and absent values are blank.
func cellText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return text
}

type BatchRequest struct {
	ProjectID         string      `json:"project_id"`
	Mailboxes         int         `json:"mailboxes"`
	EmailsPerMailbox  int         `json:"emails_per_mailbox"`
	BatchDurationDays int         `json:"batch_duration_days"`
	StartDate         string      `json:"start_date"`
	Leads             []LeadInput `json:"leads"`
}

type BatchedLead struct {
	LeadInput
	Status      string `json:"status"`
	BatchNumber int    `json:"batch_number,omitempty"`
	SendDate    string `json:"send_date,omitempty"`
	BatchName   string `json:"batch_name,omitempty"`
	Reason      string `json:"reason"`
}

type BatchResponse struct {
	Leads   []BatchedLead    `json:"leads"`
	Summary batching.Summary `json:"summary"`
}

type PersonalizedSheetRequest struct {
	ProjectID             string `json:"project_id"`
	OriginalSheetURL      string `json:"original_sheet_url"`
	ProceedOnInvalidEmail bool   `json:"proceed_on_invalid_email"`
	// Optional per-request credentials; server configuration is used when blank.
	OpenAIKey    string `json:"openai_key,omitempty"`
	SSMastersKey string `json:"ss_masters_key,omitempty"`
	ExaAPIKey    string `json:"exa_api_key,omitempty"`
}

type PersonalizedSheetResponse struct {
	SheetLink string           `json:"sheet_link"`
	Summary   batching.Summary `json:"summary"`
}

type ProjectCreateRequest struct {
	Name              string   `json:"name" binding:"required"`
	UserID            string   `json:"user_id" binding:"required"`
	Description       string   `json:"description"`
	SheetLink         string   `json:"sheet_link"`
	ResponseSheetLink string   `json:"response_sheet_link"`
	NoOfMailbox       int      `json:"no_of_mailbox"`
	EmailsPerMailbox  int      `json:"emails_per_mailbox"`
	EmailPerContact   int      `json:"email_per_contact"`
	BatchDurationDays int      `json:"batch_duration_days"`
	TargetDepartments []string `json:"target_departments"`
	ExcludedDepts     []string `json:"excluded_departments"`
}

// Project builds a new, defaulted project from the request.
func (r ProjectCreateRequest) Project() *Project {
	p := &Project{
		Name:                r.Name,
		UserID:              r.UserID,
		Description:         r.Description,
		SheetLink:           r.SheetLink,
		ResponseSheetLink:   r.ResponseSheetLink,
		NoOfMailbox:         r.NoOfMailbox,
		EmailsPerMailbox:    r.EmailsPerMailbox,
		EmailPerContact:     r.EmailPerContact,
		BatchDurationDays:   r.BatchDurationDays,
		TargetDepartments:   r.TargetDepartments,
		ExcludedDepartments: r.ExcludedDepts,
	}
	p.ApplyDefaults()
	return p
}
