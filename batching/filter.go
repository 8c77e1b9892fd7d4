package batching

import (
	"fmt"
	"strings"
)

const (
	reasonNoProvider      = "No valid email provider"
	reasonUnsupportedSize = "Company size not supported (>1000 employees or invalid employee count)"
)

type roleMatch int

const (
	roleNone roleMatch = iota
	rolePrimary
	roleSecondary
)

// CompanyHeadcounts aggregates the largest valid employee count seen for
// each company. Companies with no valid count map to an invalid Headcount.
// Leads without a company name are left out.
func CompanyHeadcounts(leads []Lead) map[string]Headcount {
	out := make(map[string]Headcount)
	for _, lead := range leads {
		if lead.Company == "" {
			continue
		}
		cur := out[lead.Company]
		if lead.EmployeeCount.Valid && (!cur.Valid || lead.EmployeeCount.Value > cur.Value) {
			cur = lead.EmployeeCount
		}
		out[lead.Company] = cur
	}
	return out
}

// ResolveTiers maps each company to the tier its aggregate headcount falls
// in. Companies that match no tier are absent from the result.
func ResolveTiers(tiers TierTable, headcounts map[string]Headcount) map[string]Tier {
	out := make(map[string]Tier, len(headcounts))
	for company, count := range headcounts {
		if tier, ok := tiers.Lookup(count); ok {
			out[company] = tier
		}
	}
	return out
}

// Filter tags every ready record as still ready (eligible) or unbatchable.
// Checks run in a fixed order and the first failing one decides the reason.
func Filter(records []Record, companyTiers map[string]Tier) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		rec := &out[i]
		if rec.Status != StatusReady {
			continue
		}
		if !HasProvider(rec.Provider) {
			rec.Status = StatusUnbatchable
			rec.Reason = reasonNoProvider
			continue
		}
		tier, ok := companyTiers[rec.Company]
		if !ok {
			rec.Status = StatusUnbatchable
			rec.Reason = reasonUnsupportedSize
			continue
		}
		match, reason := eligibility(rec.Lead, tier)
		if match == roleNone {
			rec.Status = StatusUnbatchable
		}
		rec.Reason = reason
	}
	return out
}

func eligibility(lead Lead, tier Tier) (roleMatch, string) {
	title := strings.ToLower(lead.JobTitle)
	dept := strings.ToLower(lead.Department)

	if containsAny(title, tier.ExclusionRoles) {
		return roleNone, fmt.Sprintf("Job title '%s' is in exclusion roles", title)
	}
	if len(tier.TargetDepartments) > 0 && !containsAny(dept, tier.TargetDepartments) {
		return roleNone, fmt.Sprintf("Department '%s' not in target departments", dept)
	}
	if len(tier.ExclusionDepartments) > 0 && containsAny(dept, tier.ExclusionDepartments) {
		return roleNone, fmt.Sprintf("Department '%s' is in exclusion departments", dept)
	}

	switch matchRole(title, tier) {
	case rolePrimary:
		return rolePrimary, fmt.Sprintf("Matches primary role criteria (title: %s)", title)
	case roleSecondary:
		return roleSecondary, fmt.Sprintf("Matches secondary role criteria (title: %s)", title)
	}
	return roleNone, fmt.Sprintf("Job title '%s' doesn't match target roles", title)
}

// matchRole checks primary keywords before secondary ones, so a title on
// both lists counts as primary.
func matchRole(title string, tier Tier) roleMatch {
	title = strings.ToLower(title)
	if containsAny(title, tier.PrimaryRoles) {
		return rolePrimary
	}
	if containsAny(title, tier.SecondaryRoles) {
		return roleSecondary
	}
	return roleNone
}

// containsAny is plain substring containment: "vp" matches "svp".
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
