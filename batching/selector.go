package batching

import (
	"fmt"
	"sort"
	"strings"
)

const reasonDuplicateEmail = "Not selected - duplicate email within company"

// Select ranks the eligible leads of every company and keeps the top Quota
// of them. It returns the annotated records and the indices of the selected
// ones, ordered by company name and then by rank.
//
// Within a company, primary-role leads are listed before secondary-role
// leads, duplicates by email are dropped (first occurrence wins), and the
// list is stably sorted by priority score so the primary-first order only
// breaks ties.
func Select(records []Record, companyTiers map[string]Tier) ([]Record, []int) {
	out := make([]Record, len(records))
	copy(out, records)

	byCompany := make(map[string][]int)
	for i, rec := range out {
		if rec.Status != StatusReady {
			continue
		}
		if _, ok := companyTiers[rec.Company]; !ok {
			continue
		}
		byCompany[rec.Company] = append(byCompany[rec.Company], i)
	}

	companies := make([]string, 0, len(byCompany))
	for company := range byCompany {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	var selected []int
	for _, company := range companies {
		idxs := byCompany[company]
		if len(idxs) == 0 {
			continue
		}
		tier := companyTiers[company]

		var primary, secondary []int
		for _, i := range idxs {
			title := out[i].JobTitle
			if containsAny(strings.ToLower(title), tier.PrimaryRoles) {
				primary = append(primary, i)
			}
			if containsAny(strings.ToLower(title), tier.SecondaryRoles) {
				secondary = append(secondary, i)
			}
		}

		ranked := dedupe(out, append(primary, secondary...))
		sort.SliceStable(ranked, func(a, b int) bool {
			return out[ranked[a]].PriorityScore > out[ranked[b]].PriorityScore
		})

		for rank, i := range ranked {
			rec := &out[i]
			if rank < tier.Quota {
				rec.Reason = fmt.Sprintf("Selected (rank %d/%d in company, priority: %s)",
					rank+1, len(ranked), formatNumber(rec.PriorityScore))
				selected = append(selected, i)
				continue
			}
			rec.Status = StatusFuture
			rec.Reason = fmt.Sprintf("Not selected - company limit reached (%d leads max for %s)", tier.Quota, tier.Name)
		}

		// Leads that lost a duplicate-email contest never entered the ranking.
		kept := make(map[int]bool, len(ranked))
		for _, i := range ranked {
			kept[i] = true
		}
		for _, i := range idxs {
			if !kept[i] && out[i].Status == StatusReady {
				out[i].Status = StatusFuture
				out[i].Reason = reasonDuplicateEmail
			}
		}
	}

	return out, selected
}

// dedupe drops repeated rows and repeated non-empty emails, keeping the
// first occurrence.
func dedupe(records []Record, idxs []int) []int {
	seenRow := make(map[int]bool, len(idxs))
	seenEmail := make(map[string]bool, len(idxs))
	out := make([]int, 0, len(idxs))
	for _, i := range idxs {
		if seenRow[i] {
			continue
		}
		seenRow[i] = true
		email := strings.ToLower(strings.TrimSpace(records[i].Email))
		if email != "" {
			if seenEmail[email] {
				continue
			}
			seenEmail[email] = true
		}
		out = append(out, i)
	}
	return out
}
