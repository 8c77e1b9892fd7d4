// Package batching decides which enriched leads get emailed, in which
// company-size tier they compete, and how the winners are laid out into
// dated per-provider sending batches.
//
// Everything in here is synchronous and deterministic: the same input and
// start date always produce the same statuses, reasons and batches.
package batching

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxSupportedHeadcount is the largest company size any tier may cover.
// Bigger companies are handled by account-based outreach, not cold batches.
const MaxSupportedHeadcount = 1000

// Tier is the targeting policy for companies whose headcount falls in the
// inclusive range [Min, Max]. Nil department lists mean "no restriction".
type Tier struct {
	Name                 string   `yaml:"name" json:"name"`
	Min                  int      `yaml:"min" json:"min"`
	Max                  int      `yaml:"max" json:"max"`
	Quota                int      `yaml:"quota" json:"quota"`
	PrimaryRoles         []string `yaml:"primary_roles" json:"primary_roles"`
	SecondaryRoles       []string `yaml:"secondary_roles" json:"secondary_roles"`
	ExclusionRoles       []string `yaml:"exclusion_roles" json:"exclusion_roles"`
	TargetDepartments    []string `yaml:"target_departments" json:"target_departments,omitempty"`
	ExclusionDepartments []string `yaml:"exclusion_departments" json:"exclusion_departments,omitempty"`
}

// Contains reports whether a headcount falls inside the tier's range.
func (t Tier) Contains(count float64) bool {
	return float64(t.Min) <= count && count <= float64(t.Max)
}

// TierTable is an ordered list of tiers. Lookup is first-match.
type TierTable []Tier

var (
	defaultDepartments         = []string{"sales", "marketing", "operations", "growth", "business development"}
	defaultExcludedDepartments = []string{"hr", "human resources", "legal", "finance", "accounting"}
)

// DefaultTiers returns the built-in five-segment table.
func DefaultTiers() TierTable {
	return TierTable{
		{
			Name: "Small Companies (0-50)", Min: 0, Max: 50, Quota: 4,
			PrimaryRoles:   []string{"ceo", "founder", "co-founder", "owner", "president"},
			SecondaryRoles: []string{"director", "head of", "vp", "vice president"},
			ExclusionRoles: []string{"intern", "assistant", "coordinator", "analyst"},
		},
		{
			Name: "Small-Medium Companies (51-100)", Min: 51, Max: 100, Quota: 6,
			PrimaryRoles:   []string{"ceo", "founder", "co-founder", "vp", "vice president"},
			SecondaryRoles: []string{"director", "head of", "senior manager", "manager"},
			ExclusionRoles: []string{"intern", "assistant", "analyst", "coordinator"},
		},
		{
			Name: "Medium Companies (101-200)", Min: 101, Max: 200, Quota: 8,
			PrimaryRoles:         []string{"director", "vp", "vice president", "head of"},
			SecondaryRoles:       []string{"senior manager", "manager", "senior director"},
			ExclusionRoles:       []string{"ceo", "founder", "analyst", "coordinator"},
			TargetDepartments:    cloneStrings(defaultDepartments),
			ExclusionDepartments: cloneStrings(defaultExcludedDepartments),
		},
		{
			Name: "Large Companies (201-500)", Min: 201, Max: 500, Quota: 10,
			PrimaryRoles:         []string{"director", "head of", "senior director", "vp", "vice president"},
			SecondaryRoles:       []string{"senior manager", "manager"},
			ExclusionRoles:       []string{"ceo", "president", "analyst", "coordinator"},
			TargetDepartments:    cloneStrings(defaultDepartments),
			ExclusionDepartments: cloneStrings(defaultExcludedDepartments),
		},
		{
			Name: "Very Large Companies (501-1000)", Min: 501, Max: 1000, Quota: 13,
			PrimaryRoles:         []string{"senior manager", "director", "head of", "senior director"},
			SecondaryRoles:       []string{"manager", "vp", "vice president"},
			ExclusionRoles:       []string{"ceo", "president", "analyst"},
			TargetDepartments:    cloneStrings(defaultDepartments),
			ExclusionDepartments: cloneStrings(defaultExcludedDepartments),
		},
	}
}

// Lookup returns the first tier containing count. Missing counts and
// anything above MaxSupportedHeadcount match nothing.
func (tt TierTable) Lookup(count Headcount) (Tier, bool) {
	if !count.Valid || count.Value > MaxSupportedHeadcount {
		return Tier{}, false
	}
	for _, tier := range tt {
		if tier.Contains(count.Value) {
			return tier, true
		}
	}
	return Tier{}, false
}

// Validate checks that the table is usable: ordered, non-overlapping ranges
// within the supported headcount, positive quotas and non-empty keywords.
func (tt TierTable) Validate() error {
	if len(tt) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	for i, tier := range tt {
		if strings.TrimSpace(tier.Name) == "" {
			return fmt.Errorf("tier %d: name is required", i)
		}
		if tier.Min < 0 || tier.Min > tier.Max {
			return fmt.Errorf("tier %q: invalid range [%d,%d]", tier.Name, tier.Min, tier.Max)
		}
		if tier.Max > MaxSupportedHeadcount {
			return fmt.Errorf("tier %q: max %d exceeds %d", tier.Name, tier.Max, MaxSupportedHeadcount)
		}
		if tier.Quota <= 0 {
			return fmt.Errorf("tier %q: quota must be > 0", tier.Name)
		}
		if i > 0 && tier.Min <= tt[i-1].Max {
			return fmt.Errorf("tier %q overlaps or precedes %q", tier.Name, tt[i-1].Name)
		}
		if len(tier.PrimaryRoles) == 0 && len(tier.SecondaryRoles) == 0 {
			return fmt.Errorf("tier %q: no target roles", tier.Name)
		}
		lists := [][]string{tier.PrimaryRoles, tier.SecondaryRoles, tier.ExclusionRoles, tier.TargetDepartments, tier.ExclusionDepartments}
		for _, list := range lists {
			for _, kw := range list {
				if strings.TrimSpace(kw) == "" {
					return fmt.Errorf("tier %q: empty keyword", tier.Name)
				}
			}
		}
	}
	return nil
}

// Normalized returns a copy with every keyword trimmed and lower-cased.
func (tt TierTable) Normalized() TierTable {
	out := make(TierTable, len(tt))
	for i, tier := range tt {
		tier.PrimaryRoles = lowerAll(tier.PrimaryRoles)
		tier.SecondaryRoles = lowerAll(tier.SecondaryRoles)
		tier.ExclusionRoles = lowerAll(tier.ExclusionRoles)
		tier.TargetDepartments = lowerAll(tier.TargetDepartments)
		tier.ExclusionDepartments = lowerAll(tier.ExclusionDepartments)
		out[i] = tier
	}
	return out
}

// ParseTiers decodes a YAML list of tiers and validates it.
func ParseTiers(raw []byte) (TierTable, error) {
	var tt TierTable
	if err := yaml.Unmarshal(raw, &tt); err != nil {
		return nil, fmt.Errorf("parse tiers: %w", err)
	}
	tt = tt.Normalized()
	if err := tt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tiers: %w", err)
	}
	return tt, nil
}

// LoadTiers reads a YAML tier file from disk.
func LoadTiers(path string) (TierTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers %s: %w", path, err)
	}
	return ParseTiers(raw)
}

func lowerAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func cloneStrings(in []string) []string {
	return append([]string(nil), in...)
}
