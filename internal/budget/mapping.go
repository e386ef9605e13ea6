package budget

import (
	"fmt"
	"sort"
)

// ColumnMapping maps a role to a zero-based column index.
type ColumnMapping map[Role]int

// Index returns the column for role.
func (m ColumnMapping) Index(role Role) (int, bool) {
	idx, ok := m[role]
	return idx, ok
}

// Clone returns a copy of m.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedRoles returns the mapping's roles in canonical order, followed by
// any non-canonical roles alphabetically.
func (m ColumnMapping) sortedRoles() []Role {
	rank := make(map[Role]int, len(Roles))
	for i, r := range Roles {
		rank[r] = i
	}
	roles := make([]Role, 0, len(m))
	for r := range m {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool {
		ri, iok := rank[roles[i]]
		rj, jok := rank[roles[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return roles[i] < roles[j]
		}
	})
	return roles
}

// MappingValidation is the result of ValidateMapping.
type MappingValidation struct {
	Valid  bool     `json:"valid" yaml:"valid"`
	Issues []string `json:"issues" yaml:"issues"`
}

// ValidateMapping checks that every mapped column lies within
// [0, sheetWidth). It reports one issue per offending role.
func ValidateMapping(sheetID string, mapping ColumnMapping, sheetWidth int) MappingValidation {
	issues := []string{}
	for _, role := range mapping.sortedRoles() {
		idx := mapping[role]
		if idx < 0 || idx >= sheetWidth {
			issues = append(issues, fmt.Sprintf(
				"sheet %q: column for role %q is out of range (index %d, sheet width %d)",
				sheetID, role, idx, sheetWidth,
			))
		}
	}
	return MappingValidation{Valid: len(issues) == 0, Issues: issues}
}

// ResolveMapping merges a detected header with a custom mapping. Custom
// entries override detected ones role by role.
func ResolveMapping(detected *DetectedHeader, custom ColumnMapping) ColumnMapping {
	m := detected.Mapping()
	for role, idx := range custom {
		m[role] = idx
	}
	return m
}

// resolveSheetMapping resolves and validates the mapping for one sheet,
// dropping invalid custom roles. It returns the usable mapping and any
// issues found.
func resolveSheetMapping(sheetID string, detected *DetectedHeader, custom ColumnMapping, width int) (ColumnMapping, []string) {
	check := ValidateMapping(sheetID, custom, width)
	usable := custom
	if !check.Valid {
		usable = ColumnMapping{}
		for role, idx := range custom {
			if idx >= 0 && idx < width {
				usable[role] = idx
			}
		}
	}
	return ResolveMapping(detected, usable), check.Issues
}
