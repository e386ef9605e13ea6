package budget

import (
	"fmt"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// ErrNoSheets is the validation error for a workbook without sheets.
const ErrNoSheets = "No sheets found in workbook"

// Validation collects structural errors and data-quality warnings. It never
// blocks a run; callers decide what to do with the findings.
type Validation struct {
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// HasErrors reports whether any error was recorded.
func (v Validation) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *Validation) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validate aggregates findings across every stage for a workbook. Sheet
// outcomes are reported in workbook order; extra holds workbook-level
// warnings such as WBS reconciliation notes.
func Validate(wb *workbook.Workbook, sheets []SheetOutcome, extra []string) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}
	if wb == nil || wb.Len() == 0 {
		v.errorf("%s", ErrNoSheets)
		return v
	}

	for _, s := range sheets {
		if s.Empty {
			v.errorf("Sheet %q is empty; no header row", s.Name)
			continue
		}
		v.Errors = append(v.Errors, s.MappingIssues...)
		// Applies to every sheet kind, block and INPUT sheets included.
		if s.Header == nil && !s.HasCustomMapping {
			v.warnf("Sheet %q: no header row detected and no custom column mapping provided", s.Name)
		}
		v.Warnings = append(v.Warnings, s.Warnings...)
		for _, a := range s.Allocations {
			v.Warnings = append(v.Warnings, a.Warnings...)
		}
	}
	v.Warnings = append(v.Warnings, extra...)
	return v
}

// SheetOutcome is everything the per-sheet stages produced for one sheet.
type SheetOutcome struct {
	Name             string
	Empty            bool
	IsInput          bool
	IsBlockSheet     bool
	Header           *DetectedHeader
	Mapping          ColumnMapping
	HasCustomMapping bool
	MappingIssues    []string
	Blocks           []DisciplineBlock
	Allocations      []Allocation
	TabularItems     []LineItem
	Warnings         []string
	Raw              RawSheet
	log              *TransformLog
}
