// Package budget implements the spreadsheet budget ingestion engine: header
// detection, column mapping, discipline block extraction, add-on allocation,
// WBS construction, line-item materialization and validation.
package budget

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category is one of the closed set of cost categories used by the budget
// template.
type Category int

const (
	CategoryUnknown Category = iota
	DirectLabor
	IndirectLabor
	Materials
	Equipment
	Subcontracts
	SmallTools
	TaxesInsurance
	PerDiem
	AddOns
	Scaffolding
	Risk
	AllLabor
	DisciplineTotals
)

// BaseCategories are the allocation targets, in template order.
var BaseCategories = []Category{DirectLabor, IndirectLabor, Materials, Equipment, Subcontracts, SmallTools}

// AddOnCategories are redistributed across the base categories.
var AddOnCategories = []Category{TaxesInsurance, PerDiem, AddOns, Scaffolding, Risk}

var categoryLabels = map[Category]string{
	DirectLabor:      "DIRECT LABOR",
	IndirectLabor:    "INDIRECT LABOR",
	Materials:        "MATERIALS",
	Equipment:        "EQUIPMENT",
	Subcontracts:     "SUBCONTRACTS",
	SmallTools:       "SMALL TOOLS & CONSUMABLES",
	TaxesInsurance:   "TAXES & INSURANCE",
	PerDiem:          "PERDIEM",
	AddOns:           "ADD ONS",
	Scaffolding:      "SCAFFOLDING",
	Risk:             "RISK",
	AllLabor:         "ALL LABOR",
	DisciplineTotals: "DISCIPLINE TOTALS",
}

var costTypes = map[Category]string{
	DirectLabor:   "labor_direct",
	IndirectLabor: "labor_indirect",
	Materials:     "materials",
	Equipment:     "equipment",
	Subcontracts:  "subcontracts",
	SmallTools:    "small_tools",
}

// categoryAliases maps normalized label spellings seen in budget templates to
// their category.
var categoryAliases = map[string]Category{
	"DIRECT LABOR":                DirectLabor,
	"DIRECT":                      DirectLabor,
	"DIRECTS":                     DirectLabor,
	"INDIRECT LABOR":              IndirectLabor,
	"INDIRECT":                    IndirectLabor,
	"INDIRECTS":                   IndirectLabor,
	"MATERIALS":                   Materials,
	"MATERIAL":                    Materials,
	"EQUIPMENT":                   Equipment,
	"SUBCONTRACTS":                Subcontracts,
	"SUBCONTRACT":                 Subcontracts,
	"SUBS":                        Subcontracts,
	"SMALL TOOLS & CONSUMABLES":   SmallTools,
	"SMALL TOOLS AND CONSUMABLES": SmallTools,
	"SMALL TOOLS":                 SmallTools,
	"CONSUMABLES":                 SmallTools,
	"TAXES & INSURANCE":           TaxesInsurance,
	"TAXES AND INSURANCE":         TaxesInsurance,
	"PERDIEM":                     PerDiem,
	"PER DIEM":                    PerDiem,
	"ADD ONS":                     AddOns,
	"ADD-ONS":                     AddOns,
	"ADDONS":                      AddOns,
	"SCAFFOLDING":                 Scaffolding,
	"RISK":                        Risk,
	"ALL LABOR":                   AllLabor,
	"DISCIPLINE TOTALS":           DisciplineTotals,
	"DISCIPLINE TOTAL":            DisciplineTotals,
}

// String returns the template label for the category.
func (c Category) String() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "UNKNOWN"
}

// CostType returns the normalized cost type for a base category, or "" for
// any other category.
func (c Category) CostType() string {
	return costTypes[c]
}

// IsBase reports whether c is an allocation target.
func (c Category) IsBase() bool {
	return c >= DirectLabor && c <= SmallTools
}

// IsAddOn reports whether c is redistributed across base categories.
func (c Category) IsAddOn() bool {
	return c >= TaxesInsurance && c <= Risk
}

// IsRollup reports whether c is one of the template's informational roll-up
// rows.
func (c Category) IsRollup() bool {
	return c == AllLabor || c == DisciplineTotals
}

// ParseCategory classifies a category label. Matching is case-insensitive
// and whitespace-tolerant. ok is false for unrecognized labels.
func ParseCategory(label string) (Category, bool) {
	key := strings.ToUpper(strings.Join(strings.Fields(label), " "))
	c, ok := categoryAliases[key]
	return c, ok
}

// CategoryFromCostType is the inverse of Category.CostType.
func CategoryFromCostType(costType string) (Category, bool) {
	for c, ct := range costTypes {
		if ct == costType {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// BaseAmounts holds one value per base category.
type BaseAmounts struct {
	DirectLabor   decimal.Decimal `json:"direct_labor" yaml:"direct_labor"`
	IndirectLabor decimal.Decimal `json:"indirect_labor" yaml:"indirect_labor"`
	Materials     decimal.Decimal `json:"materials" yaml:"materials"`
	Equipment     decimal.Decimal `json:"equipment" yaml:"equipment"`
	Subcontracts  decimal.Decimal `json:"subcontracts" yaml:"subcontracts"`
	SmallTools    decimal.Decimal `json:"small_tools" yaml:"small_tools"`
}

// Get returns the amount for a base category; zero for anything else.
func (b BaseAmounts) Get(c Category) decimal.Decimal {
	switch c {
	case DirectLabor:
		return b.DirectLabor
	case IndirectLabor:
		return b.IndirectLabor
	case Materials:
		return b.Materials
	case Equipment:
		return b.Equipment
	case Subcontracts:
		return b.Subcontracts
	case SmallTools:
		return b.SmallTools
	}
	return decimal.Zero
}

// Add adds v to a base category. It reports false for non-base categories.
func (b *BaseAmounts) Add(c Category, v decimal.Decimal) bool {
	switch c {
	case DirectLabor:
		b.DirectLabor = b.DirectLabor.Add(v)
	case IndirectLabor:
		b.IndirectLabor = b.IndirectLabor.Add(v)
	case Materials:
		b.Materials = b.Materials.Add(v)
	case Equipment:
		b.Equipment = b.Equipment.Add(v)
	case Subcontracts:
		b.Subcontracts = b.Subcontracts.Add(v)
	case SmallTools:
		b.SmallTools = b.SmallTools.Add(v)
	default:
		return false
	}
	return true
}

// Sum totals the six base categories.
func (b BaseAmounts) Sum() decimal.Decimal {
	return decimal.Sum(b.DirectLabor, b.IndirectLabor, b.Materials, b.Equipment, b.Subcontracts, b.SmallTools)
}

// AddOnAmounts holds one value per add-on category.
type AddOnAmounts struct {
	TaxesInsurance decimal.Decimal `json:"taxes_insurance" yaml:"taxes_insurance"`
	PerDiem        decimal.Decimal `json:"perdiem" yaml:"perdiem"`
	AddOns         decimal.Decimal `json:"add_ons" yaml:"add_ons"`
	Scaffolding    decimal.Decimal `json:"scaffolding" yaml:"scaffolding"`
	Risk           decimal.Decimal `json:"risk" yaml:"risk"`
}

// Get returns the amount for an add-on category; zero for anything else.
func (a AddOnAmounts) Get(c Category) decimal.Decimal {
	switch c {
	case TaxesInsurance:
		return a.TaxesInsurance
	case PerDiem:
		return a.PerDiem
	case AddOns:
		return a.AddOns
	case Scaffolding:
		return a.Scaffolding
	case Risk:
		return a.Risk
	}
	return decimal.Zero
}

// Sum totals the five add-on categories.
func (a AddOnAmounts) Sum() decimal.Decimal {
	return decimal.Sum(a.TaxesInsurance, a.PerDiem, a.AddOns, a.Scaffolding, a.Risk)
}
