package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AllocationShare records one add-on amount moved onto a base category.
type AllocationShare struct {
	Source     string          `json:"source" yaml:"source"`
	Target     string          `json:"target" yaml:"target"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	Percentage float64         `json:"percentage" yaml:"percentage"`
}

// UnallocatedAmount is an add-on value that could not be distributed
// because every target had a zero base.
type UnallocatedAmount struct {
	Category string          `json:"category" yaml:"category"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
}

// Allocation is one discipline's base categories after add-on
// redistribution.
type Allocation struct {
	Sheet            string              `json:"sheet" yaml:"sheet"`
	Discipline       string              `json:"discipline" yaml:"discipline"`
	DisciplineNumber int                 `json:"discipline_number" yaml:"discipline_number"`
	Base             BaseAmounts         `json:"base" yaml:"base"`
	AddOns           AddOnAmounts        `json:"add_ons" yaml:"add_ons"`
	Allocated        BaseAmounts         `json:"allocated" yaml:"allocated"`
	Manhours         BaseAmounts         `json:"manhours" yaml:"manhours"`
	Shares           []AllocationShare   `json:"shares,omitempty" yaml:"shares,omitempty"`
	Unallocated      []UnallocatedAmount `json:"unallocated,omitempty" yaml:"unallocated,omitempty"`
	Passthrough      []RawCategory       `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`
	Warnings         []string            `json:"-" yaml:"-"`
}

// Total returns the post-allocation value across the six base categories.
func (a Allocation) Total() decimal.Decimal {
	return a.Allocated.Sum()
}

// TotalManhours returns the manhours across the six base categories.
func (a Allocation) TotalManhours() decimal.Decimal {
	return a.Manhours.Sum()
}

// UnallocatedTotal returns the sum of amounts left unallocated.
func (a Allocation) UnallocatedTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, u := range a.Unallocated {
		sum = sum.Add(u.Amount)
	}
	return sum
}

var laborCategories = []Category{DirectLabor, IndirectLabor}

// Allocate redistributes a block's add-on values across its base
// categories:
//
//   - ADD ONS go to INDIRECT LABOR.
//   - SCAFFOLDING goes to SUBCONTRACTS.
//   - TAXES & INSURANCE and PERDIEM split across DIRECT and INDIRECT LABOR
//     in proportion to their base values.
//   - RISK splits across all six base categories in proportion to their
//     base values.
//
// Every proportional split uses the pre-allocation base values; add-ons do
// not cascade. Manhours are carried through unchanged. ALL LABOR and
// DISCIPLINE TOTALS are never read.
func Allocate(block DisciplineBlock, log *TransformLog) Allocation {
	base := block.BaseValues()
	a := Allocation{
		Sheet:            block.Sheet,
		Discipline:       block.Name,
		DisciplineNumber: block.Number,
		Base:             base,
		AddOns:           block.AddOnValues(),
		Allocated:        base,
		Manhours:         block.BaseManhours(),
		Passthrough:      append([]RawCategory(nil), block.Unrecognized...),
	}

	a.assign(AddOns, a.AddOns.AddOns, IndirectLabor)
	a.assign(Scaffolding, a.AddOns.Scaffolding, Subcontracts)
	a.split(TaxesInsurance, a.AddOns.TaxesInsurance, laborCategories, log)
	a.split(PerDiem, a.AddOns.PerDiem, laborCategories, log)
	a.split(Risk, a.AddOns.Risk, BaseCategories, log)

	for _, p := range a.Passthrough {
		log.Add(StepAllocate, fmt.Sprintf("discipline %q: category %q is neither base nor add-on; passed through", a.Discipline, p.Label), p)
	}
	log.Add(StepAllocate, fmt.Sprintf("discipline %q: allocated %d add-on shares", a.Discipline, len(a.Shares)), map[string]any{
		"base":        a.Base,
		"add_ons":     a.AddOns,
		"allocated":   a.Allocated,
		"unallocated": a.UnallocatedTotal(),
	})
	return a
}

func (a *Allocation) assign(source Category, amount decimal.Decimal, target Category) {
	if amount.IsZero() {
		return
	}
	a.Allocated.Add(target, amount)
	a.Shares = append(a.Shares, AllocationShare{
		Source:     source.String(),
		Target:     target.String(),
		Amount:     amount,
		Percentage: 100,
	})
}

// split distributes amount across targets in proportion to their base
// values. The last non-zero target takes the remainder so the shares always
// sum to amount exactly. A zero denominator leaves the amount unallocated.
func (a *Allocation) split(source Category, amount decimal.Decimal, targets []Category, log *TransformLog) {
	if amount.IsZero() {
		return
	}

	denom := decimal.Zero
	last := -1
	for i, t := range targets {
		b := a.Base.Get(t)
		denom = denom.Add(b)
		if !b.IsZero() {
			last = i
		}
	}
	if denom.IsZero() {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.String()
		}
		msg := fmt.Sprintf("discipline %q: %s of %s not allocated; base categories %s are all zero",
			a.Discipline, source, amount.StringFixed(2), strings.Join(names, ", "))
		a.Unallocated = append(a.Unallocated, UnallocatedAmount{Category: source.String(), Amount: amount})
		a.Warnings = append(a.Warnings, msg)
		log.Add(StepUnallocated, msg, map[string]any{"discipline": a.Discipline, "category": source.String(), "amount": amount})
		return
	}

	spent := decimal.Zero
	for i, t := range targets {
		b := a.Base.Get(t)
		if b.IsZero() {
			continue
		}
		share := amount.Sub(spent)
		if i != last {
			share = amount.Mul(b).Div(denom)
		}
		spent = spent.Add(share)
		a.Allocated.Add(t, share)
		a.Shares = append(a.Shares, AllocationShare{
			Source:     source.String(),
			Target:     t.String(),
			Amount:     share,
			Percentage: percentage(b, denom),
		})
	}
}
