package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is a normalized budget row ready for persistence. Exactly one
// cost bucket is populated and TotalCost equals the bucket sum.
type LineItem struct {
	Sheet             string          `json:"sheet" yaml:"sheet" csv:"sheet"`
	Description       string          `json:"description" yaml:"description" csv:"description"`
	WBSCode           string          `json:"wbs_code,omitempty" yaml:"wbs_code,omitempty" csv:"wbs_code"`
	Discipline        string          `json:"discipline" yaml:"discipline" csv:"discipline"`
	CostType          string          `json:"cost_type" yaml:"cost_type" csv:"cost_type"`
	TotalCost         decimal.Decimal `json:"total_cost" yaml:"total_cost" csv:"total_cost"`
	LaborDirectCost   decimal.Decimal `json:"labor_direct_cost" yaml:"labor_direct_cost" csv:"labor_direct_cost"`
	LaborIndirectCost decimal.Decimal `json:"labor_indirect_cost" yaml:"labor_indirect_cost" csv:"labor_indirect_cost"`
	LaborStaffCost    decimal.Decimal `json:"labor_staff_cost" yaml:"labor_staff_cost" csv:"labor_staff_cost"`
	MaterialsCost     decimal.Decimal `json:"materials_cost" yaml:"materials_cost" csv:"materials_cost"`
	EquipmentCost     decimal.Decimal `json:"equipment_cost" yaml:"equipment_cost" csv:"equipment_cost"`
	SubcontractsCost  decimal.Decimal `json:"subcontracts_cost" yaml:"subcontracts_cost" csv:"subcontracts_cost"`
	SmallToolsCost    decimal.Decimal `json:"small_tools_cost" yaml:"small_tools_cost" csv:"small_tools_cost"`
}

// NewLineItem builds a line item holding amount in the bucket of a base
// category. Non-base categories yield an item with no bucket set.
func NewLineItem(sheet, description, wbsCode, discipline string, c Category, amount decimal.Decimal) LineItem {
	li := LineItem{
		Sheet:       sheet,
		Description: description,
		WBSCode:     wbsCode,
		Discipline:  discipline,
		CostType:    c.CostType(),
	}
	switch c {
	case DirectLabor:
		li.LaborDirectCost = amount
	case IndirectLabor:
		li.LaborIndirectCost = amount
	case Materials:
		li.MaterialsCost = amount
	case Equipment:
		li.EquipmentCost = amount
	case Subcontracts:
		li.SubcontractsCost = amount
	case SmallTools:
		li.SmallToolsCost = amount
	}
	li.TotalCost = li.BucketSum()
	return li
}

// BucketSum totals the cost buckets.
func (li LineItem) BucketSum() decimal.Decimal {
	return decimal.Sum(li.LaborDirectCost, li.LaborIndirectCost, li.LaborStaffCost,
		li.MaterialsCost, li.EquipmentCost, li.SubcontractsCost, li.SmallToolsCost)
}

// Category returns the base category of the item's cost type.
func (li LineItem) Category() Category {
	c, _ := CategoryFromCostType(li.CostType)
	return c
}

// MaterializeAllocation emits one line item per base category with a
// non-zero post-allocation value.
func MaterializeAllocation(a Allocation, wbsCode string) []LineItem {
	var items []LineItem
	for _, c := range BaseCategories {
		v := a.Allocated.Get(c)
		if v.IsZero() {
			continue
		}
		items = append(items, NewLineItem(a.Sheet, fmt.Sprintf("%s - %s", a.Discipline, c), wbsCode, a.Discipline, c, v))
	}
	return items
}

// Totals summarizes every line item of a run.
type Totals struct {
	GrandTotal decimal.Decimal            `json:"grand_total" yaml:"grand_total"`
	ByCategory map[string]decimal.Decimal `json:"by_category" yaml:"by_category"`
}

// SumLineItems totals items overall and per base category label.
func SumLineItems(items map[string][]LineItem) Totals {
	t := Totals{ByCategory: map[string]decimal.Decimal{}}
	for _, sheet := range items {
		for _, li := range sheet {
			label := li.Category().String()
			t.GrandTotal = t.GrandTotal.Add(li.TotalCost)
			t.ByCategory[label] = t.ByCategory[label].Add(li.TotalCost)
		}
	}
	return t
}
