package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineItem_SingleBucket(t *testing.T) {
	for _, c := range BaseCategories {
		li := NewLineItem("S", "d", "01.01", "CIVIL", c, dec(123.45))
		assertDecimal(t, dec(123.45), li.TotalCost, c.String())
		assertDecimal(t, li.BucketSum(), li.TotalCost)
		assert.Equal(t, c.CostType(), li.CostType)
		assert.Equal(t, c, li.Category())

		nonZero := 0
		for _, v := range []decimal.Decimal{li.LaborDirectCost, li.LaborIndirectCost, li.LaborStaffCost, li.MaterialsCost, li.EquipmentCost, li.SubcontractsCost, li.SmallToolsCost} {
			if !v.IsZero() {
				nonZero++
			}
		}
		assert.Equal(t, 1, nonZero, c.String())
	}
}

func TestMaterializeAllocation(t *testing.T) {
	a := Allocate(blockFromValues("ELECTRICAL", map[Category]float64{
		DirectLabor: 1000, Materials: 500, Scaffolding: 50,
	}), nil)

	items := MaterializeAllocation(a, "01.01")
	require.Len(t, items, 3)

	assert.Equal(t, "ELECTRICAL - DIRECT LABOR", items[0].Description)
	assert.Equal(t, "labor_direct", items[0].CostType)
	assertDecimal(t, dec(1000), items[0].LaborDirectCost)

	assert.Equal(t, "materials", items[1].CostType)
	assertDecimal(t, dec(500), items[1].MaterialsCost)

	assert.Equal(t, "subcontracts", items[2].CostType)
	assertDecimal(t, dec(50), items[2].SubcontractsCost)
	assertDecimal(t, dec(50), items[2].TotalCost)

	for _, li := range items {
		assert.Equal(t, "01.01", li.WBSCode)
		assert.Equal(t, "ELECTRICAL", li.Discipline)
		assert.Equal(t, "BUDGET", li.Sheet)
	}
}

func TestMaterializeAllocation_Empty(t *testing.T) {
	a := Allocate(blockFromValues("X", nil), nil)
	assert.Empty(t, MaterializeAllocation(a, "01.01"))
}

func TestSumLineItems(t *testing.T) {
	totals := SumLineItems(map[string][]LineItem{
		"A": {NewLineItem("A", "x", "", "D", DirectLabor, dec(10)), NewLineItem("A", "y", "", "D", Materials, dec(5))},
		"B": {NewLineItem("B", "z", "", "D", DirectLabor, dec(2.5))},
		"C": {NewLineItem("C", "w", "", "D", Materials, dec(0.1)), NewLineItem("C", "v", "", "D", Materials, dec(0.2))},
	})
	assertDecimal(t, dec(17.8), totals.GrandTotal)
	require.Len(t, totals.ByCategory, 2)
	assertDecimal(t, dec(12.5), totals.ByCategory["DIRECT LABOR"])
	assertDecimal(t, dec(5.3), totals.ByCategory["MATERIALS"])

	empty := SumLineItems(nil)
	assert.True(t, empty.GrandTotal.IsZero())
	assert.NotNil(t, empty.ByCategory)
}
