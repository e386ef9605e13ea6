package budget

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// templateOrder is the row order of the standard discipline block.
var templateOrder = []string{
	"DIRECT LABOR",
	"INDIRECT LABOR",
	"MATERIALS",
	"EQUIPMENT",
	"SUBCONTRACTS",
	"SMALL TOOLS & CONSUMABLES",
	"TAXES & INSURANCE",
	"PERDIEM",
	"ADD ONS",
	"SCAFFOLDING",
	"RISK",
	"DISCIPLINE TOTALS",
}

type catRow struct {
	mh    any
	value any
}

type blockSpec struct {
	number any
	name   any
	rows   map[string]catRow
	// labels replaces templateOrder when set.
	labels []string
}

// rows renders the block as twelve sheet rows in the default layout:
// number, name, label, manhours, value.
func (b blockSpec) sheetRows() [][]any {
	labels := b.labels
	if labels == nil {
		labels = templateOrder
	}
	out := make([][]any, 12)
	for i := range out {
		var label any
		var mh, value any
		if i < len(labels) {
			label = labels[i]
			if r, ok := b.rows[labels[i]]; ok {
				mh, value = r.mh, r.value
			}
		}
		if i == 0 {
			out[i] = []any{b.number, b.name, label, mh, value}
		} else {
			out[i] = []any{nil, nil, label, mh, value}
		}
	}
	return out
}

func electricalBlock() blockSpec {
	return blockSpec{
		number: 1.0,
		name:   "ELECTRICAL",
		rows: map[string]catRow{
			"DIRECT LABOR":              {1000.0, 50000.0},
			"INDIRECT LABOR":            {200.0, 10000.0},
			"MATERIALS":                 {nil, 20000.0},
			"EQUIPMENT":                 {nil, 5000.0},
			"SUBCONTRACTS":              {nil, 8000.0},
			"SMALL TOOLS & CONSUMABLES": {nil, 2000.0},
			"TAXES & INSURANCE":         {nil, 3000.0},
			"PERDIEM":                   {nil, 1000.0},
			"ADD ONS":                   {nil, 500.0},
			"SCAFFOLDING":               {nil, 300.0},
			"RISK":                      {nil, 200.0},
			"DISCIPLINE TOTALS":         {1200.0, 100000.0},
		},
	}
}

func civilBlock() blockSpec {
	return blockSpec{
		number: 2.0,
		name:   "CIVIL",
		rows: map[string]catRow{
			"DIRECT LABOR":      {400.0, 20000.0},
			"MATERIALS":         {nil, 10000.0},
			"SCAFFOLDING":       {nil, 1000.0},
			"RISK":              {nil, 600.0},
			"DISCIPLINE TOTALS": {400.0, 31600.0},
		},
	}
}

func blockSheet(name string, blocks ...blockSpec) *workbook.Sheet {
	var rows [][]any
	for _, b := range blocks {
		rows = append(rows, b.sheetRows()...)
	}
	return workbook.NewSheetFromValues(name, rows)
}

func mustWorkbook(sheets ...*workbook.Sheet) *workbook.Workbook {
	wb, err := workbook.New(sheets...)
	if err != nil {
		panic(err)
	}
	return wb
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t0 }
}

func blockFromValues(name string, values map[Category]float64) DisciplineBlock {
	b := DisciplineBlock{Name: name, Sheet: "BUDGET", Number: 1, Categories: map[Category]CategoryValue{}}
	for c, v := range values {
		b.Categories[c] = CategoryValue{Label: c.String(), Value: dec(v)}
	}
	return b
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// share is amount*part/whole at the precision Allocate uses.
func share(amount, part, whole int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromInt(part)).Div(decimal.NewFromInt(whole))
}

// assertDecimal compares numerically, ignoring exponent differences.
func assertDecimal(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) bool {
	t.Helper()
	if want.Equal(got) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("decimals differ: want %s, got %s", want, got), msgAndArgs...)
}
