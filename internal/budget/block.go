package budget

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// CategoryValue holds the figures read for one category row.
type CategoryValue struct {
	Label      string          `json:"label" yaml:"label"`
	Manhours   decimal.Decimal `json:"manhours" yaml:"manhours"`
	Value      decimal.Decimal `json:"value" yaml:"value"`
	Percentage float64         `json:"percentage" yaml:"percentage"`
}

// RawCategory is a category row whose label is not part of the template.
type RawCategory struct {
	Label    string          `json:"label" yaml:"label"`
	Row      int             `json:"row" yaml:"row"`
	Manhours decimal.Decimal `json:"manhours" yaml:"manhours"`
	Value    decimal.Decimal `json:"value" yaml:"value"`
}

// DisciplineBlock is one discipline's run of category rows.
type DisciplineBlock struct {
	Sheet            string                     `json:"sheet" yaml:"sheet"`
	Name             string                     `json:"name" yaml:"name"`
	Number           int                        `json:"discipline_number" yaml:"discipline_number"`
	StartRow         int                        `json:"start_row" yaml:"start_row"`
	DirectManhours   decimal.Decimal            `json:"direct_manhours" yaml:"direct_manhours"`
	IndirectManhours decimal.Decimal            `json:"indirect_manhours" yaml:"indirect_manhours"`
	Categories       map[Category]CategoryValue `json:"-" yaml:"-"`
	Unrecognized     []RawCategory              `json:"unrecognized,omitempty" yaml:"unrecognized,omitempty"`
}

// Value returns the extracted value of a category.
func (b DisciplineBlock) Value(c Category) decimal.Decimal {
	return b.Categories[c].Value
}

// Manhours returns the extracted manhours of a category.
func (b DisciplineBlock) Manhours(c Category) decimal.Decimal {
	return b.Categories[c].Manhours
}

// BaseValues returns the block's pre-allocation base category values.
func (b DisciplineBlock) BaseValues() BaseAmounts {
	var out BaseAmounts
	for _, c := range BaseCategories {
		out.Add(c, b.Value(c))
	}
	return out
}

// BaseManhours returns the block's manhours per base category.
func (b DisciplineBlock) BaseManhours() BaseAmounts {
	var out BaseAmounts
	for _, c := range BaseCategories {
		out.Add(c, b.Manhours(c))
	}
	return out
}

// AddOnValues returns the block's add-on category values.
func (b DisciplineBlock) AddOnValues() AddOnAmounts {
	return AddOnAmounts{
		TaxesInsurance: b.Value(TaxesInsurance),
		PerDiem:        b.Value(PerDiem),
		AddOns:         b.Value(AddOns),
		Scaffolding:    b.Value(Scaffolding),
		Risk:           b.Value(Risk),
	}
}

// Total returns the sum of base and add-on values.
func (b DisciplineBlock) Total() decimal.Decimal {
	return b.BaseValues().Sum().Add(b.AddOnValues().Sum())
}

// categoriesByLabel returns the category map keyed by template label for
// logging.
func (b DisciplineBlock) categoriesByLabel() map[string]CategoryValue {
	out := make(map[string]CategoryValue, len(b.Categories))
	for c, v := range b.Categories {
		out[c.String()] = v
	}
	return out
}

// ExtractBlocks reads every discipline block on a sheet. headerRow is the
// detected header row (or -1); block search starts below it. Extraction is
// total: malformed cells become zero and are reported as warnings.
func ExtractBlocks(sheet *workbook.Sheet, layout BlockLayout, headerRow int, log *TransformLog) ([]DisciplineBlock, []string) {
	if sheet == nil {
		return nil, nil
	}
	layout = layout.withDefaults()

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		log.Add(StepExtract, msg, nil)
	}

	start := layout.firstBlockRow(sheet, headerRow+1)
	if start < 0 {
		warn("sheet %q: no discipline blocks found", sheet.Name())
		return nil, warnings
	}

	last := sheet.LastPopulatedRow()
	var blocks []DisciplineBlock
	for row := start; row <= last; row += layout.BlockSize {
		name := strings.TrimSpace(sheet.Cell(row, layout.NameCol).String())
		if name == "" {
			if blockIsBlank(sheet, row, layout) {
				break
			}
			warn("sheet %q: block at row %d has no discipline name; skipped", sheet.Name(), row+1)
			continue
		}

		block := readBlock(sheet, row, name, len(blocks)+1, layout, warn, log)
		blocks = append(blocks, block)
		log.Add(StepExtract, fmt.Sprintf("sheet %q: extracted discipline %q at row %d", sheet.Name(), name, row+1), map[string]any{
			"discipline":        block.Name,
			"discipline_number": block.Number,
			"categories":        block.categoriesByLabel(),
			"unrecognized":      len(block.Unrecognized),
		})
	}
	return blocks, warnings
}

func readBlock(sheet *workbook.Sheet, start int, name string, seq int, layout BlockLayout, warn func(string, ...any), log *TransformLog) DisciplineBlock {
	block := DisciplineBlock{
		Sheet:      sheet.Name(),
		Name:       name,
		Number:     seq,
		StartRow:   start,
		Categories: map[Category]CategoryValue{},
	}
	if n, ok := sheet.Cell(start, layout.NumberCol).Float(); ok && n > 0 && n <= math.MaxInt32 && n == math.Trunc(n) {
		block.Number = int(n)
	}

	readNumber := func(row, col int, what string) decimal.Decimal {
		cell := sheet.Cell(row, col)
		d, ok := cell.Decimal()
		if !ok {
			warn("sheet %q: discipline %q row %d: %s %q is not numeric; using 0", sheet.Name(), name, row+1, what, cell.String())
			log.Add(StepParseNumber, "non-numeric cell treated as zero", map[string]any{
				"sheet": sheet.Name(), "row": row + 1, "column": col + 1, "raw": cell.String(),
			})
			return decimal.Zero
		}
		return d
	}

	for off := 0; off < layout.BlockSize; off++ {
		row := start + off
		label := strings.TrimSpace(sheet.Cell(row, layout.LabelCol).String())
		if label == "" {
			continue
		}
		mh := readNumber(row, layout.ManhoursCol, "manhours")
		val := readNumber(row, layout.ValueCol, "value")

		cat, ok := ParseCategory(label)
		if !ok {
			block.Unrecognized = append(block.Unrecognized, RawCategory{Label: label, Row: row, Manhours: mh, Value: val})
			warn("sheet %q: discipline %q row %d: unrecognized category %q passed through", sheet.Name(), name, row+1, label)
			continue
		}
		cv := block.Categories[cat]
		cv.Label = label
		cv.Manhours = cv.Manhours.Add(mh)
		cv.Value = cv.Value.Add(val)
		block.Categories[cat] = cv
	}

	total := block.Total()
	for c, cv := range block.Categories {
		cv.Percentage = percentage(cv.Value, total)
		block.Categories[c] = cv
	}
	block.DirectManhours = block.Manhours(DirectLabor)
	block.IndirectManhours = block.Manhours(IndirectLabor)
	return block
}

func blockIsBlank(sheet *workbook.Sheet, start int, layout BlockLayout) bool {
	for off := 0; off < layout.BlockSize; off++ {
		row := start + off
		for _, col := range []int{layout.NumberCol, layout.NameCol, layout.LabelCol, layout.ManhoursCol, layout.ValueCol} {
			if !sheet.Cell(row, col).IsEmpty() {
				return false
			}
		}
	}
	return true
}

var hundred = decimal.NewFromInt(100)

// percentage returns part/whole as a percentage rounded to two decimals,
// or zero for a zero whole.
func percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(whole).Round(2).InexactFloat64()
}
