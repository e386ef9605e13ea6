package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// ExtractTabularItems reads a row-per-item sheet through its column
// mapping. It needs a description column and either a total column or both
// quantity and rate. The cost type comes from the category column, falling
// back to the sheet name; rows whose cost type cannot be determined are
// skipped with a warning.
func ExtractTabularItems(sheet *workbook.Sheet, mapping ColumnMapping, headerRow int, log *TransformLog) ([]LineItem, []string) {
	if sheet == nil {
		return nil, nil
	}
	descCol, hasDesc := mapping.Index(RoleDescription)
	totalCol, hasTotal := mapping.Index(RoleTotal)
	qtyCol, hasQty := mapping.Index(RoleQuantity)
	rateCol, hasRate := mapping.Index(RoleRate)
	if !hasDesc || (!hasTotal && !(hasQty && hasRate)) {
		log.Add(StepMaterialize, fmt.Sprintf("sheet %q: no description and cost columns; no tabular line items", sheet.Name()), nil)
		return nil, nil
	}

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		log.Add(StepMaterialize, msg, nil)
	}

	sheetCategory, sheetOK := ParseCategory(sheet.Name())
	sheetOK = sheetOK && sheetCategory.IsBase()

	var (
		items        []LineItem
		untypedRows  int
		firstUntyped = -1
	)
	for row := headerRow + 1; row <= sheet.LastPopulatedRow(); row++ {
		desc := strings.TrimSpace(sheet.Cell(row, descCol).String())
		if desc == "" || isSummaryRow(desc) {
			continue
		}

		amount, ok := tabularAmount(sheet, row, hasTotal, totalCol, qtyCol, rateCol)
		if !ok {
			warn("sheet %q row %d: total for %q is not numeric; row skipped", sheet.Name(), row+1, desc)
			continue
		}
		if amount.IsZero() {
			continue
		}

		cat := sheetCategory
		typed := sheetOK
		if col, ok := mapping.Index(RoleCategory); ok {
			if c, ok := ParseCategory(sheet.Cell(row, col).String()); ok && c.IsBase() {
				cat, typed = c, true
			}
		}
		if !typed {
			untypedRows++
			if firstUntyped < 0 {
				firstUntyped = row
			}
			continue
		}

		discipline := sheet.Name()
		if col, ok := mapping.Index(RoleDiscipline); ok {
			if d := strings.TrimSpace(sheet.Cell(row, col).String()); d != "" {
				discipline = d
			}
		}
		var wbs string
		if col, ok := mapping.Index(RoleWBS); ok {
			wbs = strings.TrimSpace(sheet.Cell(row, col).String())
		}
		items = append(items, NewLineItem(sheet.Name(), desc, wbs, discipline, cat, amount))
	}

	if untypedRows > 0 {
		warn("sheet %q: %d rows skipped because no cost category could be determined (first at row %d)", sheet.Name(), untypedRows, firstUntyped+1)
	}
	log.Add(StepMaterialize, fmt.Sprintf("sheet %q: %d tabular line items", sheet.Name(), len(items)), nil)
	return items, warnings
}

func tabularAmount(sheet *workbook.Sheet, row int, hasTotal bool, totalCol, qtyCol, rateCol int) (decimal.Decimal, bool) {
	if hasTotal {
		return sheet.Cell(row, totalCol).Decimal()
	}
	qty, ok := sheet.Cell(row, qtyCol).Decimal()
	if !ok {
		return decimal.Zero, false
	}
	rate, ok := sheet.Cell(row, rateCol).Decimal()
	if !ok {
		return decimal.Zero, false
	}
	return qty.Mul(rate), true
}

// isSummaryRow reports whether a description marks a subtotal or total
// row, which would double count its detail rows.
func isSummaryRow(desc string) bool {
	n := normalizeText(desc)
	for _, prefix := range []string{"total", "subtotal", "sub total", "grand total"} {
		if n == prefix || strings.HasPrefix(n, prefix+" ") {
			return true
		}
	}
	return false
}
