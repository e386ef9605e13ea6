package budget

import (
	"github.com/sells-group/budget-cli/internal/workbook"
)

// BlockLayout describes where discipline blocks live on a budget sheet.
// The defaults match the discipline budget template: twelve rows per
// discipline (eleven categories and a totals row), the discipline number and
// name on the block's first row, and label, manhours and value columns
// alongside.
type BlockLayout struct {
	BlockSize int `yaml:"block_size" mapstructure:"block_size"`
	// FirstBlockRow is the row of the first block; negative means locate it
	// automatically.
	FirstBlockRow     int `yaml:"first_block_row" mapstructure:"first_block_row"`
	NumberCol         int `yaml:"number_col" mapstructure:"number_col"`
	NameCol           int `yaml:"name_col" mapstructure:"name_col"`
	LabelCol          int `yaml:"label_col" mapstructure:"label_col"`
	ManhoursCol       int `yaml:"manhours_col" mapstructure:"manhours_col"`
	ValueCol          int `yaml:"value_col" mapstructure:"value_col"`
	MinCategoryLabels int `yaml:"min_category_labels" mapstructure:"min_category_labels"`
}

// blockSearchDepth bounds the automatic search for the first block.
const blockSearchDepth = 60

// DefaultBlockLayout returns the layout of the standard discipline budget
// template.
func DefaultBlockLayout() BlockLayout {
	return BlockLayout{
		BlockSize:         12,
		FirstBlockRow:     -1,
		NumberCol:         0,
		NameCol:           1,
		LabelCol:          2,
		ManhoursCol:       3,
		ValueCol:          4,
		MinCategoryLabels: 6,
	}
}

func (l BlockLayout) withDefaults() BlockLayout {
	d := DefaultBlockLayout()
	if l.BlockSize <= 0 {
		l.BlockSize = d.BlockSize
	}
	if l.MinCategoryLabels <= 0 {
		l.MinCategoryLabels = d.MinCategoryLabels
	}
	return l
}

// withMapping overrides layout columns with mapped roles: discipline names
// the block name column, category the label column, hours the manhours
// column and total the value column.
func (l BlockLayout) withMapping(m ColumnMapping) BlockLayout {
	if idx, ok := m[RoleDiscipline]; ok {
		l.NameCol = idx
	}
	if idx, ok := m[RoleCategory]; ok {
		l.LabelCol = idx
	}
	if idx, ok := m[RoleHours]; ok {
		l.ManhoursCol = idx
	}
	if idx, ok := m[RoleTotal]; ok {
		l.ValueCol = idx
	}
	return l
}

// firstBlockRow returns the configured first block row, or the first row
// at or after from whose label cell is a known category and whose name cell
// holds text. It returns -1 when nothing is found.
func (l BlockLayout) firstBlockRow(sheet *workbook.Sheet, from int) int {
	if l.FirstBlockRow >= 0 {
		return l.FirstBlockRow
	}
	limit := from + blockSearchDepth
	if n := sheet.RowCount(); n < limit {
		limit = n
	}
	for row := from; row < limit; row++ {
		if _, ok := ParseCategory(sheet.Cell(row, l.LabelCol).String()); !ok {
			continue
		}
		if sheet.Cell(row, l.NameCol).Kind == workbook.Text {
			return row
		}
	}
	return -1
}

// LooksLikeBlockSheet reports whether the sheet's first block carries at
// least MinCategoryLabels recognized category labels.
func LooksLikeBlockSheet(sheet *workbook.Sheet, layout BlockLayout, from int) bool {
	if sheet == nil {
		return false
	}
	layout = layout.withDefaults()
	start := layout.firstBlockRow(sheet, from)
	if start < 0 {
		return false
	}
	seen := map[Category]bool{}
	for off := 0; off < layout.BlockSize; off++ {
		if c, ok := ParseCategory(sheet.Cell(start+off, layout.LabelCol).String()); ok {
			seen[c] = true
		}
	}
	return len(seen) >= layout.MinCategoryLabels
}
