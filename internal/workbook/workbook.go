package workbook

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Sheet is an immutable 2-D grid of cells. Rows may be ragged; reads past
// the end of a row return an empty cell.
type Sheet struct {
	name  string
	rows  [][]Cell
	width int
}

// NewSheet copies rows into a new Sheet.
func NewSheet(name string, rows [][]Cell) *Sheet {
	s := &Sheet{name: name, rows: make([][]Cell, len(rows))}
	for i, row := range rows {
		s.rows[i] = append([]Cell(nil), row...)
		if len(row) > s.width {
			s.width = len(row)
		}
	}
	return s
}

// NewSheetFromValues builds a sheet from loosely typed values: string,
// float64, int, nil or Cell.
func NewSheetFromValues(name string, values [][]any) *Sheet {
	rows := make([][]Cell, len(values))
	for i, row := range values {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = ToCell(v)
		}
		rows[i] = cells
	}
	return NewSheet(name, rows)
}

// ToCell converts a Go value to a Cell.
func ToCell(v any) Cell {
	switch val := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return val
	case string:
		return TextCell(val)
	case float64:
		return NumberCell(val)
	case float32:
		return NumberCell(float64(val))
	case int:
		return NumberCell(float64(val))
	case int64:
		return NumberCell(float64(val))
	default:
		return Cell{}
	}
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// RowCount returns the number of rows in the grid.
func (s *Sheet) RowCount() int { return len(s.rows) }

// ColumnCount returns the width of the widest row.
func (s *Sheet) ColumnCount() int { return s.width }

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= len(s.rows[row]) {
		return Cell{}
	}
	return s.rows[row][col]
}

// Row returns a copy of the cells in a row, padded to the sheet width.
func (s *Sheet) Row(row int) []Cell {
	out := make([]Cell, s.width)
	if row >= 0 && row < len(s.rows) {
		copy(out, s.rows[row])
	}
	return out
}

// RowText returns the display text of every cell in a row.
func (s *Sheet) RowText(row int) []string {
	cells := s.Row(row)
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c.String())
	}
	return out
}

// LastPopulatedRow returns the index of the last row holding any value,
// or -1 for an empty sheet.
func (s *Sheet) LastPopulatedRow() int {
	for i := len(s.rows) - 1; i >= 0; i-- {
		for _, c := range s.rows[i] {
			if !c.IsEmpty() {
				return i
			}
		}
	}
	return -1
}

// IsEmpty reports whether the sheet holds no values at all.
func (s *Sheet) IsEmpty() bool {
	return s.LastPopulatedRow() < 0
}

// Workbook is an ordered set of named sheets.
type Workbook struct {
	names  []string
	sheets map[string]*Sheet
}

// New builds a workbook from sheets in order. Duplicate names are rejected.
func New(sheets ...*Sheet) (*Workbook, error) {
	wb := &Workbook{sheets: make(map[string]*Sheet, len(sheets))}
	for _, s := range sheets {
		if s == nil {
			return nil, eris.New("workbook: nil sheet")
		}
		if _, dup := wb.sheets[s.name]; dup {
			return nil, eris.Errorf("workbook: duplicate sheet %q", s.name)
		}
		wb.names = append(wb.names, s.name)
		wb.sheets[s.name] = s
	}
	return wb, nil
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	s, ok := w.sheets[name]
	return s, ok
}

// SheetFold returns the first sheet whose name matches case-insensitively
// after trimming.
func (w *Workbook) SheetFold(name string) (*Sheet, bool) {
	want := strings.TrimSpace(name)
	for _, n := range w.names {
		if strings.EqualFold(strings.TrimSpace(n), want) {
			return w.sheets[n], true
		}
	}
	return nil, false
}

// Len returns the number of sheets.
func (w *Workbook) Len() int { return len(w.names) }
