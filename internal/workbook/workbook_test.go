package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestSheetAccessors(t *testing.T) {
	s := NewSheetFromValues("DIRECTS", [][]any{
		{"WBS", "Description", "Total"},
		{"01", "Conduit", 1200.0},
		{nil, nil},
		{},
	})

	assert.Equal(t, "DIRECTS", s.Name())
	assert.Equal(t, 4, s.RowCount())
	assert.Equal(t, 3, s.ColumnCount())
	assert.Equal(t, 1, s.LastPopulatedRow())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, NumberCell(1200), s.Cell(1, 2))
	assert.True(t, s.Cell(2, 2).IsEmpty())
	assert.True(t, s.Cell(99, 0).IsEmpty())
	assert.True(t, s.Cell(0, -1).IsEmpty())
	assert.Equal(t, []string{"01", "Conduit", "1200"}, s.RowText(1))
	assert.Len(t, s.Row(3), 3)
}

func TestSheetIsImmutable(t *testing.T) {
	rows := [][]Cell{{TextCell("a")}}
	s := NewSheet("S", rows)
	rows[0][0] = TextCell("b")
	assert.Equal(t, "a", s.Cell(0, 0).Text)

	row := s.Row(0)
	row[0] = TextCell("c")
	assert.Equal(t, "a", s.Cell(0, 0).Text)
}

func TestEmptySheet(t *testing.T) {
	s := NewSheetFromValues("Blank", [][]any{{nil, ""}, {}})
	assert.True(t, s.IsEmpty())
	assert.Equal(t, -1, s.LastPopulatedRow())
}

func TestNew_DuplicateSheet(t *testing.T) {
	_, err := New(NewSheet("A", nil), NewSheet("A", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate sheet")
}

func TestWorkbookLookup(t *testing.T) {
	wb, err := New(NewSheet("Budget", nil), NewSheet("INPUT", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"Budget", "INPUT"}, wb.SheetNames())
	assert.Equal(t, 2, wb.Len())

	_, ok := wb.Sheet("Budget")
	assert.True(t, ok)
	s, ok := wb.SheetFold(" input ")
	require.True(t, ok)
	assert.Equal(t, "INPUT", s.Name())
	_, ok = wb.SheetFold("missing")
	assert.False(t, ok)
}

func buildTestXLSX(t *testing.T, sheets []string, data map[string][][]any) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range data[name] {
			row := sheet.AddRow()
			for _, v := range rowData {
				cell := row.AddCell()
				switch val := v.(type) {
				case string:
					cell.SetString(val)
				case float64:
					cell.SetFloat(val)
				case int:
					cell.SetInt(val)
				}
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParse_PreservesOrderAndTypes(t *testing.T) {
	data := buildTestXLSX(t, []string{"Summary", "ELEC"}, map[string][][]any{
		"Summary": {{"Total", 100.5}},
		"ELEC":    {{"DIRECT LABOR", 50000}, {"", "n/a"}},
	})

	wb, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "ELEC"}, wb.SheetNames())

	summary, ok := wb.Sheet("Summary")
	require.True(t, ok)
	assert.Equal(t, TextCell("Total"), summary.Cell(0, 0))
	assert.Equal(t, Number, summary.Cell(0, 1).Kind)
	assert.InDelta(t, 100.5, summary.Cell(0, 1).Number, 1e-9)

	elec, _ := wb.Sheet("ELEC")
	assert.InDelta(t, 50000, elec.Cell(0, 1).Number, 1e-9)
	assert.True(t, elec.Cell(1, 0).IsEmpty())
	assert.Equal(t, "n/a", elec.Cell(1, 1).Text)
}

func TestOpen(t *testing.T) {
	data := buildTestXLSX(t, []string{"S"}, map[string][][]any{"S": {{"a"}}})
	path := filepath.Join(t.TempDir(), "budget.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	wb, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, wb.Len())

	wb, err = Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"S"}, wb.SheetNames())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse([]byte("not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open binary")
}
