package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// electricalRows is a single ELECTRICAL discipline block in the default
// layout: number, name, category label, manhours, value.
func electricalRows() [][]any {
	return [][]any{
		{1, "ELECTRICAL", "DIRECT LABOR", 1000, 50000},
		{nil, nil, "INDIRECT LABOR", 200, 10000},
		{nil, nil, "MATERIALS", nil, 20000},
		{nil, nil, "EQUIPMENT", nil, 5000},
		{nil, nil, "SUBCONTRACTS", nil, 8000},
		{nil, nil, "SMALL TOOLS & CONSUMABLES", nil, 2000},
		{nil, nil, "TAXES & INSURANCE", nil, 3000},
		{nil, nil, "PERDIEM", nil, 1000},
		{nil, nil, "ADD ONS", nil, 500},
		{nil, nil, "SCAFFOLDING", nil, 300},
		{nil, nil, "RISK", nil, 200},
		{nil, nil, "DISCIPLINE TOTALS", 1200, 100000},
	}
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

func electricalWorkbook(t *testing.T) []byte {
	t.Helper()
	return buildTestXLSX(t, []string{"BUDGET"}, map[string][][]any{"BUDGET": electricalRows()})
}
