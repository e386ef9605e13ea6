package workbook

import (
	"bytes"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Open reads an xlsx file from disk.
func Open(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: read file")
	}
	return Parse(data)
}

// Read reads an xlsx workbook from r.
func Read(r io.Reader) (*Workbook, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, eris.Wrap(err, "xlsx: read")
	}
	return Parse(buf.Bytes())
}

// Parse decodes xlsx bytes into a Workbook.
func Parse(data []byte) (*Workbook, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return FromXLSX(f)
}

// FromXLSX converts a parsed xlsx file into a Workbook, preserving sheet
// order.
func FromXLSX(f *xlsx.File) (*Workbook, error) {
	if f == nil {
		return nil, eris.New("xlsx: nil file")
	}
	sheets := make([]*Sheet, 0, len(f.Sheets))
	for _, xs := range f.Sheets {
		sheets = append(sheets, convertSheet(xs))
	}
	wb, err := New(sheets...)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: build workbook")
	}
	return wb, nil
}

func convertSheet(xs *xlsx.Sheet) *Sheet {
	rows := make([][]Cell, len(xs.Rows))
	for i, row := range xs.Rows {
		if row == nil {
			continue
		}
		cells := make([]Cell, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = convertCell(c)
		}
		rows[i] = cells
	}
	return NewSheet(xs.Name, rows)
}

func convertCell(c *xlsx.Cell) Cell {
	if c == nil {
		return Cell{}
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric, xlsx.CellTypeDate:
		if f, err := c.Float(); err == nil {
			return NumberCell(f)
		}
	}
	return TextCell(c.String())
}
