// Package workbook holds the immutable spreadsheet model consumed by the
// budget engine and the xlsx loader that produces it.
package workbook

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the value held by a Cell.
type Kind uint8

const (
	Empty Kind = iota
	Text
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value: empty, text, or number.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
}

// TextCell returns a text cell. Blank strings collapse to an empty cell.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: Text, Text: s}
}

// NumberCell returns a numeric cell. NaN and infinities collapse to empty.
func NumberCell(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	return Cell{Kind: Number, Number: f}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == Empty
}

// String renders the cell as display text. Numbers use the shortest
// representation that round-trips.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Decimal interprets the cell as an exact number. Empty cells are zero.
// Text cells accept accounting formats such as "$1,234.50", "(500)", "12%"
// and a lone "-". ok is false when text cannot be read as a number.
func (c Cell) Decimal() (d decimal.Decimal, ok bool) {
	switch c.Kind {
	case Empty:
		return decimal.Zero, true
	case Number:
		return decimal.NewFromFloat(c.Number), true
	}
	return parseNumber(c.Text)
}

// Float is Decimal as a float64, for positions and counts rather than
// amounts.
func (c Cell) Float() (f float64, ok bool) {
	if c.Kind == Number {
		return c.Number, true
	}
	d, ok := c.Decimal()
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func parseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || s == "—" {
		return decimal.Zero, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if percent {
		d = d.Shift(-2)
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// MarshalJSON encodes empty cells as null, text as a string and numbers as
// a JSON number.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Text:
		return json.Marshal(c.Text)
	case Number:
		return json.Marshal(c.Number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*c = TextCell(val)
	case float64:
		*c = NumberCell(val)
	default:
		*c = Cell{}
	}
	return nil
}

// MarshalYAML mirrors the JSON encoding.
func (c Cell) MarshalYAML() (any, error) {
	switch c.Kind {
	case Text:
		return c.Text, nil
	case Number:
		return c.Number, nil
	default:
		return nil, nil
	}
}
