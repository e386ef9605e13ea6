package budget

import (
	"strings"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// Role is the semantic meaning of a sheet column.
type Role string

const (
	RoleWBS         Role = "wbs"
	RoleDescription Role = "description"
	RoleQuantity    Role = "quantity"
	RoleUnit        Role = "unit"
	RoleRate        Role = "rate"
	RoleHours       Role = "hours"
	RoleTotal       Role = "total"
	RoleDiscipline  Role = "discipline"
	RoleCategory    Role = "category"
)

// Roles lists every column role in canonical order.
var Roles = []Role{RoleWBS, RoleDescription, RoleQuantity, RoleUnit, RoleRate, RoleHours, RoleTotal, RoleDiscipline, RoleCategory}

// ParseRole returns the role named by s.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// roleVocabulary holds normalized header spellings per role.
var roleVocabulary = map[Role][]string{
	RoleWBS:         {"wbs", "wbs code", "wbs no", "wbs number", "cost code", "code"},
	RoleDescription: {"description", "desc", "item description", "item", "scope", "scope of work", "task"},
	RoleQuantity:    {"quantity", "qty", "quantities"},
	RoleUnit:        {"unit", "units", "uom", "unit of measure"},
	RoleRate:        {"rate", "unit rate", "unit price", "unit cost", "price"},
	RoleHours:       {"hours", "hrs", "manhours", "man hours", "mh", "labor hours"},
	RoleTotal:       {"total", "total cost", "amount", "extended cost", "total amount", "cost"},
	RoleDiscipline:  {"discipline", "discipline name", "trade", "craft"},
	RoleCategory:    {"category", "cost category", "cost type", "type"},
}

const (
	// DefaultHeaderScanDepth is the number of leading rows searched for a
	// header.
	DefaultHeaderScanDepth = 20
	// DefaultMinSimilarity is the per-role score a cell must reach to count
	// as a header for that role.
	DefaultMinSimilarity = 0.8

	minHeaderRoles   = 2
	maxHeaderTextLen = 48
)

// HeaderColumn is one column matched to a role.
type HeaderColumn struct {
	Index      int     `json:"index" yaml:"index"`
	HeaderText string  `json:"header_text" yaml:"header_text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DetectedHeader is the most likely header row of a sheet.
type DetectedHeader struct {
	HeaderRowIndex int                   `json:"header_row_index" yaml:"header_row_index"`
	Columns        map[Role]HeaderColumn `json:"columns" yaml:"columns"`
}

// Has reports whether the header maps role to a column.
func (h *DetectedHeader) Has(role Role) bool {
	if h == nil {
		return false
	}
	_, ok := h.Columns[role]
	return ok
}

// Mapping converts the detected columns to a ColumnMapping.
func (h *DetectedHeader) Mapping() ColumnMapping {
	m := ColumnMapping{}
	if h == nil {
		return m
	}
	for role, col := range h.Columns {
		m[role] = col.Index
	}
	return m
}

// HeaderOptions tunes header detection.
type HeaderOptions struct {
	ScanDepth     int
	MinSimilarity float64
	// RoleMinSimilarity overrides MinSimilarity for individual roles.
	RoleMinSimilarity map[Role]float64
}

func (o HeaderOptions) withDefaults() HeaderOptions {
	if o.ScanDepth <= 0 {
		o.ScanDepth = DefaultHeaderScanDepth
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	return o
}

func (o HeaderOptions) minFor(role Role) float64 {
	if v, ok := o.RoleMinSimilarity[role]; ok && v > 0 {
		return v
	}
	return o.MinSimilarity
}

// DetectHeader finds the row within the scan depth that matches the most
// distinct roles. It returns nil when no row matches at least two roles.
func DetectHeader(sheet *workbook.Sheet, opts HeaderOptions) *DetectedHeader {
	if sheet == nil || sheet.IsEmpty() {
		return nil
	}
	opts = opts.withDefaults()

	limit := opts.ScanDepth
	if n := sheet.RowCount(); n < limit {
		limit = n
	}

	var best *DetectedHeader
	for row := 0; row < limit; row++ {
		cols := scoreHeaderRow(sheet, row, opts)
		if len(cols) < minHeaderRoles {
			continue
		}
		// Strictly more roles wins; equal counts keep the earlier row.
		if best == nil || len(cols) > len(best.Columns) {
			best = &DetectedHeader{HeaderRowIndex: row, Columns: cols}
		}
	}
	return best
}

// scoreHeaderRow assigns each text cell its best role and keeps, per role,
// the highest-scoring cell (leftmost on ties).
func scoreHeaderRow(sheet *workbook.Sheet, row int, opts HeaderOptions) map[Role]HeaderColumn {
	cols := map[Role]HeaderColumn{}
	for col := 0; col < sheet.ColumnCount(); col++ {
		cell := sheet.Cell(row, col)
		if cell.Kind != workbook.Text {
			continue
		}
		raw := strings.TrimSpace(cell.Text)
		if raw == "" || len(raw) > maxHeaderTextLen {
			continue
		}
		text := normalizeText(raw)
		if text == "" {
			continue
		}

		role, score := classifyHeader(text, opts)
		if role == "" {
			continue
		}
		if cur, ok := cols[role]; ok && cur.Confidence >= score {
			continue
		}
		cols[role] = HeaderColumn{Index: col, HeaderText: raw, Confidence: score}
	}
	return cols
}

// classifyHeader returns the best role for normalized header text, or ""
// when no role reaches its minimum similarity.
func classifyHeader(text string, opts HeaderOptions) (Role, float64) {
	var (
		bestRole  Role
		bestScore float64
	)
	for _, role := range Roles {
		score := bestMatch(text, roleVocabulary[role])
		if score < opts.minFor(role) {
			continue
		}
		if score > bestScore {
			bestRole, bestScore = role, score
		}
	}
	return bestRole, bestScore
}
