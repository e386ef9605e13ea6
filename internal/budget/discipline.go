package budget

import (
	"strings"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// DisciplineMapper groups the disciplines of a workbook into top-level WBS
// groups. ok is false when the workbook carries no grouping.
type DisciplineMapper interface {
	Groups(wb *workbook.Workbook) (groups []DisciplineGroup, ok bool)
}

// DefaultInputSheet is the sheet that lists active disciplines.
const DefaultInputSheet = "INPUT"

// InputSheetMapper reads discipline groups from an INPUT sheet with one
// row per discipline: group name, discipline name and an active flag.
// Rows with a blank group inherit the previous group. A blank active
// column counts as active.
type InputSheetMapper struct {
	SheetName     string
	GroupCol      int
	DisciplineCol int
	ActiveCol     int
}

// NewInputSheetMapper returns a mapper for the standard INPUT layout:
// group in column A, discipline in B, active flag in C.
func NewInputSheetMapper(sheetName string) *InputSheetMapper {
	if sheetName == "" {
		sheetName = DefaultInputSheet
	}
	return &InputSheetMapper{SheetName: sheetName, GroupCol: 0, DisciplineCol: 1, ActiveCol: 2}
}

var inputHeaderWords = map[string]bool{"discipline": true, "disciplines": true, "group": true, "active": true}

// Groups implements DisciplineMapper.
func (m *InputSheetMapper) Groups(wb *workbook.Workbook) ([]DisciplineGroup, bool) {
	if wb == nil {
		return nil, false
	}
	sheet, ok := wb.SheetFold(m.SheetName)
	if !ok || sheet.IsEmpty() {
		return nil, false
	}

	var (
		groups  []DisciplineGroup
		index   = map[string]int{}
		current string
	)
	for row := 0; row <= sheet.LastPopulatedRow(); row++ {
		group := strings.TrimSpace(sheet.Cell(row, m.GroupCol).String())
		disc := strings.TrimSpace(sheet.Cell(row, m.DisciplineCol).String())
		if inputHeaderWords[normalizeText(disc)] {
			continue
		}
		if group != "" {
			current = group
		}
		if disc == "" || !isActive(sheet.Cell(row, m.ActiveCol)) {
			continue
		}
		name := current
		if name == "" {
			name = disc
		}
		i, seen := index[name]
		if !seen {
			i = len(groups)
			index[name] = i
			groups = append(groups, DisciplineGroup{Name: name})
		}
		groups[i].Disciplines = append(groups[i].Disciplines, disc)
	}
	return groups, len(groups) > 0
}

func isActive(c workbook.Cell) bool {
	switch c.Kind {
	case workbook.Empty:
		return true
	case workbook.Number:
		return c.Number != 0
	}
	switch strings.ToUpper(strings.TrimSpace(c.Text)) {
	case "Y", "YES", "X", "TRUE", "1", "ACTIVE", "INCLUDE":
		return true
	}
	return false
}

// reconcileGroups appends every extracted discipline the grouping does not
// mention as its own group. It returns the disciplines it appended.
func reconcileGroups(groups []DisciplineGroup, found []string) ([]DisciplineGroup, []string) {
	listed := map[string]bool{}
	for _, g := range groups {
		for _, d := range g.Disciplines {
			listed[disciplineKey(d)] = true
		}
	}
	out := append([]DisciplineGroup(nil), groups...)
	var missing []string
	for _, d := range found {
		if listed[disciplineKey(d)] {
			continue
		}
		listed[disciplineKey(d)] = true
		missing = append(missing, d)
		out = append(out, DisciplineGroup{Name: d, Disciplines: []string{d}})
	}
	return out, missing
}
