package budget

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// WBSNode is one node of the work breakdown structure.
type WBSNode struct {
	Code          string          `json:"code" yaml:"code"`
	ParentCode    string          `json:"parent_code,omitempty" yaml:"parent_code,omitempty"`
	Level         int             `json:"level" yaml:"level"`
	Description   string          `json:"description" yaml:"description"`
	Discipline    string          `json:"discipline,omitempty" yaml:"discipline,omitempty"`
	Children      []*WBSNode      `json:"children,omitempty" yaml:"children,omitempty"`
	BudgetTotal   decimal.Decimal `json:"budget_total" yaml:"budget_total"`
	ManhoursTotal decimal.Decimal `json:"manhours_total" yaml:"manhours_total"`
	MaterialCost  decimal.Decimal `json:"material_cost" yaml:"material_cost"`
}

// IsLeaf reports whether the node has no children.
func (n *WBSNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// DisciplineGroup is a top-level WBS group and its member disciplines.
type DisciplineGroup struct {
	Name        string   `json:"name" yaml:"name"`
	Disciplines []string `json:"disciplines" yaml:"disciplines"`
}

// WBSTotals are the figures attached to a leaf node.
type WBSTotals struct {
	Budget   decimal.Decimal
	Manhours decimal.Decimal
	Material decimal.Decimal
}

// WBSTree is a two-level WBS with parent totals kept as the sum of their
// children.
type WBSTree struct {
	roots        []*WBSNode
	byCode       map[string]*WBSNode
	byDiscipline map[string]*WBSNode
}

// BuildWBS assigns codes to groups and their disciplines in encounter
// order: groups get 01, 02, ... and members get {group}.01, {group}.02, ...
// A discipline listed twice keeps its first position.
func BuildWBS(groups []DisciplineGroup) *WBSTree {
	t := &WBSTree{
		byCode:       map[string]*WBSNode{},
		byDiscipline: map[string]*WBSNode{},
	}
	for _, g := range groups {
		root := &WBSNode{
			Code:        fmt.Sprintf("%02d", len(t.roots)+1),
			Level:       1,
			Description: g.Name,
		}
		for _, d := range g.Disciplines {
			if _, dup := t.byDiscipline[disciplineKey(d)]; dup {
				continue
			}
			leaf := &WBSNode{
				Code:        fmt.Sprintf("%s.%02d", root.Code, len(root.Children)+1),
				ParentCode:  root.Code,
				Level:       2,
				Description: d,
				Discipline:  d,
			}
			root.Children = append(root.Children, leaf)
			t.byCode[leaf.Code] = leaf
			t.byDiscipline[disciplineKey(d)] = leaf
		}
		if len(root.Children) == 0 {
			continue
		}
		t.roots = append(t.roots, root)
		t.byCode[root.Code] = root
	}
	return t
}

// Roots returns the level-1 nodes.
func (t *WBSTree) Roots() []*WBSNode {
	return t.roots
}

// Node returns the node with the given code.
func (t *WBSTree) Node(code string) (*WBSNode, bool) {
	n, ok := t.byCode[code]
	return n, ok
}

// CodeFor returns the leaf code assigned to a discipline. Names match
// case-insensitively.
func (t *WBSTree) CodeFor(discipline string) (string, bool) {
	n, ok := t.byDiscipline[disciplineKey(discipline)]
	if !ok {
		return "", false
	}
	return n.Code, true
}

// Attach adds totals to a leaf and rolls its parent up again.
func (t *WBSTree) Attach(code string, totals WBSTotals) error {
	n, ok := t.byCode[code]
	if !ok {
		return eris.Errorf("wbs: unknown code %s", code)
	}
	if !n.IsLeaf() {
		return eris.Errorf("wbs: %s is not a leaf", code)
	}
	n.BudgetTotal = n.BudgetTotal.Add(totals.Budget)
	n.ManhoursTotal = n.ManhoursTotal.Add(totals.Manhours)
	n.MaterialCost = n.MaterialCost.Add(totals.Material)
	if parent, ok := t.byCode[n.ParentCode]; ok {
		rollUp(parent)
	}
	return nil
}

func rollUp(n *WBSNode) {
	var budget, manhours, material decimal.Decimal
	for _, c := range n.Children {
		budget = budget.Add(c.BudgetTotal)
		manhours = manhours.Add(c.ManhoursTotal)
		material = material.Add(c.MaterialCost)
	}
	n.BudgetTotal = budget
	n.ManhoursTotal = manhours
	n.MaterialCost = material
}

// GroupsFromDisciplines returns one group per discipline, in order.
func GroupsFromDisciplines(disciplines []string) []DisciplineGroup {
	groups := make([]DisciplineGroup, 0, len(disciplines))
	for _, d := range disciplines {
		groups = append(groups, DisciplineGroup{Name: d, Disciplines: []string{d}})
	}
	return groups
}

func disciplineKey(d string) string {
	return strings.ToUpper(strings.Join(strings.Fields(d), " "))
}
