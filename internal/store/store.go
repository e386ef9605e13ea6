package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/model"
)

// ErrNotFound is returned when an import does not exist.
var ErrNotFound = eris.New("store: not found")

// ImportFilter specifies criteria for listing imports.
type ImportFilter struct {
	Status   model.ImportStatus `json:"status,omitempty"`
	FileName string             `json:"file_name,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for budget imports.
type Store interface {
	// Imports
	CreateImport(ctx context.Context, fileName string) (*model.Import, error)
	UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, errMsg string) error
	GetImport(ctx context.Context, id string) (*model.Import, error)
	ListImports(ctx context.Context, filter ImportFilter) ([]model.Import, error)

	// Results
	SaveResult(ctx context.Context, id string, res *budget.Result) error
	ListLineItems(ctx context.Context, id string) ([]budget.LineItem, error)
	ListWBSNodes(ctx context.Context, id string) ([]budget.WBSNode, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// lineItemColumns is the column order shared by inserts and selects.
var lineItemColumns = []string{
	"import_id", "seq", "sheet", "description", "wbs_code", "discipline", "cost_type",
	"total_cost", "labor_direct_cost", "labor_indirect_cost", "labor_staff_cost",
	"materials_cost", "equipment_cost", "subcontracts_cost", "small_tools_cost",
}

var wbsColumns = []string{
	"import_id", "code", "parent_code", "level", "description", "discipline",
	"budget_total", "manhours_total", "material_cost",
}

// lineItemRows flattens a result's line items in workbook sheet order.
func lineItemRows(importID string, res *budget.Result) [][]any {
	items := res.AllLineItems()
	rows := make([][]any, 0, len(items))
	for i, li := range items {
		rows = append(rows, []any{
			importID, i, li.Sheet, li.Description, li.WBSCode, li.Discipline, li.CostType,
			li.TotalCost, li.LaborDirectCost, li.LaborIndirectCost, li.LaborStaffCost,
			li.MaterialsCost, li.EquipmentCost, li.SubcontractsCost, li.SmallToolsCost,
		})
	}
	return rows
}

// wbsRows flattens the tree depth-first so parents precede children.
func wbsRows(importID string, roots []*budget.WBSNode) [][]any {
	var rows [][]any
	var walk func(nodes []*budget.WBSNode)
	walk = func(nodes []*budget.WBSNode) {
		for _, n := range nodes {
			rows = append(rows, []any{
				importID, n.Code, n.ParentCode, n.Level, n.Description, n.Discipline,
				n.BudgetTotal, n.ManhoursTotal, n.MaterialCost,
			})
			walk(n.Children)
		}
	}
	walk(roots)
	return rows
}
