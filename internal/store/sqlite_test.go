package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// sampleResult builds a small two-discipline result without running the
// analyzer.
func sampleResult() *budget.Result {
	leafA := &budget.WBSNode{Code: "01.01", ParentCode: "01", Level: 2, Description: "ELECTRICAL", Discipline: "ELECTRICAL", BudgetTotal: dec(150), ManhoursTotal: dec(10), MaterialCost: dec(50)}
	leafB := &budget.WBSNode{Code: "01.02", ParentCode: "01", Level: 2, Description: "CIVIL", Discipline: "CIVIL", BudgetTotal: dec(25)}
	root := &budget.WBSNode{Code: "01", Level: 1, Description: "E&C", Children: []*budget.WBSNode{leafA, leafB}, BudgetTotal: dec(175), ManhoursTotal: dec(10), MaterialCost: dec(50)}

	return &budget.Result{
		Sheets:       []string{"BUDGET", "MATERIALS"},
		WBSStructure: []*budget.WBSNode{root},
		LineItems: map[string][]budget.LineItem{
			"MATERIALS": {
				budget.NewLineItem("MATERIALS", "Pipe", "", "MATERIALS", budget.Materials, dec(25)),
			},
			"BUDGET": {
				budget.NewLineItem("BUDGET", "ELECTRICAL - DIRECT LABOR", "01.01", "ELECTRICAL", budget.DirectLabor, dec(100)),
				budget.NewLineItem("BUDGET", "ELECTRICAL - MATERIALS", "01.01", "ELECTRICAL", budget.Materials, dec(50)),
			},
		},
		Totals:     budget.Totals{GrandTotal: dec(175)},
		Validation: budget.Validation{Errors: []string{}, Warnings: []string{"one"}},
	}
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_SaveResult_Replaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "budget.xlsx")
	require.NoError(t, err)

	require.NoError(t, st.SaveResult(ctx, imp.ID, sampleResult()))

	smaller := sampleResult()
	delete(smaller.LineItems, "MATERIALS")
	smaller.WBSStructure[0].Children = smaller.WBSStructure[0].Children[:1]
	require.NoError(t, st.SaveResult(ctx, imp.ID, smaller))

	items, err := st.ListLineItems(ctx, imp.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	nodes, err := st.ListWBSNodes(ctx, imp.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestSQLite_SaveResult_Nil(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.SaveResult(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestSQLite_SaveResult_UnknownImport(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.SaveResult(context.Background(), "missing", &budget.Result{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListImports_Offset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		_, err := st.CreateImport(ctx, name)
		require.NoError(t, err)
	}

	page, err := st.ListImports(ctx, ImportFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	byName, err := st.ListImports(ctx, ImportFilter{FileName: "b.xlsx"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "b.xlsx", byName[0].FileName)
}

func TestSQLite_UpdateImportStatus_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "broken.xlsx")
	require.NoError(t, err)
	require.NoError(t, st.UpdateImportStatus(ctx, imp.ID, model.ImportStatusFailed, "xlsx: parse"))

	got, err := st.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusFailed, got.Status)
	assert.Equal(t, "xlsx: parse", got.Error)
}

func TestSQLite_MoneyRoundTripsExactly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	imp, err := st.CreateImport(ctx, "budget.xlsx")
	require.NoError(t, err)

	share := decimal.NewFromInt(200).Mul(decimal.NewFromInt(8000)).Div(decimal.NewFromInt(95000))
	res := &budget.Result{
		Sheets: []string{"BUDGET"},
		LineItems: map[string][]budget.LineItem{
			"BUDGET": {budget.NewLineItem("BUDGET", "ELECTRICAL - SUBCONTRACTS", "", "ELECTRICAL", budget.Subcontracts, share)},
		},
		Totals: budget.Totals{GrandTotal: decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))},
	}
	require.NoError(t, st.SaveResult(ctx, imp.ID, res))

	got, err := st.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.3").Equal(got.GrandTotal), got.GrandTotal.String())

	items, err := st.ListLineItems(ctx, imp.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, share.Equal(items[0].SubcontractsCost), items[0].SubcontractsCost.String())
	assert.True(t, share.Equal(items[0].TotalCost))
}
