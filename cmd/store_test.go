package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/config"
	"github.com/sells-group/budget-cli/internal/model"
	"github.com/sells-group/budget-cli/internal/store"
	"github.com/sells-group/budget-cli/internal/workbook"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestParseColumn(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{" 4 ", 4, false},
		{"A", 0, false},
		{"e", 4, false},
		{"Z", 25, false},
		{"AA", 26, false},
		{"az", 51, false},
		{"XFD", 16383, false},
		{"-1", -1, false},
		{"", 0, true},
		{"A1", 0, true},
		{"É", 0, true},
		{"B-", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColumn(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMappings(t *testing.T) {
	data := []byte(`
BUDGET:
  description: 1
  total: E
DIRECTS:
  wbs: A
`)
	got, err := parseMappings(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]budget.ColumnMapping{
		"BUDGET":  {budget.RoleDescription: 1, budget.RoleTotal: 4},
		"DIRECTS": {budget.RoleWBS: 0},
	}, got)
}

func TestParseMappings_Errors(t *testing.T) {
	_, err := parseMappings([]byte("BUDGET:\n  colour: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "colour"`)

	_, err = parseMappings([]byte("BUDGET:\n  total: 4x\n"))
	require.Error(t, err)

	_, err = parseMappings([]byte("[not a map"))
	require.Error(t, err)
}

func TestLoadMappings(t *testing.T) {
	m, err := loadMappings("")
	require.NoError(t, err)
	assert.Nil(t, m)

	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("S1:\n  total: 2\n"), 0o644))
	m, err = loadMappings(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m["S1"][budget.RoleTotal])

	_, err = loadMappings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAnalyzerOptions(t *testing.T) {
	opts := analyzerOptions(config.BudgetConfig{
		HeaderScanDepth: 10,
		MinSimilarity:   0.9,
		Parallelism:     2,
		InputSheet:      "SETUP",
		BlockSheets:     []string{"EST"},
		Layout:          config.LayoutConfig{BlockSize: 14, FirstBlockRow: 3, NameCol: 1, LabelCol: 2, ManhoursCol: 3, ValueCol: 5, MinCategoryLabels: 4},
	})
	assert.Equal(t, 10, opts.Header.ScanDepth)
	assert.InDelta(t, 0.9, opts.Header.MinSimilarity, 1e-9)
	assert.Equal(t, 2, opts.Parallelism)
	assert.Equal(t, "SETUP", opts.InputSheet)
	assert.Equal(t, []string{"EST"}, opts.BlockSheets)
	assert.Equal(t, 14, opts.Layout.BlockSize)
	assert.Equal(t, 3, opts.Layout.FirstBlockRow)
	assert.Equal(t, 5, opts.Layout.ValueCol)
	assert.Equal(t, 4, opts.Layout.MinCategoryLabels)
}

func TestImportWorkbook(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	wb, err := workbook.Parse(electricalWorkbook(t))
	require.NoError(t, err)

	res, imp, err := importWorkbook(ctx, st, budget.NewAnalyzer(budget.Options{}, zap.NewNop()), wb, "budget.xlsx")
	require.NoError(t, err)
	assert.Equal(t, imp.ID, res.ImportID)
	assert.Equal(t, model.ImportStatusComplete, imp.Status)
	assert.True(t, decimal.NewFromInt(100000).Equal(imp.GrandTotal), imp.GrandTotal.String())
	assert.Equal(t, 6, imp.LineItemCount)

	items, err := st.ListLineItems(ctx, imp.ID)
	require.NoError(t, err)
	assert.Len(t, items, 6)
}

// failingStore fails SaveResult and records status updates.
type failingStore struct {
	store.Store
	status model.ImportStatus
	errMsg string
}

func (f *failingStore) SaveResult(context.Context, string, *budget.Result) error {
	return errors.New("disk full")
}

func (f *failingStore) UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, errMsg string) error {
	f.status, f.errMsg = status, errMsg
	return f.Store.UpdateImportStatus(ctx, id, status, errMsg)
}

func TestImportWorkbook_SaveFailureMarksImportFailed(t *testing.T) {
	fs := &failingStore{Store: newTestStore(t)}
	wb, err := workbook.Parse(electricalWorkbook(t))
	require.NoError(t, err)

	res, imp, err := importWorkbook(context.Background(), fs, budget.NewAnalyzer(budget.Options{}, nil), wb, "budget.xlsx")
	require.Error(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, model.ImportStatusFailed, fs.status)
	assert.Contains(t, fs.errMsg, "disk full")

	got, err := fs.GetImport(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusFailed, got.Status)
}

// flakyStore fails the first SaveResult with a locked database.
type flakyStore struct {
	store.Store
	saves int
}

func (f *flakyStore) SaveResult(ctx context.Context, id string, res *budget.Result) error {
	f.saves++
	if f.saves == 1 {
		return errors.New("database is locked (5) (SQLITE_BUSY)")
	}
	return f.Store.SaveResult(ctx, id, res)
}

func TestImportWorkbook_RetriesTransientSave(t *testing.T) {
	prev := cfg
	cfg = &config.Config{Store: config.StoreConfig{MaxAttempts: 3, RetryBackoffMs: 1}}
	t.Cleanup(func() { cfg = prev })

	fs := &flakyStore{Store: newTestStore(t)}
	wb, err := workbook.Parse(electricalWorkbook(t))
	require.NoError(t, err)

	_, imp, err := importWorkbook(context.Background(), fs, budget.NewAnalyzer(budget.Options{}, nil), wb, "budget.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, fs.saves)
	assert.Equal(t, model.ImportStatusComplete, imp.Status)
}

func TestStoreRetry(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = nil
	rc := storeRetry("open store")
	assert.Equal(t, 3, rc.MaxAttempts)
	assert.NotNil(t, rc.OnRetry)

	cfg = &config.Config{Store: config.StoreConfig{MaxAttempts: 7, RetryBackoffMs: 20}}
	rc = storeRetry("save result")
	assert.Equal(t, 7, rc.MaxAttempts)
	assert.Equal(t, 20*time.Millisecond, rc.InitialBackoff)
}

func TestInitStore_SQLite(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "b.db"), MaxAttempts: 1}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	imports, err := st.ListImports(context.Background(), store.ImportFilter{})
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql", MaxAttempts: 1}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
