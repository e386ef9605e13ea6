package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/config"
	"github.com/sells-group/budget-cli/internal/model"
	"github.com/sells-group/budget-cli/internal/resilience"
	"github.com/sells-group/budget-cli/internal/store"
	"github.com/sells-group/budget-cli/internal/workbook"
)

func initStore(ctx context.Context) (store.Store, error) {
	retry := storeRetry("open store")
	st, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		switch cfg.Store.Driver {
		case "sqlite":
			dsn := cfg.Store.DatabaseURL
			if dsn == "" {
				dsn = "budget.db"
			}
			return store.NewSQLite(dsn)
		case "postgres":
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		default:
			return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// storeRetry returns the retry policy for store access. Without loaded
// configuration the defaults apply.
func storeRetry(operation string) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if cfg != nil {
		rc = resilience.FromSettings(cfg.Store.MaxAttempts, cfg.Store.RetryBackoffMs)
	}
	rc.OnRetry = resilience.RetryLogger(operation)
	return rc
}

// analyzerOptions translates configuration into analyzer options.
func analyzerOptions(c config.BudgetConfig) budget.Options {
	l := c.Layout
	return budget.Options{
		Header: budget.HeaderOptions{
			ScanDepth:     c.HeaderScanDepth,
			MinSimilarity: c.MinSimilarity,
		},
		Layout: budget.BlockLayout{
			BlockSize:         l.BlockSize,
			FirstBlockRow:     l.FirstBlockRow,
			NumberCol:         l.NumberCol,
			NameCol:           l.NameCol,
			LabelCol:          l.LabelCol,
			ManhoursCol:       l.ManhoursCol,
			ValueCol:          l.ValueCol,
			MinCategoryLabels: l.MinCategoryLabels,
		},
		BlockSheets: c.BlockSheets,
		InputSheet:  c.InputSheet,
		Parallelism: c.Parallelism,
	}
}

// parseMappings decodes per-sheet column overrides:
//
//	BUDGET:
//	  description: 1
//	  total: E
//
// Columns are zero-based indexes or spreadsheet letters.
func parseMappings(data []byte) (map[string]budget.ColumnMapping, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "mappings: decode")
	}
	out := make(map[string]budget.ColumnMapping, len(raw))
	for sheet, cols := range raw {
		m := budget.ColumnMapping{}
		for name, spec := range cols {
			role, ok := budget.ParseRole(name)
			if !ok {
				return nil, eris.Errorf("mappings: sheet %q: unknown role %q", sheet, name)
			}
			idx, err := parseColumn(spec)
			if err != nil {
				return nil, eris.Wrapf(err, "mappings: sheet %q role %q", sheet, name)
			}
			m[role] = idx
		}
		out[sheet] = m
	}
	return out, nil
}

func loadMappings(path string) (map[string]budget.ColumnMapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "mappings: read file")
	}
	return parseMappings(data)
}

// parseColumn accepts "3" or "D". Out-of-range indexes are left for mapping
// validation to report.
func parseColumn(spec string) (int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, eris.New("empty column")
	}
	if n, err := strconv.Atoi(spec); err == nil {
		return n, nil
	}
	letters := strings.ToUpper(spec)
	if strings.Trim(letters, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return 0, eris.Errorf("invalid column %q", spec)
	}
	return xlsx.ColLettersToIndex(letters), nil
}

// importWorkbook records an import, analyzes wb and persists the result.
// A failed analysis or save marks the import failed.
func importWorkbook(ctx context.Context, st store.Store, an *budget.Analyzer, wb *workbook.Workbook, fileName string) (*budget.Result, *model.Import, error) {
	imp, err := st.CreateImport(ctx, fileName)
	if err != nil {
		return nil, nil, err
	}

	res, err := an.AnalyzeAndPersist(ctx, wb, func(ctx context.Context, res *budget.Result) error {
		res.ImportID = imp.ID
		// SaveResult replaces the import's rows, so a retry is safe.
		return resilience.Do(ctx, storeRetry("save result"), func(ctx context.Context) error {
			return st.SaveResult(ctx, imp.ID, res)
		})
	})
	if err != nil {
		if uerr := st.UpdateImportStatus(ctx, imp.ID, model.ImportStatusFailed, err.Error()); uerr != nil {
			zap.L().Error("mark import failed", zap.String("import_id", imp.ID), zap.Error(uerr))
		}
		return res, imp, eris.Wrapf(err, "import %s", imp.ID)
	}

	saved, err := st.GetImport(ctx, imp.ID)
	if err != nil {
		return res, imp, err
	}
	zap.L().Info("import saved",
		zap.String("import_id", saved.ID),
		zap.String("file", fileName),
		zap.Int("line_items", saved.LineItemCount),
		zap.Stringer("grand_total", saved.GrandTotal),
	)
	return res, saved, nil
}
