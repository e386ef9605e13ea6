package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Money columns are TEXT so decimal values round-trip without float
// rounding.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id              TEXT PRIMARY KEY,
	file_name       TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'analyzing',
	grand_total     TEXT NOT NULL DEFAULT '0',
	sheet_count     INTEGER NOT NULL DEFAULT 0,
	line_item_count INTEGER NOT NULL DEFAULT 0,
	error_count     INTEGER NOT NULL DEFAULT 0,
	warning_count   INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS budget_line_items (
	import_id           TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	seq                 INTEGER NOT NULL,
	sheet               TEXT NOT NULL,
	description         TEXT NOT NULL,
	wbs_code            TEXT NOT NULL DEFAULT '',
	discipline          TEXT NOT NULL DEFAULT '',
	cost_type           TEXT NOT NULL,
	total_cost          TEXT NOT NULL DEFAULT '0',
	labor_direct_cost   TEXT NOT NULL DEFAULT '0',
	labor_indirect_cost TEXT NOT NULL DEFAULT '0',
	labor_staff_cost    TEXT NOT NULL DEFAULT '0',
	materials_cost      TEXT NOT NULL DEFAULT '0',
	equipment_cost      TEXT NOT NULL DEFAULT '0',
	subcontracts_cost   TEXT NOT NULL DEFAULT '0',
	small_tools_cost    TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (import_id, seq)
);

CREATE TABLE IF NOT EXISTS wbs_nodes (
	import_id      TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	code           TEXT NOT NULL,
	parent_code    TEXT NOT NULL DEFAULT '',
	level          INTEGER NOT NULL,
	description    TEXT NOT NULL,
	discipline     TEXT NOT NULL DEFAULT '',
	budget_total   TEXT NOT NULL DEFAULT '0',
	manhours_total TEXT NOT NULL DEFAULT '0',
	material_cost  TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (import_id, code)
);

CREATE INDEX IF NOT EXISTS idx_imports_status ON imports(status);
CREATE INDEX IF NOT EXISTS idx_imports_file_name ON imports(file_name);
CREATE INDEX IF NOT EXISTS idx_budget_line_items_wbs ON budget_line_items(import_id, wbs_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateImport(ctx context.Context, fileName string) (*model.Import, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (id, file_name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, fileName, string(model.ImportStatusAnalyzing), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import")
	}

	return &model.Import{
		ID:        id,
		FileName:  fileName,
		Status:    model.ImportStatusAnalyzing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE imports SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update import status %s", id)
	}
	return checkRowsAffected(res, "import", id)
}

// SaveResult replaces the import's line items and WBS nodes and marks it
// complete, all in one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, id string, res *budget.Result) error {
	if res == nil {
		return eris.New("sqlite: nil result")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"budget_line_items", "wbs_nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE import_id = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s for %s", table, id)
		}
	}

	items := lineItemRows(id, res)
	if err := insertRows(ctx, tx, "budget_line_items", lineItemColumns, items); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, "wbs_nodes", wbsColumns, wbsRows(id, res.WBSStructure)); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE imports SET status = ?, grand_total = ?, sheet_count = ?, line_item_count = ?,
		 error_count = ?, warning_count = ?, error = '', updated_at = ? WHERE id = ?`,
		string(model.ImportStatusComplete), res.Totals.GrandTotal, len(res.Sheets), len(items),
		len(res.Validation.Errors), len(res.Validation.Warnings), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update import result %s", id)
	}
	if err := checkRowsAffected(result, "import", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit result")
}

const importColumns = `id, file_name, status, grand_total, sheet_count, line_item_count, error_count, warning_count, error, created_at, updated_at`

func (s *SQLiteStore) GetImport(ctx context.Context, id string) (*model.Import, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE id = ?`, id)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "import %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get import %s", id)
	}
	return imp, nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, filter ImportFilter) ([]model.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.FileName != "" {
		query += ` AND file_name = ?`
		args = append(args, filter.FileName)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close()

	imports := []model.Import{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		imports = append(imports, *imp)
	}
	return imports, eris.Wrap(rows.Err(), "sqlite: list imports iterate")
}

func (s *SQLiteStore) ListLineItems(ctx context.Context, id string) ([]budget.LineItem, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT sheet, description, wbs_code, discipline, cost_type, total_cost,
		 labor_direct_cost, labor_indirect_cost, labor_staff_cost, materials_cost,
		 equipment_cost, subcontracts_cost, small_tools_cost
		 FROM budget_line_items WHERE import_id = ? ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list line items %s", id)
	}
	defer rows.Close()

	items := []budget.LineItem{}
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan line item")
		}
		items = append(items, li)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list line items iterate")
}

func (s *SQLiteStore) ListWBSNodes(ctx context.Context, id string) ([]budget.WBSNode, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, parent_code, level, description, discipline, budget_total, manhours_total, material_cost
		 FROM wbs_nodes WHERE import_id = ? ORDER BY code`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list wbs nodes %s", id)
	}
	defer rows.Close()

	nodes := []budget.WBSNode{}
	for rows.Next() {
		n, err := scanWBSNode(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan wbs node")
		}
		nodes = append(nodes, n)
	}
	return nodes, eris.Wrap(rows.Err(), "sqlite: list wbs nodes iterate")
}

// helpers

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(columns, ", ")+`) VALUES (`+placeholders+`)`,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanImport(row scannable) (*model.Import, error) {
	var imp model.Import
	var status string
	err := row.Scan(&imp.ID, &imp.FileName, &status, &imp.GrandTotal, &imp.SheetCount,
		&imp.LineItemCount, &imp.ErrorCount, &imp.WarningCount, &imp.Error,
		&imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	imp.Status = model.ImportStatus(status)
	return &imp, nil
}

func scanLineItem(row scannable) (budget.LineItem, error) {
	var li budget.LineItem
	err := row.Scan(&li.Sheet, &li.Description, &li.WBSCode, &li.Discipline, &li.CostType,
		&li.TotalCost, &li.LaborDirectCost, &li.LaborIndirectCost, &li.LaborStaffCost,
		&li.MaterialsCost, &li.EquipmentCost, &li.SubcontractsCost, &li.SmallToolsCost)
	return li, err
}

func scanWBSNode(row scannable) (budget.WBSNode, error) {
	var n budget.WBSNode
	err := row.Scan(&n.Code, &n.ParentCode, &n.Level, &n.Description, &n.Discipline,
		&n.BudgetTotal, &n.ManhoursTotal, &n.MaterialCost)
	return n, err
}
