package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/db"
	"github.com/sells-group/budget-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_import":        `INSERT INTO imports (id, file_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_import_status": `UPDATE imports SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_import":           `SELECT ` + importColumns + ` FROM imports WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	file_name       TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'analyzing',
	grand_total     NUMERIC NOT NULL DEFAULT 0,
	sheet_count     INTEGER NOT NULL DEFAULT 0,
	line_item_count INTEGER NOT NULL DEFAULT 0,
	error_count     INTEGER NOT NULL DEFAULT 0,
	warning_count   INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS budget_line_items (
	import_id           TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	seq                 INTEGER NOT NULL,
	sheet               TEXT NOT NULL,
	description         TEXT NOT NULL,
	wbs_code            TEXT NOT NULL DEFAULT '',
	discipline          TEXT NOT NULL DEFAULT '',
	cost_type           TEXT NOT NULL,
	total_cost          NUMERIC NOT NULL DEFAULT 0,
	labor_direct_cost   NUMERIC NOT NULL DEFAULT 0,
	labor_indirect_cost NUMERIC NOT NULL DEFAULT 0,
	labor_staff_cost    NUMERIC NOT NULL DEFAULT 0,
	materials_cost      NUMERIC NOT NULL DEFAULT 0,
	equipment_cost      NUMERIC NOT NULL DEFAULT 0,
	subcontracts_cost   NUMERIC NOT NULL DEFAULT 0,
	small_tools_cost    NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (import_id, seq)
);

CREATE TABLE IF NOT EXISTS wbs_nodes (
	import_id      TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	code           TEXT NOT NULL,
	parent_code    TEXT NOT NULL DEFAULT '',
	level          INTEGER NOT NULL,
	description    TEXT NOT NULL,
	discipline     TEXT NOT NULL DEFAULT '',
	budget_total   NUMERIC NOT NULL DEFAULT 0,
	manhours_total NUMERIC NOT NULL DEFAULT 0,
	material_cost  NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (import_id, code)
);

CREATE INDEX IF NOT EXISTS idx_imports_status ON imports(status);
CREATE INDEX IF NOT EXISTS idx_imports_file_name ON imports(file_name);
CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_budget_line_items_wbs ON budget_line_items(import_id, wbs_code);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateImport(ctx context.Context, fileName string) (*model.Import, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO imports (id, file_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, fileName, string(model.ImportStatusAnalyzing), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import")
	}

	return &model.Import{
		ID:        id,
		FileName:  fileName,
		Status:    model.ImportStatusAnalyzing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateImportStatus(ctx context.Context, id string, status model.ImportStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE imports SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update import status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "import %s", id)
	}
	return nil
}

// SaveResult replaces the import's line items and WBS nodes and marks it
// complete in one transaction. Line items are bulk loaded with COPY; WBS
// nodes are upserted by code so a re-save keeps stable rows.
func (s *PostgresStore) SaveResult(ctx context.Context, id string, res *budget.Result) error {
	if res == nil {
		return eris.New("postgres: nil result")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM budget_line_items WHERE import_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: clear line items for %s", id)
	}
	items := lineItemRows(id, res)
	if _, err := db.CopyFrom(ctx, tx, "budget_line_items", lineItemColumns, items); err != nil {
		return eris.Wrapf(err, "postgres: copy line items for %s", id)
	}

	nodes := wbsRows(id, res.WBSStructure)
	codes := make([]string, 0, len(nodes))
	for _, n := range nodes {
		codes = append(codes, n[1].(string))
	}
	if _, err := tx.Exec(ctx, `DELETE FROM wbs_nodes WHERE import_id = $1 AND NOT (code = ANY($2))`, id, codes); err != nil {
		return eris.Wrapf(err, "postgres: prune wbs nodes for %s", id)
	}
	if _, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "wbs_nodes",
		Columns:      wbsColumns,
		ConflictKeys: []string{"import_id", "code"},
	}, nodes); err != nil {
		return eris.Wrapf(err, "postgres: upsert wbs nodes for %s", id)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE imports SET status = $1, grand_total = $2, sheet_count = $3, line_item_count = $4,
		 error_count = $5, warning_count = $6, error = '', updated_at = $7 WHERE id = $8`,
		string(model.ImportStatusComplete), res.Totals.GrandTotal, len(res.Sheets), len(items),
		len(res.Validation.Errors), len(res.Validation.Warnings), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update import result %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "import %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit result")
}

func (s *PostgresStore) GetImport(ctx context.Context, id string) (*model.Import, error) {
	imp, err := scanImport(s.pool.QueryRow(ctx, `SELECT `+importColumns+` FROM imports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "import %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get import %s", id)
	}
	return imp, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, filter ImportFilter) ([]model.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.FileName != "" {
		query += fmt.Sprintf(` AND file_name = $%d`, argIdx)
		args = append(args, filter.FileName)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	imports := []model.Import{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		imports = append(imports, *imp)
	}
	return imports, eris.Wrap(rows.Err(), "postgres: list imports iterate")
}

func (s *PostgresStore) ListLineItems(ctx context.Context, id string) ([]budget.LineItem, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT sheet, description, wbs_code, discipline, cost_type, total_cost,
		 labor_direct_cost, labor_indirect_cost, labor_staff_cost, materials_cost,
		 equipment_cost, subcontracts_cost, small_tools_cost
		 FROM budget_line_items WHERE import_id = $1 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list line items %s", id)
	}
	defer rows.Close()

	items := []budget.LineItem{}
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan line item")
		}
		items = append(items, li)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list line items iterate")
}

func (s *PostgresStore) ListWBSNodes(ctx context.Context, id string) ([]budget.WBSNode, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT code, parent_code, level, description, discipline, budget_total, manhours_total, material_cost
		 FROM wbs_nodes WHERE import_id = $1 ORDER BY code`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list wbs nodes %s", id)
	}
	defer rows.Close()

	nodes := []budget.WBSNode{}
	for rows.Next() {
		n, err := scanWBSNode(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan wbs node")
		}
		nodes = append(nodes, n)
	}
	return nodes, eris.Wrap(rows.Err(), "postgres: list wbs nodes iterate")
}
