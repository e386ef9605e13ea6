package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed bulk write. The store uses it to refresh
// an import's WBS nodes in place: rows are keyed by (import_id, code) and a
// re-analysis overwrites descriptions and rolled-up totals.
type UpsertConfig struct {
	Table        string   // e.g. "wbs_nodes" or "public.wbs_nodes"
	Columns      []string // column order of every row
	ConflictKeys []string // unique key, e.g. import_id, code
	UpdateCols   []string // overwritten on conflict; nil means every non-key column
}

// updateColumns resolves UpdateCols, defaulting to the non-key columns.
func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	keys := make(map[string]bool, len(c.ConflictKeys))
	for _, k := range c.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, col := range c.Columns {
		if !keys[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// stagingTable names the session-local table rows are copied into, e.g.
// "_tmp_upsert_wbs_nodes".
func (c UpsertConfig) stagingTable() string {
	return "_tmp_upsert_" + strings.ReplaceAll(c.Table, ".", "_")
}

// mergeSQL builds the INSERT ... SELECT that moves staged rows into the
// target, overwriting the update columns of rows whose key already exists.
func (c UpsertConfig) mergeSQL() string {
	sets := make([]string, 0, len(c.Columns))
	for _, col := range c.updateColumns() {
		id := pgx.Identifier{col}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}
	cols := quoteAndJoin(c.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(c.Table), cols, cols,
		pgx.Identifier{c.stagingTable()}.Sanitize(),
		quoteAndJoin(c.ConflictKeys),
		strings.Join(sets, ", "),
	)
}

// BulkUpsert writes rows through a staging table: it creates a temp copy of
// the target's shape, COPYs the rows in, then merges them with a single
// INSERT ... ON CONFLICT DO UPDATE. The staging table is dropped on commit.
// Called with a pgx.Tx, the work runs in a savepoint of that transaction so
// a failed merge leaves the caller's earlier writes intact.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := pgx.Identifier{cfg.stagingTable()}
	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		staging.Sanitize(), sanitizeTable(cfg.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, staging, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// sanitizeTable quotes a table name, splitting an optional schema prefix.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
