package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return fmt.Sprintf("?%d", index)
}

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) NowExpr() string       { return "datetime('now')" }
func (d *SQLiteDialect) NeedsBoolFix() bool    { return true }
func (d *SQLiteDialect) PrimaryKeyDef() string { return "id INTEGER PRIMARY KEY AUTOINCREMENT" }

func (d *SQLiteDialect) ColumnType(fieldType string) string {
	switch fieldType {
	case "string", "text":
		return "TEXT"
	case "boolean":
		return "INTEGER"
	case "decimal":
		// TEXT keeps prices exact; REAL would round them
		return "TEXT"
	case "ref", "bigint":
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func (d *SQLiteDialect) SystemTablesSQL() string {
	return sqliteSystemTablesSQL
}

func (d *SQLiteDialect) TableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?1",
		tableName,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *SQLiteDialect) GetColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue any
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = colType
	}
	return cols, rows.Err()
}

func (d *SQLiteDialect) InExpr(field string, pb ParamBuilder, values []any) string {
	if len(values) == 0 {
		return "1=0" // always false
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(phs, ", "))
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// --- SQLite DDL ---

const sqliteSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_verified   INTEGER NOT NULL DEFAULT 0,
    is_active     INTEGER NOT NULL DEFAULT 1,
    is_staff      INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS token_blacklist (
    jti            TEXT PRIMARY KEY,
    user_id        INTEGER REFERENCES users(id) ON DELETE CASCADE,
    expires_at     INTEGER NOT NULL,
    blacklisted_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_token_blacklist_expires ON token_blacklist(expires_at);
`

// Compile-time check
var _ Dialect = (*SQLiteDialect)(nil)
