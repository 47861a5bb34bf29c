package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string       { return "NOW()" }
func (d *PostgresDialect) NeedsBoolFix() bool    { return false }
func (d *PostgresDialect) PrimaryKeyDef() string { return "id BIGSERIAL PRIMARY KEY" }

func (d *PostgresDialect) ColumnType(fieldType string) string {
	switch fieldType {
	case "string", "text":
		return "TEXT"
	case "boolean":
		return "BOOLEAN"
	case "decimal":
		return "NUMERIC"
	case "ref", "bigint":
		return "BIGINT"
	case "timestamp":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) SystemTablesSQL() string {
	return pgSystemTablesSQL
}

func (d *PostgresDialect) TableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1 AND table_schema = 'public')`,
		tableName,
	).Scan(&exists)
	return exists, err
}

func (d *PostgresDialect) GetColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1 AND table_schema = 'public'`,
		tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		cols[name] = dataType
	}
	return cols, rows.Err()
}

func (d *PostgresDialect) InExpr(field string, pb ParamBuilder, values []any) string {
	if len(values) == 0 {
		return "1=0"
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(phs, ", "))
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if strings.Contains(err.Error(), "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// --- PostgreSQL DDL ---

const pgSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_verified   BOOLEAN NOT NULL DEFAULT false,
    is_active     BOOLEAN NOT NULL DEFAULT true,
    is_staff      BOOLEAN NOT NULL DEFAULT false,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS token_blacklist (
    jti            TEXT PRIMARY KEY,
    user_id        BIGINT REFERENCES users(id) ON DELETE CASCADE,
    expires_at     BIGINT NOT NULL,
    blacklisted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_token_blacklist_expires ON token_blacklist(expires_at);
`

// Compile-time check
var _ Dialect = (*PostgresDialect)(nil)
