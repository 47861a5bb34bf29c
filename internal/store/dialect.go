package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect abstracts database-specific SQL generation and behavior.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// PrimaryKeyDef returns the DDL of a generated integer id column.
	PrimaryKeyDef() string

	// ColumnType maps a metadata field type to the database DDL type.
	ColumnType(fieldType string) string

	// SystemTablesSQL returns the DDL for users and the token blacklist.
	SystemTablesSQL() string

	// TableExists checks whether a table exists.
	TableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error)

	// GetColumns returns existing column names and types for a table.
	GetColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]string, error)

	// InExpr builds a SQL expression for the IN operator.
	// PostgreSQL: "field = ANY($n)" with single array param.
	// SQLite: "field IN (?n, ?n+1, ...)" expanding the slice.
	InExpr(field string, pb ParamBuilder, values []any) string

	// MapError inspects a driver error and returns a well-known sentinel error if applicable.
	MapError(err error) error

	// NeedsBoolFix returns true if boolean columns come back as integers (SQLite).
	NeedsBoolFix() bool
}

// ParamBuilder accumulates query parameters and generates dialect-specific placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any

	// Count returns the number of parameters added so far.
	Count() int
}

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }
func (p *pgParamBuilder) Count() int    { return p.n }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
func (p *sqliteParamBuilder) Count() int    { return p.n }
