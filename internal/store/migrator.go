package store

import (
	"context"
	"fmt"
	"strings"

	"shop-backend/internal/metadata"
)

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// MigrateAll migrates every kind of the registry, then the join tables of
// its refs fields.
func (m *Migrator) MigrateAll(ctx context.Context, reg *metadata.Registry) error {
	kinds := reg.Kinds()
	for _, k := range kinds {
		if err := m.Migrate(ctx, reg, k); err != nil {
			return err
		}
	}
	for _, k := range kinds {
		for _, f := range k.ManyToMany() {
			target, _ := reg.Lookup(f.Target)
			if err := m.MigrateJoinTable(ctx, k, target, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Migrate ensures the table matches the kind's fields.
// Creates the table if it doesn't exist, or adds missing columns.
func (m *Migrator) Migrate(ctx context.Context, reg *metadata.Registry, kind *metadata.Kind) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, kind.Table)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	if !exists {
		return m.createTable(ctx, reg, kind)
	}

	return m.alterTable(ctx, reg, kind)
}

// MigrateJoinTable creates the join table of a refs field if it doesn't exist.
// Join rows go away with either side.
func (m *Migrator) MigrateJoinTable(ctx context.Context, source, target *metadata.Kind, f metadata.Field) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, f.JoinTable)
	if err != nil {
		return fmt.Errorf("check join table exists: %w", err)
	}
	if exists {
		return nil
	}

	keyType := m.store.Dialect.ColumnType(metadata.TypeRef)
	ddl := fmt.Sprintf(
		`CREATE TABLE %s (
			%s %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			%s %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			PRIMARY KEY (%s, %s)
		)`,
		f.JoinTable,
		f.JoinSource, keyType, source.Table,
		f.JoinTarget, keyType, target.Table,
		f.JoinSource, f.JoinTarget,
	)

	if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create join table %s: %w", f.JoinTable, err)
	}
	return nil
}

func (m *Migrator) createTable(ctx context.Context, reg *metadata.Registry, kind *metadata.Kind) error {
	cols := []string{m.store.Dialect.PrimaryKeyDef()}
	for _, f := range kind.Fields {
		if !f.IsColumn() {
			continue
		}
		cols = append(cols, m.buildColumnDef(reg, f))
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", kind.Table, strings.Join(cols, ",\n  "))
	if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", kind.Table, err)
	}

	if err := m.createIndexes(ctx, kind); err != nil {
		return fmt.Errorf("create indexes for %s: %w", kind.Table, err)
	}
	return nil
}

func (m *Migrator) alterTable(ctx context.Context, reg *metadata.Registry, kind *metadata.Kind) error {
	existing, err := m.store.Dialect.GetColumns(ctx, m.store.DB, kind.Table)
	if err != nil {
		return fmt.Errorf("get columns for %s: %w", kind.Table, err)
	}

	for _, f := range kind.Fields {
		if !f.IsColumn() {
			continue
		}
		if _, ok := existing[f.Name]; ok {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", kind.Table, m.buildColumnDef(reg, f))
		if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", kind.Table, f.Name, err)
		}
	}

	if err := m.createIndexes(ctx, kind); err != nil {
		return fmt.Errorf("create indexes for %s: %w", kind.Table, err)
	}
	return nil
}

func (m *Migrator) buildColumnDef(reg *metadata.Registry, f metadata.Field) string {
	col := f.Name + " " + m.store.Dialect.ColumnType(f.Type)

	if f.Type == metadata.TypeRef {
		if target, ok := reg.Lookup(f.Target); ok {
			col += fmt.Sprintf(" REFERENCES %s(id) ON DELETE SET NULL", target.Table)
		}
		return col
	}

	if !f.Nullable {
		col += " NOT NULL"
	}

	if f.Default != nil {
		switch v := f.Default.(type) {
		case bool:
			if m.store.Dialect.NeedsBoolFix() {
				col += fmt.Sprintf(" DEFAULT %d", boolToInt(v))
			} else {
				col += fmt.Sprintf(" DEFAULT %t", v)
			}
		case string:
			col += fmt.Sprintf(" DEFAULT '%s'", strings.ReplaceAll(v, "'", "''"))
		default:
			col += fmt.Sprintf(" DEFAULT %v", v)
		}
	}

	return col
}

func (m *Migrator) createIndexes(ctx context.Context, kind *metadata.Kind) error {
	for _, f := range kind.Fields {
		var ddl string
		switch {
		case f.Unique:
			ddl = fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				kind.Table, f.Name, kind.Table, f.Name)
		case f.Type == metadata.TypeRef:
			ddl = fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				kind.Table, f.Name, kind.Table, f.Name)
		default:
			continue
		}
		if _, err := m.store.DB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", kind.Table, f.Name, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
