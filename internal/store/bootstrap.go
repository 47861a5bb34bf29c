package store

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"shop-backend/internal/metadata"
)

// Bootstrap creates the system tables, migrates every registered kind and
// seeds the first staff user.
func (s *Store) Bootstrap(ctx context.Context, reg *metadata.Registry) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SystemTablesSQL()); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}
	if err := NewMigrator(s).MigrateAll(ctx, reg); err != nil {
		return fmt.Errorf("migrate kinds: %w", err)
	}
	if err := s.seedAdminUser(ctx); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}

func (s *Store) seedAdminUser(ctx context.Context) error {
	row, err := QueryRow(ctx, s.DB, "SELECT COUNT(*) AS count FROM users")
	if err != nil {
		return err
	}
	if count, _ := AsInt64(row["count"]); count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	pb := s.Dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		`INSERT INTO users (username, email, password_hash, is_verified, is_active, is_staff) VALUES (%s, %s, %s, %s, %s, %s)`,
		pb.Add("admin"), pb.Add("admin@localhost"), pb.Add(string(hash)), pb.Add(true), pb.Add(true), pb.Add(true),
	)
	if _, err := Exec(ctx, s.DB, sql, pb.Params()...); err != nil {
		return err
	}

	log.Println("WARNING: Default admin user created (admin@localhost / changeme). Change the password immediately.")
	return nil
}
