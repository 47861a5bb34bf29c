package auth

import (
	"context"
	"errors"
	"fmt"

	"shop-backend/internal/store"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Verified     bool
	Active       bool
	Staff        bool
}

// UserStore reads and writes the users table.
type UserStore struct {
	store *store.Store
}

func NewUserStore(s *store.Store) *UserStore {
	return &UserStore{store: s}
}

const userColumns = "id, username, email, password_hash, is_verified, is_active, is_staff"

// Create inserts an unverified, active, non-staff user. A taken username or
// email comes back as store.ErrUniqueViolation.
func (u *UserStore) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	pb := u.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		"INSERT INTO users (username, email, password_hash, is_verified, is_active, is_staff) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id",
		pb.Add(username), pb.Add(email), pb.Add(passwordHash), pb.Add(false), pb.Add(true), pb.Add(false))
	row, err := store.QueryRow(ctx, u.store.DB, sql, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", store.MapError(u.store.Dialect, err))
	}
	id, _ := store.AsInt64(row["id"])
	return &User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, Active: true}, nil
}

// ByEmail returns store.ErrNotFound when no user has the email.
func (u *UserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	return u.one(ctx, "email", email)
}

// ByID returns store.ErrNotFound when the user does not exist.
func (u *UserStore) ByID(ctx context.Context, id int64) (*User, error) {
	return u.one(ctx, "id", id)
}

// Taken reports whether a user already has value in column, which is
// "email" or "username".
func (u *UserStore) Taken(ctx context.Context, column, value string) (bool, error) {
	_, err := u.one(ctx, column, value)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// MarkVerified sets is_verified. Verifying twice is not an error.
func (u *UserStore) MarkVerified(ctx context.Context, id int64) error {
	d := u.store.Dialect
	_, err := store.Exec(ctx, u.store.DB,
		fmt.Sprintf("UPDATE users SET is_verified = %s, updated_at = %s WHERE id = %s",
			d.Placeholder(1), d.NowExpr(), d.Placeholder(2)),
		true, id)
	if err != nil {
		return fmt.Errorf("verify user %d: %w", id, err)
	}
	return nil
}

func (u *UserStore) one(ctx context.Context, column string, value any) (*User, error) {
	row, err := store.QueryRow(ctx, u.store.DB,
		fmt.Sprintf("SELECT %s FROM users WHERE %s = %s", userColumns, column, u.store.Dialect.Placeholder(1)), value)
	if err != nil {
		return nil, err
	}
	id, _ := store.AsInt64(row["id"])
	username, _ := row["username"].(string)
	email, _ := row["email"].(string)
	hash, _ := row["password_hash"].(string)
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Verified:     store.AsBool(row["is_verified"]),
		Active:       store.AsBool(row["is_active"]),
		Staff:        store.AsBool(row["is_staff"]),
	}, nil
}
