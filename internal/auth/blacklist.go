package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shop-backend/internal/store"
)

var ErrAlreadyRevoked = errors.New("token already revoked")

// Blacklist remembers revoked refresh tokens by jti until they would have expired.
type Blacklist interface {
	// Revoke returns ErrAlreadyRevoked when jti is already listed.
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewBlacklist returns the blacklist named by kind ("sql" or "redis").
func NewBlacklist(kind string, s *store.Store, rdb *redis.Client) (Blacklist, error) {
	switch kind {
	case "", "sql":
		return NewSQLBlacklist(s), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis blacklist needs a redis client")
		}
		return NewRedisBlacklist(rdb), nil
	}
	return nil, fmt.Errorf("unknown blacklist %q", kind)
}

// SQLBlacklist stores revoked tokens in the token_blacklist table.
type SQLBlacklist struct {
	store *store.Store
}

func NewSQLBlacklist(s *store.Store) *SQLBlacklist {
	return &SQLBlacklist{store: s}
}

func (b *SQLBlacklist) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	d := b.store.Dialect

	// rows past their expiry can no longer match a valid token
	_, _ = store.Exec(ctx, b.store.DB,
		fmt.Sprintf("DELETE FROM token_blacklist WHERE expires_at < %s", d.Placeholder(1)), time.Now().Unix())

	_, err := store.Exec(ctx, b.store.DB,
		fmt.Sprintf("INSERT INTO token_blacklist (jti, user_id, expires_at) VALUES (%s, %s, %s)",
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3)),
		jti, userID, expiresAt.Unix())
	if err != nil {
		err = store.MapError(d, err)
		if errors.Is(err, store.ErrUniqueViolation) {
			return ErrAlreadyRevoked
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *SQLBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := store.QueryRow(ctx, b.store.DB,
		fmt.Sprintf("SELECT jti FROM token_blacklist WHERE jti = %s", b.store.Dialect.Placeholder(1)), jti)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}

// RedisBlacklist keeps one key per revoked token, expiring with the token.
type RedisBlacklist struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, prefix: "token:blacklist:"}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := b.rdb.SetNX(ctx, b.prefix+jti, userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.rdb.Get(ctx, b.prefix+jti).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}
