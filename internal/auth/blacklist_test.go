package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-backend/internal/storetest"
)

func exerciseBlacklist(t *testing.T, bl Blacklist) {
	t.Helper()
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := bl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, jti, 1, time.Now().Add(time.Hour)))

	revoked, err = bl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	err = bl.Revoke(ctx, jti, 1, time.Now().Add(time.Hour))
	assert.True(t, errors.Is(err, ErrAlreadyRevoked))
}

func TestSQLBlacklist(t *testing.T) {
	s, _ := storetest.New(t)
	exerciseBlacklist(t, NewSQLBlacklist(s))
}

func TestSQLBlacklist_PurgesExpired(t *testing.T) {
	s, _ := storetest.New(t)
	bl := NewSQLBlacklist(s)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "old", 1, time.Now().Add(-time.Hour)))
	require.NoError(t, bl.Revoke(ctx, "new", 1, time.Now().Add(time.Hour)))

	revoked, err := bl.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisBlacklist(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	exerciseBlacklist(t, NewRedisBlacklist(rdb))
}

func TestNewBlacklist(t *testing.T) {
	s, _ := storetest.New(t)

	bl, err := NewBlacklist("sql", s, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLBlacklist{}, bl)

	_, err = NewBlacklist("redis", s, nil)
	assert.Error(t, err)

	_, err = NewBlacklist("memcache", s, nil)
	assert.Error(t, err)
}
