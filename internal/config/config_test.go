package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "sql", cfg.Auth.Blacklist)
	assert.Equal(t, "log", cfg.Mail.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_NAME", "catalog")
	t.Setenv("AUTH_VERIFY_TOKEN_TTL", "2h")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "catalog", cfg.Database.Name)
	assert.Equal(t, 2*time.Hour, cfg.Auth.VerifyTokenTTL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 5432, Name: "shop"}
	assert.Equal(t, "postgres://u:p@db:5432/shop?sslmode=disable", pg.DSN())

	file := DatabaseConfig{Driver: "sqlite", Path: "./data", Name: "shop"}
	assert.Equal(t, "./data/shop.db", file.DSN())

	mem := DatabaseConfig{Driver: "sqlite", Name: MemoryDB}
	assert.Equal(t, ":memory:", mem.DSN())
	assert.True(t, mem.IsSQLite())
}
