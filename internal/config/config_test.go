package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "STORAGE", "DATABASE_URL", "JWT_SECRET", "DB_MAX_CONNS", "PRODUCT_CACHE_TTL", "CODE_PREFIX", "MAX_IMPORT_SIZE"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, int32(20), cfg.DBMaxConns)
	assert.Equal(t, 10*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, "SO", cfg.CodePrefix)
	assert.Equal(t, int64(10<<20), cfg.MaxImportSize)
	assert.Equal(t, ":8080", cfg.Address())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "MEMORY")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TX_STATEMENT_TIMEOUT", "5s")
	t.Setenv("MAX_IMPORT_SIZE", "1048576")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.TxStatementTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxImportSize)
}

func TestFromEnv_BadValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("PRODUCT_CACHE_TTL", "forever")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_CONNS")
	assert.Contains(t, err.Error(), "PRODUCT_CACHE_TTL")
}

func TestValidate(t *testing.T) {
	base := Config{Env: "production", Storage: StoragePostgres, DatabaseURL: "postgres://x", JWTSecret: "s", DBMaxConns: 10, DBMinConns: 1, CodePrefix: "SO", MaxImportSize: 1 << 20}
	require.NoError(t, base.Validate())

	noDB := base
	noDB.DatabaseURL = ""
	assert.ErrorContains(t, noDB.Validate(), "DATABASE_URL")

	mem := noDB
	mem.Storage = StorageMemory
	assert.NoError(t, mem.Validate())

	noSecret := base
	noSecret.JWTSecret = ""
	assert.ErrorContains(t, noSecret.Validate(), "JWT_SECRET")
	noSecret.Env = "development"
	assert.NoError(t, noSecret.Validate())

	bad := base
	bad.Storage = "sqlite"
	bad.DBMinConns = 50
	bad.MaxImportSize = 0
	err := bad.Validate()
	assert.ErrorContains(t, err, "STORAGE")
	assert.ErrorContains(t, err, "DB_MIN_CONNS")
	assert.ErrorContains(t, err, "MAX_IMPORT_SIZE")
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("CODE_PREFIX", "")
	os.Unsetenv("CODE_PREFIX")
	t.Setenv("APP_PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CODE_PREFIX=OPN\nAPP_PORT=1234\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "OPN", cfg.CodePrefix)
	assert.Equal(t, ":7000", cfg.Address(), "environment wins over .env")

	os.Unsetenv("CODE_PREFIX")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
