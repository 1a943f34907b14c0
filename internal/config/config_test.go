package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/crypt"
)

const (
	masterV1 = "base64:MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	masterV2 = "3031323334353637383961626364656630313233343536373839616263646566"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rowkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "rowkit.db", cfg.Database.DSN)
	assert.Equal(t, 1, cfg.Crypto.ActiveVersion)
	assert.Equal(t, 5, cfg.Paging.MinPerPage)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/rowkit
crypto:
  active_version: 2
  keys:
    v1: "`+masterV1+`"
    v2: "`+masterV2+`"
paging:
  min_per_page: 10
  default_order: id DESC
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/rowkit", cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Paging.MinPerPage)
	assert.Equal(t, "id DESC", cfg.Paging.DefaultOrder)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []int{1, 2}, cfg.Crypto.Versions())

	ring, err := cfg.Crypto.Keyring()
	require.NoError(t, err)
	assert.Equal(t, 2, ring.Active())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: from-file.db\n")
	t.Setenv("ROWKIT_DATABASE_DSN", "from-env.db")
	t.Setenv("ROWKIT_CRYPTO_KEY", masterV1)
	t.Setenv("ROWKIT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)

	ring, err := cfg.Crypto.Keyring()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ring.Versions())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  driver: oracle\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "log.format")

	_, err = Load(writeConfig(t, "paging:\n  min_per_page: 0\n"))
	assert.ErrorContains(t, err, "min_per_page")
}

func TestCryptoConfig_Keyring(t *testing.T) {
	_, err := CryptoConfig{ActiveVersion: 1}.Keyring()
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = CryptoConfig{ActiveVersion: 1, Keys: map[string]string{"vx": masterV1}}.Keyring()
	assert.ErrorContains(t, err, "invalid version")

	_, err = CryptoConfig{ActiveVersion: 3, Keys: map[string]string{"1": masterV1}}.Keyring()
	assert.ErrorIs(t, err, crypt.ErrNoKey)
}
