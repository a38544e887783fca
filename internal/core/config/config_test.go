package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	p := writeConfig(t, `
db:
  driver: postgres
  dsn: postgres://u:p@localhost/db
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.DB.Driver)
	assert.Equal(t, 8000, c.App.HTTP.Port)
	assert.Equal(t, 300, c.Listing.CacheTTLSec)
	assert.True(t, c.Listing.EnforceOwnership)
	assert.True(t, c.DB.AutoMigrate)
}

func TestLoad_ExplicitFalseWins(t *testing.T) {
	p := writeConfig(t, `
listing:
  enforce_ownership: false
  cache_ttl_sec: 30
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.False(t, c.Listing.EnforceOwnership)
	assert.Equal(t, 30, c.Listing.CacheTTLSec)
}

func TestLoad_EnvOverride(t *testing.T) {
	p := writeConfig(t, `
app:
  http:
    port: 9000
`)
	t.Setenv("APP_APP_HTTP_PORT", "9100")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 9100, c.App.HTTP.Port)
}

func TestLoad_Invalid(t *testing.T) {
	p := writeConfig(t, `
db:
  driver: oracle
`)
	_, err := Load(p)
	assert.ErrorContains(t, err, "not supported")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
