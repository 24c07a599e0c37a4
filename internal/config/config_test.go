package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strikeplan_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
databaseURL: postgres://localhost:5432/strikeplan
claimBaseURL: https://claims.oakfield.example
claimListenAddr: localhost:9090
fellowJobTypeCode: FLW
gmailSender: coordinator@oakfield.example
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/strikeplan", cfg.DatabaseURL)
	assert.Equal(t, "https://claims.oakfield.example", cfg.ClaimBaseURL)
	assert.Equal(t, "localhost:9090", cfg.ClaimListenAddr)
	assert.Equal(t, "FLW", cfg.FellowJobTypeCode)
	assert.Equal(t, "coordinator@oakfield.example", cfg.GmailSender)
}

func TestLoadFromPath_Defaults(t *testing.T) {
	path := writeConfig(t, `
databaseURL: postgres://localhost:5432/strikeplan
claimBaseURL: https://claims.oakfield.example
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.ClaimListenAddr)
	assert.Equal(t, "FEL", cfg.FellowJobTypeCode)
}

func TestLoadFromPath_MissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
claimBaseURL: https://claims.oakfield.example
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidClaimBaseURL(t *testing.T) {
	path := writeConfig(t, `
databaseURL: postgres://localhost:5432/strikeplan
claimBaseURL: not a url
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
