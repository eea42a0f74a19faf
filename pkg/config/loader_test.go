package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoundtableYAML(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "roundtable.yaml"), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestInitialize_MinimalConfig(t *testing.T) {
	dir := t.TempDir()
	writeRoundtableYAML(t, dir, `
system:
  database:
    host: db.internal
    database: roundtable_test
`)

	cfg, err := Initialize(t.Context(), dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "roundtable_test", cfg.Database.Database)
	assert.Equal(t, "stub", cfg.Defaults.AIProvider)
	assert.Equal(t, 10, cfg.Defaults.MaxRoundsDefault)
	assert.Greater(t, cfg.Stats().Sockets, 0)

	_, err = cfg.GetSocket("facilitator")
	assert.NoError(t, err)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(t.Context(), dir)
	require.Error(t, err)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestInitialize_UserSocketOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeRoundtableYAML(t, dir, `
system:
  database:
    database: roundtable_test
sockets:
  facilitator:
    name: Custom Facilitator
    system_prompt: "Be a custom facilitator."
  mascot:
    name: Mascot
    system_prompt: "Cheer the team on."
`)

	cfg, err := Initialize(t.Context(), dir)
	require.NoError(t, err)

	facilitator, err := cfg.GetSocket("facilitator")
	require.NoError(t, err)
	assert.Equal(t, "Custom Facilitator", facilitator.Name)

	mascot, err := cfg.GetSocket("mascot")
	require.NoError(t, err)
	assert.Equal(t, "Cheer the team on.", mascot.SystemPrompt)
}

func TestInitialize_InvalidSocketFailsValidation(t *testing.T) {
	dir := t.TempDir()
	writeRoundtableYAML(t, dir, `
system:
  database:
    database: roundtable_test
sockets:
  broken:
    name: Broken
`)

	_, err := Initialize(t.Context(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestInitialize_EnvVarExpansion(t *testing.T) {
	t.Setenv("RT_TEST_DB_HOST", "expanded-host")

	dir := t.TempDir()
	writeRoundtableYAML(t, dir, `
system:
  database:
    host: ${RT_TEST_DB_HOST}
    database: roundtable_test
`)

	cfg, err := Initialize(t.Context(), dir)
	require.NoError(t, err)
	assert.Equal(t, "expanded-host", cfg.Database.Host)
}
