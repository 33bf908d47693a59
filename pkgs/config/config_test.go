package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "max_loop_iterations: 50\ndebug: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Entry:             DefaultEntry,
		MaxLoopIterations: 50,
		MaxDepth:          DefaultMaxDepth,
		Debug:             true,
	}, cfg)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "max_iterations: 5\n"))
	require.Error(t, err)
	assert.True(t, lerrors.IsErrorType(err, lerrors.ErrConfig))
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	_, err := Load(writeConfig(t, "max_depth: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth must be at least 1")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFind(t *testing.T) {
	path := writeConfig(t, "")

	found, ok := Find(filepath.Dir(path))
	assert.True(t, ok)
	assert.Equal(t, path, found)

	_, ok = Find(t.TempDir())
	assert.False(t, ok)
}
