package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.NotEmpty(t, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.DataDir, "devices.json"), paths.StoreFile)
	assert.Equal(t, filepath.Join(paths.DataDir, "exports"), paths.ExportsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(paths.LogsDir, "history.log"), paths.HistoryFile)
	assert.Equal(t, filepath.Join(paths.LogsDir, "f5lm.log"), paths.LogFile)
}

func TestResolvePaths(t *testing.T) {
	t.Run("no overrides keeps executable-relative layout", func(t *testing.T) {
		p, err := ResolvePaths(PathsConfig{})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(p.DataDir, "devices.json"), p.StoreFile)
	})

	t.Run("data dir override moves store and exports", func(t *testing.T) {
		dir := t.TempDir()
		p, err := ResolvePaths(PathsConfig{DataDir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, p.DataDir)
		assert.Equal(t, filepath.Join(dir, "devices.json"), p.StoreFile)
		assert.Equal(t, filepath.Join(dir, "exports"), p.ExportsDir)
	})

	t.Run("explicit store file wins over data dir", func(t *testing.T) {
		dir := t.TempDir()
		store := filepath.Join(dir, "fleet.json")
		p, err := ResolvePaths(PathsConfig{DataDir: dir, StoreFile: store})
		require.NoError(t, err)
		assert.Equal(t, store, p.StoreFile)
	})

	t.Run("logs dir override moves history and log file", func(t *testing.T) {
		dir := t.TempDir()
		p, err := ResolvePaths(PathsConfig{LogsDir: dir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "history.log"), p.HistoryFile)
		assert.Equal(t, filepath.Join(dir, "f5lm.log"), p.LogFile)
	})
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	p := &Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, "data"),
		ExportsDir:    filepath.Join(base, "data", "exports"),
		LogsDir:       filepath.Join(base, "logs"),
	}

	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on existing directories
	assert.NoError(t, p.EnsureDirectories())
}

func TestGetExportPath(t *testing.T) {
	p := &Paths{ExportsDir: "/opt/f5lm/data/exports"}
	now := time.Date(2025, 1, 15, 14, 3, 5, 0, time.UTC)

	assert.Equal(t,
		filepath.Join("/opt/f5lm/data/exports", "f5-licenses-20250115-140305.csv"),
		p.GetExportPath("csv", now))
	assert.Equal(t,
		filepath.Join("/opt/f5lm/data/exports", "f5-licenses-20250115-140305.xlsx"),
		p.GetExportPath("xlsx", now))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
