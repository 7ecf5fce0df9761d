package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	logsDir := filepath.Join(root, "logs")
	return &config.Paths{
		ExecutableDir: root,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		LogsDir:       logsDir,
		StoreFile:     filepath.Join(dataDir, "devices.json"),
		HistoryFile:   filepath.Join(logsDir, "history.log"),
		LogFile:       filepath.Join(logsDir, "f5lm.log"),
	}
}

func newTestApplication(t *testing.T, input string) (*Application, *bytes.Buffer) {
	t.Helper()
	paths := testPaths(t)
	require.NoError(t, paths.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := &bytes.Buffer{}
	application, err := wire(config.Default(), paths, logger, strings.NewReader(input), out)
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })
	return application, out
}

func TestWireBuildsWorkingApplication(t *testing.T) {
	application, _ := newTestApplication(t, "")

	require.NotNil(t, application.Store)
	require.NotNil(t, application.Service)
	assert.Equal(t, 0, application.Service.Count())
}

func TestRunOneShotCommand(t *testing.T) {
	application, out := newTestApplication(t, "")

	err := application.Run(context.Background(), []string{"add", "10.1.1.1", "password"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "added 10.1.1.1 (auth password)")

	rec, err := application.Service.Get("10.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "password", rec.AuthType)
}

func TestRunOneShotRecordsHistory(t *testing.T) {
	application, _ := newTestApplication(t, "")

	require.NoError(t, application.Run(context.Background(), []string{"count"}))
	require.NoError(t, application.Close())

	data, err := os.ReadFile(application.Paths.HistoryFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "count")
}

func TestRunWithoutArgsEntersShell(t *testing.T) {
	application, out := newTestApplication(t, "count\nquit\n")

	err := application.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "0 devices registered")
	assert.Contains(t, out.String(), "bye")
}

func TestStoreStateSurvivesRewire(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, paths.EnsureDirectories())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := wire(config.Default(), paths, logger, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, first.Run(context.Background(), []string{"add", "10.1.1.1"}))
	require.NoError(t, first.Close())

	second, err := wire(config.Default(), paths, logger, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, 1, second.Service.Count())
}
