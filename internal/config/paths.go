package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Paths contains all the application paths.
// This is the single source of truth for ALL file paths in the application.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string

	// Well-known files
	StoreFile   string
	HistoryFile string
	LogFile     string
}

// GetPaths returns the application paths relative to the executable location.
// All paths are ALWAYS relative to the executable directory, never the
// current working directory, so the tool behaves the same from any shell.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)

	// Directory structure:
	// f5lm/
	//   ├── data/
	//   │   ├── devices.json   (device record store)
	//   │   └── exports/       (CSV/XLSX fleet reports)
	//   └── logs/
	//       ├── f5lm.log       (structured application log)
	//       └── history.log    (operation audit trail)

	dataDir := filepath.Join(exeDir, "data")
	logsDir := filepath.Join(exeDir, "logs")

	return &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		LogsDir:       logsDir,
		StoreFile:     filepath.Join(dataDir, "devices.json"),
		HistoryFile:   filepath.Join(logsDir, "history.log"),
		LogFile:       filepath.Join(logsDir, "f5lm.log"),
	}, nil
}

// ResolvePaths merges explicit configuration overrides onto the
// executable-relative defaults.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	p, err := GetPaths()
	if err != nil {
		return nil, err
	}
	if cfg.DataDir != "" {
		p.DataDir = cfg.DataDir
		p.StoreFile = filepath.Join(cfg.DataDir, "devices.json")
		p.ExportsDir = filepath.Join(cfg.DataDir, "exports")
	}
	if cfg.StoreFile != "" {
		p.StoreFile = cfg.StoreFile
	}
	if cfg.ExportsDir != "" {
		p.ExportsDir = cfg.ExportsDir
	}
	if cfg.LogsDir != "" {
		p.LogsDir = cfg.LogsDir
		p.HistoryFile = filepath.Join(cfg.LogsDir, "history.log")
		p.LogFile = filepath.Join(cfg.LogsDir, "f5lm.log")
	}
	return p, nil
}

// EnsureDirectories creates all required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	return nil
}

// GetExportPath returns a timestamped export file path, e.g.
// exports/f5-licenses-20250115-140305.csv.
func (p *Paths) GetExportPath(format string, now time.Time) string {
	filename := fmt.Sprintf("f5-licenses-%s.%s", now.Format("20060102-150405"), format)
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
