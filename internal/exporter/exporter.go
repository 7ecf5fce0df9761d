package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
)

// Format selects the fleet report file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat interprets the operator's format argument. An empty
// argument means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or xlsx)", s)
	}
}

// fleetHeaders is the column order of a fleet report; it mirrors the
// stored record fields.
var fleetHeaders = []string{
	"ip", "added", "checked", "expires", "days", "status",
	"regkey", "auth_type", "svc_check_date",
}

// fleetRow renders one device record. The registration key is written in
// full here; see the package doc.
func fleetRow(rec store.DeviceRecord) []string {
	return []string{
		rec.IP,
		rec.Added,
		rec.Checked,
		rec.Expires,
		license.FormatDays(rec.Days),
		string(rec.Status),
		rec.RegKey,
		rec.AuthType,
		rec.SvcCheckDate,
	}
}

// Exporter writes fleet reports into the exports directory.
type Exporter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// New builds an exporter rooted at the configured paths.
func New(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{paths: paths, logger: logger}
}

// ExportFleet writes every record to one report file and returns the path
// written. An empty path picks a timestamped file in the exports
// directory.
func (e *Exporter) ExportFleet(records []store.DeviceRecord, format Format, path string) (string, error) {
	if path == "" {
		path = e.paths.GetExportPath(string(format), time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, fleetRow(rec))
	}

	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(path, fleetHeaders, rows)
	case FormatXLSX:
		err = writeXLSX(path, fleetHeaders, rows)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("fleet report written",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("devices", len(records)))
	return path, nil
}

// SaveDossier writes a dossier to its own timestamped text file and
// returns the path written.
func (e *Exporter) SaveDossier(ip, dossier string, now time.Time) (string, error) {
	if err := os.MkdirAll(e.paths.ExportsDir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("dossier-%s-%s.txt", sanitizeFilename(ip), now.Format("20060102-150405"))
	path := filepath.Join(e.paths.ExportsDir, name)
	if err := os.WriteFile(path, []byte(dossier+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write dossier file: %w", err)
	}

	e.logger.Info("dossier saved",
		slog.String("ip", ip),
		slog.String("path", path))
	return path, nil
}

// sanitizeFilename keeps device addresses safe as filename components.
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
