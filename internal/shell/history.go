package shell

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
)

// History is the append-only audit trail of executed commands. A nil
// *History is a valid no-op, so the shell keeps working when the log
// cannot be opened.
type History struct {
	f      *os.File
	logger *slog.Logger
	now    func() time.Time
}

// OpenHistory opens (or creates) the history log for appending.
func OpenHistory(path string, logger *slog.Logger) (*History, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history log %s: %w", path, err)
	}
	return &History{f: f, logger: logger, now: time.Now}, nil
}

// Record appends one executed command. Entries are written through
// immediately so the trail survives an abrupt exit. Callers mask secrets
// before recording.
func (h *History) Record(args []string) {
	if h == nil {
		return
	}
	line := fmt.Sprintf("%s %s\n", h.now().Format(store.TimestampLayout), strings.Join(args, " "))
	if _, err := h.f.WriteString(line); err != nil {
		h.logger.Warn("history write failed", slog.String("error", err.Error()))
	}
}

// Close closes the underlying log file.
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.f.Close()
}
