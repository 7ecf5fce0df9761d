package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
)

var (
	// ErrNotFound is returned by Update and Remove for an unknown device.
	ErrNotFound = errors.New("device not found")
	// ErrExists is returned by Add when the device is already registered.
	ErrExists = errors.New("device already exists")
)

// Store is the persistent device collection backing every operation.
// It is not safe for concurrent use; the tool runs one operator command
// at a time.
type Store struct {
	path    string
	logger  *slog.Logger
	records []map[string]any
	index   map[string]int // ip -> position in records
}

// Open loads the store at path. A missing file yields an empty store.
// A file that fails to parse is renamed aside with a timestamp suffix
// and the store restarts empty; the event is logged as a warning.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, index: make(map[string]int)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &apperrors.StoreError{Path: path, Wrapped: err}
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		quarantined, qerr := s.quarantine()
		if qerr != nil {
			return nil, &apperrors.StoreError{Path: path, Wrapped: qerr}
		}
		recovered := &apperrors.StoreError{Path: path, Recovered: true, Quarantined: quarantined, Wrapped: err}
		s.logger.Warn("record store corrupt, quarantined and reset",
			slog.String("path", path),
			slog.String("quarantined", quarantined),
			slog.String("error", recovered.Error()))
		return s, nil
	}

	s.records = records
	s.reindex()

	s.logger.Debug("record store loaded",
		slog.String("path", path),
		slog.Int("devices", len(records)))
	return s, nil
}

// quarantine renames the corrupt store file aside so its contents stay
// available for inspection.
func (s *Store) quarantine() (string, error) {
	quarantined := fmt.Sprintf("%s.bad-%s", s.path, time.Now().Format("20060102T150405"))
	if err := os.Rename(s.path, quarantined); err != nil {
		return "", fmt.Errorf("quarantine corrupt store: %w", err)
	}
	return quarantined, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Count returns the number of registered devices.
func (s *Store) Count() int { return len(s.records) }

// Exists reports whether a device is registered.
func (s *Store) Exists(ip string) bool {
	_, ok := s.index[ip]
	return ok
}

// Get returns the typed view of one record.
func (s *Store) Get(ip string) (DeviceRecord, bool) {
	i, ok := s.index[ip]
	if !ok {
		return DeviceRecord{}, false
	}
	return recordFromMap(s.records[i]), true
}

// List returns typed views of every record in stored order.
func (s *Store) List() []DeviceRecord {
	out := make([]DeviceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, recordFromMap(rec))
	}
	return out
}

// Add registers a new device with its auth-type hint and persists the
// collection. The new record starts in status "new".
func (s *Store) Add(ip, authType string) (DeviceRecord, error) {
	if s.Exists(ip) {
		return DeviceRecord{}, fmt.Errorf("%s: %w", ip, ErrExists)
	}

	rec := map[string]any{
		FieldIP:       ip,
		FieldAdded:    time.Now().Format(TimestampLayout),
		FieldAuthType: authType,
		FieldStatus:   string(license.StatusNew),
	}
	s.records = append(s.records, rec)
	s.index[ip] = len(s.records) - 1

	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		delete(s.index, ip)
		return DeviceRecord{}, err
	}

	s.logger.Info("device added",
		slog.String("ip", ip),
		slog.String("auth_type", authType))
	return recordFromMap(rec), nil
}

// Update merges patch into the named record and persists the collection.
// Fields not named in the patch are preserved, including fields this
// version of the tool does not know about. The ip key is immutable and
// ignored if present in the patch.
func (s *Store) Update(ip string, patch map[string]any) (DeviceRecord, error) {
	i, ok := s.index[ip]
	if !ok {
		return DeviceRecord{}, fmt.Errorf("%s: %w", ip, ErrNotFound)
	}

	merged := make(map[string]any, len(s.records[i])+len(patch))
	for k, v := range s.records[i] {
		merged[k] = v
	}
	for k, v := range patch {
		if k == FieldIP {
			continue
		}
		merged[k] = v
	}

	prev := s.records[i]
	s.records[i] = merged
	if err := s.save(); err != nil {
		s.records[i] = prev
		return DeviceRecord{}, err
	}

	s.logger.Debug("device updated",
		slog.String("ip", ip),
		slog.Int("patched_fields", len(patch)))
	return recordFromMap(merged), nil
}

// Remove deletes the named record and persists the collection.
func (s *Store) Remove(ip string) error {
	i, ok := s.index[ip]
	if !ok {
		return fmt.Errorf("%s: %w", ip, ErrNotFound)
	}

	prev := s.records
	next := make([]map[string]any, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.records = next
	s.reindex()

	if err := s.save(); err != nil {
		s.records = prev
		s.reindex()
		return err
	}

	s.logger.Info("device removed", slog.String("ip", ip))
	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, rec := range s.records {
		if ip := stringField(rec, FieldIP); ip != "" {
			s.index[ip] = i
		}
	}
}

// save writes the full collection to a temporary file in the same
// directory and renames it over the original, so a crash mid-write never
// leaves a truncated store behind.
func (s *Store) save() error {
	records := s.records
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &apperrors.StoreError{Path: s.path, Wrapped: err}
	}
	return nil
}
