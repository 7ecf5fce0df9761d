package ops

import (
	"context"
	"log/slog"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
)

// DeviceFailure records one device's error inside a batch.
type DeviceFailure struct {
	IP  string
	Err error
}

// BatchResult collects the per-device outcomes of a fleet-wide check.
type BatchResult struct {
	Checked  []store.DeviceRecord
	Failures []DeviceFailure
}

// Check fetches the device's current license state and persists it.
func (s *Service) Check(ctx context.Context, ip string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	rec, err := s.lookup(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	return s.checkDevice(ctx, rec)
}

// CheckAll checks every registered device in stored order. One device's
// failure is recorded and the batch moves on; only context cancellation
// stops the sweep.
func (s *Service) CheckAll(ctx context.Context) BatchResult {
	var result BatchResult
	for _, rec := range s.store.List() {
		if ctx.Err() != nil {
			break
		}
		updated, err := s.checkDevice(ctx, rec)
		if err != nil {
			s.logger.WarnContext(ctx, "device check failed",
				slog.String("ip", rec.IP),
				slog.String("error", err.Error()))
			result.Failures = append(result.Failures, DeviceFailure{IP: rec.IP, Err: err})
			continue
		}
		result.Checked = append(result.Checked, updated)
	}

	s.logger.InfoContext(ctx, "fleet check finished",
		slog.Int("checked", len(result.Checked)),
		slog.Int("failed", len(result.Failures)))
	return result
}

// checkDevice runs one resolve, fetch, persist cycle for a known record.
// When the record carries no auth-type hint yet, the mode the operator
// chose is written back alongside the license fields.
func (s *Service) checkDevice(ctx context.Context, rec store.DeviceRecord) (store.DeviceRecord, error) {
	bundle, err := s.creds.Resolve(ctx, rec.IP, rec.AuthType)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	info, err := s.client.FetchLicenseInfo(ctx, rec.IP, bundle)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	patch := store.LicensePatch(info, s.now())
	if rec.AuthType == store.AuthTypeUnset {
		patch[store.FieldAuthType] = string(bundle.Mode)
	}
	updated, err := s.store.Update(rec.IP, patch)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	s.logger.InfoContext(ctx, "license state refreshed",
		slog.String("ip", rec.IP),
		slog.String("status", string(updated.Status)),
		slog.String("days", license.FormatDays(updated.Days)))
	return updated, nil
}

// persistAuthHint writes the resolved auth mode onto a record that has no
// hint yet, so later operations skip the auth-type prompt. Failure to
// persist the hint never fails the surrounding operation.
func (s *Service) persistAuthHint(ctx context.Context, rec store.DeviceRecord, bundle creds.Bundle) {
	if rec.AuthType != store.AuthTypeUnset {
		return
	}
	if _, err := s.store.Update(rec.IP, map[string]any{store.FieldAuthType: string(bundle.Mode)}); err != nil {
		s.logger.WarnContext(ctx, "could not persist auth-type hint",
			slog.String("ip", rec.IP),
			slog.String("error", err.Error()))
	}
}
