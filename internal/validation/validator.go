// Package validation checks operator input before any store mutation or
// transport call happens. A failed check surfaces as a ValidationError and
// aborts the operation with no state touched.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

// Validator bundles the shared struct/field validator with a logger so
// rejected input shows up in the event log with the reason.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a validator.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(),
		logger:   logger,
	}
}

// DeviceIdentifier accepts an IPv4/IPv6 address or a hostname. Anything
// else is rejected before the identifier reaches the store or a transport.
func (v *Validator) DeviceIdentifier(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return apperrors.NewValidationError("device", value, "identifier is required")
	}
	if err := v.validate.Var(trimmed, "ip|hostname|fqdn"); err != nil {
		v.logger.Warn("device identifier rejected", slog.String("value", trimmed))
		return apperrors.NewValidationError("device", trimmed, "must be an IP address or hostname")
	}
	return nil
}

// RegistrationKey checks the basic shape of a vendor registration key.
// Group counts vary across platforms, so only the character set and the
// dashed shape are checked.
func (v *Validator) RegistrationKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return apperrors.NewValidationError("regkey", key, "registration key is required")
	}
	for _, c := range trimmed {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
		default:
			return apperrors.NewValidationError("regkey", trimmed,
				fmt.Sprintf("invalid character %q in registration key", c))
		}
	}
	if !strings.Contains(trimmed, "-") {
		return apperrors.NewValidationError("regkey", trimmed, "registration key must contain dashed groups")
	}
	return nil
}

// LicenseFile verifies that a local license file exists and is readable
// before a multi-step apply operation opens any remote session.
func (v *Validator) LicenseFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.NewValidationError("license-file", path, "file path is required")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Warn("license file does not exist", slog.String("file", path))
		return apperrors.NewValidationError("license-file", path, "file does not exist")
	}
	if err != nil {
		return apperrors.NewValidationError("license-file", path, fmt.Sprintf("stat failed: %v", err))
	}
	if info.IsDir() {
		return apperrors.NewValidationError("license-file", path, "path is a directory, not a file")
	}

	f, err := os.Open(path)
	if err != nil {
		v.logger.Warn("license file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewValidationError("license-file", path, "file is not readable")
	}
	f.Close()

	v.logger.Debug("license file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// AuthType accepts the persisted auth-type hints.
func (v *Validator) AuthType(value string) error {
	switch value {
	case "key", "password", "":
		return nil
	default:
		return apperrors.NewValidationError("auth_type", value, "must be key or password")
	}
}
