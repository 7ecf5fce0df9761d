package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/exporter"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/session"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/validation"
)

// CredentialSource resolves the credentials for one device operation.
// *creds.Resolver satisfies it.
type CredentialSource interface {
	Resolve(ctx context.Context, ip, hint string) (creds.Bundle, error)
}

// DeviceClient is the dual-transport surface operations run against.
// *transport.Client satisfies it.
type DeviceClient interface {
	FetchLicenseInfo(ctx context.Context, ip string, bundle creds.Bundle) (license.Info, error)
	InstallLicense(ctx context.Context, ip string, bundle creds.Bundle, regkey string) error
	GetDossier(ctx context.Context, ip string, bundle creds.Bundle, regkey string) (string, error)
}

// Verifier re-reads a device after a mutation until its license state is
// usable. *verify.Poller satisfies it.
type Verifier interface {
	Poll(ctx context.Context, ip string, bundle creds.Bundle, maxWait, interval time.Duration) (store.DeviceRecord, error)
}

// Deps collects everything a Service needs. Logger may be nil; zero
// timeouts fall back to the built-in defaults.
type Deps struct {
	Store     *store.Store
	Validator *validation.Validator
	Creds     CredentialSource
	Client    DeviceClient
	Verifier  Verifier
	Dialer    session.Dialer
	Exporter  *exporter.Exporter

	Verify          config.VerifyConfig
	MutationTimeout time.Duration
	Logger          *slog.Logger
}

// Service executes operator commands against the fleet.
type Service struct {
	store     *store.Store
	validator *validation.Validator
	creds     CredentialSource
	client    DeviceClient
	verifier  Verifier
	dialer    session.Dialer
	exporter  *exporter.Exporter

	verify          config.VerifyConfig
	mutationTimeout time.Duration
	logger          *slog.Logger

	now func() time.Time
}

// NewService wires a Service from its dependencies.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Verify.MaxWait == 0 {
		deps.Verify.MaxWait = 3 * time.Minute
	}
	if deps.Verify.Interval == 0 {
		deps.Verify.Interval = 10 * time.Second
	}
	if deps.MutationTimeout == 0 {
		deps.MutationTimeout = 60 * time.Second
	}
	return &Service{
		store:           deps.Store,
		validator:       deps.Validator,
		creds:           deps.Creds,
		client:          deps.Client,
		verifier:        deps.Verifier,
		dialer:          deps.Dialer,
		exporter:        deps.Exporter,
		verify:          deps.Verify,
		mutationTimeout: deps.MutationTimeout,
		logger:          deps.Logger,
		now:             time.Now,
	}
}

// ident canonicalizes and validates a device identifier.
func (s *Service) ident(ip string) (string, error) {
	trimmed := strings.TrimSpace(ip)
	if err := s.validator.DeviceIdentifier(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

// lookup returns the record for a registered device.
func (s *Service) lookup(ip string) (store.DeviceRecord, error) {
	rec, ok := s.store.Get(ip)
	if !ok {
		return store.DeviceRecord{}, fmt.Errorf("%s: %w", ip, store.ErrNotFound)
	}
	return rec, nil
}

// Add registers a new device. authType is the optional auth-mode hint;
// empty means the first operation on the device will ask.
func (s *Service) Add(ip, authType string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	if err := s.validator.AuthType(authType); err != nil {
		return store.DeviceRecord{}, err
	}
	return s.store.Add(ip, authType)
}

// Remove deletes a device from the store.
func (s *Service) Remove(ip string) error {
	ip, err := s.ident(ip)
	if err != nil {
		return err
	}
	return s.store.Remove(ip)
}

// Get returns one device's stored record.
func (s *Service) Get(ip string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	return s.lookup(ip)
}

// List returns every stored record in stored order.
func (s *Service) List() []store.DeviceRecord {
	return s.store.List()
}

// Count returns the number of registered devices.
func (s *Service) Count() int {
	return s.store.Count()
}

// Export writes the fleet report in the named format ("csv" when empty)
// and returns the written path. An empty path picks a timestamped file
// under the exports directory.
func (s *Service) Export(format, path string) (string, error) {
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return s.exporter.ExportFleet(s.store.List(), f, path)
}
