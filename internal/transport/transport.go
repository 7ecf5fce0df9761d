package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
)

// Fetcher reads license information from one device. The verification
// poller depends on this narrow surface only.
type Fetcher interface {
	FetchLicenseInfo(ctx context.Context, ip string, bundle creds.Bundle) (license.Info, error)
}

// DeviceTransport is the full per-device operation set a concrete
// transport provides.
type DeviceTransport interface {
	Fetcher
	InstallLicense(ctx context.Context, ip string, bundle creds.Bundle, regkey string) error
	GetDossier(ctx context.Context, ip string, bundle creds.Bundle, regkey string) (string, error)
}

// Client routes each operation to a transport. Key-based credentials can
// only authenticate the remote shell, so they always go over SSH;
// password credentials use the management API first. Mutations submitted
// to the management API fall back to the remote shell when the device
// reports the operation unsupported.
type Client struct {
	rest    DeviceTransport
	ssh     DeviceTransport
	metrics *Metrics
	logger  *slog.Logger
}

// NewClient wires the two concrete transports behind the routing policy.
// metrics may be nil.
func NewClient(rest, ssh DeviceTransport, metrics *Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rest: rest, ssh: ssh, metrics: metrics, logger: logger}
}

// pick returns the transport the bundle's auth mode dictates.
func (c *Client) pick(bundle creds.Bundle) (DeviceTransport, string) {
	if bundle.Mode == creds.ModeKey {
		return c.ssh, "ssh"
	}
	return c.rest, "rest"
}

// FetchLicenseInfo reads the device's current license state.
func (c *Client) FetchLicenseInfo(ctx context.Context, ip string, bundle creds.Bundle) (license.Info, error) {
	t, name := c.pick(bundle)

	start := time.Now()
	info, err := t.FetchLicenseInfo(ctx, ip, bundle)
	c.metrics.RecordCall(ctx, name, "fetch", time.Since(start), err)
	return info, err
}

// InstallLicense activates a registration key on the device.
func (c *Client) InstallLicense(ctx context.Context, ip string, bundle creds.Bundle, regkey string) error {
	t, name := c.pick(bundle)

	start := time.Now()
	err := t.InstallLicense(ctx, ip, bundle, regkey)
	c.metrics.RecordCall(ctx, name, "install", time.Since(start), err)

	if name == "rest" && errors.Is(err, apperrors.ErrUnsupportedOp) {
		c.logger.WarnContext(ctx, "management API does not support license install, retrying over remote shell",
			slog.String("ip", ip))
		c.metrics.RecordFallback(ctx, "install")

		start = time.Now()
		err = c.ssh.InstallLicense(ctx, ip, bundle, regkey)
		c.metrics.RecordCall(ctx, "ssh", "install", time.Since(start), err)
	}
	return err
}

// GetDossier produces the device dossier for a registration key.
func (c *Client) GetDossier(ctx context.Context, ip string, bundle creds.Bundle, regkey string) (string, error) {
	t, name := c.pick(bundle)

	start := time.Now()
	dossier, err := t.GetDossier(ctx, ip, bundle, regkey)
	c.metrics.RecordCall(ctx, name, "dossier", time.Since(start), err)

	if name == "rest" && errors.Is(err, apperrors.ErrUnsupportedOp) {
		c.logger.WarnContext(ctx, "management API does not support dossier generation, retrying over remote shell",
			slog.String("ip", ip))
		c.metrics.RecordFallback(ctx, "dossier")

		start = time.Now()
		dossier, err = c.ssh.GetDossier(ctx, ip, bundle, regkey)
		c.metrics.RecordCall(ctx, "ssh", "dossier", time.Since(start), err)
	}
	return dossier, err
}
