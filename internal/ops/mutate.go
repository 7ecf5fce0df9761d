package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/session"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/transport"
)

const (
	// licensePath is where the appliance keeps its active license file.
	licensePath       = "/config/bigip.license"
	licenseBackupPath = "/config/bigip.license.bak"

	// reloadCommand re-activates the license file in place. It is a host
	// utility, not a tmsh command, so it runs through the util wrap.
	reloadCommand = "reloadlic"
)

// Renew installs a license by registration key, then verifies the device
// comes back with a usable license and persists what it reports.
func (s *Service) Renew(ctx context.Context, ip, regkey string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	regkey = strings.TrimSpace(regkey)
	if err := s.validator.RegistrationKey(regkey); err != nil {
		return store.DeviceRecord{}, err
	}
	rec, err := s.lookup(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	bundle, err := s.creds.Resolve(ctx, ip, rec.AuthType)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	s.logger.InfoContext(ctx, "installing license",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(regkey)))

	// The device contacts the activation service during install, so the
	// call gets the heavier mutation budget.
	mctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	err = s.client.InstallLicense(mctx, ip, bundle, regkey)
	cancel()
	if err != nil {
		return store.DeviceRecord{}, err
	}

	s.persistAuthHint(ctx, rec, bundle)
	return s.verifier.Poll(ctx, ip, bundle, s.verify.MaxWait, s.verify.Interval)
}

// Apply replaces the device's license file: back up the current file,
// upload the new one, reload, all over one authenticated session. The
// verification poller then confirms the device came back licensed.
func (s *Service) Apply(ctx context.Context, ip, licenseFile string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	if err := s.validator.LicenseFile(licenseFile); err != nil {
		return store.DeviceRecord{}, err
	}
	rec, err := s.lookup(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	bundle, err := s.creds.Resolve(ctx, ip, rec.AuthType)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	s.logger.InfoContext(ctx, "applying license file",
		slog.String("ip", ip),
		slog.String("file", licenseFile))

	mux := session.NewMultiplexer(ip, bundle, s.dialer, s.logger)
	if err := mux.Open(ctx); err != nil {
		return store.DeviceRecord{}, err
	}
	defer mux.Close()

	// A fresh appliance has no license file to back up, so a failed copy
	// is reported and skipped rather than aborting the apply.
	backupCmd := transport.WrapUtil(fmt.Sprintf("cp %s %s", licensePath, licenseBackupPath))
	if out, err := s.runStep(ctx, mux, ip, backupCmd); err != nil {
		s.logger.WarnContext(ctx, "license backup step failed, continuing",
			slog.String("ip", ip),
			slog.String("output", strings.TrimSpace(out)),
			slog.String("error", err.Error()))
	}

	if err := s.transferStep(ctx, mux, licenseFile, licensePath); err != nil {
		return store.DeviceRecord{}, fmt.Errorf("upload license file: %w", err)
	}

	if _, err := s.runStep(ctx, mux, ip, transport.WrapUtil(reloadCommand)); err != nil {
		return store.DeviceRecord{}, fmt.Errorf("reload license: %w", err)
	}

	s.persistAuthHint(ctx, rec, bundle)
	return s.verifier.Poll(ctx, ip, bundle, s.verify.MaxWait, s.verify.Interval)
}

// Reload re-activates the license already present on the device, then
// verifies the device comes back licensed.
func (s *Service) Reload(ctx context.Context, ip string) (store.DeviceRecord, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	rec, err := s.lookup(ip)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	bundle, err := s.creds.Resolve(ctx, ip, rec.AuthType)
	if err != nil {
		return store.DeviceRecord{}, err
	}

	s.logger.InfoContext(ctx, "reloading license", slog.String("ip", ip))

	conn, err := s.dialer.Dial(ctx, ip, bundle)
	if err != nil {
		return store.DeviceRecord{}, err
	}
	defer conn.Close()

	if _, err := s.runStep(ctx, conn, ip, transport.WrapUtil(reloadCommand)); err != nil {
		return store.DeviceRecord{}, fmt.Errorf("reload license: %w", err)
	}

	s.persistAuthHint(ctx, rec, bundle)
	return s.verifier.Poll(ctx, ip, bundle, s.verify.MaxWait, s.verify.Interval)
}

// runner is the single-command surface shared by a raw connection and
// the session multiplexer.
type runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// runStep executes one remote command under the mutation timeout. When
// the command fails and its output carries a recognizable failure marker,
// the classified error replaces the raw one.
func (s *Service) runStep(ctx context.Context, r runner, ip, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	defer cancel()

	out, err := r.Run(ctx, command)
	if err == nil {
		return out, nil
	}
	if classified := transport.ClassifyBody(ip, "ssh", out); classified != nil {
		return out, classified
	}
	return out, err
}

// transferStep uploads a local file under the mutation timeout.
func (s *Service) transferStep(ctx context.Context, mux *session.Multiplexer, local, remote string) error {
	ctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	defer cancel()
	return mux.Transfer(ctx, local, remote)
}
