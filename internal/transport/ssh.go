package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/session"
)

// WrapTMSH wraps a tmsh statement so it runs identically whether the
// account's login shell is bash or tmsh. Commands are never sent bare.
func WrapTMSH(cmd string) string {
	return fmt.Sprintf("tmsh -c '%s'", cmd)
}

// WrapUtil wraps a bash utility invocation in the same double shell so
// host binaries stay reachable from a tmsh login shell.
func WrapUtil(cmd string) string {
	return WrapTMSH(fmt.Sprintf("run /util bash -c \"%s\"", cmd))
}

// SSHTransport drives the device over its remote shell. Each operation
// dials a fresh connection; multi-step mutations go through
// session.Multiplexer instead.
type SSHTransport struct {
	dialer session.Dialer
	logger *slog.Logger
}

// NewSSHTransport builds the remote-shell transport.
func NewSSHTransport(dialer session.Dialer, logger *slog.Logger) *SSHTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSHTransport{dialer: dialer, logger: logger}
}

func (t *SSHTransport) run(ctx context.Context, ip string, bundle creds.Bundle, cmd string) (string, error) {
	conn, err := t.dialer.Dial(ctx, ip, bundle)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.Run(ctx, cmd)
}

// FetchLicenseInfo runs "show sys license" and parses the labelled output.
func (t *SSHTransport) FetchLicenseInfo(ctx context.Context, ip string, bundle creds.Bundle) (license.Info, error) {
	output, err := t.run(ctx, ip, bundle, WrapTMSH("show sys license"))
	if err != nil {
		// Unlicensed devices exit non-zero; the message still tells us
		// which case this is.
		if cls := ClassifyBody(ip, "ssh", output); cls != nil {
			return license.Info{}, cls
		}
		return license.Info{}, err
	}
	if cls := ClassifyBody(ip, "ssh", output); cls != nil {
		return license.Info{}, cls
	}

	info, err := parseShowLicense(ip, output)
	if err != nil {
		return license.Info{}, err
	}
	t.logger.DebugContext(ctx, "license fetched over remote shell",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(info.RegKey)),
		slog.String("expiry", info.Expiry))
	return info, nil
}

// InstallLicense activates a registration key. The device contacts the
// activation service itself, so this can run for a while.
func (t *SSHTransport) InstallLicense(ctx context.Context, ip string, bundle creds.Bundle, regkey string) error {
	output, err := t.run(ctx, ip, bundle, WrapTMSH("install sys license registration-key "+regkey))
	if err != nil {
		if cls := ClassifyBody(ip, "ssh", output); cls != nil {
			return cls
		}
		return err
	}
	if cls := ClassifyBody(ip, "ssh", output); cls != nil {
		return cls
	}
	t.logger.InfoContext(ctx, "license install submitted over remote shell",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(regkey)))
	return nil
}

// GetDossier runs the host get_dossier utility and returns its output.
func (t *SSHTransport) GetDossier(ctx context.Context, ip string, bundle creds.Bundle, regkey string) (string, error) {
	output, err := t.run(ctx, ip, bundle, WrapUtil("get_dossier -b "+regkey))
	if err != nil {
		if cls := ClassifyBody(ip, "ssh", output); cls != nil {
			return "", cls
		}
		return "", err
	}
	if cls := ClassifyBody(ip, "ssh", output); cls != nil {
		return "", cls
	}
	dossier := strings.TrimSpace(output)
	if dossier == "" {
		return "", apperrors.NewTransportError(ip, "ssh", apperrors.ErrUnparseable,
			fmt.Errorf("dossier command produced no output"))
	}
	return dossier, nil
}

// Field labels in "show sys license" output. Matching is case-insensitive
// because the key label changed casing across firmware trains.
const (
	labelRegKey    = "registration key"
	labelEndDate   = "license end date"
	labelSvcCheck  = "service check date"
	labelLicensed  = "licensed on"
	labelStartDate = "license start date"
)

// parseShowLicense extracts the registration key and dates from tmsh
// output. An absent end date is a perpetual license; an absent key on
// otherwise well-formed output is unparseable.
func parseShowLicense(ip, output string) (license.Info, error) {
	var info license.Info
	var sawLicenseSection bool

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, labelRegKey):
			info.RegKey = labelValue(line, len(labelRegKey))
			sawLicenseSection = true
		case strings.HasPrefix(lower, labelEndDate):
			info.Expiry = labelValue(line, len(labelEndDate))
			sawLicenseSection = true
		case strings.HasPrefix(lower, labelSvcCheck):
			info.ServiceCheckDate = labelValue(line, len(labelSvcCheck))
			sawLicenseSection = true
		case strings.HasPrefix(lower, labelLicensed), strings.HasPrefix(lower, labelStartDate):
			sawLicenseSection = true
		}
	}

	if info.RegKey == "" {
		if sawLicenseSection {
			return license.Info{}, apperrors.NewTransportError(ip, "ssh", apperrors.ErrUnparseable,
				fmt.Errorf("license output carried no registration key"))
		}
		return license.Info{}, apperrors.NewTransportError(ip, "ssh", apperrors.ErrUnparseable,
			fmt.Errorf("output did not look like license information"))
	}
	return info, nil
}

// labelValue returns the text after a label, tolerating both whitespace
// padding and a colon separator.
func labelValue(line string, labelLen int) string {
	rest := line[labelLen:]
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}
