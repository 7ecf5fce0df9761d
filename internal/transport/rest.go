package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
)

// Management API resource paths.
const (
	pathLogin   = "/mgmt/shared/authn/login"
	pathLicense = "/mgmt/tm/sys/license"
	pathDossier = "/mgmt/tm/util/get-dossier"
)

// RESTConfig carries the management-API knobs.
type RESTConfig struct {
	Port            int
	LoginProvider   string
	ConnectTimeout  time.Duration
	CallTimeout     time.Duration
	MutationTimeout time.Duration
}

// RESTTransport talks to the device's HTTPS management API. Devices ship
// self-signed certificates, so certificate validation is skipped.
type RESTTransport struct {
	cfg    RESTConfig
	client *http.Client
	logger *slog.Logger
}

// NewRESTTransport builds the management-API transport.
func NewRESTTransport(cfg RESTConfig, logger *slog.Logger) *RESTTransport {
	if cfg.Port == 0 {
		cfg.Port = 443
	}
	if cfg.LoginProvider == "" {
		cfg.LoginProvider = "tmos"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.MutationTimeout == 0 {
		cfg.MutationTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTTransport{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

func (t *RESTTransport) baseURL(ip string) string {
	return fmt.Sprintf("https://%s", net.JoinHostPort(ip, fmt.Sprintf("%d", t.cfg.Port)))
}

// authResponse is the interesting part of a login reply.
type authResponse struct {
	Token struct {
		Token string `json:"token"`
	} `json:"token"`
}

// licenseResponse is the license resource: entries keyed by resource path
// in unspecified order.
type licenseResponse struct {
	Entries map[string]restEntry `json:"entries"`
}

type restEntry struct {
	NestedStats struct {
		Entries map[string]restField `json:"entries"`
	} `json:"nestedStats"`
}

type restField struct {
	Description string `json:"description"`
}

// resourceEntry is the typed view of one entries element, carrying its
// path so selection happens by predicate instead of map-key poking.
type resourceEntry struct {
	Path   string
	Fields map[string]restField
}

// dossierResponse is the reply of a util command run.
type dossierResponse struct {
	CommandResult string `json:"commandResult"`
}

// login authenticates and returns a short-lived token.
func (t *RESTTransport) login(ctx context.Context, ip string, bundle creds.Bundle) (string, error) {
	if bundle.Mode != creds.ModePassword {
		return "", apperrors.NewCredentialError(ip, "management API requires password credentials", nil)
	}

	payload := map[string]string{
		"username":          bundle.Username,
		"password":          bundle.Secret,
		"loginProviderName": t.cfg.LoginProvider,
	}
	status, body, err := t.do(ctx, http.MethodPost, t.baseURL(ip)+pathLogin, "", payload, t.cfg.CallTimeout)
	if err != nil {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrUnreachable, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrAuthFailed, nil)
	}
	if err := classifyStatus(ip, status, string(body)); err != nil {
		return "", err
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil || auth.Token.Token == "" {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable,
			fmt.Errorf("login reply carried no token"))
	}
	return auth.Token.Token, nil
}

// FetchLicenseInfo authenticates, requests the license resource, selects
// the license entry by path predicate and reads its fields. An absent end
// date means a perpetual license, not an error.
func (t *RESTTransport) FetchLicenseInfo(ctx context.Context, ip string, bundle creds.Bundle) (license.Info, error) {
	token, err := t.login(ctx, ip, bundle)
	if err != nil {
		return license.Info{}, err
	}

	status, body, err := t.do(ctx, http.MethodGet, t.baseURL(ip)+pathLicense, token, nil, t.cfg.CallTimeout)
	if err != nil {
		return license.Info{}, apperrors.NewTransportError(ip, "rest", apperrors.ErrUnreachable, err)
	}
	if err := classifyStatus(ip, status, string(body)); err != nil {
		return license.Info{}, err
	}

	var resp licenseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return license.Info{}, apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable, err)
	}
	if len(resp.Entries) == 0 {
		// The resource decoded but is empty: the device reports no
		// installed license.
		return license.Info{}, apperrors.NewTransportError(ip, "rest", apperrors.ErrUnlicensed, nil)
	}

	entry, ok := selectEntry(typedEntries(resp.Entries), isLicenseResource)
	if !ok {
		return license.Info{}, apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable,
			fmt.Errorf("no entry matched the license resource path"))
	}

	info := license.Info{
		RegKey:           entry.Fields["registrationKey"].Description,
		Expiry:           entry.Fields["licenseEndDateTime"].Description,
		ServiceCheckDate: entry.Fields["serviceCheckDate"].Description,
	}
	t.logger.DebugContext(ctx, "license fetched over management API",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(info.RegKey)),
		slog.String("expiry", info.Expiry))
	return info, nil
}

// InstallLicense submits an install-by-registration-key command. Firmware
// that does not support license install over the management API is
// reported as ErrUnsupportedOp so callers fall back to the remote shell.
func (t *RESTTransport) InstallLicense(ctx context.Context, ip string, bundle creds.Bundle, regkey string) error {
	token, err := t.login(ctx, ip, bundle)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"command":         "install",
		"registrationKey": regkey,
	}
	status, body, err := t.do(ctx, http.MethodPost, t.baseURL(ip)+pathLicense, token, payload, t.cfg.MutationTimeout)
	if err != nil {
		return apperrors.NewTransportError(ip, "rest", apperrors.ErrUnreachable, err)
	}
	if err := classifyStatus(ip, status, string(body)); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "license install submitted over management API",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(regkey)))
	return nil
}

// GetDossier runs the dossier utility through the management API and
// returns the dossier text.
func (t *RESTTransport) GetDossier(ctx context.Context, ip string, bundle creds.Bundle, regkey string) (string, error) {
	token, err := t.login(ctx, ip, bundle)
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"command":     "run",
		"utilCmdArgs": "-b " + regkey,
	}
	status, body, err := t.do(ctx, http.MethodPost, t.baseURL(ip)+pathDossier, token, payload, t.cfg.MutationTimeout)
	if err != nil {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrUnreachable, err)
	}
	if err := classifyStatus(ip, status, string(body)); err != nil {
		return "", err
	}

	var resp dossierResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable, err)
	}
	dossier := strings.TrimSpace(resp.CommandResult)
	if dossier == "" {
		return "", apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable,
			fmt.Errorf("dossier reply carried no command result"))
	}
	return dossier, nil
}

// do sends one request and returns status plus body. Authentication uses
// the device token header when token is non-empty.
func (t *RESTTransport) do(ctx context.Context, method, url, token string, payload any, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request payload: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-F5-Auth-Token", token)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.DebugContext(ctx, "management API request failed",
			slog.String("method", method),
			slog.String("url", url),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}

	t.logger.DebugContext(ctx, "management API request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))
	return resp.StatusCode, body, nil
}

// typedEntries converts the path-keyed entries map into a deterministic
// typed list.
func typedEntries(entries map[string]restEntry) []resourceEntry {
	out := make([]resourceEntry, 0, len(entries))
	for path, entry := range entries {
		out = append(out, resourceEntry{Path: path, Fields: entry.NestedStats.Entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// selectEntry returns the first entry whose path satisfies the predicate.
func selectEntry(entries []resourceEntry, predicate func(string) bool) (resourceEntry, bool) {
	for _, e := range entries {
		if predicate(e.Path) {
			return e, true
		}
	}
	return resourceEntry{}, false
}

// isLicenseResource matches the license stats entry regardless of the
// host or version prefix the device puts in front of it.
func isLicenseResource(path string) bool {
	return strings.Contains(path, "/sys/license/0")
}
