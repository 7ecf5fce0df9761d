package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func passwordBundle() creds.Bundle {
	return creds.Bundle{
		IP:       "127.0.0.1",
		Username: "admin",
		Secret:   "hunter2",
		Mode:     creds.ModePassword,
	}
}

// newRESTServer starts a TLS server and returns a transport pointed at it
// plus the address the transport dials.
func newRESTServer(t *testing.T, handler http.Handler) (*RESTTransport, string) {
	t.Helper()

	ts := httptest.NewTLSServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	tr := NewRESTTransport(RESTConfig{
		Port:            port,
		ConnectTimeout:  2 * time.Second,
		CallTimeout:     2 * time.Second,
		MutationTimeout: 2 * time.Second,
	}, testLogger())
	return tr, host
}

// loginHandler answers the authn endpoint with a fixed token and records
// the decoded login payload.
func loginHandler(t *testing.T, token string, captured *map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if captured != nil {
			*captured = payload
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": map[string]string{"token": token},
		})
	}
}

func licenseEntries(fields map[string]string) map[string]any {
	nested := map[string]any{}
	for k, v := range fields {
		nested[k] = map[string]string{"description": v}
	}
	return map[string]any{
		"entries": map[string]any{
			"https://localhost/mgmt/tm/sys/license/0": map[string]any{
				"nestedStats": map[string]any{"entries": nested},
			},
			// An unrelated sibling entry the selector must skip.
			"https://localhost/mgmt/tm/sys/license-modules/0": map[string]any{
				"nestedStats": map[string]any{"entries": map[string]any{
					"moduleName": map[string]string{"description": "LTM"},
				}},
			},
		},
	}
}

func TestRESTFetchLicenseInfo(t *testing.T) {
	var loginPayload map[string]string
	var licenseToken string

	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "secret-token", &loginPayload))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		licenseToken = r.Header.Get("X-F5-Auth-Token")
		_ = json.NewEncoder(w).Encode(licenseEntries(map[string]string{
			"registrationKey":    "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA",
			"licenseEndDateTime": "2026/12/31",
			"serviceCheckDate":   "2026/01/15",
		}))
	})

	tr, host := newRESTServer(t, mux)
	info, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	require.NoError(t, err)

	assert.Equal(t, "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA", info.RegKey)
	assert.Equal(t, "2026/12/31", info.Expiry)
	assert.Equal(t, "2026/01/15", info.ServiceCheckDate)

	assert.Equal(t, "admin", loginPayload["username"])
	assert.Equal(t, "hunter2", loginPayload["password"])
	assert.Equal(t, "tmos", loginPayload["loginProviderName"])
	assert.Equal(t, "secret-token", licenseToken)
}

func TestRESTFetchPerpetualWhenEndDateAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(licenseEntries(map[string]string{
			"registrationKey": "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA",
		}))
	})

	tr, host := newRESTServer(t, mux)
	info, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	require.NoError(t, err)
	assert.Equal(t, "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA", info.RegKey)
	assert.Empty(t, info.Expiry)
}

func TestRESTFetchAuthFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Authentication failed."}`, http.StatusUnauthorized)
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrAuthFailed)
}

func TestRESTFetchUnreachable(t *testing.T) {
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)
	ts.Close()

	tr := NewRESTTransport(RESTConfig{
		Port:           port,
		ConnectTimeout: time.Second,
		CallTimeout:    time.Second,
	}, testLogger())
	_, err = tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)
}

func TestRESTFetchUnlicensedOnEmptyEntries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": map[string]any{}})
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrUnlicensed)
}

func TestRESTFetchUnparseableWhenNoLicenseEntry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": map[string]any{
				"https://localhost/mgmt/tm/sys/clock/0": map[string]any{
					"nestedStats": map[string]any{"entries": map[string]any{}},
				},
			},
		})
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrUnparseable)
}

func TestRESTFetchServiceUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "", http.StatusServiceUnavailable)
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestRESTFetchRejectsKeyBundle(t *testing.T) {
	tr := NewRESTTransport(RESTConfig{}, testLogger())
	_, err := tr.FetchLicenseInfo(context.Background(), "10.0.0.9", creds.Bundle{
		IP: "10.0.0.9", Username: "admin", KeyPath: "/tmp/id_rsa", Mode: creds.ModeKey,
	})
	assert.True(t, apperrors.IsCredential(err))
}

func TestRESTFetchTokenMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"generation": 0})
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.FetchLicenseInfo(context.Background(), host, passwordBundle())
	assert.ErrorIs(t, err, apperrors.ErrUnparseable)
}

func TestRESTInstallLicense(t *testing.T) {
	var installPayload map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&installPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{"command": "install"})
	})

	tr, host := newRESTServer(t, mux)
	err := tr.InstallLicense(context.Background(), host, passwordBundle(), "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA")
	require.NoError(t, err)

	assert.Equal(t, "install", installPayload["command"])
	assert.Equal(t, "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA", installPayload["registrationKey"])
}

func TestRESTInstallUnsupported(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathLicense, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":400,"message":"install: command not found"}`, http.StatusBadRequest)
	})

	tr, host := newRESTServer(t, mux)
	err := tr.InstallLicense(context.Background(), host, passwordBundle(), "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedOp)
}

func TestRESTGetDossier(t *testing.T) {
	var dossierPayload map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathDossier, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&dossierPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"commandResult": "deadbeef0123456789\n",
		})
	})

	tr, host := newRESTServer(t, mux)
	dossier, err := tr.GetDossier(context.Background(), host, passwordBundle(), "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA")
	require.NoError(t, err)

	assert.Equal(t, "deadbeef0123456789", dossier)
	assert.Equal(t, "run", dossierPayload["command"])
	assert.Equal(t, "-b ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA", dossierPayload["utilCmdArgs"])
}

func TestRESTGetDossierEmptyResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, loginHandler(t, "tok", nil))
	mux.HandleFunc(pathDossier, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"commandResult": ""})
	})

	tr, host := newRESTServer(t, mux)
	_, err := tr.GetDossier(context.Background(), host, passwordBundle(), "ABCDE-FGHIJ-KLMNO-PQRST-UVWXYZA")
	assert.ErrorIs(t, err, apperrors.ErrUnparseable)
}
