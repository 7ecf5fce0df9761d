package transport

import (
	"fmt"
	"strings"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

// Marker lists for classifying response content. Matching substrings in
// device output is best-effort and known to vary across firmware
// versions; keep these lists short and re-validate against real device
// responses before extending them.
var (
	// restartMarkers: the management plane answered but reported itself
	// as mid-restart or otherwise unavailable.
	restartMarkers = []string{
		"restarting",
		"service not available",
		"temporarily unavailable",
		"can't connect to mcpd",
		"connection to mcpd",
	}

	// unlicensedMarkers: the device explicitly reports that no license
	// is installed. Distinct from output we simply cannot interpret.
	unlicensedMarkers = []string{
		"can't load license",
		"no license installed",
		"not licensed",
		"license not operational",
	}

	// unsupportedMarkers: the management API exists but does not carry
	// the requested operation on this firmware; callers fall back to the
	// remote shell.
	unsupportedMarkers = []string{
		"not registered",
		"command not found",
		"unsupported operation",
	}

	// authMarkers: explicit credential rejection in response text, for
	// endpoints that answer 200 with an error payload.
	authMarkers = []string{
		"authentication failed",
		"unauthorized",
		"invalid credentials",
	}
)

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ClassifyBody maps response or command-output text onto a failure class.
// Returns nil when the text carries no recognized failure marker.
func ClassifyBody(ip, transportName, text string) error {
	switch {
	case containsAny(text, unsupportedMarkers):
		return apperrors.NewTransportError(ip, transportName, apperrors.ErrUnsupportedOp, nil)
	case containsAny(text, unlicensedMarkers):
		return apperrors.NewTransportError(ip, transportName, apperrors.ErrUnlicensed, nil)
	case containsAny(text, restartMarkers):
		return apperrors.NewTransportError(ip, transportName, apperrors.ErrServiceUnavailable, nil)
	case containsAny(text, authMarkers):
		return apperrors.NewTransportError(ip, transportName, apperrors.ErrAuthFailed, nil)
	default:
		return nil
	}
}

// classifyStatus maps an HTTP status plus body onto a failure class.
// Body markers win over the bare status code, because devices report
// several distinct conditions under the same 4xx.
func classifyStatus(ip string, status int, body string) error {
	if err := ClassifyBody(ip, "rest", body); err != nil {
		return err
	}
	switch {
	case status == 401 || status == 403:
		return apperrors.NewTransportError(ip, "rest", apperrors.ErrAuthFailed, nil)
	case status == 502 || status == 503 || status == 504:
		return apperrors.NewTransportError(ip, "rest", apperrors.ErrServiceUnavailable, nil)
	case status >= 200 && status < 300:
		return nil
	default:
		return apperrors.NewTransportError(ip, "rest", apperrors.ErrUnparseable,
			&statusError{status: status, body: body})
	}
}

// statusError preserves the raw status and a body excerpt for logs.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	excerpt := e.body
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	return fmt.Sprintf("unexpected status %d: %s", e.status, excerpt)
}
