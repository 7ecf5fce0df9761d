// Package session provides the authenticated remote session used by
// multi-step mutations (backup, upload, reload). One dial serves every
// step, so the operator authenticates at most once per operation; when the
// device refuses a second command channel on the shared connection, the
// multiplexer degrades to dialing a fresh connection per step instead of
// failing the operation.
//
// The package also owns the low-level SSH dial (key or password auth;
// appliance host keys are not verified) that the remote-shell license
// transport reuses for its single-command fetches.
package session
