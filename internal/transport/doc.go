// Package transport presents one license-retrieval contract over the two
// ways a device can be reached: its HTTPS management API and an
// authenticated remote shell.
//
// # Selection
//
// Key-based credentials always use the remote shell (the management API
// cannot authenticate with a key). Password credentials use the
// management API for plain fetches; dossier generation and license
// install prefer the management API and fall back to the remote shell
// when the device reports the operation as unsupported.
//
// # Failure taxonomy
//
// Every call maps to exactly one of the five failure classes defined in
// internal/errors: Unreachable, AuthFailed, ServiceUnavailable,
// Unparseable, Unlicensed. Callers branch on the class with errors.Is;
// the verification poller treats the first and third as expected states
// during a post-mutation restart window.
package transport
