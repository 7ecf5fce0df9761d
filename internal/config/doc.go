// Package config centralizes f5lm runtime configuration and path
// resolution.
//
// Configuration is layered: built-in defaults, then an optional
// config.yaml, then F5LM_* environment variables (highest precedence).
// A .env file in the working directory is loaded into the environment
// first, so operators can keep lab settings out of their shell profile.
//
// Credentials are never part of Config: per-device and global
// username/secret/key-path values are read from the environment at the
// moment a device operation resolves them (see internal/creds), never
// captured at startup, so a long-lived interactive session always sees
// current values.
package config
