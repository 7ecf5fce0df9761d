// Package creds resolves the identity and secret used to reach one device.
//
// Resolution is per operation: nothing here is cached, and the returned
// Bundle is meant to be discarded as soon as the device call finishes.
// Values come from per-device environment variables first, then global
// ones, then the stored auth-type hint plus interactive prompting.
package creds

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

// Mode is the effective authentication mode for one operation.
type Mode string

const (
	ModeKey      Mode = "key"
	ModePassword Mode = "password"
)

// Bundle carries everything one device operation needs to authenticate.
// It is created by Resolve, passed by parameter through the operation,
// and dropped when the operation returns; no process-wide state holds it.
type Bundle struct {
	IP       string
	Username string
	Secret   string // password; always empty in key mode
	KeyPath  string // private key location; always empty in password mode
	Mode     Mode
}

// Resolver produces credential bundles. The environment lookup and the
// prompter are injectable for tests.
type Resolver struct {
	cfg    config.AuthConfig
	prompt Prompter
	getenv func(string) string
	logger *slog.Logger
}

// NewResolver builds a resolver around the process environment and the
// given prompter.
func NewResolver(cfg config.AuthConfig, prompt Prompter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, prompt: prompt, getenv: os.Getenv, logger: logger}
}

// Resolve produces the credential bundle for one device. hint is the
// stored auth-type ("key", "password" or empty); a forced mode from the
// configuration wins over it. The username is always resolved fresh,
// never remembered from a previous call.
func (r *Resolver) Resolve(ctx context.Context, ip, hint string) (Bundle, error) {
	mode, err := r.effectiveMode(ip, hint)
	if err != nil {
		return Bundle{}, err
	}

	username, err := r.resolveUsername(ip)
	if err != nil {
		return Bundle{}, err
	}

	bundle := Bundle{IP: ip, Username: username, Mode: mode}

	switch mode {
	case ModeKey:
		keyPath, err := r.resolveKeyPath(ip)
		if err != nil {
			return Bundle{}, err
		}
		keyPath = expandTilde(keyPath)
		if _, err := os.Stat(keyPath); err != nil {
			return Bundle{}, apperrors.NewCredentialError(ip,
				fmt.Sprintf("key file %s does not exist", keyPath), err)
		}
		bundle.KeyPath = keyPath
	case ModePassword:
		secret, err := r.resolvePassword(ip, username)
		if err != nil {
			return Bundle{}, err
		}
		if secret == "" {
			return Bundle{}, apperrors.NewCredentialError(ip, "empty password", nil)
		}
		bundle.Secret = secret
	}

	r.logger.DebugContext(ctx, "credentials resolved",
		slog.String("ip", ip),
		slog.String("mode", string(mode)),
		slog.String("username", username))
	return bundle, nil
}

// effectiveMode picks the auth mode: forced configuration, then the
// stored hint, then an interactive choice.
func (r *Resolver) effectiveMode(ip, hint string) (Mode, error) {
	switch r.cfg.Mode {
	case "key":
		return ModeKey, nil
	case "password":
		return ModePassword, nil
	}

	switch hint {
	case "key":
		return ModeKey, nil
	case "password":
		return ModePassword, nil
	}

	answer, err := r.prompt.ReadLine(fmt.Sprintf("Auth type for %s [password/key] (password): ", ip))
	if err != nil {
		return "", apperrors.NewCredentialError(ip, "auth type prompt", apperrors.ErrPromptAborted)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "password", "p":
		return ModePassword, nil
	case "key", "k":
		return ModeKey, nil
	default:
		return "", apperrors.NewCredentialError(ip,
			fmt.Sprintf("unknown auth type %q", strings.TrimSpace(answer)), nil)
	}
}

func (r *Resolver) resolveUsername(ip string) (string, error) {
	if v := r.getenv("F5LM_USER_" + SanitizeIP(ip)); v != "" {
		return v, nil
	}
	if v := r.getenv("F5LM_USER"); v != "" {
		return v, nil
	}
	answer, err := r.prompt.ReadLine(fmt.Sprintf("Username for %s: ", ip))
	if err != nil {
		return "", apperrors.NewCredentialError(ip, "username prompt", apperrors.ErrPromptAborted)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", apperrors.NewCredentialError(ip, "empty username", nil)
	}
	return answer, nil
}

func (r *Resolver) resolvePassword(ip, username string) (string, error) {
	if v := r.getenv("F5LM_PASS_" + SanitizeIP(ip)); v != "" {
		return v, nil
	}
	if v := r.getenv("F5LM_PASS"); v != "" {
		return v, nil
	}
	secret, err := r.prompt.ReadSecret(fmt.Sprintf("Password for %s@%s: ", username, ip))
	if err != nil {
		return "", apperrors.NewCredentialError(ip, "password prompt", apperrors.ErrPromptAborted)
	}
	return secret, nil
}

// resolveKeyPath finds the private key location: per-device env, global
// env, then a prompt that offers the configured default.
func (r *Resolver) resolveKeyPath(ip string) (string, error) {
	if v := r.getenv("F5LM_KEYPATH_" + SanitizeIP(ip)); v != "" {
		return v, nil
	}
	if v := r.getenv("F5LM_KEYPATH"); v != "" {
		return v, nil
	}
	answer, err := r.prompt.ReadLine(fmt.Sprintf("Key path for %s [%s]: ", ip, r.cfg.DefaultKeyPath))
	if err != nil {
		return "", apperrors.NewCredentialError(ip, "key path prompt", apperrors.ErrPromptAborted)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return r.cfg.DefaultKeyPath, nil
	}
	return answer, nil
}

// expandTilde resolves a leading ~/ against the operator's home directory
// so a prompted or env-supplied key path can use shell notation.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// SanitizeIP turns a device address into an environment variable suffix:
// every non-alphanumeric character becomes an underscore and letters are
// upper-cased, so 10.1.1.1 reads from F5LM_USER_10_1_1_1 and
// bigip-a.lab.example from F5LM_USER_BIGIP_A_LAB_EXAMPLE.
func SanitizeIP(ip string) string {
	var b strings.Builder
	b.Grow(len(ip))
	for _, c := range ip {
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z':
			b.WriteRune(c)
		case c >= 'a' && c <= 'z':
			b.WriteRune(c - 'a' + 'A')
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
