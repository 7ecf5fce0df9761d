package creds

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

// fakePrompter replays scripted answers and records every prompt shown.
type fakePrompter struct {
	lines   []string
	secrets []string
	err     error
	asked   []string
}

func (f *fakePrompter) ReadLine(prompt string) (string, error) {
	f.asked = append(f.asked, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakePrompter) ReadSecret(prompt string) (string, error) {
	f.asked = append(f.asked, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.secrets) == 0 {
		return "", io.EOF
	}
	secret := f.secrets[0]
	f.secrets = f.secrets[1:]
	return secret, nil
}

func newTestResolver(cfg config.AuthConfig, prompt Prompter, env map[string]string) *Resolver {
	return &Resolver{
		cfg:    cfg,
		prompt: prompt,
		getenv: func(key string) string { return env[key] },
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func autoCfg() config.AuthConfig {
	return config.AuthConfig{Mode: "auto", DefaultKeyPath: "/home/op/.ssh/id_rsa"}
}

func TestResolvePerDeviceEnvWinsOverGlobal(t *testing.T) {
	env := map[string]string{
		"F5LM_USER_10_1_1_1": "site-admin",
		"F5LM_USER":          "global-admin",
		"F5LM_PASS_10_1_1_1": "site-secret",
		"F5LM_PASS":          "global-secret",
	}
	r := newTestResolver(autoCfg(), &fakePrompter{}, env)

	bundle, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.NoError(t, err)
	assert.Equal(t, "site-admin", bundle.Username)
	assert.Equal(t, "site-secret", bundle.Secret)
	assert.Equal(t, ModePassword, bundle.Mode)
	assert.Empty(t, bundle.KeyPath)
}

func TestResolveGlobalEnvFallback(t *testing.T) {
	env := map[string]string{
		"F5LM_USER": "global-admin",
		"F5LM_PASS": "global-secret",
	}
	prompt := &fakePrompter{}
	r := newTestResolver(autoCfg(), prompt, env)

	bundle, err := r.Resolve(context.Background(), "10.1.1.2", "password")
	require.NoError(t, err)
	assert.Equal(t, "global-admin", bundle.Username)
	assert.Equal(t, "global-secret", bundle.Secret)
	assert.Empty(t, prompt.asked, "no prompting when the environment is complete")
}

func TestResolvePromptsWhenEnvEmpty(t *testing.T) {
	prompt := &fakePrompter{
		lines:   []string{"operator"},
		secrets: []string{"hunter2"},
	}
	r := newTestResolver(autoCfg(), prompt, nil)

	bundle, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.NoError(t, err)
	assert.Equal(t, "operator", bundle.Username)
	assert.Equal(t, "hunter2", bundle.Secret)
	require.Len(t, prompt.asked, 2)
	assert.Contains(t, prompt.asked[0], "Username for 10.1.1.1")
	assert.Contains(t, prompt.asked[1], "operator@10.1.1.1")
}

func TestResolveUsernameNeverCached(t *testing.T) {
	prompt := &fakePrompter{
		lines:   []string{"first", "second"},
		secrets: []string{"pw1", "pw2"},
	}
	r := newTestResolver(autoCfg(), prompt, nil)

	b1, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.NoError(t, err)
	b2, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.NoError(t, err)

	assert.Equal(t, "first", b1.Username)
	assert.Equal(t, "second", b2.Username, "each resolve must re-ask, never reuse")
}

func TestResolveEmptyPasswordRejected(t *testing.T) {
	prompt := &fakePrompter{
		lines:   []string{"operator"},
		secrets: []string{""},
	}
	r := newTestResolver(autoCfg(), prompt, nil)

	_, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.Error(t, err)
	assert.True(t, apperrors.IsCredential(err))
	assert.Contains(t, err.Error(), "empty password")
}

func TestResolveEmptyUsernameRejected(t *testing.T) {
	prompt := &fakePrompter{lines: []string{"   "}}
	r := newTestResolver(autoCfg(), prompt, nil)

	_, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.Error(t, err)
	assert.True(t, apperrors.IsCredential(err))
	assert.Contains(t, err.Error(), "empty username")
}

func TestResolveKeyMode(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(keyPath, []byte("fake key"), 0600))

	t.Run("env key path validated and used", func(t *testing.T) {
		env := map[string]string{
			"F5LM_USER":    "operator",
			"F5LM_KEYPATH": keyPath,
		}
		r := newTestResolver(autoCfg(), &fakePrompter{}, env)

		bundle, err := r.Resolve(context.Background(), "10.1.1.1", "key")
		require.NoError(t, err)
		assert.Equal(t, ModeKey, bundle.Mode)
		assert.Equal(t, keyPath, bundle.KeyPath)
		assert.Empty(t, bundle.Secret, "key mode never carries a password")
	})

	t.Run("per-device key path wins", func(t *testing.T) {
		env := map[string]string{
			"F5LM_USER":             "operator",
			"F5LM_KEYPATH":          "/nonexistent/global",
			"F5LM_KEYPATH_10_1_1_1": keyPath,
		}
		r := newTestResolver(autoCfg(), &fakePrompter{}, env)

		bundle, err := r.Resolve(context.Background(), "10.1.1.1", "key")
		require.NoError(t, err)
		assert.Equal(t, keyPath, bundle.KeyPath)
	})

	t.Run("empty prompt answer accepts default", func(t *testing.T) {
		cfg := config.AuthConfig{Mode: "auto", DefaultKeyPath: keyPath}
		prompt := &fakePrompter{lines: []string{""}}
		r := newTestResolver(cfg, prompt, map[string]string{"F5LM_USER": "operator"})

		bundle, err := r.Resolve(context.Background(), "10.1.1.1", "key")
		require.NoError(t, err)
		assert.Equal(t, keyPath, bundle.KeyPath)
		require.Len(t, prompt.asked, 1)
		assert.Contains(t, prompt.asked[0], keyPath)
	})

	t.Run("missing key file fails before any transport use", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent_key")
		env := map[string]string{
			"F5LM_USER":    "operator",
			"F5LM_KEYPATH": missing,
		}
		r := newTestResolver(autoCfg(), &fakePrompter{}, env)

		_, err := r.Resolve(context.Background(), "10.1.1.1", "key")
		require.Error(t, err)
		assert.True(t, apperrors.IsCredential(err))
		assert.Contains(t, err.Error(), missing)
	})
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name       string
		forced     string
		hint       string
		promptLine string
		want       Mode
		wantErr    bool
	}{
		{name: "forced key beats password hint", forced: "key", hint: "password", want: ModeKey},
		{name: "forced password beats key hint", forced: "password", hint: "key", want: ModePassword},
		{name: "auto uses key hint", forced: "auto", hint: "key", want: ModeKey},
		{name: "auto uses password hint", forced: "auto", hint: "password", want: ModePassword},
		{name: "no hint prompts, default password", forced: "auto", promptLine: "", want: ModePassword},
		{name: "no hint prompts, key chosen", forced: "auto", promptLine: "key", want: ModeKey},
		{name: "no hint prompts, short form", forced: "auto", promptLine: "k", want: ModeKey},
		{name: "no hint prompts, garbage", forced: "auto", promptLine: "kerberos", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.AuthConfig{Mode: tt.forced, DefaultKeyPath: "/tmp/id_rsa"}
			prompt := &fakePrompter{lines: []string{tt.promptLine}}
			r := newTestResolver(cfg, prompt, nil)

			mode, err := r.effectiveMode("10.1.1.1", tt.hint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestResolveAbortedPrompt(t *testing.T) {
	prompt := &fakePrompter{err: io.EOF}
	r := newTestResolver(autoCfg(), prompt, nil)

	_, err := r.Resolve(context.Background(), "10.1.1.1", "password")
	require.Error(t, err)
	assert.True(t, apperrors.IsCredential(err))
	assert.True(t, errors.Is(err, apperrors.ErrPromptAborted))
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~/.ssh/lab_key", filepath.Join(home, ".ssh", "lab_key")},
		{"~", home},
		{"/abs/id_rsa", "/abs/id_rsa"},
		{"relative/id_rsa", "relative/id_rsa"},
		{"~user/id_rsa", "~user/id_rsa"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandTilde(tt.in))
		})
	}
}

func TestSanitizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1.1.1", "10_1_1_1"},
		{"192.168.0.254", "192_168_0_254"},
		{"bigip-a.lab.example", "BIGIP_A_LAB_EXAMPLE"},
		{"fe80::1", "FE80__1"},
		{"ADMIN", "ADMIN"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeIP(tt.in))
		})
	}
}
