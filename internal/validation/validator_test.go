package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

func newTestValidator() *Validator {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDeviceIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"ipv4", "10.1.1.1", false},
		{"ipv4 with whitespace", "  10.1.1.1  ", false},
		{"ipv6", "fe80::1", false},
		{"hostname", "bigip-a", false},
		{"fqdn", "bigip-a.lab.example", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"embedded space", "10.1.1.1 extra", true},
		{"shell metacharacters", "10.1.1.1;rm", true},
		{"url not identifier", "https://10.1.1.1", true},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.DeviceIdentifier(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistrationKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"typical key", "AAAAA-BBBBB-CCCCC-DDDDD-EEEEEEE", false},
		{"short groups", "AB-12", false},
		{"empty", "", true},
		{"no dashes", "AAAAABBBBB", true},
		{"embedded space", "AAAAA BBBBB", true},
		{"shell injection", "KEY-1;reboot", true},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.RegistrationKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLicenseFile(t *testing.T) {
	v := newTestValidator()

	t.Run("existing readable file passes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bigip.license")
		require.NoError(t, os.WriteFile(path, []byte("Registration Key : X"), 0600))
		assert.NoError(t, v.LicenseFile(path))
	})

	t.Run("missing file rejected", func(t *testing.T) {
		err := v.LicenseFile(filepath.Join(t.TempDir(), "absent.license"))
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("directory rejected", func(t *testing.T) {
		err := v.LicenseFile(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "directory")
	})

	t.Run("empty path rejected", func(t *testing.T) {
		err := v.LicenseFile("")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestAuthType(t *testing.T) {
	v := newTestValidator()
	assert.NoError(t, v.AuthType("key"))
	assert.NoError(t, v.AuthType("password"))
	assert.NoError(t, v.AuthType(""))
	assert.Error(t, v.AuthType("kerberos"))
}
