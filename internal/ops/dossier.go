package ops

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
)

// DossierResult carries the generated dossier and where it was saved.
type DossierResult struct {
	Text string
	Path string
}

// Dossier generates the device fingerprint needed to obtain a license
// file from the vendor. With no explicit key the stored registration key
// is used. The text is written under the exports directory; the device
// record itself is not modified.
func (s *Service) Dossier(ctx context.Context, ip, regkey string) (DossierResult, error) {
	ip, err := s.ident(ip)
	if err != nil {
		return DossierResult{}, err
	}
	rec, err := s.lookup(ip)
	if err != nil {
		return DossierResult{}, err
	}

	regkey = strings.TrimSpace(regkey)
	if regkey == "" {
		regkey = rec.RegKey
	}
	if regkey == "" {
		return DossierResult{}, apperrors.NewValidationError("regkey", "",
			"no registration key given and none stored for "+ip)
	}
	if err := s.validator.RegistrationKey(regkey); err != nil {
		return DossierResult{}, err
	}

	bundle, err := s.creds.Resolve(ctx, ip, rec.AuthType)
	if err != nil {
		return DossierResult{}, err
	}

	mctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	text, err := s.client.GetDossier(mctx, ip, bundle, regkey)
	cancel()
	if err != nil {
		return DossierResult{}, err
	}

	path, err := s.exporter.SaveDossier(ip, text, s.now())
	if err != nil {
		return DossierResult{}, err
	}

	s.logger.InfoContext(ctx, "dossier generated",
		slog.String("ip", ip),
		slog.String("regkey", license.MaskRegKey(regkey)),
		slog.String("path", path))
	return DossierResult{Text: text, Path: path}, nil
}
