package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"case_registry_go/metrics"
	"case_registry_go/models"

	"gorm.io/gorm"
)

// certificateNamePrefixes mark uploads produced by the certificate generator
var certificateNamePrefixes = []string{
	"RECLAMO-", "QUEJA-", "DENUNCIA-",
	"COMPLAINT-", "GRIEVANCE-", "DENUNCIATION-",
}

// IsCertificateFile reports whether an upload is the case's registration certificate:
// a PDF whose name contains the case code or starts with a certificate prefix.
func IsCertificateFile(caseCode, fileName, mediaType string) bool {
	if mediaType != "application/pdf" {
		return false
	}
	if caseCode != "" && strings.Contains(fileName, caseCode) {
		return true
	}
	for _, prefix := range certificateNamePrefixes {
		if strings.HasPrefix(fileName, prefix) {
			return true
		}
	}
	return false
}

func findCaseWithComplainant(db *gorm.DB, id string) (*models.Case, error) {
	var c models.Case
	err := db.Preload("Complainant").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// checkCertificateRecipient returns the first reason the complainant cannot get the certificate
func checkCertificateRecipient(c *models.Case) error {
	switch {
	case c.Complainant == nil:
		return ErrNoComplainant
	case strings.TrimSpace(c.Complainant.Email) == "":
		return ErrNoComplainantEmail
	case !c.Complainant.EmailConsent:
		return ErrNoEmailConsent
	}
	return nil
}

func deliverCertificate(ctx context.Context, notifier Notifier, c *models.Case, document []byte, trigger string) error {
	if notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	err := notifier.SendCertificate(ctx, c.Complainant.Email, c.Complainant.FullName(), c.Code, document)
	metrics.CertificatesSent.WithLabelValues(trigger, metrics.Result(err)).Inc()
	return err
}
