package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"case_registry_go/config"
	"case_registry_go/metrics"
	"case_registry_go/models"

	"gorm.io/gorm"
)

// AllowedAttachmentTypes lists the media types accepted for attachments
var AllowedAttachmentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// IsAllowedAttachmentType checks a media type against AllowedAttachmentTypes
func IsAllowedAttachmentType(mediaType string) bool {
	for _, t := range AllowedAttachmentTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}

// AttachmentInput describes an upload
type AttachmentInput struct {
	FileName        string
	MediaType       string
	Size            int64
	Category        string
	TrackingEntryID *string
	Content         io.Reader
}

// AttachmentService records files against cases
type AttachmentService struct {
	DB       *gorm.DB
	Storage  StorageProvider
	Notifier Notifier
	MaxSize  int64
}

// NewAttachmentService creates an attachment service; a non-positive maxSize uses the default limit
func NewAttachmentService(db *gorm.DB, storage StorageProvider, notifier Notifier, maxSize int64) *AttachmentService {
	if maxSize <= 0 {
		maxSize = config.DefaultMaxUploadSize
	}
	return &AttachmentService{DB: db, Storage: storage, Notifier: notifier, MaxSize: maxSize}
}

// ValidateAttachmentInput checks name, media type, size and category
func (s *AttachmentService) ValidateAttachmentInput(in *AttachmentInput) error {
	var problems []string
	if strings.TrimSpace(in.FileName) == "" {
		problems = append(problems, "file name is required")
	}
	if !IsAllowedAttachmentType(in.MediaType) {
		problems = append(problems, fmt.Sprintf("file type %q is not allowed", in.MediaType))
	}
	if in.Size > s.MaxSize {
		problems = append(problems, fmt.Sprintf("file exceeds the maximum size of %d bytes", s.MaxSize))
	}
	if in.Category != "" && !models.IsValidAttachmentCategory(in.Category) {
		problems = append(problems, fmt.Sprintf("unknown attachment category %q", in.Category))
	}
	if in.Content == nil {
		problems = append(problems, "file content is required")
	}
	return newValidationError(problems)
}

// RecordAttachment stores the file and its metadata.
// When the upload is the case certificate and the complainant consented to email,
// the certificate is sent right away; delivery failures are logged and do not fail the upload.
func (s *AttachmentService) RecordAttachment(ctx context.Context, caseID string, in AttachmentInput) (*models.Attachment, error) {
	defer observeOperation("record_attachment", time.Now())

	in.FileName = filepath.Base(strings.TrimSpace(in.FileName))
	if err := s.ValidateAttachmentInput(&in); err != nil {
		return nil, err
	}

	c, err := findCaseWithComplainant(s.DB.WithContext(ctx), caseID)
	if err != nil {
		return nil, err
	}

	if in.TrackingEntryID != nil {
		var count int64
		err := s.DB.WithContext(ctx).Model(&models.TrackingEntry{}).
			Where("id = ? AND case_id = ?", *in.TrackingEntryID, caseID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, newValidationError([]string{"tracking entry does not belong to this case"})
		}
	}

	// Read one byte past the limit so oversize bodies with a wrong declared size are caught
	content, err := io.ReadAll(io.LimitReader(in.Content, s.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > s.MaxSize {
		return nil, newValidationError([]string{fmt.Sprintf("file exceeds the maximum size of %d bytes", s.MaxSize)})
	}

	category := in.Category
	if category == "" {
		category = models.AttachmentCategoryEvidence
	}

	attachment := &models.Attachment{
		CaseID:          caseID,
		TrackingEntryID: in.TrackingEntryID,
		FileName:        in.FileName,
		StorageKey:      GenerateAttachmentKey(caseID, in.FileName),
		MediaType:       in.MediaType,
		Size:            int64(len(content)),
		Category:        category,
	}

	if err := s.Storage.Put(ctx, attachment.StorageKey, bytes.NewReader(content), attachment.MediaType, attachment.Size); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(attachment).Error; err != nil {
		if delErr := s.Storage.Delete(ctx, attachment.StorageKey); delErr != nil {
			log.Printf("[WARNING] Failed to remove orphaned upload %s: %v", attachment.StorageKey, delErr)
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	metrics.AttachmentsRecorded.WithLabelValues(category).Inc()
	log.Printf("[CASES] Recorded attachment %s (%s, %d bytes) for case %s", attachment.FileName, attachment.MediaType, attachment.Size, c.Code)

	s.maybeSendCertificate(ctx, c, attachment, content)
	return attachment, nil
}

func (s *AttachmentService) maybeSendCertificate(ctx context.Context, c *models.Case, attachment *models.Attachment, content []byte) {
	if !IsCertificateFile(c.Code, attachment.FileName, attachment.MediaType) {
		return
	}
	if err := checkCertificateRecipient(c); err != nil {
		log.Printf("[MAIL] Certificate for case %s not sent: %v", c.Code, err)
		return
	}
	if err := deliverCertificate(ctx, s.Notifier, c, content, metrics.TriggerAutomatic); err != nil {
		log.Printf("[MAIL] [WARNING] Failed to send certificate for case %s: %v", c.Code, err)
		return
	}
	log.Printf("[MAIL] Certificate for case %s sent to %s", c.Code, c.Complainant.Email)
}

// FindAttachmentsByCase lists a case's attachments, newest first
func (s *AttachmentService) FindAttachmentsByCase(ctx context.Context, caseID string) ([]models.Attachment, error) {
	if _, err := findCaseRow(s.DB.WithContext(ctx), caseID); err != nil {
		return nil, err
	}
	var attachments []models.Attachment
	err := s.DB.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("uploaded_at DESC").
		Find(&attachments).Error
	return attachments, err
}

// ReparentAttachments links attachments of caseID to a tracking entry and returns how many were linked
func (s *AttachmentService) ReparentAttachments(ctx context.Context, attachmentIDs []string, caseID, entryID string) (int64, error) {
	return reparentAttachments(s.DB.WithContext(ctx), attachmentIDs, caseID, entryID)
}

// OpenAttachment returns the attachment metadata and a reader for its bytes
func (s *AttachmentService) OpenAttachment(ctx context.Context, caseID, attachmentID string) (*models.Attachment, io.ReadCloser, error) {
	var attachment models.Attachment
	err := s.DB.WithContext(ctx).First(&attachment, "id = ? AND case_id = ?", attachmentID, caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.Storage.Open(ctx, attachment.StorageKey)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &attachment, reader, nil
}
