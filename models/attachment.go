package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment categories
const (
	AttachmentCategoryEvidence    = "EVIDENCE"
	AttachmentCategoryCertificate = "CERTIFICATE"
	AttachmentCategoryIdentity    = "IDENTITY_DOCUMENT"
	AttachmentCategoryResolution  = "RESOLUTION"
	AttachmentCategoryOther       = "OTHER"
)

// Attachment is a file recorded against a case, optionally linked to a tracking entry
type Attachment struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	UploadedAt time.Time `gorm:"autoCreateTime;index" json:"uploaded_at"`

	CaseID          string  `gorm:"type:uuid;not null;index" json:"case_id"`
	TrackingEntryID *string `gorm:"type:uuid;index" json:"tracking_entry_id,omitempty"`

	FileName   string `gorm:"not null" json:"file_name"`
	StorageKey string `gorm:"not null" json:"-"` // Not exposed in JSON for security
	MediaType  string `gorm:"size:150;not null" json:"media_type"`
	Size       int64  `gorm:"not null" json:"size"`
	Category   string `gorm:"size:30;not null;default:EVIDENCE" json:"category"`

	DownloadURL string `gorm:"-" json:"download_url"`
}

// BeforeCreate hook to generate UUID
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Attachment model
func (Attachment) TableName() string {
	return "attachments"
}

// IsValidAttachmentCategory checks if the category is valid
func IsValidAttachmentCategory(category string) bool {
	switch category {
	case AttachmentCategoryEvidence, AttachmentCategoryCertificate, AttachmentCategoryIdentity,
		AttachmentCategoryResolution, AttachmentCategoryOther:
		return true
	}
	return false
}

// GetDownloadURL returns the staff download route for this attachment
func (a *Attachment) GetDownloadURL() string {
	return "/api/cases/" + a.CaseID + "/attachments/" + a.ID
}

// AfterCreate fills the download URL on new rows
func (a *Attachment) AfterCreate(tx *gorm.DB) error {
	a.DownloadURL = a.GetDownloadURL()
	return nil
}

// AfterFind fills the download URL on loaded rows
func (a *Attachment) AfterFind(tx *gorm.DB) error {
	a.DownloadURL = a.GetDownloadURL()
	return nil
}
