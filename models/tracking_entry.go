package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemActorName is recorded on tracking entries written without a human actor
const SystemActorName = "System"

// ErrTrackingEntryImmutable is returned when something tries to rewrite the ledger
var ErrTrackingEntryImmutable = errors.New("tracking entries are append-only")

// TrackingEntry is one immutable record of an action taken on a case
type TrackingEntry struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_tracking_case_created" json:"created_at"`

	CaseID string `gorm:"type:uuid;not null;index:idx_tracking_case_created" json:"case_id"`

	// Actor. ActorName is the actor's name at the time of writing.
	ActorID   *string `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	ActorName string  `gorm:"not null" json:"actor_name"`

	Action         string      `gorm:"size:100;not null" json:"action"`
	Comment        string      `gorm:"type:text;not null" json:"comment"`
	PreviousStatus *CaseStatus `gorm:"size:20" json:"previous_status,omitempty"`
	NewStatus      *CaseStatus `gorm:"size:20" json:"new_status,omitempty"`
	IsVisible      bool        `gorm:"not null" json:"is_visible"`

	Attachments []Attachment `gorm:"foreignKey:TrackingEntryID" json:"attachments,omitempty"`
}

// BeforeCreate hook to generate UUID and default the actor name
func (e *TrackingEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ActorName == "" {
		e.ActorName = SystemActorName
	}
	return nil
}

// BeforeUpdate keeps the ledger append-only
func (e *TrackingEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrTrackingEntryImmutable
}

// BeforeDelete keeps the ledger append-only
func (e *TrackingEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrTrackingEntryImmutable
}

// TableName specifies the table name for TrackingEntry model
func (TrackingEntry) TableName() string {
	return "tracking_entries"
}

// IsStatusChange reports whether the entry records a status transition
func (e *TrackingEntry) IsStatusChange() bool {
	return e.PreviousStatus != nil && e.NewStatus != nil
}
