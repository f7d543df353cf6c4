package services

import (
	"context"
	"fmt"

	"case_registry_go/metrics"
	"case_registry_go/models"

	"gorm.io/gorm"
)

// Ledger actions written by the lifecycle controller
const (
	ActionCaseCreated    = "Case created"
	ActionStatusChanged  = "Status changed"
	ActionCaseAssigned   = "Case assigned"
	ActionCaseUnassigned = "Case unassigned"
)

// Actor identifies who performs an operation. A nil *Actor means no human actor is known.
type Actor struct {
	ID   string
	Name string
}

// newTrackingEntry builds a visible entry attributed to actor, or to "System" when actor is nil
func newTrackingEntry(caseID string, actor *Actor, action, comment string) *models.TrackingEntry {
	entry := &models.TrackingEntry{
		CaseID:    caseID,
		ActorName: models.SystemActorName,
		Action:    action,
		Comment:   comment,
		IsVisible: true,
	}
	if actor != nil {
		if actor.ID != "" {
			id := actor.ID
			entry.ActorID = &id
		}
		if actor.Name != "" {
			entry.ActorName = actor.Name
		}
	}
	return entry
}

// appendTrackingEntry writes one ledger entry. Entries are never updated or deleted afterwards.
func appendTrackingEntry(tx *gorm.DB, entry *models.TrackingEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write tracking entry: %w", err)
	}
	metrics.TrackingEntriesTotal.Inc()
	return nil
}

// reparentAttachments links attachments to a tracking entry.
// Only attachments that belong to caseID are touched; foreign ids are ignored.
func reparentAttachments(tx *gorm.DB, attachmentIDs []string, caseID, entryID string) (int64, error) {
	if len(attachmentIDs) == 0 {
		return 0, nil
	}
	result := tx.Model(&models.Attachment{}).
		Where("id IN ? AND case_id = ?", attachmentIDs, caseID).
		Update("tracking_entry_id", entryID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to link attachments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListTrackingEntries returns a case's ledger, newest first.
// With visibleOnly set, entries hidden from claimants are left out.
func ListTrackingEntries(ctx context.Context, db *gorm.DB, caseID string, visibleOnly bool) ([]models.TrackingEntry, error) {
	if _, err := findCaseRow(db.WithContext(ctx), caseID); err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Where("case_id = ?", caseID)
	if visibleOnly {
		query = query.Where("is_visible = ?", true)
	}

	var entries []models.TrackingEntry
	err := query.Preload("Attachments").
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// GetTrackingEntry loads one entry with its attachments
func GetTrackingEntry(ctx context.Context, db *gorm.DB, entryID string) (*models.TrackingEntry, error) {
	var entry models.TrackingEntry
	if err := db.WithContext(ctx).Preload("Attachments").First(&entry, "id = ?", entryID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
