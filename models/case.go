package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseType classifies a case at intake
type CaseType string

const (
	CaseTypeComplaint    CaseType = "COMPLAINT"
	CaseTypeGrievance    CaseType = "GRIEVANCE"
	CaseTypeDenunciation CaseType = "DENUNCIATION"
)

// CaseStatus is the lifecycle state of a case
type CaseStatus string

const (
	CaseStatusPending     CaseStatus = "PENDING"
	CaseStatusUnderReview CaseStatus = "UNDER_REVIEW"
	CaseStatusInProgress  CaseStatus = "IN_PROGRESS"
	CaseStatusResolved    CaseStatus = "RESOLVED"
	CaseStatusArchived    CaseStatus = "ARCHIVED"
	CaseStatusRejected    CaseStatus = "REJECTED"
)

// CasePriority ranks how urgently a case must be handled
type CasePriority string

const (
	CasePriorityLow    CasePriority = "LOW"
	CasePriorityMedium CasePriority = "MEDIUM"
	CasePriorityHigh   CasePriority = "HIGH"
	CasePriorityUrgent CasePriority = "URGENT"
)

// AllCaseTypes lists every case type in display order
var AllCaseTypes = []CaseType{CaseTypeComplaint, CaseTypeGrievance, CaseTypeDenunciation}

// AllCaseStatuses lists every status in lifecycle order
var AllCaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusUnderReview,
	CaseStatusInProgress,
	CaseStatusResolved,
	CaseStatusArchived,
	CaseStatusRejected,
}

// AllCasePriorities lists every priority from lowest to highest
var AllCasePriorities = []CasePriority{CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityUrgent}

// Case is a registered complaint, grievance or denunciation
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identification
	Code     string       `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Type     CaseType     `gorm:"size:20;not null;index" json:"type"`
	Priority CasePriority `gorm:"size:10;not null;default:MEDIUM;index" json:"priority"`

	// Narrative
	FactsDescription string `gorm:"type:text;not null" json:"facts_description"`
	RightsAffected   string `gorm:"type:text;not null" json:"rights_affected"`

	// Flags
	IsAnonymous       bool `gorm:"not null;default:false" json:"is_anonymous"`
	RequiresMediation bool `gorm:"not null;default:false" json:"requires_mediation"`
	IsConfidential    bool `gorm:"not null;default:false" json:"is_confidential"`

	Tags []string `gorm:"type:text;serializer:json" json:"tags"`

	// Lifecycle
	Status     CaseStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Assignment. AssigneeName is the assignee's name when the case was assigned.
	AssigneeID   *string `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	AssigneeName *string `json:"assignee_name,omitempty"`
	Assignee     *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	// Outcome
	Resolution      *string `gorm:"type:text" json:"resolution,omitempty"`
	Recommendations *string `gorm:"type:text" json:"recommendations,omitempty"`

	// Relationships
	Complainant     *Complainant    `gorm:"foreignKey:CaseID" json:"complainant,omitempty"`
	Respondent      *Respondent     `gorm:"foreignKey:CaseID" json:"respondent,omitempty"`
	TrackingEntries []TrackingEntry `gorm:"foreignKey:CaseID" json:"tracking_entries,omitempty"`
	Attachments     []Attachment    `gorm:"foreignKey:CaseID" json:"attachments,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsPendingLike reports whether the case still awaits an outcome
func (c *Case) IsPendingLike() bool {
	return c.Status.IsPendingLike()
}

// IsPendingLike reports whether the status still awaits an outcome
func (s CaseStatus) IsPendingLike() bool {
	return s == CaseStatusPending || s == CaseStatusUnderReview || s == CaseStatusInProgress
}

// IsValidCaseType checks if the type is valid
func IsValidCaseType(t CaseType) bool {
	for _, v := range AllCaseTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidCaseStatus checks if the status is valid
func IsValidCaseStatus(s CaseStatus) bool {
	for _, v := range AllCaseStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidCasePriority checks if the priority is valid
func IsValidCasePriority(p CasePriority) bool {
	for _, v := range AllCasePriorities {
		if v == p {
			return true
		}
	}
	return false
}
