package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles known to the directory
const (
	UserRoleAdmin    = "admin"
	UserRoleOfficer  = "officer"
	UserRoleReviewer = "reviewer"
)

// User is a staff member that can act on cases or be assigned to them.
// Accounts are administered elsewhere; this table backs lookups only.
type User struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Role     string `gorm:"not null;default:officer" json:"role"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidUserRole checks if the role is valid
func IsValidUserRole(role string) bool {
	return role == UserRoleAdmin || role == UserRoleOfficer || role == UserRoleReviewer
}
