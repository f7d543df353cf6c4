package services

import (
	"context"
	"errors"

	"case_registry_go/models"

	"gorm.io/gorm"
)

// UserDirectory resolves staff users by id
type UserDirectory interface {
	ResolveUser(ctx context.Context, id string) (*models.User, error)
}

// GormUserDirectory reads users from the users table
type GormUserDirectory struct {
	DB *gorm.DB
}

// NewGormUserDirectory creates a directory backed by db
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{DB: db}
}

// ResolveUser returns ErrUserNotFound for unknown ids
func (d *GormUserDirectory) ResolveUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	err := d.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
