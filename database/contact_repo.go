package database

import (
	"context"

	"github.com/nextlinkuae/site-backend/models"
	"gorm.io/gorm"
)

type ContactRepo struct {
	db *gorm.DB
}

func NewContactRepo(db *gorm.DB) *ContactRepo {
	return &ContactRepo{db}
}

// Add inserts a submission. ID and CreatedAt are filled in on success.
func (r *ContactRepo) Add(ctx context.Context, submission *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// List returns submissions newest first, optionally of one kind.
func (r *ContactRepo) List(ctx context.Context, kind string) ([]models.ContactSubmission, error) {
	var submissions []models.ContactSubmission
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Find(&submissions).Error
	return submissions, err
}
