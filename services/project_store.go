package services

import (
	"context"

	"github.com/nextlinkuae/site-backend/models"
)

// ListProjectsFilter narrows the public project list. Zero value lists all.
type ListProjectsFilter struct {
	Category string
}

// ProjectStore is the persistence the project service needs. Lookups return
// (nil, nil) when no row matches.
type ProjectStore interface {
	List(ctx context.Context, filter ListProjectsFilter) ([]models.Project, error)
	FindByID(ctx context.Context, id uint) (*models.Project, error)
	FindBySlug(ctx context.Context, slug string) (*models.Project, error)
	// ListTitles returns id, slug and title of every project for the
	// computed-slug fallback.
	ListTitles(ctx context.Context) ([]models.Project, error)
	Images(ctx context.Context, projectID uint) ([]models.ProjectImage, error)
	// Reload reads a project and its gallery from the primary, bypassing
	// any read replica.
	Reload(ctx context.Context, id uint) (*models.Project, []models.ProjectImage, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id uint) (bool, error)
	// InTx runs fn in one transaction. A non-nil error from fn rolls back
	// every write made through tx.
	InTx(ctx context.Context, fn func(tx ProjectTx) error) error
}

// ProjectTx is the write side of a single transaction.
//
// Insert and ApplyUpdates must leave tx usable after a unique violation and
// report it wrapped around errs.ErrUniqueConstraintViolation.
type ProjectTx interface {
	SlugTaken(slug string, excludeID uint) (bool, error)
	Insert(p *models.Project) error
	LockByID(id uint) (*models.Project, error)
	ApplyUpdates(id uint, fields map[string]any) error
	DeleteImages(projectID uint) error
	InsertImage(img *models.ProjectImage) error
}
