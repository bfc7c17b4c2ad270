package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepo struct {
	db *gorm.DB
}

var _ services.ProjectStore = (*ProjectRepo)(nil)

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// List returns projects newest first without their galleries.
func (r *ProjectRepo) List(ctx context.Context, filter services.ListProjectsFilter) ([]models.Project, error) {
	var projects []models.Project
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	err := query.Find(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID, or nil when there is none.
func (r *ProjectRepo) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	return takeProject(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindBySlug matches the stored slug column only.
func (r *ProjectRepo) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return takeProject(r.db.WithContext(ctx).Where("slug = ?", slug))
}

func (r *ProjectRepo) ListTitles(ctx context.Context) ([]models.Project, error) {
	var rows []models.Project
	err := r.db.WithContext(ctx).
		Select("id", "slug", "title").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProjectRepo) Images(ctx context.Context, projectID uint) ([]models.ProjectImage, error) {
	return findImages(r.db.WithContext(ctx), projectID)
}

// Reload reads from the primary so a response built right after a commit
// never comes from a lagging replica.
func (r *ProjectRepo) Reload(ctx context.Context, id uint) (*models.Project, []models.ProjectImage, error) {
	project, err := takeProject(r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("id = ?", id))
	if err != nil || project == nil {
		return nil, nil, err
	}
	images, err := findImages(r.db.WithContext(ctx).Clauses(dbresolver.Write), id)
	if err != nil {
		return nil, nil, err
	}
	return project, images, nil
}

// Delete removes the project row. project_images rows follow through the
// ON DELETE CASCADE foreign key.
func (r *ProjectRepo) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ProjectRepo) InTx(ctx context.Context, fn func(tx services.ProjectTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(projectTx{tx: tx})
	})
}

type projectTx struct {
	tx *gorm.DB
}

func (t projectTx) SlugTaken(slug string, excludeID uint) (bool, error) {
	query := t.tx.Model(&models.Project{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check slug %q: %w", slug, err)
	}
	return count > 0, nil
}

// Insert runs in a savepoint so a unique violation leaves the outer
// transaction usable for the next slug candidate.
func (t projectTx) Insert(p *models.Project) error {
	err := t.tx.Transaction(func(sp *gorm.DB) error {
		return sp.Omit(clause.Associations).Create(p).Error
	})
	return wrapWriteError("insert project", err)
}

func (t projectTx) LockByID(id uint) (*models.Project, error) {
	return takeProject(t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (t projectTx) ApplyUpdates(id uint, fields map[string]any) error {
	err := t.tx.Transaction(func(sp *gorm.DB) error {
		result := sp.Model(&models.Project{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("project %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil
	})
	return wrapWriteError("update project", err)
}

func (t projectTx) DeleteImages(projectID uint) error {
	err := t.tx.Where("project_id = ?", projectID).Delete(&models.ProjectImage{}).Error
	return wrapWriteError("delete project images", err)
}

func (t projectTx) InsertImage(img *models.ProjectImage) error {
	return wrapWriteError("insert project image", t.tx.Create(img).Error)
}

func takeProject(query *gorm.DB) (*models.Project, error) {
	var project models.Project
	err := query.Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func findImages(query *gorm.DB, projectID uint) ([]models.ProjectImage, error) {
	var images []models.ProjectImage
	err := query.
		Where("project_id = ?", projectID).
		Order("position ASC").
		Order("id ASC").
		Find(&images).Error
	return images, err
}
