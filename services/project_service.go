package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultSlugMaxAttempts = 50

// ProjectService owns every write to projects and their galleries. A project
// row and its gallery are always written in one transaction.
type ProjectService struct {
	store           ProjectStore
	maxSlugAttempts int
	logger          zerolog.Logger
}

func NewProjectService(store ProjectStore, maxSlugAttempts int) *ProjectService {
	if maxSlugAttempts < 1 {
		maxSlugAttempts = DefaultSlugMaxAttempts
	}
	return &ProjectService{
		store:           store,
		maxSlugAttempts: maxSlugAttempts,
		logger:          log.With().Str("service", "projectService").Logger(),
	}
}

// List returns projects newest first, without galleries.
func (s *ProjectService) List(ctx context.Context, filter ListProjectsFilter) ([]models.Project, error) {
	projects, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Get resolves identifier as an id or a slug and attaches the ordered gallery.
func (s *ProjectService) Get(ctx context.Context, identifier string) (*models.ProjectWithImages, error) {
	project, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.withImages(ctx, project)
}

// GetBySlug is Get without the id interpretation.
func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*models.ProjectWithImages, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errs.NewNotFound("project")
	}
	project, err := s.resolveSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withImages(ctx, project)
}

func (s *ProjectService) withImages(ctx context.Context, project *models.Project) (*models.ProjectWithImages, error) {
	images, err := s.store.Images(ctx, project.ID)
	if err != nil {
		return nil, errs.NewDatabaseError("find images for", "project", err)
	}
	return models.NewProjectWithImages(*project, images), nil
}

// Resolve finds a project by numeric id or by slug. An all-digit identifier
// that matches no id is still tried as a slug, so titles such as "2024"
// stay reachable.
func (s *ProjectService) Resolve(ctx context.Context, identifier string) (*models.Project, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errs.NewNotFound("project")
	}

	if id, ok := ParseProjectID(identifier); ok {
		project, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, errs.NewDatabaseError("find", "project", err)
		}
		if project != nil {
			return project, nil
		}
	}

	return s.resolveSlug(ctx, identifier)
}

// FindByID looks a project up by id only. Legacy /projects/<id> redirects
// use it so a numeric slug never shadows the id.
func (s *ProjectService) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	if project == nil {
		return nil, errs.NewNotFound("project")
	}
	return project, nil
}

// ProjectSlug is the stored slug, or the one derived from the title for
// rows that predate stored slugs.
func ProjectSlug(p models.Project) string {
	if p.Slug != nil && *p.Slug != "" {
		return *p.Slug
	}
	return DeriveSlug(p.Title)
}

func (s *ProjectService) resolveSlug(ctx context.Context, slug string) (*models.Project, error) {
	project, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	if project != nil {
		return project, nil
	}

	// Rows created before slugs were stored only match on their title.
	project, err = s.resolveComputedSlug(ctx, slug)
	if err != nil {
		slugFallbackLookups.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("slug", slug).Msg("computed slug lookup failed")
		return nil, errs.NewNotFound("project")
	}
	if project == nil {
		slugFallbackLookups.WithLabelValues("miss").Inc()
		return nil, errs.NewNotFound("project")
	}
	slugFallbackLookups.WithLabelValues("hit").Inc()
	return project, nil
}

// resolveComputedSlug scans every title. It is linear in the catalogue size.
func (s *ProjectService) resolveComputedSlug(ctx context.Context, slug string) (*models.Project, error) {
	rows, err := s.store.ListTitles(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if DeriveSlug(row.Title) == slug {
			return s.store.FindByID(ctx, row.ID)
		}
	}
	return nil, nil
}

// Create inserts a project and its gallery atomically and returns the
// committed state.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.ProjectWithImages, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	base := DeriveSlug(in.Title)
	var projectID uint
	err := s.store.InTx(ctx, func(tx ProjectTx) error {
		project := in.project()
		err := s.allocateSlug(tx, base, 0, func(slug string) error {
			project.Slug = &slug
			return tx.Insert(&project)
		})
		if err != nil {
			return err
		}
		projectID = project.ID

		return insertImages(tx, in.Gallery.images(project.ID))
	})
	if err != nil {
		return nil, writeFailure("create project", err)
	}

	s.logger.Info().Uint("projectID", projectID).Msg("project created")
	return s.reload(ctx, projectID)
}

// Update applies the supplied fields and, when a gallery is present,
// replaces the whole gallery. The slug is recomputed only when the title
// changes.
func (s *ProjectService) Update(ctx context.Context, id uint, in UpdateProjectInput) (*models.ProjectWithImages, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(tx ProjectTx) error {
		current, err := tx.LockByID(id)
		if err != nil {
			return err
		}
		if current == nil {
			return errs.NewNotFound("project")
		}

		fields := in.columns()
		if in.Title != nil && *in.Title != current.Title {
			err = s.allocateSlug(tx, DeriveSlug(*in.Title), id, func(slug string) error {
				fields["slug"] = slug
				return tx.ApplyUpdates(id, fields)
			})
		} else if len(fields) > 0 {
			err = tx.ApplyUpdates(id, fields)
		}
		if err != nil {
			return err
		}

		if !in.Gallery.Set {
			return nil
		}
		if err := tx.DeleteImages(id); err != nil {
			return err
		}
		return insertImages(tx, in.Gallery.images(id))
	})
	if err != nil {
		return nil, writeFailure("update project", err)
	}

	s.logger.Info().Uint("projectID", id).Bool("gallery", in.Gallery.Set).Msg("project updated")
	return s.reload(ctx, id)
}

// Delete removes a project. Its images go with it through the foreign key.
func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return errs.NewDatabaseError("delete", "project", err)
	}
	if !deleted {
		return errs.NewNotFound("project")
	}
	s.logger.Info().Uint("projectID", id).Msg("project deleted")
	return nil
}

// allocateSlug walks base, base-2, base-3, ... and calls write with the
// first candidate no other project holds. A unique violation from write
// means another writer won the race, so the next candidate is tried.
func (s *ProjectService) allocateSlug(tx ProjectTx, base string, excludeID uint, write func(slug string) error) error {
	for n := 1; n <= s.maxSlugAttempts; n++ {
		candidate := slugCandidate(base, n)

		taken, err := tx.SlugTaken(candidate, excludeID)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		err = write(candidate)
		if err == nil {
			return nil
		}
		if !errs.IsUniqueConstraintViolationError(err) {
			return err
		}
		slugConflictRetries.Inc()
		s.logger.Warn().Str("slug", candidate).Msg("slug claimed concurrently, trying next suffix")
	}
	return errs.NewSlugConflictError(base, s.maxSlugAttempts)
}

func (s *ProjectService) reload(ctx context.Context, id uint) (*models.ProjectWithImages, error) {
	project, images, err := s.store.Reload(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("reload", "project", err)
	}
	if project == nil {
		return nil, errs.NewNotFound("project")
	}
	return models.NewProjectWithImages(*project, images), nil
}

func insertImages(tx ProjectTx, images []models.ProjectImage) error {
	for i := range images {
		if err := tx.InsertImage(&images[i]); err != nil {
			return err
		}
	}
	return nil
}

// writeFailure keeps client errors raised inside a transaction and reports
// everything else as a rolled back transaction.
func writeFailure(operation string, err error) error {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return errs.NewTransactionFailedError(operation, err)
}

// ParseProjectID accepts only plain decimal digits.
func ParseProjectID(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
