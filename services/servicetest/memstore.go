// Package servicetest provides an in-memory ProjectStore for service and
// handler tests.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
)

var ErrInjected = errors.New("injected failure")

// Store keeps projects and images in maps. Transactions hold the store lock
// and restore a snapshot when they fail.
type Store struct {
	mu          sync.Mutex
	projects    map[uint]models.Project
	images      map[uint]models.ProjectImage
	nextProject uint
	nextImage   uint
	clock       time.Time

	// FailImageInsertAt fails the n-th image insert (1-based) of each
	// transaction. Zero disables it.
	FailImageInsertAt int
	// HiddenSlugs are reported free by SlugTaken even when stored, the way a
	// concurrent writer's uncommitted row would be.
	HiddenSlugs map[string]bool
	// ListTitlesErr is returned by ListTitles when set.
	ListTitlesErr error
}

var _ services.ProjectStore = (*Store)(nil)

func New() *Store {
	return &Store{
		projects: make(map[uint]models.Project),
		images:   make(map[uint]models.ProjectImage),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Seed stores a project as is, including a nil slug, and returns it with its
// assigned id.
func (s *Store) Seed(p models.Project, images ...models.ProjectImage) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Images = nil
	s.insertProject(&p)
	for i := range images {
		images[i].ProjectID = p.ID
		s.insertImage(&images[i])
	}
	return p
}

// ImageCount counts stored images owned by projectID.
func (s *Store) ImageCount(projectID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, img := range s.images {
		if img.ProjectID == projectID {
			n++
		}
	}
	return n
}

func (s *Store) ProjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

func (s *Store) List(_ context.Context, filter services.ListProjectsFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id uint) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id), nil
}

func (s *Store) FindBySlug(_ context.Context, slug string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sortedIDs() {
		p := s.projects[id]
		if p.Slug != nil && *p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTitles(_ context.Context) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListTitlesErr != nil {
		return nil, s.ListTitlesErr
	}
	out := make([]models.Project, 0, len(s.projects))
	for _, id := range s.sortedIDs() {
		p := s.projects[id]
		out = append(out, models.Project{ID: p.ID, Slug: p.Slug, Title: p.Title})
	}
	return out, nil
}

func (s *Store) Images(_ context.Context, projectID uint) ([]models.ProjectImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedImages(projectID), nil
}

func (s *Store) Reload(_ context.Context, id uint) (*models.Project, []models.ProjectImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.find(id)
	if p == nil {
		return nil, nil, nil
	}
	return p, s.orderedImages(id), nil
}

func (s *Store) Delete(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	for imgID, img := range s.images {
		if img.ProjectID == id {
			delete(s.images, imgID)
		}
	}
	return true, nil
}

func (s *Store) InTx(_ context.Context, fn func(tx services.ProjectTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&memTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memTx struct {
	store        *Store
	imageInserts int
}

func (t *memTx) SlugTaken(slug string, excludeID uint) (bool, error) {
	if t.store.HiddenSlugs[slug] {
		return false, nil
	}
	return t.store.slugOwner(slug, excludeID), nil
}

func (t *memTx) Insert(p *models.Project) error {
	if p.Slug != nil && t.store.slugOwner(*p.Slug, 0) {
		return fmt.Errorf("insert project: %w", errs.ErrUniqueConstraintViolation)
	}
	t.store.insertProject(p)
	return nil
}

func (t *memTx) LockByID(id uint) (*models.Project, error) {
	return t.store.find(id), nil
}

func (t *memTx) ApplyUpdates(id uint, fields map[string]any) error {
	p, ok := t.store.projects[id]
	if !ok {
		return fmt.Errorf("update project %d: no row", id)
	}

	for column, value := range fields {
		switch column {
		case "slug":
			slug := value.(string)
			if t.store.slugOwner(slug, id) {
				return fmt.Errorf("update project: %w", errs.ErrUniqueConstraintViolation)
			}
			p.Slug = &slug
		case "title":
			p.Title = value.(string)
		case "description":
			p.Description = value.(string)
		case "long_description":
			v := value.(string)
			p.LongDescription = &v
		case "location":
			p.Location = value.(string)
		case "category":
			p.Category = value.(string)
		case "image":
			v := value.(string)
			p.Image = &v
		default:
			return fmt.Errorf("update project: unknown column %q", column)
		}
	}
	t.store.projects[id] = p
	return nil
}

func (t *memTx) DeleteImages(projectID uint) error {
	for id, img := range t.store.images {
		if img.ProjectID == projectID {
			delete(t.store.images, id)
		}
	}
	return nil
}

func (t *memTx) InsertImage(img *models.ProjectImage) error {
	t.imageInserts++
	if t.store.FailImageInsertAt > 0 && t.imageInserts == t.store.FailImageInsertAt {
		return fmt.Errorf("insert image: %w", ErrInjected)
	}
	if _, ok := t.store.projects[img.ProjectID]; !ok {
		return fmt.Errorf("insert image: project %d does not exist", img.ProjectID)
	}
	t.store.insertImage(img)
	return nil
}

// helpers below expect s.mu to be held

func (s *Store) find(id uint) *models.Project {
	p, ok := s.projects[id]
	if !ok {
		return nil
	}
	return &p
}

func (s *Store) slugOwner(slug string, excludeID uint) bool {
	for id, p := range s.projects {
		if id != excludeID && p.Slug != nil && *p.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Store) insertProject(p *models.Project) {
	s.nextProject++
	s.clock = s.clock.Add(time.Minute)
	p.ID = s.nextProject
	p.CreatedAt = s.clock
	s.projects[p.ID] = *p
}

func (s *Store) insertImage(img *models.ProjectImage) {
	s.nextImage++
	img.ID = s.nextImage
	s.images[img.ID] = *img
}

func (s *Store) orderedImages(projectID uint) []models.ProjectImage {
	out := []models.ProjectImage{}
	for _, img := range s.images {
		if img.ProjectID == projectID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) sortedIDs() []uint {
	ids := make([]uint, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type snapshot struct {
	projects    map[uint]models.Project
	images      map[uint]models.ProjectImage
	nextProject uint
	nextImage   uint
	clock       time.Time
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		projects:    make(map[uint]models.Project, len(s.projects)),
		images:      make(map[uint]models.ProjectImage, len(s.images)),
		nextProject: s.nextProject,
		nextImage:   s.nextImage,
		clock:       s.clock,
	}
	for k, v := range s.projects {
		snap.projects[k] = v
	}
	for k, v := range s.images {
		snap.images[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.projects = snap.projects
	s.images = snap.images
	s.nextProject = snap.nextProject
	s.nextImage = snap.nextImage
	s.clock = snap.clock
}
