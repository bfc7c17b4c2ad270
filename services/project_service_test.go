package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/nextlinkuae/site-backend/services/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newService(t *testing.T) (*services.ProjectService, *servicetest.Store) {
	t.Helper()
	store := servicetest.New()
	return services.NewProjectService(store, services.DefaultSlugMaxAttempts), store
}

func validInput(title string) services.CreateProjectInput {
	return services.CreateProjectInput{
		Title:       title,
		Description: "Full home automation",
		Location:    "Dubai",
		Category:    models.CategoryResidential,
	}
}

func imageURLs(images []models.ProjectImage) []string {
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}
	return urls
}

func TestCreate_SmartOfficeScenario(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, services.CreateProjectInput{
		Title:       "Smart Office",
		Description: "Lighting and climate",
		Location:    "Dubai",
		Category:    models.CategoryCommercial,
		Gallery: services.Gallery(
			services.GalleryItemInput{URL: "a.jpg"},
			services.GalleryItemInput{URL: "b.jpg", Position: intPtr(5)},
		),
	})
	require.NoError(t, err)

	require.NotNil(t, created.Slug)
	assert.Equal(t, "smart-office", *created.Slug)
	require.Len(t, created.Images, 2)
	assert.Equal(t, "a.jpg", created.Images[0].URL)
	assert.Equal(t, 0, created.Images[0].Position)
	assert.Equal(t, "b.jpg", created.Images[1].URL)
	assert.Equal(t, 5, created.Images[1].Position)
	require.NotNil(t, created.Image)
	assert.Equal(t, "a.jpg", *created.Image, "cover defaults to the first gallery image")
}

func TestCreate_CollidingTitlesGetSuffixes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, validInput("Villa Project"))
		require.NoError(t, err)
		slugs = append(slugs, *created.Slug)
	}

	assert.Equal(t, []string{"villa-project", "villa-project-2", "villa-project-3"}, slugs)
}

func TestCreate_PunctuationOnlyTitleUsesDefaultSlug(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), validInput("!!!"))
	require.NoError(t, err)
	assert.Equal(t, services.DefaultSlug, *created.Slug)
}

func TestCreate_SkipsImagesWithoutURL(t *testing.T) {
	svc, _ := newService(t)

	in := validInput("Penthouse")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: ""},
		services.GalleryItemInput{URL: "   "},
		services.GalleryItemInput{URL: "c.jpg", Alt: strPtr("living room")},
	)
	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, created.Images, 1)
	assert.Equal(t, "c.jpg", created.Images[0].URL)
	assert.Equal(t, 2, created.Images[0].Position, "position falls back to the array index")
	assert.Equal(t, "living room", *created.Images[0].Alt)
}

func TestCreate_ValidationRejectsBeforeTouchingStorage(t *testing.T) {
	svc, store := newService(t)

	in := validInput("Villa")
	in.Description = "  "
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errs.IsMissingRequiredFieldError(err))

	in = validInput("Villa")
	in.Category = "industrial"
	_, err = svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidFieldError(err))

	assert.Zero(t, store.ProjectCount())
}

func TestCreate_GalleryFailureRollsBackProject(t *testing.T) {
	svc, store := newService(t)
	store.FailImageInsertAt = 2
	ctx := context.Background()

	in := validInput("Smart Office")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: "a.jpg"},
		services.GalleryItemInput{URL: "b.jpg"},
		services.GalleryItemInput{URL: "c.jpg"},
	)
	_, err := svc.Create(ctx, in)
	require.Error(t, err)
	assert.True(t, errs.IsTransactionFailedError(err))
	assert.True(t, errors.Is(err, servicetest.ErrInjected))

	_, err = svc.Get(ctx, "smart-office")
	assert.True(t, errs.IsNotFound(err))
	_, err = svc.Get(ctx, "1")
	assert.True(t, errs.IsNotFound(err))
	assert.Zero(t, store.ProjectCount())
	assert.Zero(t, store.ImageCount(1))
}

func TestCreate_RetriesWhenSlugIsClaimedConcurrently(t *testing.T) {
	svc, store := newService(t)
	store.Seed(models.Project{Title: "Villa", Slug: strPtr("villa"), Description: "d", Location: "l", Category: models.CategoryLuxury})
	store.HiddenSlugs = map[string]bool{"villa": true}

	created, err := svc.Create(context.Background(), validInput("Villa"))
	require.NoError(t, err)
	assert.Equal(t, "villa-2", *created.Slug)
}

func TestCreate_SlugConflictWhenAttemptsExhausted(t *testing.T) {
	store := servicetest.New()
	svc := services.NewProjectService(store, 3)
	for _, slug := range []string{"villa", "villa-2", "villa-3"} {
		store.Seed(models.Project{Title: "Villa", Slug: strPtr(slug), Description: "d", Location: "l", Category: models.CategoryLuxury})
	}

	_, err := svc.Create(context.Background(), validInput("Villa"))
	require.Error(t, err)
	assert.True(t, errs.IsSlugConflictError(err))
	assert.True(t, errs.IsConflict(err))

	var apiErr *errs.ApiErr
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)
	assert.Equal(t, 3, store.ProjectCount())
}

func TestUpdate_PartialUpdatePreservesUntouchedFields(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := validInput("Modern Villa")
	in.LongDescription = strPtr("Five bedrooms")
	in.Image = strPtr("cover.jpg")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: "a.jpg"},
		services.GalleryItemInput{URL: "b.jpg"},
	)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, services.UpdateProjectInput{Title: strPtr("new")})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "new", *updated.Slug)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.Location, updated.Location)
	assert.Equal(t, created.Category, updated.Category)
	assert.Equal(t, "Five bedrooms", *updated.LongDescription)
	assert.Equal(t, "cover.jpg", *updated.Image)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Images, updated.Images)
}

func TestUpdate_EmptyGalleryClearsAbsentGalleryKeeps(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := validInput("Villa")
	in.Gallery = services.Gallery(services.GalleryItemInput{URL: "a.jpg"})
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	var absent services.UpdateProjectInput
	require.NoError(t, json.Unmarshal([]byte(`{"location":"Abu Dhabi"}`), &absent))
	updated, err := svc.Update(ctx, created.ID, absent)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, imageURLs(updated.Images))

	var cleared services.UpdateProjectInput
	require.NoError(t, json.Unmarshal([]byte(`{"gallery":[]}`), &cleared))
	updated, err = svc.Update(ctx, created.ID, cleared)
	require.NoError(t, err)
	assert.Empty(t, updated.Images)
	assert.Zero(t, store.ImageCount(created.ID))
	assert.Equal(t, "Abu Dhabi", updated.Location)
}

func TestUpdate_ReplacesGalleryAsASet(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := validInput("Villa")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: "a.jpg"},
		services.GalleryItemInput{URL: "b.jpg"},
	)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, services.UpdateProjectInput{
		Gallery: services.Gallery(
			services.GalleryItemInput{URL: "z.jpg", Position: intPtr(1)},
			services.GalleryItemInput{URL: "y.jpg", Position: intPtr(0)},
		),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"y.jpg", "z.jpg"}, imageURLs(updated.Images))
	assert.Equal(t, 2, store.ImageCount(created.ID))
}

func TestUpdate_GalleryFailureKeepsPreviousState(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := validInput("Villa")
	in.Gallery = services.Gallery(services.GalleryItemInput{URL: "a.jpg"})
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	store.FailImageInsertAt = 2
	_, err = svc.Update(ctx, created.ID, services.UpdateProjectInput{
		Title: strPtr("Renamed Villa"),
		Gallery: services.Gallery(
			services.GalleryItemInput{URL: "x.jpg"},
			services.GalleryItemInput{URL: "y.jpg"},
		),
	})
	require.Error(t, err)
	assert.True(t, errs.IsTransactionFailedError(err))

	current, err := svc.Get(ctx, "villa")
	require.NoError(t, err)
	assert.Equal(t, "Villa", current.Title)
	assert.Equal(t, []string{"a.jpg"}, imageURLs(current.Images))
}

func TestUpdate_SlugFollowsTitleChangesOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput("Modern Villa"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, validInput("Beach House"))
	require.NoError(t, err)

	same, err := svc.Update(ctx, first.ID, services.UpdateProjectInput{Title: strPtr("Modern Villa")})
	require.NoError(t, err)
	assert.Equal(t, "modern-villa", *same.Slug)

	punctuated, err := svc.Update(ctx, first.ID, services.UpdateProjectInput{Title: strPtr("Modern Villa!")})
	require.NoError(t, err)
	assert.Equal(t, "modern-villa", *punctuated.Slug, "own slug is not a collision")

	renamed, err := svc.Update(ctx, second.ID, services.UpdateProjectInput{Title: strPtr("Modern  Villa")})
	require.NoError(t, err)
	assert.Equal(t, "modern-villa-2", *renamed.Slug)
}

func TestUpdate_RejectsEmptyRequiredFields(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput("Villa"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, services.UpdateProjectInput{Title: strPtr(" ")})
	assert.True(t, errs.IsInvalidFieldError(err))

	_, err = svc.Update(ctx, created.ID, services.UpdateProjectInput{Category: strPtr("garage")})
	assert.True(t, errs.IsInvalidFieldError(err))
}

func TestUpdateAndDelete_UnknownProjectIsNotFound(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 42, services.UpdateProjectInput{Title: strPtr("Ghost")})
	assert.True(t, errs.IsNotFound(err))
	assert.Zero(t, store.ProjectCount())

	assert.True(t, errs.IsNotFound(svc.Delete(ctx, 42)))
}

func TestDelete_CascadesToImages(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := validInput("Villa")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: "a.jpg"},
		services.GalleryItemInput{URL: "b.jpg"},
	)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, "villa")
	assert.True(t, errs.IsNotFound(err))
	assert.Zero(t, store.ImageCount(created.ID))
	assert.True(t, errs.IsNotFound(svc.Delete(ctx, created.ID)), "delete is terminal")
}

func TestGet_IDAndSlugResolveToSamePayload(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := validInput("Modern Villa")
	in.Gallery = services.Gallery(
		services.GalleryItemInput{URL: "b.jpg", Position: intPtr(1)},
		services.GalleryItemInput{URL: "a.jpg", Position: intPtr(1)},
		services.GalleryItemInput{URL: "first.jpg", Position: intPtr(0)},
	)
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	byID, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	bySlug, err := svc.Get(ctx, "modern-villa")
	require.NoError(t, err)

	assert.Equal(t, byID, bySlug)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, []string{"first.jpg", "b.jpg", "a.jpg"}, imageURLs(byID.Images), "ties keep insertion order")
}

func TestGet_LegacyRowWithoutSlugResolvesByTitle(t *testing.T) {
	svc, store := newService(t)
	legacy := store.Seed(
		models.Project{Title: "Old Palm Villa", Description: "d", Location: "l", Category: models.CategoryLuxury},
		models.ProjectImage{URL: "old.jpg"},
	)

	got, err := svc.Get(context.Background(), "old-palm-villa")
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, got.ID)
	assert.Nil(t, got.Slug)
	assert.Equal(t, []string{"old.jpg"}, imageURLs(got.Images))
}

func TestGet_NumericSlugFallsThroughToSlugLookup(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("2024"))
	require.NoError(t, err)
	require.Equal(t, "2024", *created.Slug)

	got, err := svc.Get(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetBySlug_NeverTreatsIdentifierAsID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("Modern Villa"))
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, "1")
	assert.True(t, errs.IsNotFound(err))
	_, err = svc.GetBySlug(ctx, "  ")
	assert.True(t, errs.IsNotFound(err))

	got, err := svc.GetBySlug(ctx, "modern-villa")
	require.NoError(t, err)
	assert.Equal(t, "Modern Villa", got.Title)
}

func TestFindByID_IgnoresNumericSlugs(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput("Modern Villa"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("1"))
	require.NoError(t, err)

	got, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "modern-villa", services.ProjectSlug(*got))

	_, err = svc.FindByID(ctx, 99)
	assert.True(t, errs.IsNotFound(err))

	legacy := store.Seed(models.Project{Title: "Old Palm Villa", Description: "d", Location: "l", Category: models.CategoryLuxury})
	assert.Equal(t, "old-palm-villa", services.ProjectSlug(legacy))
}

func TestGet_FallbackErrorsDegradeToNotFound(t *testing.T) {
	svc, store := newService(t)
	store.ListTitlesErr = errors.New("regexp failure")

	_, err := svc.Get(context.Background(), "missing-project")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestList_NewestFirstWithCategoryFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("First"))
	require.NoError(t, err)
	office := validInput("Second")
	office.Category = models.CategoryCommercial
	_, err = svc.Create(ctx, office)
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("Third"))
	require.NoError(t, err)

	all, err := svc.List(ctx, services.ListProjectsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Third", all[0].Title)
	assert.Equal(t, "First", all[2].Title)

	residential, err := svc.List(ctx, services.ListProjectsFilter{Category: models.CategoryResidential})
	require.NoError(t, err)
	assert.Len(t, residential, 2)

	none, err := svc.List(ctx, services.ListProjectsFilter{Category: models.CategoryLuxury})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGalleryPayload_DistinguishesAbsentNullAndEmpty(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantLen int
	}{
		{"absent", `{}`, false, 0},
		{"null", `{"gallery":null}`, false, 0},
		{"empty", `{"gallery":[]}`, true, 0},
		{"items", `{"gallery":[{"url":"a.jpg","position":3}]}`, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in services.UpdateProjectInput
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			assert.Equal(t, tt.wantSet, in.Gallery.Set)
			assert.Len(t, in.Gallery.Items, tt.wantLen)
		})
	}

	var in services.UpdateProjectInput
	assert.Error(t, json.Unmarshal([]byte(`{"gallery":"a.jpg"}`), &in))
}

func TestParseProjectID(t *testing.T) {
	id, ok := services.ParseProjectID("17")
	assert.True(t, ok)
	assert.Equal(t, uint(17), id)

	for _, s := range []string{"", "0", "-1", "1e3", "villa", "12a", "99999999999999999999999"} {
		_, ok := services.ParseProjectID(s)
		assert.False(t, ok, s)
	}
}
