package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
)

type GalleryItemInput struct {
	URL      string  `json:"url"`
	Alt      *string `json:"alt"`
	Position *int    `json:"position"`
}

// GalleryPayload tells an absent or null gallery apart from an explicit
// list. Set is true only when the request carried a JSON array, so `[]`
// clears the gallery while a missing key leaves it alone.
type GalleryPayload struct {
	Set   bool
	Items []GalleryItemInput
}

func (g *GalleryPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = GalleryPayload{}
		return nil
	}

	var items []GalleryItemInput
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		items = []GalleryItemInput{}
	}
	*g = GalleryPayload{Set: true, Items: items}
	return nil
}

func (g GalleryPayload) MarshalJSON() ([]byte, error) {
	if !g.Set {
		return []byte("null"), nil
	}
	return json.Marshal(g.Items)
}

// Gallery builds a set payload, mostly for callers outside JSON decoding.
func Gallery(items ...GalleryItemInput) GalleryPayload {
	if items == nil {
		items = []GalleryItemInput{}
	}
	return GalleryPayload{Set: true, Items: items}
}

// images turns the payload into rows for projectID. Entries without a url
// are skipped; a missing position falls back to the entry's array index.
func (g GalleryPayload) images(projectID uint) []models.ProjectImage {
	out := make([]models.ProjectImage, 0, len(g.Items))
	for i, item := range g.Items {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		position := i
		if item.Position != nil {
			position = *item.Position
		}
		out = append(out, models.ProjectImage{
			ProjectID: projectID,
			URL:       item.URL,
			Alt:       item.Alt,
			Position:  position,
		})
	}
	return out
}

type CreateProjectInput struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	LongDescription *string        `json:"long_description"`
	Location        string         `json:"location"`
	Category        string         `json:"category"`
	Image           *string        `json:"image"`
	Gallery         GalleryPayload `json:"gallery"`
}

func (in CreateProjectInput) Validate() error {
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"location", in.Location},
		{"category", in.Category},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errs.NewMissingRequiredFieldError(f.name)
		}
	}
	return validateCategory(in.Category)
}

func (in CreateProjectInput) project() models.Project {
	return models.Project{
		Title:           in.Title,
		Description:     in.Description,
		LongDescription: in.LongDescription,
		Location:        in.Location,
		Category:        in.Category,
		Image:           in.Image,
	}
}

// UpdateProjectInput carries a partial update. Nil fields keep their stored
// value.
type UpdateProjectInput struct {
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	LongDescription *string        `json:"long_description"`
	Location        *string        `json:"location"`
	Category        *string        `json:"category"`
	Image           *string        `json:"image"`
	Gallery         GalleryPayload `json:"gallery"`
}

func (in UpdateProjectInput) Validate() error {
	nonEmpty := []struct {
		name  string
		value *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"location", in.Location},
		{"category", in.Category},
	}
	for _, f := range nonEmpty {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return errs.NewInvalidFieldError(f.name, "must not be empty")
		}
	}
	if in.Category != nil {
		return validateCategory(*in.Category)
	}
	return nil
}

// columns maps the supplied scalar fields to their column names.
func (in UpdateProjectInput) columns() map[string]any {
	fields := make(map[string]any)
	set := func(column string, value *string) {
		if value != nil {
			fields[column] = *value
		}
	}
	set("title", in.Title)
	set("description", in.Description)
	set("long_description", in.LongDescription)
	set("location", in.Location)
	set("category", in.Category)
	set("image", in.Image)
	return fields
}

func validateCategory(category string) error {
	if !models.IsValidCategory(category) {
		return errs.NewInvalidFieldError("category", "must be one of "+strings.Join(models.Categories, ", "))
	}
	return nil
}
