package models

import "time"

// Project categories shown as filters on the public projects page.
const (
	CategoryResidential = "residential"
	CategoryCommercial  = "commercial"
	CategoryLuxury      = "luxury"
)

var Categories = []string{CategoryResidential, CategoryCommercial, CategoryLuxury}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Project is a showcase installation. Slug is nil for rows created before
// slugs were stored.
type Project struct {
	ID              uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug            *string        `json:"slug" gorm:"type:text;uniqueIndex:idx_projects_slug"`
	Title           string         `json:"title" gorm:"type:text;not null"`
	Description     string         `json:"description" gorm:"type:text;not null"`
	LongDescription *string        `json:"long_description" gorm:"type:text"`
	Location        string         `json:"location" gorm:"type:text;not null"`
	Category        string         `json:"category" gorm:"type:text;not null;index:idx_projects_category"`
	Image           *string        `json:"image" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at" gorm:"type:timestamptz;not null;autoCreateTime;<-:create"`
	Images          []ProjectImage `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// ProjectImage is one gallery entry. Rows are only ever replaced as a set.
type ProjectImage struct {
	ID        uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID uint    `json:"-" gorm:"not null;index:idx_project_images_order,priority:1"`
	URL       string  `json:"url" gorm:"type:text;not null"`
	Alt       *string `json:"alt" gorm:"type:text"`
	Position  int     `json:"position" gorm:"not null;index:idx_project_images_order,priority:2"`
}

func (ProjectImage) TableName() string {
	return "project_images"
}

// ProjectWithImages is the merged read view returned by get, create and update.
type ProjectWithImages struct {
	Project
	Images []ProjectImage `json:"images"`
}

// NewProjectWithImages merges a project with its ordered gallery. The cover
// image falls back to the first gallery entry when none is stored.
func NewProjectWithImages(p Project, images []ProjectImage) *ProjectWithImages {
	if images == nil {
		images = []ProjectImage{}
	}
	if (p.Image == nil || *p.Image == "") && len(images) > 0 {
		cover := images[0].URL
		p.Image = &cover
	}
	p.Images = nil
	return &ProjectWithImages{Project: p, Images: images}
}
