package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubmissionKindContact      = "contact"
	SubmissionKindStartProject = "start_project"

	SubmissionStatusNew = "new"
)

// ContactSubmission stores both the contact form and the start-project form.
// Start-project specifics (service, budget, timeline) live in Details.
type ContactSubmission struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind      string         `json:"kind" gorm:"type:text;not null;default:contact;index"`
	Name      string         `json:"name" gorm:"type:text;not null"`
	Email     string         `json:"email" gorm:"type:text;not null"`
	Phone     *string        `json:"phone" gorm:"type:text"`
	Subject   *string        `json:"subject" gorm:"type:text"`
	Message   string         `json:"message" gorm:"type:text;not null"`
	Details   datatypes.JSON `json:"details,omitempty" gorm:"type:jsonb"`
	Status    string         `json:"status" gorm:"type:text;not null;default:new"`
	CreatedAt time.Time      `json:"created_at" gorm:"type:timestamptz;not null;autoCreateTime;<-:create"`
}
