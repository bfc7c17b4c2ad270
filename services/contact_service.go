package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// SubmissionStore persists contact and start-project submissions.
type SubmissionStore interface {
	Add(ctx context.Context, submission *models.ContactSubmission) error
	List(ctx context.Context, kind string) ([]models.ContactSubmission, error)
}

type ContactInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email,max=254"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Subject *string `json:"subject" validate:"omitempty,max=300"`
	Message string  `json:"message" validate:"required,max=5000"`
}

// Validate checks the trimmed values; whitespace-only counts as missing.
func (in ContactInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	return validateStruct(in)
}

type StartProjectInput struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Email          string   `json:"email" validate:"required,email,max=254"`
	Phone          string   `json:"phone,omitempty" validate:"max=50"`
	City           string   `json:"city,omitempty" validate:"max=100"`
	PropertyType   string   `json:"propertyType,omitempty" validate:"max=100"`
	PropertyStage  string   `json:"propertyStage,omitempty" validate:"max=100"`
	Budget         string   `json:"budget,omitempty" validate:"max=100"`
	Services       []string `json:"services,omitempty" validate:"max=20,dive,max=100"`
	AdditionalInfo string   `json:"additionalInfo,omitempty" validate:"max=5000"`
}

func (in StartProjectInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return validateStruct(in)
}

// ContactService records form submissions and notifies sales. The
// notification is best effort: once a submission is stored, a mail failure
// is logged and the submission still succeeds.
type ContactService struct {
	store   SubmissionStore
	sender  EmailSender
	salesTo string
	logger  zerolog.Logger
}

// NewContactService accepts a nil sender, in which case no mail is sent.
func NewContactService(store SubmissionStore, sender EmailSender, salesTo string) *ContactService {
	return &ContactService{
		store:   store,
		sender:  sender,
		salesTo: salesTo,
		logger:  log.With().Str("service", "contactService").Logger(),
	}
}

func (s *ContactService) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactSubmission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	submission := &models.ContactSubmission{
		Kind:    models.SubmissionKindContact,
		Name:    in.Name,
		Email:   in.Email,
		Phone:   emptyToNil(in.Phone),
		Subject: emptyToNil(in.Subject),
		Message: in.Message,
		Status:  models.SubmissionStatusNew,
	}
	if err := s.store.Add(ctx, submission); err != nil {
		return nil, errs.NewDatabaseError("create", "contact submission", err)
	}

	subject := "New Contact Message: " + in.Name
	if submission.Subject != nil {
		subject = fmt.Sprintf("New Contact Message: %s (%s)", *submission.Subject, in.Name)
	}
	s.notify(ctx, models.SubmissionKindContact, subject, contactTemplate, submission, in.Email)
	return submission, nil
}

func (s *ContactService) SubmitStartProject(ctx context.Context, in StartProjectInput) (*models.ContactSubmission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	details, err := json.Marshal(in)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("encode start project details", err)
	}

	submission := &models.ContactSubmission{
		Kind:    models.SubmissionKindStartProject,
		Name:    in.Name,
		Email:   in.Email,
		Phone:   emptyToNil(&in.Phone),
		Message: in.AdditionalInfo,
		Details: datatypes.JSON(details),
		Status:  models.SubmissionStatusNew,
	}
	if err := s.store.Add(ctx, submission); err != nil {
		return nil, errs.NewDatabaseError("create", "start project request", err)
	}

	subject := "New Project Request: " + in.Name
	if in.City != "" {
		subject += " from " + in.City
	}
	s.notify(ctx, models.SubmissionKindStartProject, subject, startProjectTemplate, in, in.Email)
	return submission, nil
}

// List returns submissions newest first; kind "" lists every kind.
func (s *ContactService) List(ctx context.Context, kind string) ([]models.ContactSubmission, error) {
	submissions, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "contact submissions", err)
	}
	if submissions == nil {
		submissions = []models.ContactSubmission{}
	}
	return submissions, nil
}

func (s *ContactService) notify(ctx context.Context, kind, subject string, tmpl *template.Template, data any, replyTo string) {
	if s.sender == nil || s.salesTo == "" {
		s.logger.Debug().Str("kind", kind).Msg("mail not configured, skipping notification")
		return
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("failed to render notification")
		return
	}

	err := s.sender.Send(ctx, Email{
		To:      []string{s.salesTo},
		Subject: subject,
		HTML:    body.String(),
		ReplyTo: replyTo,
	})
	notificationsSent.WithLabelValues(kind, strconv.FormatBool(err == nil)).Inc()
	if err != nil {
		s.logger.Warn().Err(errs.NewUpstreamDependencyError("mail", err)).Str("kind", kind).Msg("notification not sent")
	}
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

var contactTemplate = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>New Contact Submission</h2>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  {{with .Phone}}<p><strong>Phone:</strong> {{.}}</p>{{end}}
  {{with .Subject}}<p><strong>Subject:</strong> {{.}}</p>{{end}}
  <p><strong>Message:</strong><br/><span style="white-space: pre-wrap;">{{.Message}}</span></p>
</div>`))

var startProjectTemplate = template.Must(template.New("startProject").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>New Start Project Submission</h2>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  {{with .Phone}}<p><strong>Phone:</strong> {{.}}</p>{{end}}
  {{with .City}}<p><strong>City:</strong> {{.}}</p>{{end}}
  {{with .PropertyType}}<p><strong>Property Type:</strong> {{.}}</p>{{end}}
  {{with .PropertyStage}}<p><strong>Property Stage:</strong> {{.}}</p>{{end}}
  {{with .Budget}}<p><strong>Budget:</strong> {{.}}</p>{{end}}
  <p><strong>Requested Services:</strong><br/>{{range $i, $s := .Services}}{{if $i}}<br/>{{end}}&bull; {{$s}}{{else}}&mdash;{{end}}</p>
  {{with .AdditionalInfo}}<p><strong>Additional Info:</strong><br/><span style="white-space: pre-wrap;">{{.}}</span></p>{{end}}
</div>`))
