package api

import (
	"net/http"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contactHandler struct {
	responder Responder
	logger    zerolog.Logger
	contacts  *services.ContactService
}

func newContactHandler(contacts *services.ContactService) contactHandler {
	logger := log.With().Str("handlerName", "contactHandler").Logger()

	return contactHandler{
		responder: NewResponder(logger),
		logger:    logger,
		contacts:  contacts,
	}
}

// submitContact stores a contact form submission
// @Summary Submit contact form
// @Tags Contact
// @Accept json
// @Produce json
// @Param submission body services.ContactInput true "Contact form"
// @Success 201 {object} SubmissionResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Missing name, email or message"
// @Failure 429 {object} ErrorResponse "Too Many Requests"
// @Router /api/contact [post]
func (h contactHandler) submitContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.ContactInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		submission, err := h.contacts.SubmitContact(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, SubmissionResponse{
			Success: true,
			Message: "Message sent successfully",
			Data:    *submission,
		})
	}
}

// submitStartProject stores a start-project request
// @Summary Submit start-project form
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body services.StartProjectInput true "Start-project form"
// @Success 201 {object} SubmissionResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Missing name or email"
// @Failure 429 {object} ErrorResponse "Too Many Requests"
// @Router /api/start-project [post]
func (h contactHandler) submitStartProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.StartProjectInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		submission, err := h.contacts.SubmitStartProject(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, SubmissionResponse{
			Success: true,
			Message: "Project request submitted successfully",
			Data:    *submission,
		})
	}
}

// listSubmissions lists stored submissions for the admin
// @Summary List submissions
// @Tags Contact
// @Produce json
// @Security BearerAuth
// @Param kind query string false "contact or start_project"
// @Success 200 {object} dataEnvelope
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/contact [get]
func (h contactHandler) listSubmissions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != models.SubmissionKindContact && kind != models.SubmissionKindStartProject {
			h.responder.WriteError(w, errs.NewInvalidFieldError("kind", "must be contact or start_project"))
			return
		}

		submissions, err := h.contacts.List(r.Context(), kind)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteData(w, http.StatusOK, submissions)
	}
}
