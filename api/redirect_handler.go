package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type redirectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newRedirectHandler(projects *services.ProjectService) redirectHandler {
	logger := log.With().Str("handlerName", "redirectHandler").Logger()

	return redirectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
	}
}

// legacyProjectRedirect sends old /projects/<id> links to /projects/<slug>
// @Summary Legacy project link
// @Tags Projects
// @Param id path int true "Project id"
// @Success 308 "Redirect to /projects/{slug}"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /projects/{id} [get]
func (h redirectHandler) legacyProjectRedirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := services.ParseProjectID(chi.URLParam(r, "id"))
		if !ok {
			h.responder.WriteError(w, errs.NewNotFound("project"))
			return
		}

		project, err := h.projects.FindByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		http.Redirect(w, r, "/projects/"+url.PathEscape(services.ProjectSlug(*project)), http.StatusPermanentRedirect)
	}
}
