package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newProjectHandler(projects *services.ProjectService) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
	}
}

// listProjects retrieves all projects, or one project when ?slug= is given
// @Summary List projects
// @Description Lists projects newest first, optionally filtered by category. With ?slug= the matching project is returned with its gallery.
// @Tags Projects
// @Produce json
// @Param category query string false "residential, commercial or luxury"
// @Param slug query string false "Project slug"
// @Success 200 {object} dataEnvelope "List of projects"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching projects"
// @Router /api/projects [get]
func (h projectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if slug := strings.TrimSpace(query.Get("slug")); slug != "" {
			project, err := h.projects.GetBySlug(r.Context(), slug)
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			h.responder.WriteData(w, http.StatusOK, project)
			return
		}

		category := strings.TrimSpace(query.Get("category"))
		if category != "" && !models.IsValidCategory(category) {
			h.responder.WriteError(w, errs.NewInvalidFieldError("category", "must be one of residential, commercial, luxury"))
			return
		}

		projects, err := h.projects.List(r.Context(), services.ListProjectsFilter{Category: category})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteData(w, http.StatusOK, projects)
	}
}

// getProject retrieves a project by numeric id or slug
// @Summary Get project
// @Description Retrieves a project with its ordered gallery. The identifier is tried as an id first and then as a slug.
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project id or slug"
// @Success 200 {object} dataEnvelope "Project with images"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching project"
// @Router /api/projects/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.projects.Get(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteData(w, http.StatusOK, project)
	}
}

// getProjectBySlug retrieves a project by slug only
// @Summary Get project by slug
// @Tags Projects
// @Produce json
// @Param slug path string true "Project slug"
// @Success 200 {object} dataEnvelope "Project with images"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /api/projects/slug/{slug} [get]
func (h projectHandler) getProjectBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.projects.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteData(w, http.StatusOK, project)
	}
}

// createProject creates a project and its gallery
// @Summary Create project
// @Description Creates a project with a unique slug derived from the title. The gallery is written in the same transaction.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param project body services.CreateProjectInput true "Project to create"
// @Success 201 {object} dataEnvelope "Created project with images"
// @Failure 400 {object} ErrorResponse "Bad Request - Validation failed"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "Conflict - No free slug"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Transaction failed"
// @Router /api/projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.CreateProjectInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Create(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logAdminAction(r, "create", project.ID)
		h.responder.WriteData(w, http.StatusCreated, project)
	}
}

// updateProject applies a partial update
// @Summary Update project
// @Description Updates only the supplied fields. A gallery key replaces the whole gallery; an empty array clears it.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path int true "Project id"
// @Param project body services.UpdateProjectInput true "Fields to update"
// @Success 200 {object} dataEnvelope "Updated project with images"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid projectID or field"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 409 {object} ErrorResponse "Conflict - No free slug"
// @Router /api/projects/{projectID} [put]
func (h projectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := services.ParseProjectID(chi.URLParam(r, "projectID"))
		if !ok {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid projectID"))
			return
		}

		var input services.UpdateProjectInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Update(r.Context(), projectID, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logAdminAction(r, "update", projectID)
		h.responder.WriteData(w, http.StatusOK, project)
	}
}

// deleteProject removes a project and, through the foreign key, its gallery
// @Summary Delete project
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param projectID path int true "Project id"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid projectID"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /api/projects/{projectID} [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := services.ParseProjectID(chi.URLParam(r, "projectID"))
		if !ok {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid projectID"))
			return
		}

		if err := h.projects.Delete(r.Context(), projectID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logAdminAction(r, "delete", projectID)
		h.responder.WriteJSON(w, SuccessResponse{Success: true})
	}
}

func (h projectHandler) logAdminAction(r *http.Request, action string, projectID uint) {
	event := h.logger.Info().Str("action", action).Uint("projectID", projectID)
	if session, err := ctxGetAdminSession(r.Context()); err == nil {
		event = event.Str("sessionID", session.TokenID)
	}
	event.Msg("admin changed project")
}
