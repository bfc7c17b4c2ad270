package api

import (
	"time"

	"github.com/nextlinkuae/site-backend/services"
)

// Dependencies are the services the HTTP layer calls. They are built once
// in main and passed in explicitly.
type Dependencies struct {
	DB       Pinger
	Projects *services.ProjectService
	Contacts *services.ContactService
	Uploader *services.ImageUploader
	Auth     *services.AdminAuth
	// StaticDir, when set, is served at /images/ for the local upload backend.
	StaticDir string
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		projectHandler:  newProjectHandler(deps.Projects),
		contactHandler:  newContactHandler(deps.Contacts),
		uploadHandler:   newUploadHandler(deps.Uploader),
		sessionHandler:  newSessionHandler(deps.Auth),
		healthHandler:   newHealthHandler(deps.DB, startupTime),
		redirectHandler: newRedirectHandler(deps.Projects),
	}
}
