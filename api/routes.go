package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes mounts the public API, the admin API and the site-level routes
func setupRoutes(r chi.Router, handlers *routeHandlers, auth authMiddleware, formLimit func(http.Handler) http.Handler, staticDir string) {
	r.Get("/health", handlers.healthHandler.health())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/projects/{id}", handlers.redirectHandler.legacyProjectRedirect())

	if staticDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(staticDir))))
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/projects", handlers.projectHandler.listProjects())
		r.Get("/projects/slug/{slug}", handlers.projectHandler.getProjectBySlug())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
		r.Post("/admin/login", handlers.sessionHandler.login())

		r.Group(func(r chi.Router) {
			r.Use(formLimit)
			r.Post("/contact", handlers.contactHandler.submitContact())
			r.Post("/start-project", handlers.contactHandler.submitStartProject())
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(auth.requireAdmin)

			r.Get("/admin/session", handlers.sessionHandler.currentSession())

			r.Post("/projects", handlers.projectHandler.createProject())
			r.Put("/projects/{projectID}", handlers.projectHandler.updateProject())
			r.Delete("/projects/{projectID}", handlers.projectHandler.deleteProject())

			r.Get("/contact", handlers.contactHandler.listSubmissions())
			r.Post("/uploads/project-images", handlers.uploadHandler.uploadProjectImages())
		})
	})
}
