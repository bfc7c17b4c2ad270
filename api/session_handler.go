package api

import (
	"net/http"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sessionHandler struct {
	responder Responder
	logger    zerolog.Logger
	auth      *services.AdminAuth
}

func newSessionHandler(auth *services.AdminAuth) sessionHandler {
	logger := log.With().Str("handlerName", "sessionHandler").Logger()

	return sessionHandler{
		responder: NewResponder(logger),
		logger:    logger,
		auth:      auth,
	}
}

// login exchanges the admin password for a bearer token
// @Summary Admin login
// @Tags Admin
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Admin password"
// @Success 200 {object} dataEnvelope "Token and expiry"
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid credentials"
// @Router /api/admin/login [post]
func (h sessionHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginRequest
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if input.Password == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("password"))
			return
		}

		token, session, err := h.auth.Login(input.Password)
		if err != nil {
			h.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("admin login rejected")
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("sessionID", session.TokenID).Msg("admin logged in")
		h.responder.WriteData(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: session.ExpiresAt})
	}
}

// currentSession reports the session behind the bearer token
// @Summary Current admin session
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dataEnvelope
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/admin/session [get]
func (h sessionHandler) currentSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := ctxGetAdminSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingTokenError())
			return
		}
		h.responder.WriteData(w, http.StatusOK, session)
	}
}
