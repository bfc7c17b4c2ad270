package api

import (
	"net/http"

	"github.com/unrolled/secure"
)

// newSecureMiddleware sets the standard security headers. Development mode
// skips the HTTPS-only checks.
func newSecureMiddleware(isDevelopment bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data: https:",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}).Handler
}
