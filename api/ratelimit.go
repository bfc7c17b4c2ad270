package api

import (
	"net/http"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// newFormRateLimiter limits public form posts per client IP. rateFormatted
// uses the limiter syntax ("10-M", "100-H"); empty disables the limit.
func newFormRateLimiter(rateFormatted string) (func(http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}

	responder := NewResponder(log.With().Str("handlerName", "formRateLimiter").Logger())
	instance := limiter.New(memory.NewStore(), rate)
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			responder.WriteError(w, errs.NewRateLimitedError())
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			responder.WriteError(w, errs.NewInternalErrorWithCause("rate limiter failed", err))
		}),
	)
	return mw.Handler, nil
}
