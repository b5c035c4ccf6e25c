package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// scanLimiter caps the scans a client address may start within a sliding
// window. It expects middleware.RealIP to have run so RemoteAddr is the
// client address. Rejected requests get the usual error envelope and a
// Retry-After header.
func scanLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, errCodeRateLimited, ErrRateLimited.Error())
		}),
	)
}
