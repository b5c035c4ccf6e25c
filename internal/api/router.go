package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/scanner"
)

// RouterConfig carries the HTTP limits applied by the router
type RouterConfig struct {
	// MaxBodySize caps request bodies in bytes, zero for no limit
	MaxBodySize int64
	// RequestTimeout bounds each request
	RequestTimeout time.Duration
	// ScanLimit is how many scans a client may start per ScanWindow, zero disables limiting
	ScanLimit int
	// ScanWindow is the sliding window ScanLimit applies to
	ScanWindow time.Duration
}

// NewRouter creates a new chi router with all endpoints and middleware.
// Reputation routes answer 503 when rep is nil.
func NewRouter(s scanner.Interface, rep *reputation.Manager, cfg RouterConfig) http.Handler {
	h := &Handler{
		scanner:     s,
		reputation:  rep,
		maxBodySize: cfg.MaxBodySize,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Use(middleware.Heartbeat("/ping"))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Actor")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Group(func(r chi.Router) {
			if cfg.ScanLimit > 0 && cfg.ScanWindow > 0 {
				r.Use(scanLimiter(cfg.ScanLimit, cfg.ScanWindow))
			}

			r.Post("/scan", h.handleScan)
		})

		r.Route("/reputation", func(r chi.Router) {
			r.Get("/history", h.requireReputation(h.handleHistory))
			r.Get("/export", h.requireReputation(h.handleExport))
			r.Post("/import", h.requireReputation(h.handleImport))
			r.Post("/hydrate", h.requireReputation(h.handleHydrate))

			r.Get("/lists/{list}", h.requireReputation(h.handleListEntries))
			r.Post("/lists/{list}", h.requireReputation(h.handleAddEntry))
			r.Delete("/lists/{list}/{value}", h.requireReputation(h.handleRemoveEntry))
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/health", http.StatusFound)
	})

	return r
}
