/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through zerolog
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the upload frontend
  Upload routes are additionally rate limited (429 when exceeded).

ROUTES (/api):
  POST   /upload                             Poliza job
  POST   /upload-maturity-analysis           Maturity job
  GET    /status/{jobID}                     Job status
  GET    /download/{jobID}                   Poliza workbook
  GET    /download-maturity-analysis/{jobID} Maturity workbook
  POST   /extract-company-codes              Company code choices
  GET    /health                             Liveness and queue depth
  DELETE /cleanup                            Purge expired jobs and files

SECURITY NOTE:
  No authentication middleware. The server is meant to run next to the
  browser that uses it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/ctr-mapper/logger"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Upload routes
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/upload", h.UploadPoliza)
			r.Post("/upload-maturity-analysis", h.UploadMaturity)
			r.Post("/extract-company-codes", h.ExtractCompanyCodes)
		})

		r.Get("/status/{jobID}", h.GetStatus)
		r.Get("/download/{jobID}", h.DownloadPoliza)
		r.Get("/download-maturity-analysis/{jobID}", h.DownloadMaturity)
		r.Get("/health", h.Health)
		r.Delete("/cleanup", h.Cleanup)
	})

	return r
}

// rateLimit refuses requests once the upload limiter is exhausted. A nil
// limiter admits everything.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.UploadLimiter != nil && !h.UploadLimiter.Allow() {
			log := logger.FromContext(r.Context())
			log.Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "Too many uploads, try again shortly", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request and puts a request-scoped logger
// on the context for the handlers.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := h.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
