package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterOptions tune the router.
type RouterOptions struct {
	// MaxUploadBytes bounds upload request bodies; multipart framing gets a
	// small allowance on top.
	MaxUploadBytes int64
	// Tracing wraps the router in otelhttp.
	Tracing bool
}

const (
	multipartOverhead = 1 << 20
	maxJSONBytes      = 64 << 10
)

// NewRouter builds the API router.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limitBody(maxJSONBytes))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession(h.accounts, h.log))

			r.With(limitBody(maxJSONBytes)).Post("/logout", h.Logout)
			r.With(limitBody(maxJSONBytes+multipartOverhead)).Post("/files/decrypt", h.Decrypt)

			uploadLimit := int64(0)
			if opts.MaxUploadBytes > 0 {
				uploadLimit = opts.MaxUploadBytes + multipartOverhead
			}
			r.With(limitBody(uploadLimit)).Post("/files", h.Upload)
		})
	})

	if opts.Tracing {
		return otelhttp.NewHandler(r, "sfs-http")
	}
	return r
}
