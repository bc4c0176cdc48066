package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jaume768/splashmy/internal/http/handlers"
	"github.com/jaume768/splashmy/internal/middleware"
)

// Options configures the router's cross-cutting middleware.
type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int
}

// NewRouter wires every route onto a chi mux.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
		r.Post("/verify-email", app.VerifyEmail)
		r.Post("/resend-verification", app.ResendVerification)
		r.Post("/password-reset", app.PasswordResetRequest)
		r.Post("/password-reset/confirm", app.PasswordResetConfirm)
	})

	// Catalog and contact routes are public.
	r.Get("/v1/styles", app.StylesList)
	r.Get("/v1/styles/categories", app.StyleCategories)
	r.Get("/v1/styles/popular", app.StylesPopular)
	r.Get("/v1/styles/{id}", app.StyleGet)
	r.Post("/v1/contact", app.Contact)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Post("/v1/me/change-password", app.ChangePassword)
		r.Get("/v1/quota", app.QuotaGet)
		r.Get("/v1/stats", app.StatsSummary)

		r.Route("/v1/images", func(r chi.Router) {
			r.Post("/", app.ImagesUpload)
			r.Get("/", app.ImagesList)
			r.Delete("/{id}", app.ImageDelete)
		})

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.JobsSubmit)
			r.Get("/", app.JobsList)
			r.Get("/{id}", app.JobGet)
			r.Post("/{id}/cancel", app.JobCancel)
			r.Get("/{id}/results", app.JobResults)
			r.Get("/{id}/events", app.JobEvents)
			r.Get("/{id}/download", app.JobZip)
		})

		r.Route("/v1/results", func(r chi.Router) {
			r.Get("/", app.ResultsList)
			r.Post("/{id}/favorite", app.ResultFavorite)
			r.Post("/{id}/rate", app.ResultRate)
			r.Get("/{id}/download", app.ResultDownload)
			r.Delete("/{id}", app.ResultDelete)
		})
	})

	return r
}
