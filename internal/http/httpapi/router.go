package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"budget/internal/http/handlers"
	"budget/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	Sessions        sessions.Store
	SessionName     string
	RateLimitPerMin int
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
	)

	r.Get("/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			middleware.Sessions(opts.Sessions, opts.SessionName),
		)

		r.Get("/", app.Explorer)
		r.Get("/projects/random", app.RandomProject)
		r.Get("/login", app.LoginPage)
		r.Post("/login", app.LoginSubmit)
		r.Get("/verify", app.Verify)
		r.Post("/logout", app.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/allocate", app.AllocatePage)
			r.Post("/allocate", app.AllocateSubmit)
			r.Get("/dashboard", app.Dashboard)
			r.Get("/dashboard/export.csv", app.ExportCSV)
			r.Get("/dashboard/export.zip", app.ExportZip)
		})
	})

	return r
}
