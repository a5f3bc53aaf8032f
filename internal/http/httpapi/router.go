package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pinflow/internal/http/handlers"
	"pinflow/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/pins", app.CreatePin)
	r.Get("/v1/media/*", app.ServeMedia)
	r.Get("/v1/runs/{runID}/media.zip", app.MediaBundle)

	return r
}
