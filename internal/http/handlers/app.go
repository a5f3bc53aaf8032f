package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"pinflow/internal/domain"
	"pinflow/internal/infra"
	"pinflow/internal/storage"
)

// Runner is the orchestrator surface the HTTP layer depends on: hand over a
// ProductInput, get a terminal PipelineRun back synchronously.
type Runner interface {
	Run(ctx context.Context, in domain.ProductInput) *domain.PipelineRun
}

// App bundles the handler dependencies.
type App struct {
	Pipeline       Runner
	Media          *storage.FileStore
	Logger         infra.Logger
	MaxUploadBytes int64
}

func NewApp(pipeline Runner, media *storage.FileStore, logger infra.Logger, maxUploadBytes int64) *App {
	return &App{
		Pipeline:       pipeline,
		Media:          media,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
