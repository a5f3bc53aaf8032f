package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pinflow/internal/http/handlers"
	"pinflow/internal/http/httpapi"
	"pinflow/internal/infra"
	"pinflow/internal/pipeline"
	"pinflow/internal/providers/copywriter"
	"pinflow/internal/providers/imageedit"
	"pinflow/internal/providers/publisher"
	"pinflow/internal/storage"
)

func main() {
	// Load .env if present; real environments inject variables directly.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	copyGen, err := copywriter.NewOpenAIGenerator(copywriter.OpenAIOptions{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure copy generator")
	}
	editor, err := imageedit.NewGeminiEditor(imageedit.GeminiOptions{
		APIKey:        cfg.GeminiAPIKey,
		Model:         cfg.GeminiModel,
		BaseURL:       cfg.GeminiBaseURL,
		Logger:        &logger,
		MaxImageBytes: cfg.MaxImageUploadBytes,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image editor")
	}
	pins, err := publisher.NewPinterestPublisher(publisher.PinterestOptions{
		AccessToken: cfg.PinterestAccessToken,
		BaseURL:     cfg.PinterestBaseURL,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure publisher")
	}

	orchestrator, err := pipeline.New(pipeline.Options{
		Copywriter:          copyGen,
		Editor:              editor,
		Publisher:           pins,
		BoardID:             cfg.PinterestBoardID,
		InstructionMaxChars: cfg.EditInstructionMaxChars,
		StageTimeout:        cfg.StageCallTimeout,
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		Logger:              &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}

	media, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure media archive")
	}

	app := handlers.NewApp(orchestrator, media, logger, cfg.MaxImageUploadBytes)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
