package main

import (
	"log/slog"
	"net/http"

	"github.com/studyolle/studyolle/internal/app"
	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/logger"
	"github.com/studyolle/studyolle/internal/metrics"
	"github.com/studyolle/studyolle/internal/routes"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	if cfg.MetricsEnabled {
		metrics.MustRegister()
	}

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	handler := routes.SetupRoutes(app)
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", cfg.AppURL)

	err = http.ListenAndServe(":"+cfg.Port, handler)
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}
