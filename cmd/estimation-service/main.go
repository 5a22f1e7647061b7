package main

import (
	"fmt"
	"os"

	"github.com/fabos/estimation-service/internal/auth"
	"github.com/fabos/estimation-service/internal/config"
	"github.com/fabos/estimation-service/internal/db"
	"github.com/fabos/estimation-service/internal/excel"
	"github.com/fabos/estimation-service/internal/formula"
	httphandler "github.com/fabos/estimation-service/internal/http"
	"github.com/fabos/estimation-service/internal/http/middleware"
	"github.com/fabos/estimation-service/internal/logger"
	"github.com/fabos/estimation-service/internal/pdf"
	"github.com/fabos/estimation-service/internal/repository"
	"github.com/fabos/estimation-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	estimationRepo := repository.NewEstimationRepository(database)
	engine := formula.NewEngine(log)

	calcService := service.NewCalculationService(estimationRepo, engine, cfg, log)
	importService := service.NewImportService(estimationRepo, calcService, log)
	exportService := service.NewExportService(
		estimationRepo,
		calcService,
		excel.NewGenerator(cfg.Estimates.ExportDecimals),
		pdf.NewGenerator(cfg.Estimates.ExportDecimals),
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(calcService, importService, exportService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.CORSAllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting estimation service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
