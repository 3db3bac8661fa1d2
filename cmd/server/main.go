package main

import (
	"alcyxob/coaching-programmes/internal/api"
	"alcyxob/coaching-programmes/internal/app"
	"alcyxob/coaching-programmes/internal/config"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Coaching Programmes API
// @version 1.0
// @description API for versioned training programmes, client assignments and update negotiation.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting Coaching Programmes Server...", "address", cfg.Server.Address)

	if cfg.JWT.Secret == "" {
		appLogger.Fatal("JWT secret is not configured (JWT_SECRET)")
	}

	// --- Wire Services ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Could not initialize application", "error", err)
	}
	defer application.Close()

	// --- Background Sweep ---
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		application.SweepJob().Run(ctx)
	}()

	// --- Initialize Gin Engine ---
	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	metricsHandler := promhttp.HandlerFor(application.Registry, promhttp.HandlerOpts{})
	api.SetupRoutes(router, cfg.JWT.Secret, application.Services, metricsHandler, appLogger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("ListenAndServe error", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	<-sweepDone

	appLogger.Info("Server exiting.")
}
