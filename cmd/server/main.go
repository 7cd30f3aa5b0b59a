package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stwalsh4118/dmrb/internal/app"
	"github.com/stwalsh4118/dmrb/internal/config"
	"github.com/stwalsh4118/dmrb/internal/handlers"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/middleware"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Local overrides first; missing files are fine.
	_ = godotenv.Load(".env.local", ".env")

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.NewWithOptions(logger.Options{
		Env:     cfg.Server.Env,
		Level:   cfg.Server.LogLevel,
		Service: "dmrb-api",
	})
	log.Info("Starting DMRB API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	dashboard, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dashboard", err, nil)
	}
	defer func() {
		if err := dashboard.Close(); err != nil {
			log.Error("Failed to close connections", err, nil)
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if dashboard.Scheduler != nil {
		// Warm the cache before serving.
		if err := dashboard.Scheduler.RunOnce(ctx); err != nil {
			log.Warn("Initial workbook load failed", map[string]interface{}{"error": err.Error()})
		}
		go dashboard.Scheduler.Run(ctx)
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS -> Timeout
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/health/ready"))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(dashboard.Repo, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Register API v1 routes
	dashboardHandler := handlers.NewDashboardHandler(dashboard.Service)
	dashboardHandler.RegisterRoutes(router.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
