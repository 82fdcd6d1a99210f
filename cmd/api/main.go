package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-leaf-inspector/internal/config"
	"go-leaf-inspector/internal/container"
	"go-leaf-inspector/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}

	// Setup structured logging
	logger.Configure(cfg.LogLevel)
	if logger.Logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(context.Background(), cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	// Create HTTP server with configurable timeouts
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"address":          cfg.ServerAddress(),
			"timeout":          cfg.RequestTimeout.String(),
			"classifier_url":   cfg.ClassifierURL,
			"textgen_provider": cfg.TextGenProvider,
			"blob_intake":      cfg.BlobStorageEnabled(),
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
