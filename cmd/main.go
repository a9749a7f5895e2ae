package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authconfig "gym-assistant/internal/auth/config"
	"gym-assistant/internal/di"
	docconfig "gym-assistant/internal/docstore/config"
	"gym-assistant/internal/server"
	"gym-assistant/internal/shared/logger"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🏋️ Gym Assistant - Starting Application...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	serverCfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}
	docCfg, err := docconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load docstore configuration: %v", err)
	}
	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load auth configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Application configuration loaded successfully")

	container := di.NewContainer(appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.Initialize(initCtx, docCfg, authCfg); err != nil {
		log.Fatalf("Failed to initialize modules: %v", err)
	}
	appLogger.Infof("Modules initialized (documents: %s, accounts: %s)", docCfg.Provider, authCfg.AccountStore)

	app := server.NewApp(serverCfg, container)

	serverAddr := serverCfg.Addr()
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	// Start server in a goroutine for graceful shutdown
	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed to start: %v", err)
			return
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}

	fmt.Println("✅ Application stopped gracefully.")
}
