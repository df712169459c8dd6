package main

import (
	"os"

	"github.com/yigit/classjournal/internal/pkg/logger"
	"github.com/yigit/classjournal/internal/server"
)

// @title Class Journal API
// @version 1.0
// @description Teachers post journals, tag students, and schedule publication. Students read what they are tagged on.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize the server with all its dependencies
	srv, err := server.NewServer()
	if err != nil {
		// Use the default logger set up by the logger package's init
		// Error details are logged by the bootstrap step that failed
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run the server (this blocks until SIGINT/SIGTERM)
	if err := srv.Run(); err != nil {
		// Shutdown() logs its own errors
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	// Run returned nil, so graceful shutdown was successful
	logger.Info().Msg("Application finished gracefully.")
}
