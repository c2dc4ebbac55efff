package main

import (
	"os"

	"github.com/yigit/exampapers/internal/pkg/logger"
	"github.com/yigit/exampapers/internal/server"
)

// @title Exam Papers API
// @version 1.0
// @description Exam paper upload, question maintenance and scheduled assessments for courses

// @contact.name API Support
// @contact.email support@exampapers.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until shutdown
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
