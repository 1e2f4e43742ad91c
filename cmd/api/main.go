package main

import (
	"os"

	"github.com/yigit/circlehub/internal/pkg/logger"
	"github.com/yigit/circlehub/internal/server"
)

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// setup failures are logged with details inside NewServer
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
