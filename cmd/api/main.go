package main

import (
	"log"
	"os"

	"github.com/ethanbaker/tollsync/internal/api"
	"github.com/ethanbaker/tollsync/pkg/utils"
)

// Start the API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config and derive the process settings
	cfg := utils.NewConfigFromEnv(envFile)
	settings, err := utils.LoadSettings(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Invalid configuration: ", err)
	}

	// Start
	api.Start(settings)
}
