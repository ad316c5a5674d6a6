package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every configuration parameter of the application.
type Config struct {
	DatabaseURL string
	ServerPort  int

	// StandingsBatchSize bounds how many entrant updates a standings
	// recompute runs against the store at once. A tunable, not a correctness
	// parameter.
	StandingsBatchSize int
}

// Load reads configuration from environment variables. A .env file is picked
// up when present (local development); its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	batchSize, err := intEnv("STANDINGS_BATCH_SIZE", 8)
	if err != nil {
		return nil, err
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("STANDINGS_BATCH_SIZE must be positive, got %d", batchSize)
	}

	return &Config{
		DatabaseURL:        dbURL,
		ServerPort:         port,
		StandingsBatchSize: batchSize,
	}, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
