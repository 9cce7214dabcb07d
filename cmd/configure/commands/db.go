package commands

import (
	"fmt"

	"github.com/devboard/devboard-api/internal/config"
	"github.com/devboard/devboard-api/internal/database"
)

// openDB loads configuration from the environment and connects to Postgres
func openDB() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
