package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/database"
)

// InitializeDatabases opens planner.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	plannerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "planner.db"),
		Profile: database.ProfileStandard,
		Name:    "planner",
		Driver:  cfg.DBDriver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize planner database: %w", err)
	}

	if err := plannerDB.Migrate(); err != nil {
		plannerDB.Close()
		return nil, fmt.Errorf("failed to migrate planner database: %w", err)
	}
	container.PlannerDB = plannerDB

	log.Info().
		Str("path", plannerDB.Path()).
		Str("driver", plannerDB.Driver()).
		Msg("Planner database initialized")

	return container, nil
}
