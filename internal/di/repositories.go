package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/config"
	planningrepo "github.com/aristath/holistic-planner/internal/modules/planning/repository"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PlannerDB == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.PlannerRepo = planningrepo.NewPlannerRepository(container.PlannerDB.Conn(), log)

	// Stored settings merge over the environment-derived configuration
	container.ConfigRepo = planningrepo.NewConfigRepository(container.PlannerDB.Conn(), log).
		WithDefaults(cfg.Planner)

	log.Debug().Msg("Repositories initialized")
	return nil
}
