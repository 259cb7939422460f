package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ConfigRepository handles the persisted planner configuration.
// The configuration is stored as a single JSON document in planner_settings (id = 'main').
//
// Database: planner.db (planner_settings table - single row)
type ConfigRepository struct {
	db       *sql.DB
	defaults *domain.PlannerConfiguration
	log      zerolog.Logger
}

// NewConfigRepository creates a new config repository.
func NewConfigRepository(db *sql.DB, log zerolog.Logger) *ConfigRepository {
	return &ConfigRepository{
		db:  db,
		log: log.With().Str("component", "config_repository").Logger(),
	}
}

// WithDefaults replaces the configuration stored values are merged over,
// e.g. the built-in defaults with environment overrides applied.
func (r *ConfigRepository) WithDefaults(defaults *domain.PlannerConfiguration) *ConfigRepository {
	if defaults != nil {
		copied := *defaults
		r.defaults = &copied
	}
	return r
}

func (r *ConfigRepository) base() *domain.PlannerConfiguration {
	if r.defaults == nil {
		return domain.NewDefaultConfiguration()
	}
	copied := *r.defaults
	copied.StochasticShifts = append([]float64(nil), r.defaults.StochasticShifts...)
	return &copied
}

// GetDefaultConfig retrieves the planner configuration.
// Stored values are merged over the defaults, so keys missing from an older
// document keep their default value. Returns the defaults when nothing is stored.
func (r *ConfigRepository) GetDefaultConfig() (*domain.PlannerConfiguration, error) {
	var data string
	err := r.db.QueryRow(`SELECT config_json FROM planner_settings WHERE id = 'main'`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.Debug().Msg("No planner settings found in database, returning defaults")
		return r.base(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planner settings: %w", err)
	}

	cfg := r.base()
	if err := json.Unmarshal([]byte(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode planner settings: %w", err)
	}
	return cfg, nil
}

// UpdateConfig validates and stores the planner configuration.
func (r *ConfigRepository) UpdateConfig(cfg *domain.PlannerConfiguration) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode planner settings: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO planner_settings (id, config_json, updated_at)
		VALUES ('main', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to update planner settings: %w", err)
	}

	r.log.Info().
		Str("name", cfg.Name).
		Msg("Updated planner settings")
	return nil
}

// ResetConfig removes the stored configuration so the defaults apply again.
func (r *ConfigRepository) ResetConfig() error {
	if _, err := r.db.Exec(`DELETE FROM planner_settings WHERE id = 'main'`); err != nil {
		return fmt.Errorf("failed to reset planner settings: %w", err)
	}
	r.log.Info().Msg("Reset planner settings to defaults")
	return nil
}
