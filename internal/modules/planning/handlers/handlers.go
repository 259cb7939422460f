// Package handlers exposes planner progress, the current best plan and the
// planner configuration over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/planner"
)

// ContextProvider supplies the current opportunity context.
type ContextProvider interface {
	Load(ctx context.Context) (*domain.OpportunityContext, error)
}

// ConfigStore persists the planner configuration.
type ConfigStore interface {
	GetDefaultConfig() (*domain.PlannerConfiguration, error)
	UpdateConfig(cfg *domain.PlannerConfiguration) error
	ResetConfig() error
}

// Handler provides HTTP handlers for planning endpoints
type Handler struct {
	planner  *planner.IncrementalPlanner
	contexts ContextProvider
	configs  ConfigStore
	bus      *events.Bus
	log      zerolog.Logger
}

// NewHandler creates a new planning handler
func NewHandler(
	incremental *planner.IncrementalPlanner,
	contexts ContextProvider,
	configs ConfigStore,
	bus *events.Bus,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		planner:  incremental,
		contexts: contexts,
		configs:  configs,
		bus:      bus,
		log:      log.With().Str("handler", "planning").Logger(),
	}
}

// load returns the current opportunity context and configuration.
func (h *Handler) load(ctx context.Context) (*domain.OpportunityContext, *domain.PlannerConfiguration, error) {
	cfg, err := h.configs.GetDefaultConfig()
	if err != nil {
		return nil, nil, err
	}
	opportunityCtx, err := h.contexts.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return opportunityCtx, cfg, nil
}

// statusFor maps planner errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, planner.ErrNoOpportunityContext):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
