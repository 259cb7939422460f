package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ValidationResponse reports whether a configuration would be accepted.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// HandleGetConfig handles GET /api/planning/config
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.GetDefaultConfig()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get planner configuration")
		h.writeError(w, http.StatusInternalServerError, "Failed to get configuration: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// HandleUpdateConfig handles PUT /api/planning/config. Fields missing from
// the body keep their current value.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.GetDefaultConfig()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get planner configuration")
		h.writeError(w, http.StatusInternalServerError, "Failed to get configuration: "+err.Error())
		return
	}
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.configs.UpdateConfig(cfg); err != nil {
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to update planner configuration")
		h.writeError(w, http.StatusInternalServerError, "Failed to update configuration: "+err.Error())
		return
	}

	h.emit(&events.PlannerConfigChangedData{Action: "updated", Name: cfg.Name})
	h.writeJSON(w, http.StatusOK, cfg)
}

// HandleResetConfig handles DELETE /api/planning/config
func (h *Handler) HandleResetConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.configs.ResetConfig(); err != nil {
		h.log.Error().Err(err).Msg("Failed to reset planner configuration")
		h.writeError(w, http.StatusInternalServerError, "Failed to reset configuration: "+err.Error())
		return
	}

	h.emit(&events.PlannerConfigChangedData{Action: "reset"})
	h.writeJSON(w, http.StatusOK, domain.NewDefaultConfiguration())
}

// HandleValidateConfig handles POST /api/planning/config/validate
func (h *Handler) HandleValidateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := domain.NewDefaultConfiguration()
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	response := ValidationResponse{Valid: true}
	if err := cfg.Validate(); err != nil {
		response.Valid = false
		response.Errors = []string{err.Error()}
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) emit(data events.EventData) {
	if h.bus != nil {
		h.bus.EmitTyped("planning_handlers", data)
	}
}
