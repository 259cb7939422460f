// Package handlers provides HTTP handlers for sequence generation operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/sequences"
)

// Handler handles sequence generation HTTP requests
type Handler struct {
	service *sequences.Service
	log     zerolog.Logger
}

// NewHandler creates a new sequences handler
func NewHandler(
	service *sequences.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "sequences").Logger(),
	}
}

// GenerateRequest represents a request to generate sequences
type GenerateRequest struct {
	Opportunities domain.OpportunitiesByCategory `json:"opportunities"`
	Context       *domain.OpportunityContext     `json:"context"`
	Config        *domain.PlannerConfiguration   `json:"config"`
}

// FilterRequest represents a request to filter sequences
type FilterRequest struct {
	Sequences []domain.ActionSequence      `json:"sequences"`
	Context   *domain.OpportunityContext   `json:"context"`
	Config    *domain.PlannerConfiguration `json:"config"`
}

// HandleGenerate handles POST /api/sequences/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := requestContext(req.Context)
	if req.Config == nil {
		req.Config = domain.NewDefaultConfiguration()
	}
	if err := req.Config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	generated, err := h.service.GenerateSequences(req.Opportunities, ctx, req.Config)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate sequences")
		http.Error(w, "Failed to generate sequences", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sequences": generated,
			"count":     len(generated),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleFilter handles POST /api/sequences/filter
// Runs the enabled filters over the given sequences.
func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Config == nil {
		req.Config = domain.NewDefaultConfiguration()
	}

	filtered := h.service.Filters().ApplyFilters(req.Sequences, requestContext(req.Context), req.Config)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sequences": filtered,
			"count":     len(filtered),
			"removed":   len(req.Sequences) - len(filtered),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetInfo handles GET /api/sequences/info
// Lists the registered patterns, generators and filters.
func (h *Handler) HandleGetInfo(w http.ResponseWriter, r *http.Request) {
	var patternNames, generatorNames, filterNames []string
	for _, p := range h.service.Patterns().List() {
		patternNames = append(patternNames, p.Name())
	}
	for _, g := range h.service.Generators().List() {
		generatorNames = append(generatorNames, g.Name())
	}
	for _, f := range h.service.Filters().List() {
		filterNames = append(filterNames, f.Name())
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"patterns":   patternNames,
			"generators": generatorNames,
			"filters":    filterNames,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// requestContext prepares a decoded context, or an empty one when absent
func requestContext(ctx *domain.OpportunityContext) *domain.OpportunityContext {
	if ctx == nil {
		return domain.NewOpportunityContext(nil, nil, nil, 0, 0, nil)
	}
	ctx.IndexSecurities()
	return ctx
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
