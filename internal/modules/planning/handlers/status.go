package handlers

import (
	"net/http"

	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
)

// HandleStatus handles GET /api/planning/status
//
// Without a portfolio_hash query parameter the fingerprint of the current
// opportunity context is used.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	portfolioHash := r.URL.Query().Get("portfolio_hash")
	if portfolioHash == "" {
		opportunityCtx, err := h.contexts.Load(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load opportunity context")
			h.writeError(w, statusFor(err), "Failed to load portfolio: "+err.Error())
			return
		}
		portfolioHash = hash.PortfolioHashForContext(opportunityCtx)
	}

	status, err := h.planner.Status(portfolioHash)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_hash", portfolioHash).Msg("Failed to get planning status")
		h.writeError(w, http.StatusInternalServerError, "Failed to get planning status: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// HandleBest handles GET /api/planning/best
func (h *Handler) HandleBest(w http.ResponseWriter, r *http.Request) {
	opportunityCtx, cfg, err := h.load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load planning inputs")
		h.writeError(w, statusFor(err), "Failed to load planning inputs: "+err.Error())
		return
	}

	plan, err := h.planner.BestPlan(opportunityCtx, cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render best plan")
		h.writeError(w, statusFor(err), "Failed to render best plan: "+err.Error())
		return
	}
	if plan == nil {
		h.writeError(w, http.StatusNotFound, "No sequence has been evaluated for the current portfolio yet")
		return
	}

	h.writeJSON(w, http.StatusOK, plan)
}

// HandleBatch handles POST /api/planning/batch by running one planner batch
// in the request.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	opportunityCtx, cfg, err := h.load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load planning inputs")
		h.writeError(w, statusFor(err), "Failed to load planning inputs: "+err.Error())
		return
	}

	result, err := h.planner.RunBatch(r.Context(), opportunityCtx, cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Planner batch failed")
		h.writeError(w, statusFor(err), "Planner batch failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
