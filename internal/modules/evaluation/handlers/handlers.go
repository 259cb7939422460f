// Package handlers serves the remote evaluation API: the same simulator and
// evaluator the planner runs locally, exposed over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/aristath/holistic-planner/internal/evaluation/workers"
)

// maxBatchSize bounds one request to prevent resource exhaustion
const maxBatchSize = 10000

// Handler handles evaluation HTTP requests
type Handler struct {
	pool    *workers.WorkerPool
	version string
	log     zerolog.Logger
}

// NewHandler creates a new evaluation handler
func NewHandler(pool *workers.WorkerPool, version string, log zerolog.Logger) *Handler {
	if pool == nil {
		pool = workers.NewDefaultWorkerPool()
	}
	return &Handler{
		pool:    pool,
		version: version,
		log:     log.With().Str("handler", "evaluation").Logger(),
	}
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Version: h.version,
	})
}

// HandleEvaluateBatch handles POST /api/v1/evaluate/batch
//
// Results are returned in request order. Errors has one entry per sequence,
// empty when that sequence was evaluated.
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var request models.BatchEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateBatch(len(request.Sequences), request.EvaluationContext); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	startTime := time.Now()
	outcomes := h.pool.EvaluateOutcomes(r.Context(), request.Sequences, request.EvaluationContext, nil)
	elapsed := time.Since(startTime)

	if err := r.Context().Err(); err != nil {
		h.log.Warn().Err(err).Int("sequences", len(request.Sequences)).Msg("Batch evaluation cancelled")
		h.writeError(w, http.StatusServiceUnavailable, "Evaluation cancelled: "+err.Error())
		return
	}

	response := models.BatchEvaluationResponse{
		Results: make([]models.SequenceEvaluationResult, len(outcomes)),
		Errors:  make([]string, len(outcomes)),
	}
	failed := 0
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			response.Errors[i] = outcome.Err.Error()
			failed++
			continue
		}
		response.Results[i] = outcome.Result
	}

	h.log.Info().
		Int("sequences", len(request.Sequences)).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Float64("ms_per_sequence", float64(elapsed.Milliseconds())/float64(len(request.Sequences))).
		Msg("Batch evaluation completed")

	h.writeJSON(w, http.StatusOK, response)
}

// HandleEvaluateSingle handles POST /api/v1/evaluate/single
func (h *Handler) HandleEvaluateSingle(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Sequence          []models.ActionCandidate `json:"sequence"`
		EvaluationContext models.EvaluationContext `json:"evaluation_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(request.Sequence) == 0 {
		h.writeError(w, http.StatusBadRequest, "No sequence provided")
		return
	}
	if msg := validateBatch(1, request.EvaluationContext); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	result := evaluation.EvaluateSequence(request.Sequence, request.EvaluationContext)
	h.writeJSON(w, http.StatusOK, result)
}

// HandleSimulateBatch handles POST /api/v1/simulate/batch
func (h *Handler) HandleSimulateBatch(w http.ResponseWriter, r *http.Request) {
	var request models.BatchEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateBatch(len(request.Sequences), request.EvaluationContext); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	startTime := time.Now()
	results := h.pool.SimulateBatch(request.Sequences, request.EvaluationContext)

	h.log.Info().
		Int("sequences", len(request.Sequences)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Batch simulation completed")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func validateBatch(count int, evalContext models.EvaluationContext) string {
	switch {
	case count == 0:
		return "No sequences provided"
	case count > maxBatchSize:
		return "Too many sequences (max 10000)"
	case evalContext.TransactionCostFixed < 0:
		return "Transaction cost fixed cannot be negative"
	case evalContext.TransactionCostPercent < 0:
		return "Transaction cost percent cannot be negative"
	}
	return ""
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
