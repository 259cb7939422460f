// Package progress carries progress reports out of long-running planner phases.
package progress

// Planner phases reported through Update.Phase
const (
	PhaseOpportunityIdentification = "opportunity_identification"
	PhaseSequenceGeneration        = "sequence_generation"
	PhaseSequenceEvaluation        = "sequence_evaluation"
)

// Callback reports that current of total items are done.
// A nil Callback is valid and will be safely ignored by the Call() helper.
type Callback func(current, total int, message string)

// Call safely invokes the callback if non-nil.
func Call(cb Callback, current, total int, message string) {
	if cb != nil {
		cb(current, total, message)
	}
}

// Update is a progress report tagged with the planner phase it belongs to.
type Update struct {
	Phase    string         `json:"phase"`
	SubPhase string         `json:"sub_phase,omitempty"` // e.g. calculator name or "depth_3"
	Current  int            `json:"current"`
	Total    int            `json:"total"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// DetailedCallback receives phase-tagged progress updates.
// A nil DetailedCallback is valid and will be safely ignored by CallDetailed().
type DetailedCallback func(update Update)

// CallDetailed safely invokes the detailed callback if non-nil.
func CallDetailed(cb DetailedCallback, update Update) {
	if cb != nil {
		cb(update)
	}
}

// ForPhase adapts a DetailedCallback into a Callback for one phase, so
// plain counters (like the worker pool's) can feed phase-tagged reports.
func ForPhase(cb DetailedCallback, phase string) Callback {
	if cb == nil {
		return nil
	}
	return func(current, total int, message string) {
		cb(Update{Phase: phase, Current: current, Total: total, Message: message})
	}
}
