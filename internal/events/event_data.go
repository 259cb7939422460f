package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SequencesGeneratedData contains data for PlannerSequencesGenerated events
type SequencesGeneratedData struct {
	PortfolioHash string `json:"portfolio_hash"`
	Opportunities int    `json:"opportunities"`
	Generated     int    `json:"generated"`
	Feasible      int    `json:"feasible"`
	Seeded        int    `json:"seeded"`
}

// EventType returns the event type for SequencesGeneratedData
func (d *SequencesGeneratedData) EventType() EventType {
	return PlannerSequencesGenerated
}

// PlanningStatusData contains data for PlanningStatusUpdated events
type PlanningStatusData struct {
	PortfolioHash string  `json:"portfolio_hash"`
	Processed     int     `json:"processed"` // Sequences completed in this batch
	Evaluated     int     `json:"evaluated"` // Evaluations stored so far
	Total         int     `json:"total"`     // Sequences stored for the fingerprint
	Progress      float64 `json:"progress"`  // Completed fraction, 0-1
	HasMoreWork   bool    `json:"has_more_work"`
	BestScore     float64 `json:"best_score,omitempty"`
	BestSequence  string  `json:"best_sequence,omitempty"`
	EarlyStop     bool    `json:"early_stop,omitempty"`
}

// EventType returns the event type for PlanningStatusData
func (d *PlanningStatusData) EventType() EventType {
	return PlanningStatusUpdated
}

// PlanGeneratedData contains data for PlanGenerated events
type PlanGeneratedData struct {
	PortfolioHash string  `json:"portfolio_hash"`
	Steps         int     `json:"steps"`
	EndScore      float64 `json:"end_score"`
	Improvement   float64 `json:"improvement"`
	Feasible      bool    `json:"feasible"`
}

// EventType returns the event type for PlanGeneratedData
func (d *PlanGeneratedData) EventType() EventType {
	return PlanGenerated
}

// PlannerConfigChangedData contains data for PlannerConfigChanged events
type PlannerConfigChangedData struct {
	Action string `json:"action"` // "updated" or "reset"
	Name   string `json:"name,omitempty"`
}

// EventType returns the event type for PlannerConfigChangedData
func (d *PlannerConfigChangedData) EventType() EventType {
	return PlannerConfigChanged
}

// SystemStatusData contains data for SystemStatusChanged events
type SystemStatusData struct {
	Status          string  `json:"status"` // "healthy" or "degraded"
	DatabaseHealthy bool    `json:"database_healthy"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	DiskFreeGB      float64 `json:"disk_free_gb"`
}

// EventType returns the event type for SystemStatusData
func (d *SystemStatusData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// JobProgressInfo contains progress information for a job.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`

	// Phase identifies the current high-level operation (e.g., "opportunity_identification",
	// "sequence_generation", "sequence_evaluation")
	Phase string `json:"phase,omitempty"`

	// SubPhase identifies the specific sub-operation within a phase (e.g., "depth_3", "batch_1")
	SubPhase string `json:"sub_phase,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"` // "started", "progress", "completed", "failed"
	Description string                 `json:"description"`
	Progress    *JobProgressInfo       `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// Event represents an event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case PlannerSequencesGenerated:
		eventData = &SequencesGeneratedData{}
	case PlanningStatusUpdated:
		eventData = &PlanningStatusData{}
	case PlanGenerated:
		eventData = &PlanGeneratedData{}
	case PlannerConfigChanged:
		eventData = &PlannerConfigChangedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	case JobStarted, JobProgress, JobCompleted, JobFailed:
		eventData = &JobStatusData{}
	case SystemStatusChanged:
		eventData = &SystemStatusData{}
	default:
		// For unknown types, use raw map
		eventData = &GenericEventData{Type: aux.Type}
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
