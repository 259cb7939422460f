// Package events provides the in-process event bus the planner reports through.
package events

// EventType represents different event types
type EventType string

const (
	// Planner events
	PlannerSequencesGenerated EventType = "PLANNER_SEQUENCES_GENERATED"
	PlanningStatusUpdated     EventType = "PLANNING_STATUS_UPDATED"
	PlanGenerated             EventType = "PLAN_GENERATED"
	PlannerConfigChanged      EventType = "PLANNER_CONFIG_CHANGED"
	ErrorOccurred             EventType = "ERROR_OCCURRED"

	// Scheduled job lifecycle
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	// Host and database health, emitted by the status monitor on change
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
)
