// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"casestats_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Statistics Domain Events
// =============================================================================

// CaseStatusReceived is published after a case-status transition from the
// case-flow system has been persisted.
type CaseStatusReceived struct {
	BaseEvent
	CaseRef   string    `json:"caseRef"`
	Status    string    `json:"status"`
	EventTime time.Time `json:"eventTime"`
}

func (e CaseStatusReceived) EventName() string { return "statistics.case_status.received" }

// TaskEventReceived is published after a task lifecycle event from the
// task-assignment system has been persisted. Only emitted for task events
// that carry a case reference.
type TaskEventReceived struct {
	BaseEvent
	CaseRef   string    `json:"caseRef"`
	TaskRef   string    `json:"taskRef"`
	Kind      string    `json:"kind"`
	EventTime time.Time `json:"eventTime"`
}

func (e TaskEventReceived) EventName() string { return "statistics.task_event.received" }

// CaseReconcileRequested is published when an operator requests a full
// re-derivation of a case's published record series.
type CaseReconcileRequested struct {
	BaseEvent
	CaseRef string `json:"caseRef"`
}

func (e CaseReconcileRequested) EventName() string { return "statistics.case.reconcile_requested" }
