// Package domain provides the pure reconciliation core for the statistics
// bounded context: the event model, the state reducer, the snapshot fold, and
// the record type with its duplicate-equivalence rule. Nothing in this package
// performs IO.
package domain

import "time"

// Source identifies which upstream system emitted a reconciliation event.
type Source string

const (
	// SourceCaseFlow marks events from the case-flow system.
	SourceCaseFlow Source = "caseflow"
	// SourceTasks marks events from the task-assignment system.
	SourceTasks Source = "tasks"
)

// Event is the common interface over both upstream event kinds. Every event
// is tied to a case and a business timestamp.
type Event interface {
	EventCaseRef() string
	EventTime() time.Time
	EventSource() Source
}

// CaseStatusChanged is one case-status transition from the case-flow system.
// Empty strings mean the upstream field was not set.
type CaseStatusChanged struct {
	CaseRef                   string
	Timestamp                 time.Time
	Status                    string
	SubStatus                 string
	WaitReason                string
	ActivityCode              string
	LastCompletedActivityCode string
	LastWorker                string
}

func (e CaseStatusChanged) EventCaseRef() string { return e.CaseRef }
func (e CaseStatusChanged) EventTime() time.Time { return e.Timestamp }
func (e CaseStatusChanged) EventSource() Source { return SourceCaseFlow }

// TaskEventKind enumerates the task lifecycle transitions.
type TaskEventKind string

const (
	TaskCreated    TaskEventKind = "CREATED"
	TaskReserved   TaskEventKind = "RESERVED"
	TaskUnreserved TaskEventKind = "UNRESERVED"
	TaskClosed     TaskEventKind = "CLOSED"
	TaskUpdated    TaskEventKind = "UPDATED"
)

// KnownTaskEventKind reports whether kind is one of the five lifecycle kinds.
func KnownTaskEventKind(kind TaskEventKind) bool {
	switch kind {
	case TaskCreated, TaskReserved, TaskUnreserved, TaskClosed, TaskUpdated:
		return true
	}
	return false
}

// TaskEvent is one lifecycle transition of a work item in the task-assignment
// system. Task events only matter to reconciliation when they carry a case
// reference.
type TaskEvent struct {
	CaseRef      string
	TaskRef      string
	Timestamp    time.Time
	Kind         TaskEventKind
	ActivityCode string
	Unit         string
	ReservedBy   string
}

func (e TaskEvent) EventCaseRef() string { return e.CaseRef }
func (e TaskEvent) EventTime() time.Time { return e.Timestamp }
func (e TaskEvent) EventSource() Source { return SourceTasks }

// Task is a work item with its ordered lifecycle events as exposed by the
// task repository. CaseRef is empty for tasks never associated with a case;
// such tasks are ignored by the reconciliation fold.
type Task struct {
	Ref     string
	CaseRef string
	Events  []TaskEvent
}

// LastEventTime returns the timestamp of the task's newest event, or the zero
// time for a task without events.
func (t Task) LastEventTime() time.Time {
	var last time.Time
	for _, ev := range t.Events {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last
}
