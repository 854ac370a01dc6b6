package repository

import (
	"context"
	"time"

	"casestats_backend/internal/statistics/domain"
)

// CaseRepository exposes the case-flow system's view of a case, including its
// full status-change history.
type CaseRepository interface {
	Get(ctx context.Context, caseRef string) (domain.Case, error)
}

// TaskRepository exposes the task-assignment system's work items for a case,
// each with its ordered lifecycle events.
type TaskRepository interface {
	TasksForCase(ctx context.Context, caseRef string) ([]domain.Task, error)
}

// RecordSink is the append-only statistics feed with read-latest-by-key
// capability.
type RecordSink interface {
	LatestForCase(ctx context.Context, caseRef string) (*domain.Record, error)
	AllForCase(ctx context.Context, caseRef string) ([]domain.Record, error)
	Append(ctx context.Context, record domain.Record) error
	AppendMany(ctx context.Context, records []domain.Record) error
}

// CaseLocker serializes writers per case identity. Two concurrent productions
// for the same case must not both observe "no latest record"; everything that
// reads the latest record before writing runs inside WithCaseLock.
type CaseLocker interface {
	WithCaseLock(ctx context.Context, caseRef string, fn func(ctx context.Context) error) error
}

// CaseStatusChangeParams captures one incoming case-status transition plus
// the case metadata the case-flow system sends along with it.
type CaseStatusChangeParams struct {
	CaseRef                   string
	EventTime                 time.Time
	Status                    string
	SubStatus                 string
	WaitReason                string
	ActivityCode              string
	LastCompletedActivityCode string
	LastWorker                string

	ReceivedTime        *time.Time
	Automatic           *bool
	LastCompletedWorker string
	OutcomeCode         string
	DecisionTime        *time.Time
	CompletedTime       *time.Time
	EntitlementPeriods  []domain.EntitlementPeriod
}

// TaskEventParams captures one incoming task lifecycle event.
type TaskEventParams struct {
	TaskRef      string
	CaseRef      string
	EventTime    time.Time
	Kind         domain.TaskEventKind
	ActivityCode string
	Unit         string
	ReservedBy   string
}

// IngestStore persists incoming upstream events as the durable event history
// the reconciliation core reads.
type IngestStore interface {
	RecordCaseStatusChange(ctx context.Context, params CaseStatusChangeParams) error
	RecordTaskEvent(ctx context.Context, params TaskEventParams) error
}

// StatisticsRepository aggregates every persistence concern of the statistics
// bounded context.
type StatisticsRepository interface {
	CaseRepository
	TaskRepository
	RecordSink
	CaseLocker
	IngestStore
}
