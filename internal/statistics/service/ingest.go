package service

import (
	"context"

	"casestats_backend/internal/events"
	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/repository"
	"casestats_backend/platform/apperr"
)

// Ingest persists incoming upstream events and announces them on the event
// bus so production can be triggered.
type Ingest struct {
	store repository.IngestStore
	bus   events.Bus
}

// NewIngest creates the ingestion service.
func NewIngest(store repository.IngestStore, bus events.Bus) *Ingest {
	return &Ingest{store: store, bus: bus}
}

// RecordCaseStatusChange persists a case-status transition and publishes
// CaseStatusReceived.
func (s *Ingest) RecordCaseStatusChange(ctx context.Context, params repository.CaseStatusChangeParams) error {
	if err := s.store.RecordCaseStatusChange(ctx, params); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.CaseStatusReceived{
		BaseEvent: events.NewBaseEvent(),
		CaseRef:   params.CaseRef,
		Status:    params.Status,
		EventTime: params.EventTime,
	})
	return nil
}

// RecordTaskEvent persists a task lifecycle event. Events with a case
// reference additionally publish TaskEventReceived; unassociated task events
// are stored silently since they cannot affect any case yet.
func (s *Ingest) RecordTaskEvent(ctx context.Context, params repository.TaskEventParams) error {
	if !domain.KnownTaskEventKind(params.Kind) {
		return apperr.Validation("unknown task event kind").WithDetails(string(params.Kind))
	}

	if err := s.store.RecordTaskEvent(ctx, params); err != nil {
		return err
	}

	if params.CaseRef == "" {
		return nil
	}
	s.bus.Publish(ctx, events.TaskEventReceived{
		BaseEvent: events.NewBaseEvent(),
		CaseRef:   params.CaseRef,
		TaskRef:   params.TaskRef,
		Kind:      string(params.Kind),
		EventTime: params.EventTime,
	})
	return nil
}
