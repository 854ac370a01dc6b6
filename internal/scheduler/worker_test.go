package scheduler

import (
	"context"
	"testing"
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/service"
	"casestats_backend/platform/logger"
)

type fakeProducer struct {
	deferUntilAllowed bool
	eventTime         time.Time

	produceCalls []bool
	atTimeCalls  []time.Time
	atTimeAllow  []bool
}

func (f *fakeProducer) result(allow bool) service.ProductionResult {
	if f.deferUntilAllowed && !allow {
		return service.ProductionResult{Missing: &service.MissingRequiredAttribute{
			CaseRef:      "case-1",
			ActivityCode: "5003",
			EventTime:    f.eventTime,
		}}
	}
	return service.ProductionResult{}
}

func (f *fakeProducer) Produce(_ context.Context, _ string, allow bool) (service.ProductionResult, error) {
	f.produceCalls = append(f.produceCalls, allow)
	return f.result(allow), nil
}

func (f *fakeProducer) ProduceAtTime(_ context.Context, _ string, at time.Time, allow bool) (service.ProductionResult, error) {
	f.atTimeCalls = append(f.atTimeCalls, at)
	f.atTimeAllow = append(f.atTimeAllow, allow)
	return f.result(allow), nil
}

type fakeScheduler struct {
	produced []ProduceRecordPayload
	delays   []time.Duration
}

func (f *fakeScheduler) EnqueueProduceRecord(_ context.Context, payload ProduceRecordPayload, delay time.Duration) error {
	f.produced = append(f.produced, payload)
	f.delays = append(f.delays, delay)
	return nil
}

func (f *fakeScheduler) EnqueueReconcileCase(_ context.Context, _ ReconcileCasePayload) error {
	return nil
}

type fakeReconciler struct {
	calls []string
}

func (f *fakeReconciler) Reconcile(_ context.Context, caseRef string) ([]domain.Record, error) {
	f.calls = append(f.calls, caseRef)
	return []domain.Record{{CaseRef: caseRef}}, nil
}

func newWorkerUnderTest(producer RecordProducer, reconciler CaseReconciler, queue RecordScheduler) *Worker {
	return &Worker{
		producer:   producer,
		reconciler: reconciler,
		scheduler:  queue,
		retry:      service.RetryPolicy{MaxRetries: 3, Delay: 15 * time.Minute},
		log:        logger.New("development"),
	}
}

func TestHandleProduceRecordReschedulesDeferralWithFrozenEventTime(t *testing.T) {
	eventTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	producer := &fakeProducer{deferUntilAllowed: true, eventTime: eventTime}
	queue := &fakeScheduler{}
	worker := newWorkerUnderTest(producer, &fakeReconciler{}, queue)

	task, err := NewProduceRecordTask(ProduceRecordPayload{CaseRef: "case-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := worker.HandleProduceRecord(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.produced) != 1 {
		t.Fatalf("expected 1 reschedule, got %d", len(queue.produced))
	}
	next := queue.produced[0]
	if next.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", next.RetryCount)
	}
	if next.OriginalEventTime == nil || !next.OriginalEventTime.Equal(eventTime) {
		t.Fatalf("expected original event time frozen at %v, got %v", eventTime, next.OriginalEventTime)
	}
	if queue.delays[0] != 15*time.Minute {
		t.Fatalf("expected configured delay, got %v", queue.delays[0])
	}
}

func TestHandleProduceRecordKeepsOriginalEventTimeAcrossRetries(t *testing.T) {
	firstEvent := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	producer := &fakeProducer{deferUntilAllowed: true, eventTime: firstEvent.Add(time.Hour)}
	queue := &fakeScheduler{}
	worker := newWorkerUnderTest(producer, &fakeReconciler{}, queue)

	task, err := NewProduceRecordTask(ProduceRecordPayload{
		CaseRef:           "case-1",
		RetryCount:        2,
		OriginalEventTime: &firstEvent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := worker.HandleProduceRecord(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(producer.atTimeCalls) != 1 || !producer.atTimeCalls[0].Equal(firstEvent) {
		t.Fatalf("expected production as of the first deferral's event, got %v", producer.atTimeCalls)
	}
	if len(queue.produced) != 1 || !queue.produced[0].OriginalEventTime.Equal(firstEvent) {
		t.Fatalf("expected original event time unchanged on reschedule, got %+v", queue.produced)
	}
	if queue.produced[0].RetryCount != 3 {
		t.Fatalf("expected retry count 3, got %d", queue.produced[0].RetryCount)
	}
}

func TestHandleProduceRecordDegradesOnceRetriesAreSpent(t *testing.T) {
	firstEvent := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	producer := &fakeProducer{deferUntilAllowed: true, eventTime: firstEvent}
	queue := &fakeScheduler{}
	worker := newWorkerUnderTest(producer, &fakeReconciler{}, queue)

	task, err := NewProduceRecordTask(ProduceRecordPayload{
		CaseRef:           "case-1",
		RetryCount:        3,
		OriginalEventTime: &firstEvent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := worker.HandleProduceRecord(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.produced) != 0 {
		t.Fatalf("expected no further reschedules, got %d", len(queue.produced))
	}
	if len(producer.atTimeCalls) != 2 {
		t.Fatalf("expected the deferred attempt plus the degraded one, got %d calls", len(producer.atTimeCalls))
	}
	if producer.atTimeAllow[0] || !producer.atTimeAllow[1] {
		t.Fatalf("expected only the final attempt to allow a missing unit, got %v", producer.atTimeAllow)
	}
	if !producer.atTimeCalls[1].Equal(firstEvent) {
		t.Fatalf("expected the degraded record at the original event time, got %v", producer.atTimeCalls[1])
	}
}

func TestHandleProduceRecordSucceedsWithoutRescheduling(t *testing.T) {
	producer := &fakeProducer{}
	queue := &fakeScheduler{}
	worker := newWorkerUnderTest(producer, &fakeReconciler{}, queue)

	task, err := NewProduceRecordTask(ProduceRecordPayload{CaseRef: "case-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := worker.HandleProduceRecord(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.produced) != 0 {
		t.Fatalf("expected no reschedule on success, got %d", len(queue.produced))
	}
}

func TestHandleReconcileCase(t *testing.T) {
	reconciler := &fakeReconciler{}
	worker := newWorkerUnderTest(&fakeProducer{}, reconciler, &fakeScheduler{})

	task, err := NewReconcileCaseTask(ReconcileCasePayload{CaseRef: "case-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := worker.HandleReconcileCase(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reconciler.calls) != 1 || reconciler.calls[0] != "case-7" {
		t.Fatalf("expected one reconcile for case-7, got %v", reconciler.calls)
	}
}
