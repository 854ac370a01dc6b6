package scheduler

import (
	"context"
	"fmt"
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/service"
	"casestats_backend/platform/config"
	"casestats_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// RecordProducer is the production side the worker drives.
type RecordProducer interface {
	Produce(ctx context.Context, caseRef string, allowMissingUnit bool) (service.ProductionResult, error)
	ProduceAtTime(ctx context.Context, caseRef string, originalEventTime time.Time, allowMissingUnit bool) (service.ProductionResult, error)
}

// CaseReconciler re-derives a case's full record series.
type CaseReconciler interface {
	Reconcile(ctx context.Context, caseRef string) ([]domain.Record, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	producer   RecordProducer
	reconciler CaseReconciler
	scheduler  RecordScheduler
	retry      service.RetryPolicy
	log        *logger.Logger
}

func NewWorker(
	cfg config.SchedulerConfig,
	producer RecordProducer,
	reconciler CaseReconciler,
	scheduler RecordScheduler,
	retry service.RetryPolicy,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		producer:   producer,
		reconciler: reconciler,
		scheduler:  scheduler,
		retry:      retry,
		log:        log,
	}

	mux.HandleFunc(TaskProduceRecord, w.HandleProduceRecord)
	mux.HandleFunc(TaskReconcileCase, w.HandleReconcileCase)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("statistics worker stopped", "error", err)
	}
}

// HandleProduceRecord runs one production attempt. A deferral either goes
// back on the queue with an incremented retry count, or, once the budget is
// spent, is produced once more with the missing owning unit allowed.
func (w *Worker) HandleProduceRecord(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProduceRecordPayload(task)
	if err != nil {
		return err
	}

	result, err := w.produce(ctx, payload, payload.AllowMissingUnit)
	if err != nil {
		return err
	}
	if result.OK() {
		return nil
	}

	switch w.retry.Decide(payload.RetryCount) {
	case service.RetryReschedule:
		next := payload
		next.RetryCount++
		if next.OriginalEventTime == nil {
			eventTime := result.Missing.EventTime
			next.OriginalEventTime = &eventTime
		}
		w.log.Warn("statistics: record production deferred, rescheduling",
			"caseId", payload.CaseRef,
			"retryCount", next.RetryCount,
			"activityCode", result.Missing.ActivityCode,
		)
		return w.scheduler.EnqueueProduceRecord(ctx, next, w.retry.Delay)

	default:
		w.log.Warn("statistics: retry budget spent, producing without owning unit",
			"caseId", payload.CaseRef,
			"retryCount", payload.RetryCount,
		)
		_, err := w.produce(ctx, payload, true)
		return err
	}
}

func (w *Worker) produce(ctx context.Context, payload ProduceRecordPayload, allowMissingUnit bool) (service.ProductionResult, error) {
	if payload.OriginalEventTime != nil {
		return w.producer.ProduceAtTime(ctx, payload.CaseRef, *payload.OriginalEventTime, allowMissingUnit)
	}
	return w.producer.Produce(ctx, payload.CaseRef, allowMissingUnit)
}

// HandleReconcileCase re-derives and republishes the case's record series.
func (w *Worker) HandleReconcileCase(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReconcileCasePayload(task)
	if err != nil {
		return err
	}

	records, err := w.reconciler.Reconcile(ctx, payload.CaseRef)
	if err != nil {
		return err
	}

	w.log.Info("statistics: case reconciled",
		"caseId", payload.CaseRef,
		"records", len(records),
	)
	return nil
}
