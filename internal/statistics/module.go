// Package statistics provides the statistics reconciliation domain module.
package statistics

import (
	"context"

	"casestats_backend/internal/events"
	apphttp "casestats_backend/internal/http"
	"casestats_backend/internal/scheduler"
	"casestats_backend/internal/statistics/handler"
	"casestats_backend/internal/statistics/repository"
	"casestats_backend/internal/statistics/service"
	"casestats_backend/platform/config"
	"casestats_backend/platform/logger"
	"casestats_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the statistics domain module
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	Ingest     *service.Ingest
	Production *service.Production
	Reconciler *service.Reconciler
	retry      service.RetryPolicy
	log        *logger.Logger
}

// NewModule creates a new statistics module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.StatisticsConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	mapper := service.NewMapper(cfg.GetAutomaticHandlingUnit(), log)
	ingest := service.NewIngest(repo, bus)
	production := service.NewProduction(repo, repo, repo, repo, mapper, log)
	reconciler := service.NewReconciler(repo, repo, repo, repo, mapper, log)
	query := service.NewQuery(repo, repo)
	h := handler.New(ingest, query, bus, val)

	return &Module{
		handler:    h,
		repo:       repo,
		Ingest:     ingest,
		Production: production,
		Reconciler: reconciler,
		retry: service.RetryPolicy{
			MaxRetries: cfg.GetProduceMaxRetries(),
			Delay:      cfg.GetProduceRetryDelay(),
		},
		log: log,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "statistics"
}

// Repository exposes the module's persistence layer for readiness checks.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RetryPolicy exposes the configured production retry policy.
func (m *Module) RetryPolicy() service.RetryPolicy {
	return m.retry
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1)
	m.handler.RegisterInternalRoutes(ctx.Internal)
}

// RegisterHandlers subscribes to domain events so every ingested event and
// reconcile request becomes a queued job for the worker.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus, queue scheduler.RecordScheduler) {
	bus.Subscribe(events.CaseStatusReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		received, ok := event.(events.CaseStatusReceived)
		if !ok {
			return nil
		}
		return queue.EnqueueProduceRecord(ctx, scheduler.ProduceRecordPayload{CaseRef: received.CaseRef}, 0)
	}))

	bus.Subscribe(events.TaskEventReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		received, ok := event.(events.TaskEventReceived)
		if !ok {
			return nil
		}
		return queue.EnqueueProduceRecord(ctx, scheduler.ProduceRecordPayload{CaseRef: received.CaseRef}, 0)
	}))

	bus.Subscribe(events.CaseReconcileRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		requested, ok := event.(events.CaseReconcileRequested)
		if !ok {
			return nil
		}
		return queue.EnqueueReconcileCase(ctx, scheduler.ReconcileCasePayload{CaseRef: requested.CaseRef})
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
