package service

import (
	"context"
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/repository"
	"casestats_backend/platform/logger"
)

// MissingRequiredAttribute signals that a record could not be produced yet
// because the owning unit is not resolvable for a manually handled case. It
// is an expected, recoverable condition, not an error.
type MissingRequiredAttribute struct {
	CaseRef      string
	ActivityCode string
	EventTime    time.Time
}

// ProductionResult is the typed outcome of a production attempt.
type ProductionResult struct {
	Missing *MissingRequiredAttribute
}

// OK reports whether the record (and any synthetic opening record) was
// persisted, or suppressed as a duplicate.
func (r ProductionResult) OK() bool { return r.Missing == nil }

// Produced is the successful production result.
func Produced() ProductionResult { return ProductionResult{} }

// Deferred is the production result for a missing owning unit.
func Deferred(caseRef, activityCode string, eventTime time.Time) ProductionResult {
	return ProductionResult{Missing: &MissingRequiredAttribute{
		CaseRef:      caseRef,
		ActivityCode: activityCode,
		EventTime:    eventTime,
	}}
}

// Production orchestrates "produce and persist a record for case X":
// mapping, the missing-unit deferral decision, opening synthesis, and
// duplicate suppression. All reads and writes of the record series run under
// the per-case lock.
type Production struct {
	cases  repository.CaseRepository
	tasks  repository.TaskRepository
	sink   repository.RecordSink
	locker repository.CaseLocker
	mapper *Mapper
	log    *logger.Logger
	now    func() time.Time
}

// NewProduction creates the production service.
func NewProduction(
	cases repository.CaseRepository,
	tasks repository.TaskRepository,
	sink repository.RecordSink,
	locker repository.CaseLocker,
	mapper *Mapper,
	log *logger.Logger,
) *Production {
	return &Production{
		cases:  cases,
		tasks:  tasks,
		sink:   sink,
		locker: locker,
		mapper: mapper,
		log:    log,
		now:    time.Now,
	}
}

// Produce maps the case's current state to a record and persists it unless it
// duplicates the latest persisted record. When the owning unit is missing for
// a manually handled case and allowMissingUnit is false, nothing is persisted
// and a deferral result is returned.
func (p *Production) Produce(ctx context.Context, caseRef string, allowMissingUnit bool) (ProductionResult, error) {
	return p.produce(ctx, caseRef, nil, allowMissingUnit)
}

// ProduceAtTime is Produce evaluated against the case facts as of
// originalEventTime, combined with up-to-date assignment facts. The retry
// path uses it so a deferred record still reflects the original event.
func (p *Production) ProduceAtTime(ctx context.Context, caseRef string, originalEventTime time.Time, allowMissingUnit bool) (ProductionResult, error) {
	return p.produce(ctx, caseRef, &originalEventTime, allowMissingUnit)
}

func (p *Production) produce(ctx context.Context, caseRef string, asOf *time.Time, allowMissingUnit bool) (ProductionResult, error) {
	c, err := p.cases.Get(ctx, caseRef)
	if err != nil {
		return ProductionResult{}, err
	}
	tasks, err := p.tasks.TasksForCase(ctx, caseRef)
	if err != nil {
		return ProductionResult{}, err
	}

	snapshots := domain.Snapshots(c.History, tasks)
	record := p.mapper.ToRecord(c, snapshots, tasks, asOf)

	if record.OwningUnit == "" && !c.Automatic && !allowMissingUnit {
		activity := c.ActivityCode
		if asOf != nil {
			if change, ok := c.ChangeAt(*asOf); ok {
				activity = change.ActivityCode
			}
		}
		return Deferred(caseRef, activity, record.ChangeTime), nil
	}

	err = p.locker.WithCaseLock(ctx, caseRef, func(ctx context.Context) error {
		return p.persistIfNotDuplicate(ctx, c, record)
	})
	if err != nil {
		return ProductionResult{}, err
	}
	return Produced(), nil
}

// persistIfNotDuplicate writes the candidate record, synthesizing the case's
// opening record first when the series is empty and the candidate does not
// itself qualify as the opening.
func (p *Production) persistIfNotDuplicate(ctx context.Context, c domain.Case, record domain.Record) error {
	latest, err := p.sink.LatestForCase(ctx, c.Ref)
	if err != nil {
		return err
	}

	if latest == nil && !domain.WithinOpeningTolerance(record.ChangeTime, c.ReceivedTime) {
		opening := syntheticOpening(c, record)
		opening.IngestTime = p.now()
		if err := p.sink.Append(ctx, opening); err != nil {
			return err
		}
		p.log.Info("statistics: synthesized opening record",
			"caseId", c.Ref,
			"receivedTime", c.ReceivedTime,
		)
		latest = &opening
	}

	if latest != nil && domain.IsDuplicate(record, *latest) {
		p.log.Info("statistics: duplicate record suppressed",
			"caseId", c.Ref,
			"changeTime", record.ChangeTime,
		)
		return nil
	}

	record.IngestTime = p.now()
	return p.sink.Append(ctx, record)
}

// syntheticOpening derives the case's opening record from a candidate:
// change time forced to the received time, status forced to opened, and all
// outcome/decision/completion facts cleared.
func syntheticOpening(c domain.Case, candidate domain.Record) domain.Record {
	opening := candidate
	opening.ChangeTime = c.ReceivedTime
	opening.Status = domain.CaseStatusOpened
	opening.Outcome = ""
	opening.OutcomeReason = ""
	opening.DecisionTime = nil
	opening.CompletedTime = nil
	return opening
}
