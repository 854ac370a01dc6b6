package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/repository"
	"casestats_backend/platform/apperr"
	"casestats_backend/platform/logger"
)

// ErrTimestampSetChanged marks a merge that altered the set of published
// change times. Published change times are the feed's ordering contract; a
// merge that changes them is a defect, never something to retry.
var ErrTimestampSetChanged = errors.New("history merge changed the published change-time set")

// Reconciler re-derives a case's full record series from its current event
// history and merges it with the previously published series, preserving
// every published change time.
type Reconciler struct {
	cases  repository.CaseRepository
	tasks  repository.TaskRepository
	sink   repository.RecordSink
	locker repository.CaseLocker
	mapper *Mapper
	log    *logger.Logger
	now    func() time.Time
}

// NewReconciler creates the history reconciler.
func NewReconciler(
	cases repository.CaseRepository,
	tasks repository.TaskRepository,
	sink repository.RecordSink,
	locker repository.CaseLocker,
	mapper *Mapper,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		cases:  cases,
		tasks:  tasks,
		sink:   sink,
		locker: locker,
		mapper: mapper,
		log:    log,
		now:    time.Now,
	}
}

// Reconcile recomputes the case's record series from scratch, merges it with
// the persisted series under the timestamp-preservation invariant, and
// persists the result as a full resend.
func (r *Reconciler) Reconcile(ctx context.Context, caseRef string) ([]domain.Record, error) {
	c, err := r.cases.Get(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	tasks, err := r.tasks.TasksForCase(ctx, caseRef)
	if err != nil {
		return nil, err
	}

	snapshots := domain.Snapshots(c.History, tasks)

	// One fresh record per historical case transition, evaluated as of that
	// transition. History is time-ordered, so the fresh series is too.
	fresh := make([]domain.Record, 0, len(c.History))
	for _, change := range c.History {
		at := change.Timestamp
		fresh = append(fresh, r.mapper.ToRecord(c, snapshots, tasks, &at))
	}

	var result []domain.Record
	err = r.locker.WithCaseLock(ctx, caseRef, func(ctx context.Context) error {
		persisted, err := r.sink.AllForCase(ctx, caseRef)
		if err != nil {
			return err
		}

		merged, unconsumed, err := MergeRecordSeries(persisted, fresh)
		if err != nil {
			r.log.Error("statistics: reconcile aborted, merge invariant violated",
				"caseId", caseRef,
				"error", err,
			)
			return apperr.Wrap(apperr.KindInternal, "history merge invariant violated", err).WithOp("reconciler.Reconcile")
		}

		combined := make([]domain.Record, 0, len(merged)+len(unconsumed))
		combined = append(combined, unconsumed...)
		combined = append(combined, merged...)
		sort.SliceStable(combined, func(i, j int) bool {
			return combined[i].Less(combined[j])
		})
		combined = CollapseDuplicateRuns(combined)

		ingestTime := r.now()
		for i := range combined {
			combined[i].Resend = true
			combined[i].IngestTime = ingestTime
		}

		if err := r.sink.AppendMany(ctx, combined); err != nil {
			return err
		}
		result = combined
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("statistics: case history reconciled",
		"caseId", caseRef,
		"records", len(result),
	)
	return result, nil
}

// MergeRecordSeries walks the persisted series against the recomputed fresh
// series. Every persisted entry keeps its own change time and takes its
// remaining fields from the time-closest fresh record; fresh records the walk
// advances past become the carried "last matched" record. The second return
// value holds fresh records never reached by the walk, which represent
// genuinely new points in history.
//
// The case analysis over (persisted entry, fresh cursor, carried record) is
// exhaustive: every combination of cursor exhaustion and carry presence picks
// a source record, so no input can reach an unclassified state. An error is
// returned only when the merged output's change-time set differs from the
// persisted input's, which, published history being immutable, is a defect in
// the merge itself.
func MergeRecordSeries(persisted, fresh []domain.Record) (merged, unconsumed []domain.Record, err error) {
	merged = make([]domain.Record, 0, len(persisted))
	cursor := 0
	var carry domain.Record
	hasCarry := false

	for _, p := range persisted {
		// Advance past fresh records that are strictly older than this
		// persisted point; the newest of them becomes the carry.
		for cursor < len(fresh) &&
			fresh[cursor].ChangeTime.Before(p.ChangeTime) &&
			!domain.WithinOpeningTolerance(p.ChangeTime, fresh[cursor].ChangeTime) {
			carry = fresh[cursor]
			hasCarry = true
			cursor++
		}

		var source domain.Record
		switch {
		case cursor < len(fresh) && domain.WithinOpeningTolerance(p.ChangeTime, fresh[cursor].ChangeTime):
			// Matching point in both series.
			carry = fresh[cursor]
			hasCarry = true
			cursor++
			source = carry
		case cursor < len(fresh) && hasCarry:
			// Persisted point lies between the carry and the cursor; take
			// whichever is closer in time.
			if fresh[cursor].ChangeTime.Sub(p.ChangeTime) < p.ChangeTime.Sub(carry.ChangeTime) {
				source = fresh[cursor]
			} else {
				source = carry
			}
		case cursor < len(fresh):
			// Persisted point predates the first fresh record.
			source = fresh[cursor]
		case hasCarry:
			// Fresh series exhausted; inherit the last matched record.
			source = carry
		default:
			// No fresh records at all. Keep the persisted entry unchanged.
			source = p
		}

		entry := source
		entry.ChangeTime = p.ChangeTime
		merged = append(merged, entry)
	}

	if !equalChangeTimeSets(persisted, merged) {
		return nil, nil, ErrTimestampSetChanged
	}

	return merged, fresh[cursor:], nil
}

// CollapseDuplicateRuns removes consecutive semantic duplicates from a sorted
// series, keeping the first record of each run.
func CollapseDuplicateRuns(records []domain.Record) []domain.Record {
	collapsed := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if len(collapsed) > 0 && domain.IsDuplicate(collapsed[len(collapsed)-1], record) {
			continue
		}
		collapsed = append(collapsed, record)
	}
	return collapsed
}

func equalChangeTimeSets(a, b []domain.Record) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int64]int, len(a))
	for _, record := range a {
		counts[record.ChangeTime.UnixNano()]++
	}
	for _, record := range b {
		counts[record.ChangeTime.UnixNano()]--
		if counts[record.ChangeTime.UnixNano()] < 0 {
			return false
		}
	}
	return true
}
