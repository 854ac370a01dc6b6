// Package service implements the statistics production pipeline: mapping
// reconciled case state to feed records, producing and persisting records
// with duplicate suppression and opening synthesis, re-deriving full record
// histories, and the retry policy for deferred productions.
package service

import (
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/platform/logger"
)

// Mapper turns a case plus its computed snapshot series into a feed record.
type Mapper struct {
	automaticUnit string
	log           *logger.Logger
}

// NewMapper creates a record mapper. automaticUnit is the sentinel owning
// unit reported for automatically handled cases.
func NewMapper(automaticUnit string, log *logger.Logger) *Mapper {
	return &Mapper{automaticUnit: automaticUnit, log: log}
}

// ToRecord derives a record from the case at a point in time. With asOf nil
// the record reflects the case now, using the latest snapshot. With asOf set
// the case facts (status, activity, change time) are reconstructed as of that
// time, while worker/unit resolution still uses the full snapshot series:
// assignment facts are expected to improve after the original event, the case
// facts must not.
//
// Missing data yields empty fields, never an error; the production service
// escalates a missing owning unit for manually handled cases.
func (m *Mapper) ToRecord(c domain.Case, snapshots []domain.Snapshot, tasks []domain.Task, asOf *time.Time) domain.Record {
	var lastChange domain.CaseStatusChanged
	var hasChange bool
	if asOf != nil {
		lastChange, hasChange = c.ChangeAt(*asOf)
	} else {
		lastChange, hasChange = c.LastChange()
	}

	status := c.Status
	activity := c.ActivityCode
	if asOf != nil && hasChange {
		status = lastChange.Status
		activity = lastChange.ActivityCode
	}
	terminal := status == domain.CaseStatusClosed

	snapshot := m.resolveSnapshot(snapshots, activity, asOf)

	worker := snapshot.Worker
	unit := snapshot.Unit

	handling := domain.HandlingManual
	if c.Automatic {
		handling = domain.HandlingAutomatic
		unit = m.automaticUnit
	}

	// Best-effort fallback for closed cases: the snapshot value wins, the
	// most-recently-touched task only fills gaps.
	if terminal && !c.Automatic {
		taskWorker, taskUnit := lastTouchedTaskAssignment(tasks)
		if unit == "" {
			unit = taskUnit
		}
		if worker == "" {
			worker = taskWorker
		}
		if worker == "" {
			worker = c.LastCompletedWorker
		}
	}

	changeTime := c.ReceivedTime
	if hasChange {
		changeTime = lastChange.Timestamp
	}

	record := domain.Record{
		CaseRef:      c.Ref,
		Version:      domain.RecordVersion,
		ChangeTime:   changeTime,
		Status:       statusText(status, lastChange),
		OwningUnit:   unit,
		Worker:       worker,
		HandlingType: handling,
		ReceivedTime: c.ReceivedTime,
	}

	if terminal {
		record.Outcome = m.deriveOutcome(c)
		record.DecisionTime = c.DecisionTime
		record.CompletedTime = c.CompletedTime
	}
	if domain.IsReturnedSubStatus(lastChange.SubStatus) {
		record.OutcomeReason = lastChange.SubStatus
	}

	return record
}

// resolveSnapshot picks the snapshot supplying worker/unit. Live mapping uses
// the latest snapshot. Historical mapping prefers the freshest snapshot for
// the as-of activity (newer task events for that activity are welcome), then
// falls back to the state as of that time.
func (m *Mapper) resolveSnapshot(snapshots []domain.Snapshot, activity string, asOf *time.Time) domain.Snapshot {
	if asOf == nil {
		return domain.LatestSnapshot(snapshots)
	}
	if snap, ok := domain.LatestSnapshotForActivity(snapshots, activity); ok {
		return snap
	}
	return domain.LatestSnapshotAt(snapshots, *asOf)
}

// deriveOutcome maps the case's outcome code to the feed's outcome string.
// Approvals are refined by the first entitlement period's type; when several
// periods exist the choice is recorded in the log rather than made silently.
func (m *Mapper) deriveOutcome(c domain.Case) string {
	if c.OutcomeCode == "" {
		return ""
	}
	if c.OutcomeCode == domain.OutcomeApproved && len(c.EntitlementPeriods) > 0 {
		first := c.EntitlementPeriods[0]
		if len(c.EntitlementPeriods) > 1 {
			m.log.Info("statistics: multiple entitlement periods on approved case, using first",
				"caseId", c.Ref,
				"chosenType", first.Type,
				"discarded", len(c.EntitlementPeriods)-1,
			)
		}
		return domain.OutcomeApproved + ":" + first.Type
	}
	return c.OutcomeCode
}

// statusText builds the descriptive status string: the base status with a
// wait-reason suffix and a sent-back suffix when the last change was a
// return-to-sender.
func statusText(status string, lastChange domain.CaseStatusChanged) string {
	text := status
	if lastChange.WaitReason != "" {
		text += " - " + lastChange.WaitReason
	}
	if domain.IsReturnedSubStatus(lastChange.SubStatus) {
		text += " - SENT_BACK"
	}
	return text
}

// lastTouchedTaskAssignment returns the worker and unit last seen on the
// case's most-recently-touched task, regardless of activity.
func lastTouchedTaskAssignment(tasks []domain.Task) (worker, unit string) {
	var best domain.Task
	var bestAt time.Time
	for _, task := range tasks {
		if at := task.LastEventTime(); at.After(bestAt) {
			best = task
			bestAt = at
		}
	}
	for i := len(best.Events) - 1; i >= 0; i-- {
		ev := best.Events[i]
		if unit == "" && ev.Unit != "" {
			unit = ev.Unit
		}
		if worker == "" && ev.ReservedBy != "" {
			worker = ev.ReservedBy
		}
		if unit != "" && worker != "" {
			break
		}
	}
	return worker, unit
}
