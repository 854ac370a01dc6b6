package domain

import (
	"sort"
	"time"
)

// Snapshot is the reduced state of a case immediately after one event, tagged
// with that event's business timestamp.
type Snapshot struct {
	Timestamp time.Time
	CaseRef   string
	State
}

// Snapshots merges a case's own status-change history with its associated
// task events, orders the combined stream by business time, and folds it with
// Reduce from the empty state. One snapshot is emitted per event.
//
// The sort is stable, so simultaneous events keep their input order
// (case history before task events, tasks in repository order). Tasks without
// a case reference are dropped. The result for any prefix of the sorted
// stream never depends on later events.
func Snapshots(caseHistory []CaseStatusChanged, tasks []Task) []Snapshot {
	events := make([]Event, 0, len(caseHistory))
	for _, ch := range caseHistory {
		events = append(events, ch)
	}
	for _, task := range tasks {
		if task.CaseRef == "" {
			continue
		}
		for _, ev := range task.Events {
			if ev.CaseRef == "" {
				ev.CaseRef = task.CaseRef
			}
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime().Before(events[j].EventTime())
	})

	snapshots := make([]Snapshot, 0, len(events))
	var state State
	for _, ev := range events {
		state = Reduce(state, ev)
		snapshots = append(snapshots, Snapshot{
			Timestamp: ev.EventTime(),
			CaseRef:   ev.EventCaseRef(),
			State:     state,
		})
	}
	return snapshots
}

// LatestSnapshot returns the last snapshot in the series, or a zero snapshot
// when the series is empty.
func LatestSnapshot(snapshots []Snapshot) Snapshot {
	if len(snapshots) == 0 {
		return Snapshot{}
	}
	return snapshots[len(snapshots)-1]
}

// LatestSnapshotAt returns the last snapshot at or before the given time, or
// a zero snapshot when none exists.
func LatestSnapshotAt(snapshots []Snapshot, at time.Time) Snapshot {
	var result Snapshot
	for _, snap := range snapshots {
		if snap.Timestamp.After(at) {
			break
		}
		result = snap
	}
	return result
}

// LatestSnapshotForActivity returns the last snapshot whose open activity
// matches activityCode, and whether one exists. Used when historical case
// facts must be combined with the freshest known assignment for an activity.
func LatestSnapshotForActivity(snapshots []Snapshot, activityCode string) (Snapshot, bool) {
	var result Snapshot
	found := false
	for _, snap := range snapshots {
		if snap.ActivityCode == activityCode {
			result = snap
			found = true
		}
	}
	return result, found
}
