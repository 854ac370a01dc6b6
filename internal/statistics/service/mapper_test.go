package service

import (
	"testing"
	"time"

	"casestats_backend/internal/statistics/domain"
)

const sentinelUnit = "9999"

func openChange(at time.Time, activity string) domain.CaseStatusChanged {
	return domain.CaseStatusChanged{
		CaseRef:      "case-1",
		Timestamp:    at,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: activity,
	}
}

func reservedTask(at time.Time, activity, unit, worker string) domain.Task {
	return domain.Task{
		Ref:     "task-1",
		CaseRef: "case-1",
		Events: []domain.TaskEvent{{
			CaseRef:      "case-1",
			TaskRef:      "task-1",
			Timestamp:    at,
			Kind:         domain.TaskReserved,
			ActivityCode: activity,
			Unit:         unit,
			ReservedBy:   worker,
		}},
	}
}

func TestToRecordUsesSnapshotAssignment(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	reserved := received.Add(time.Hour)

	c := domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History:      []domain.CaseStatusChanged{openChange(received, "5003")},
	}
	tasks := []domain.Task{reservedTask(reserved, "5003", "4410", "A111")}
	snapshots := domain.Snapshots(c.History, tasks)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, tasks, nil)

	if record.OwningUnit != "4410" || record.Worker != "A111" {
		t.Fatalf("expected assignment from snapshot, got unit=%q worker=%q", record.OwningUnit, record.Worker)
	}
	if record.HandlingType != domain.HandlingManual {
		t.Fatalf("expected manual handling, got %q", record.HandlingType)
	}
	if !record.ChangeTime.Equal(received) {
		t.Fatalf("expected change time from last case change, got %v", record.ChangeTime)
	}
	if record.Outcome != "" {
		t.Fatalf("expected no outcome while open, got %q", record.Outcome)
	}
}

func TestToRecordAutomaticHandlingUsesSentinelUnit(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		Automatic:    true,
		History:      []domain.CaseStatusChanged{openChange(received, "")},
	}
	snapshots := domain.Snapshots(c.History, nil)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, nil, nil)

	if record.OwningUnit != sentinelUnit {
		t.Fatalf("expected sentinel unit, got %q", record.OwningUnit)
	}
	if record.HandlingType != domain.HandlingAutomatic {
		t.Fatalf("expected automatic handling, got %q", record.HandlingType)
	}
}

func TestToRecordTerminalFallbackOnlyFillsGaps(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	closed := received.Add(48 * time.Hour)

	history := []domain.CaseStatusChanged{
		openChange(received, "5003"),
		{CaseRef: "case-1", Timestamp: closed, Status: domain.CaseStatusClosed, ActivityCode: "5010"},
	}
	// The task touched activity 5003, not the closing activity; the fold
	// leaves worker/unit empty at close and the fallback kicks in.
	tasks := []domain.Task{reservedTask(received.Add(time.Hour), "5003", "4410", "A111")}

	c := domain.Case{
		Ref:                 "case-1",
		ReceivedTime:        received,
		Status:              domain.CaseStatusClosed,
		ActivityCode:        "5010",
		LastCompletedWorker: "Z999",
		OutcomeCode:         domain.OutcomeDenied,
		History:             history,
	}
	snapshots := domain.Snapshots(c.History, tasks)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, tasks, nil)

	if record.OwningUnit != "4410" {
		t.Fatalf("expected unit from most-recently-touched task, got %q", record.OwningUnit)
	}
	if record.Worker != "A111" {
		t.Fatalf("expected worker from most-recently-touched task, got %q", record.Worker)
	}
	if record.Outcome != domain.OutcomeDenied {
		t.Fatalf("expected outcome=%q, got %q", domain.OutcomeDenied, record.Outcome)
	}
}

func TestToRecordTerminalWorkerFallsBackToLastCompletedWorker(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	closed := received.Add(time.Hour)

	c := domain.Case{
		Ref:                 "case-1",
		ReceivedTime:        received,
		Status:              domain.CaseStatusClosed,
		LastCompletedWorker: "Z999",
		OutcomeCode:         domain.OutcomeDismissed,
		History: []domain.CaseStatusChanged{
			{CaseRef: "case-1", Timestamp: closed, Status: domain.CaseStatusClosed},
		},
	}
	snapshots := domain.Snapshots(c.History, nil)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, nil, nil)

	if record.Worker != "Z999" {
		t.Fatalf("expected fallback to last completed worker, got %q", record.Worker)
	}
}

func TestToRecordStatusTextSuffixes(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusWaiting,
		History: []domain.CaseStatusChanged{{
			CaseRef:    "case-1",
			Timestamp:  received,
			Status:     domain.CaseStatusWaiting,
			SubStatus:  domain.SubStatusReturned,
			WaitReason: "AWAITING_DOCUMENTATION",
		}},
	}
	snapshots := domain.Snapshots(c.History, nil)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, nil, nil)

	want := domain.CaseStatusWaiting + " - AWAITING_DOCUMENTATION - SENT_BACK"
	if record.Status != want {
		t.Fatalf("expected status=%q, got %q", want, record.Status)
	}
	if record.OutcomeReason != domain.SubStatusReturned {
		t.Fatalf("expected outcome reason from returned sub-status, got %q", record.OutcomeReason)
	}
}

func TestToRecordApprovedOutcomeRefinedByFirstEntitlement(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	closed := received.Add(time.Hour)

	c := domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusClosed,
		OutcomeCode:  domain.OutcomeApproved,
		EntitlementPeriods: []domain.EntitlementPeriod{
			{Type: "BASIC", From: closed},
			{Type: "EXTENDED", From: closed},
		},
		History: []domain.CaseStatusChanged{
			{CaseRef: "case-1", Timestamp: closed, Status: domain.CaseStatusClosed},
		},
	}
	snapshots := domain.Snapshots(c.History, nil)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, nil, nil)

	if record.Outcome != domain.OutcomeApproved+":BASIC" {
		t.Fatalf("expected first entitlement type to refine outcome, got %q", record.Outcome)
	}
}

func TestToRecordAsOfUsesPastFactsWithFreshAssignment(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	asOf := received
	laterReserve := received.Add(6 * time.Hour)

	c := domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusClosed, // closed now, open as of asOf
		ActivityCode: "5010",
		History: []domain.CaseStatusChanged{
			openChange(received, "5003"),
			{CaseRef: "case-1", Timestamp: received.Add(24 * time.Hour), Status: domain.CaseStatusClosed, ActivityCode: "5010"},
		},
	}
	// Reservation arrived after asOf, for the as-of activity.
	tasks := []domain.Task{reservedTask(laterReserve, "5003", "4410", "A111")}
	snapshots := domain.Snapshots(c.History, tasks)

	mapper := NewMapper(sentinelUnit, testLogger())
	record := mapper.ToRecord(c, snapshots, tasks, &asOf)

	if record.Status != domain.CaseStatusUnderProcessing {
		t.Fatalf("expected as-of status, got %q", record.Status)
	}
	if !record.ChangeTime.Equal(received) {
		t.Fatalf("expected as-of change time, got %v", record.ChangeTime)
	}
	if record.OwningUnit != "4410" || record.Worker != "A111" {
		t.Fatalf("expected fresher assignment for the as-of activity, got unit=%q worker=%q", record.OwningUnit, record.Worker)
	}
	if record.Outcome != "" {
		t.Fatalf("expected no outcome for a case open as of the evaluation time, got %q", record.Outcome)
	}
}
