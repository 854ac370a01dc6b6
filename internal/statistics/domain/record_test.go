package domain

import (
	"testing"
	"time"
)

func sampleRecord() Record {
	decision := time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC)
	return Record{
		CaseRef:       "case-1",
		SequenceID:    7,
		Version:       RecordVersion,
		Resend:        false,
		ChangeTime:    decision,
		IngestTime:    decision.Add(time.Second),
		Status:        CaseStatusClosed,
		OwningUnit:    "4410",
		Worker:        "A111",
		HandlingType:  HandlingManual,
		ReceivedTime:  decision.Add(-48 * time.Hour),
		DecisionTime:  &decision,
		CompletedTime: &decision,
		Outcome:       OutcomeApproved,
	}
}

func TestIsDuplicateIgnoresVolatileFields(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.SequenceID = 99
	b.Resend = true
	b.Version = "2.0"
	b.IngestTime = b.IngestTime.Add(time.Hour)
	b.ChangeTime = b.ChangeTime.Add(time.Hour)

	if !IsDuplicate(a, b) {
		t.Fatalf("expected records differing only in volatile fields to be duplicates")
	}
}

func TestIsDuplicateDetectsSemanticDifferences(t *testing.T) {
	base := sampleRecord()

	mutations := map[string]func(*Record){
		"caseRef":       func(r *Record) { r.CaseRef = "case-2" },
		"status":        func(r *Record) { r.Status = CaseStatusWaiting },
		"owningUnit":    func(r *Record) { r.OwningUnit = "1234" },
		"worker":        func(r *Record) { r.Worker = "B222" },
		"handlingType":  func(r *Record) { r.HandlingType = HandlingAutomatic },
		"receivedTime":  func(r *Record) { r.ReceivedTime = r.ReceivedTime.Add(time.Minute) },
		"decisionTime":  func(r *Record) { r.DecisionTime = nil },
		"completedTime": func(r *Record) { later := r.CompletedTime.Add(time.Hour); r.CompletedTime = &later },
		"outcome":       func(r *Record) { r.Outcome = OutcomeDenied },
		"outcomeReason": func(r *Record) { r.OutcomeReason = SubStatusReturned },
	}

	for field, mutate := range mutations {
		other := sampleRecord()
		mutate(&other)
		if IsDuplicate(base, other) {
			t.Fatalf("expected difference in %s to break duplicate equivalence", field)
		}
	}
}

func TestWithinOpeningTolerance(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if !WithinOpeningTolerance(at, at.Add(OpeningTolerance)) {
		t.Fatalf("expected boundary distance to be within tolerance")
	}
	if !WithinOpeningTolerance(at.Add(OpeningTolerance), at) {
		t.Fatalf("expected tolerance to be symmetric")
	}
	if WithinOpeningTolerance(at, at.Add(OpeningTolerance+time.Millisecond)) {
		t.Fatalf("expected distance beyond tolerance to fail")
	}
}

func TestRecordLessOrdersByChangeTimeThenIngestTime(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	a := Record{ChangeTime: at, IngestTime: at}
	b := Record{ChangeTime: at.Add(time.Second), IngestTime: at}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("expected ordering by change time")
	}

	c := Record{ChangeTime: at, IngestTime: at.Add(time.Second)}
	if !a.Less(c) || c.Less(a) {
		t.Fatalf("expected ingest time to break change-time ties")
	}
}
