package service

import (
	"context"
	"testing"
	"time"

	"casestats_backend/internal/statistics/domain"
)

func newProductionUnderTest(store *fakeStore) *Production {
	mapper := NewMapper(sentinelUnit, testLogger())
	p := NewProduction(store, store, store, store, mapper, testLogger())
	p.now = fixedClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	return p
}

func TestProduceDefersWhenUnitMissingForManualCase(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	changed := received.Add(2 * time.Hour)

	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History: []domain.CaseStatusChanged{
			openChange(received, "5003"),
			openChange(changed, "5003"),
		},
	}

	result, err := newProductionUnderTest(store).Produce(context.Background(), "case-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected deferral for missing owning unit")
	}
	if result.Missing.CaseRef != "case-1" || result.Missing.ActivityCode != "5003" {
		t.Fatalf("unexpected deferral details: %+v", result.Missing)
	}
	if !result.Missing.EventTime.Equal(changed) {
		t.Fatalf("expected deferral to carry last change time, got %v", result.Missing.EventTime)
	}
	if len(store.records["case-1"]) != 0 {
		t.Fatalf("expected no persistence on deferral, got %d records", len(store.records["case-1"]))
	}
}

func TestProduceAllowMissingUnitPersistsDegradedRecord(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History:      []domain.CaseStatusChanged{openChange(received, "5003")},
	}

	result, err := newProductionUnderTest(store).Produce(context.Background(), "case-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected production to proceed with allowMissingUnit")
	}
	series := store.records["case-1"]
	if len(series) != 1 {
		t.Fatalf("expected 1 record, got %d", len(series))
	}
	if series[0].OwningUnit != "" {
		t.Fatalf("expected degraded record without unit, got %q", series[0].OwningUnit)
	}
}

func TestProduceSynthesizesOpeningRecord(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	changed := received.Add(24 * time.Hour)
	reserved := changed.Add(time.Hour)

	// The only known status change arrived a day after the case was opened,
	// so the first production has nothing near the received time.
	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History:      []domain.CaseStatusChanged{openChange(changed, "5003")},
	}
	store.tasks["case-1"] = []domain.Task{reservedTask(reserved, "5003", "4410", "A111")}

	result, err := newProductionUnderTest(store).Produce(context.Background(), "case-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected production to succeed, got deferral %+v", result.Missing)
	}

	series := store.records["case-1"]
	if len(series) != 2 {
		t.Fatalf("expected synthetic opening plus real record, got %d records", len(series))
	}
	opening := series[0]
	if !opening.ChangeTime.Equal(received) {
		t.Fatalf("expected opening at received time, got %v", opening.ChangeTime)
	}
	if opening.Status != domain.CaseStatusOpened {
		t.Fatalf("expected opening status, got %q", opening.Status)
	}
	if opening.Outcome != "" || opening.DecisionTime != nil || opening.CompletedTime != nil {
		t.Fatalf("expected opening with nulled outcome fields, got %+v", opening)
	}
	if !series[1].ChangeTime.Equal(changed) {
		t.Fatalf("expected real record at change time, got %v", series[1].ChangeTime)
	}
}

func TestProduceSuppressesSemanticDuplicate(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	reserved := received.Add(time.Minute)

	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History:      []domain.CaseStatusChanged{openChange(received, "5003")},
	}
	store.tasks["case-1"] = []domain.Task{reservedTask(reserved, "5003", "4410", "A111")}

	production := newProductionUnderTest(store)

	if _, err := production.Produce(context.Background(), "case-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := len(store.records["case-1"])

	if _, err := production.Produce(context.Background(), "case-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.records["case-1"]) != first {
		t.Fatalf("expected duplicate to be suppressed, got %d records after %d", len(store.records["case-1"]), first)
	}
}

func TestProduceRunsPersistenceUnderCaseLock(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	reserved := received.Add(time.Minute)

	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusUnderProcessing,
		ActivityCode: "5003",
		History:      []domain.CaseStatusChanged{openChange(received, "5003")},
	}
	store.tasks["case-1"] = []domain.Task{reservedTask(reserved, "5003", "4410", "A111")}

	if _, err := newProductionUnderTest(store).Produce(context.Background(), "case-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lockCalls != 1 {
		t.Fatalf("expected persistence under exactly one case lock, got %d", store.lockCalls)
	}
}

func TestProduceAtTimeReflectsOriginalEvent(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	closedAt := received.Add(24 * time.Hour)
	lateReserve := received.Add(30 * time.Hour)

	store := newFakeStore()
	store.cases["case-1"] = domain.Case{
		Ref:          "case-1",
		ReceivedTime: received,
		Status:       domain.CaseStatusClosed,
		ActivityCode: "5003",
		OutcomeCode:  domain.OutcomeDenied,
		History: []domain.CaseStatusChanged{
			openChange(received, "5003"),
			{CaseRef: "case-1", Timestamp: closedAt, Status: domain.CaseStatusClosed, ActivityCode: "5003"},
		},
	}
	store.tasks["case-1"] = []domain.Task{reservedTask(lateReserve, "5003", "4410", "A111")}

	result, err := newProductionUnderTest(store).ProduceAtTime(context.Background(), "case-1", received, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected production to succeed, got deferral %+v", result.Missing)
	}

	series := store.records["case-1"]
	if len(series) != 1 {
		t.Fatalf("expected 1 record, got %d", len(series))
	}
	record := series[0]
	if !record.ChangeTime.Equal(received) {
		t.Fatalf("expected record at original event time, got %v", record.ChangeTime)
	}
	if record.Outcome != "" {
		t.Fatalf("expected no outcome as of the original event, got %q", record.Outcome)
	}
	if record.OwningUnit != "4410" {
		t.Fatalf("expected fresher assignment data, got unit=%q", record.OwningUnit)
	}
}
