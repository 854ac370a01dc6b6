package service

import (
	"context"
	"sort"
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/platform/apperr"
	"casestats_backend/platform/logger"
)

// fakeStore is an in-memory StatisticsRepository stand-in for service tests.
type fakeStore struct {
	cases     map[string]domain.Case
	tasks     map[string][]domain.Task
	records   map[string][]domain.Record
	lockCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:   make(map[string]domain.Case),
		tasks:   make(map[string][]domain.Task),
		records: make(map[string][]domain.Record),
	}
}

func (f *fakeStore) Get(_ context.Context, caseRef string) (domain.Case, error) {
	c, ok := f.cases[caseRef]
	if !ok {
		return domain.Case{}, apperr.NotFound("case not found")
	}
	return c, nil
}

func (f *fakeStore) TasksForCase(_ context.Context, caseRef string) ([]domain.Task, error) {
	return f.tasks[caseRef], nil
}

func (f *fakeStore) LatestForCase(_ context.Context, caseRef string) (*domain.Record, error) {
	series := f.records[caseRef]
	if len(series) == 0 {
		return nil, nil
	}
	latest := series[0]
	for _, record := range series[1:] {
		if latest.Less(record) {
			latest = record
		}
	}
	return &latest, nil
}

func (f *fakeStore) AllForCase(_ context.Context, caseRef string) ([]domain.Record, error) {
	series := append([]domain.Record(nil), f.records[caseRef]...)
	sort.SliceStable(series, func(i, j int) bool { return series[i].Less(series[j]) })
	return series, nil
}

func (f *fakeStore) Append(_ context.Context, record domain.Record) error {
	record.SequenceID = int64(len(f.records[record.CaseRef]) + 1)
	f.records[record.CaseRef] = append(f.records[record.CaseRef], record)
	return nil
}

func (f *fakeStore) AppendMany(ctx context.Context, records []domain.Record) error {
	for _, record := range records {
		if err := f.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) WithCaseLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	f.lockCalls++
	return fn(ctx)
}

func testLogger() *logger.Logger {
	return logger.New("development")
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
