package service

import (
	"context"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/repository"
)

// Query serves read access to the produced record series.
type Query struct {
	cases repository.CaseRepository
	sink  repository.RecordSink
}

// NewQuery creates the record query service.
func NewQuery(cases repository.CaseRepository, sink repository.RecordSink) *Query {
	return &Query{cases: cases, sink: sink}
}

// RecordsForCase returns every record produced for the case in
// (changeTime, ingestTime) order. Unknown cases yield a not-found error
// rather than an empty series.
func (q *Query) RecordsForCase(ctx context.Context, caseRef string) ([]domain.Record, error) {
	if _, err := q.cases.Get(ctx, caseRef); err != nil {
		return nil, err
	}
	return q.sink.AllForCase(ctx, caseRef)
}
