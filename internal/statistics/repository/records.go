package repository

import (
	"context"
	"errors"

	"casestats_backend/internal/statistics/domain"

	"github.com/jackc/pgx/v5"
)

const recordSelectCols = `
	sequence_id, case_ref, version, resend, change_time, ingest_time,
	status, owning_unit, worker, handling_type, received_time,
	decision_time, completed_time, outcome, outcome_reason`

// recordRowScanner is satisfied by pgx.Rows and pgx.Row so scanRecord can be
// shared between single-row and multi-row queries.
type recordRowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s recordRowScanner) (domain.Record, error) {
	var record domain.Record
	var owningUnit, worker, outcome, outcomeReason *string
	if err := s.Scan(
		&record.SequenceID,
		&record.CaseRef,
		&record.Version,
		&record.Resend,
		&record.ChangeTime,
		&record.IngestTime,
		&record.Status,
		&owningUnit,
		&worker,
		&record.HandlingType,
		&record.ReceivedTime,
		&record.DecisionTime,
		&record.CompletedTime,
		&outcome,
		&outcomeReason,
	); err != nil {
		return domain.Record{}, err
	}
	record.OwningUnit = deref(owningUnit)
	record.Worker = deref(worker)
	record.Outcome = deref(outcome)
	record.OutcomeReason = deref(outcomeReason)
	return record, nil
}

// LatestForCase returns the newest record for the case by
// (change_time, ingest_time), or nil when none has been produced.
func (r *Repository) LatestForCase(ctx context.Context, caseRef string) (*domain.Record, error) {
	row := r.db(ctx).QueryRow(ctx, `
		SELECT`+recordSelectCols+`
		FROM statistics_records
		WHERE case_ref = $1
		ORDER BY change_time DESC, ingest_time DESC
		LIMIT 1
	`, caseRef)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// AllForCase returns the case's full record series ordered by
// (change_time, ingest_time).
func (r *Repository) AllForCase(ctx context.Context, caseRef string) ([]domain.Record, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT`+recordSelectCols+`
		FROM statistics_records
		WHERE case_ref = $1
		ORDER BY change_time, ingest_time
	`, caseRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Append writes one record. SequenceID is assigned by the database.
func (r *Repository) Append(ctx context.Context, record domain.Record) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO statistics_records (
			case_ref, version, resend, change_time, ingest_time,
			status, owning_unit, worker, handling_type, received_time,
			decision_time, completed_time, outcome, outcome_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, NULLIF($13, ''), NULLIF($14, ''))
	`,
		record.CaseRef,
		record.Version,
		record.Resend,
		record.ChangeTime,
		record.IngestTime,
		record.Status,
		record.OwningUnit,
		record.Worker,
		record.HandlingType,
		record.ReceivedTime,
		record.DecisionTime,
		record.CompletedTime,
		record.Outcome,
		record.OutcomeReason,
	)
	return err
}

// AppendMany writes a full record series in order.
func (r *Repository) AppendMany(ctx context.Context, records []domain.Record) error {
	for _, record := range records {
		if err := r.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time check that Repository implements StatisticsRepository
var _ StatisticsRepository = (*Repository)(nil)
