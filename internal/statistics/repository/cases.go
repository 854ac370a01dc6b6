package repository

import (
	"context"
	"errors"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

// Get loads a case with its entitlement periods and full status-change
// history, ordered by event time.
func (r *Repository) Get(ctx context.Context, caseRef string) (domain.Case, error) {
	db := r.db(ctx)

	var c domain.Case
	var lastCompletedWorker, outcomeCode *string
	err := db.QueryRow(ctx, `
		SELECT ref, received_time, status, activity_code, automatic,
		       last_completed_worker, outcome_code, decision_time, completed_time
		FROM cases
		WHERE ref = $1
	`, caseRef).Scan(
		&c.Ref,
		&c.ReceivedTime,
		&c.Status,
		&c.ActivityCode,
		&c.Automatic,
		&lastCompletedWorker,
		&outcomeCode,
		&c.DecisionTime,
		&c.CompletedTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Case{}, apperr.NotFound("case not found").WithOp("repository.Get")
	}
	if err != nil {
		return domain.Case{}, err
	}
	c.LastCompletedWorker = deref(lastCompletedWorker)
	c.OutcomeCode = deref(outcomeCode)

	periods, err := r.entitlementPeriods(ctx, caseRef)
	if err != nil {
		return domain.Case{}, err
	}
	c.EntitlementPeriods = periods

	history, err := r.caseHistory(ctx, caseRef)
	if err != nil {
		return domain.Case{}, err
	}
	c.History = history

	return c, nil
}

func (r *Repository) entitlementPeriods(ctx context.Context, caseRef string) ([]domain.EntitlementPeriod, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT type, from_time, to_time
		FROM entitlement_periods
		WHERE case_ref = $1
		ORDER BY position
	`, caseRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]domain.EntitlementPeriod, 0)
	for rows.Next() {
		var period domain.EntitlementPeriod
		if err := rows.Scan(&period.Type, &period.From, &period.To); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (r *Repository) caseHistory(ctx context.Context, caseRef string) ([]domain.CaseStatusChanged, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT case_ref, event_time, status, sub_status, wait_reason,
		       activity_code, last_completed_activity_code, last_worker
		FROM case_status_events
		WHERE case_ref = $1
		ORDER BY event_time, id
	`, caseRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.CaseStatusChanged, 0)
	for rows.Next() {
		var change domain.CaseStatusChanged
		var subStatus, waitReason, activity, lastCompleted, lastWorker *string
		if err := rows.Scan(
			&change.CaseRef,
			&change.Timestamp,
			&change.Status,
			&subStatus,
			&waitReason,
			&activity,
			&lastCompleted,
			&lastWorker,
		); err != nil {
			return nil, err
		}
		change.SubStatus = deref(subStatus)
		change.WaitReason = deref(waitReason)
		change.ActivityCode = deref(activity)
		change.LastCompletedActivityCode = deref(lastCompleted)
		change.LastWorker = deref(lastWorker)
		history = append(history, change)
	}
	return history, rows.Err()
}

// RecordCaseStatusChange upserts the case row with the transition's view of
// the case and appends the transition to the status-change history.
func (r *Repository) RecordCaseStatusChange(ctx context.Context, params CaseStatusChangeParams) error {
	db := r.db(ctx)

	receivedTime := params.EventTime
	if params.ReceivedTime != nil {
		receivedTime = *params.ReceivedTime
	}
	automatic := false
	if params.Automatic != nil {
		automatic = *params.Automatic
	}

	_, err := db.Exec(ctx, `
		INSERT INTO cases (
			ref, received_time, status, activity_code, automatic,
			last_completed_worker, outcome_code, decision_time, completed_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ref) DO UPDATE SET
			status = EXCLUDED.status,
			activity_code = EXCLUDED.activity_code,
			automatic = CASE WHEN $10 THEN EXCLUDED.automatic ELSE cases.automatic END,
			last_completed_worker = COALESCE(NULLIF(EXCLUDED.last_completed_worker, ''), cases.last_completed_worker),
			outcome_code = COALESCE(NULLIF(EXCLUDED.outcome_code, ''), cases.outcome_code),
			decision_time = COALESCE(EXCLUDED.decision_time, cases.decision_time),
			completed_time = COALESCE(EXCLUDED.completed_time, cases.completed_time)
	`,
		params.CaseRef,
		receivedTime,
		params.Status,
		params.ActivityCode,
		automatic,
		params.LastCompletedWorker,
		params.OutcomeCode,
		params.DecisionTime,
		params.CompletedTime,
		params.Automatic != nil,
	)
	if err != nil {
		return err
	}

	if len(params.EntitlementPeriods) > 0 {
		if err := r.replaceEntitlementPeriods(ctx, params.CaseRef, params.EntitlementPeriods); err != nil {
			return err
		}
	}

	_, err = db.Exec(ctx, `
		INSERT INTO case_status_events (
			case_ref, event_time, status, sub_status, wait_reason,
			activity_code, last_completed_activity_code, last_worker
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
	`,
		params.CaseRef,
		params.EventTime,
		params.Status,
		params.SubStatus,
		params.WaitReason,
		params.ActivityCode,
		params.LastCompletedActivityCode,
		params.LastWorker,
	)
	return err
}

func (r *Repository) replaceEntitlementPeriods(ctx context.Context, caseRef string, periods []domain.EntitlementPeriod) error {
	db := r.db(ctx)

	if _, err := db.Exec(ctx, `DELETE FROM entitlement_periods WHERE case_ref = $1`, caseRef); err != nil {
		return err
	}
	for i, period := range periods {
		if _, err := db.Exec(ctx, `
			INSERT INTO entitlement_periods (case_ref, position, type, from_time, to_time)
			VALUES ($1, $2, $3, $4, $5)
		`, caseRef, i, period.Type, period.From, period.To); err != nil {
			return err
		}
	}
	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
