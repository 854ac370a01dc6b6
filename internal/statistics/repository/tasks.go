package repository

import (
	"context"

	"casestats_backend/internal/statistics/domain"
)

// TasksForCase returns every task associated with the case, each with its
// lifecycle events ordered by event time.
func (r *Repository) TasksForCase(ctx context.Context, caseRef string) ([]domain.Task, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT t.ref, t.case_ref,
		       e.event_time, e.kind, e.activity_code, e.unit, e.reserved_by
		FROM tasks t
		JOIN task_events e ON e.task_ref = t.ref
		WHERE t.case_ref = $1
		ORDER BY t.ref, e.event_time, e.id
	`, caseRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var taskRef string
		var taskCaseRef *string
		var ev domain.TaskEvent
		var activity, unit, reservedBy *string
		if err := rows.Scan(
			&taskRef,
			&taskCaseRef,
			&ev.Timestamp,
			&ev.Kind,
			&activity,
			&unit,
			&reservedBy,
		); err != nil {
			return nil, err
		}
		ev.TaskRef = taskRef
		ev.CaseRef = deref(taskCaseRef)
		ev.ActivityCode = deref(activity)
		ev.Unit = deref(unit)
		ev.ReservedBy = deref(reservedBy)

		if len(tasks) == 0 || tasks[len(tasks)-1].Ref != taskRef {
			tasks = append(tasks, domain.Task{Ref: taskRef, CaseRef: deref(taskCaseRef)})
		}
		last := &tasks[len(tasks)-1]
		last.Events = append(last.Events, ev)
	}
	return tasks, rows.Err()
}

// RecordTaskEvent upserts the task row and appends the lifecycle event. Task
// events without a case reference are persisted too; they become relevant if
// the task is later associated with a case.
func (r *Repository) RecordTaskEvent(ctx context.Context, params TaskEventParams) error {
	db := r.db(ctx)

	_, err := db.Exec(ctx, `
		INSERT INTO tasks (ref, case_ref)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (ref) DO UPDATE SET
			case_ref = COALESCE(NULLIF(EXCLUDED.case_ref, ''), tasks.case_ref)
	`, params.TaskRef, params.CaseRef)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO task_events (task_ref, case_ref, event_time, kind, activity_code, unit, reserved_by)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
	`,
		params.TaskRef,
		params.CaseRef,
		params.EventTime,
		params.Kind,
		params.ActivityCode,
		params.Unit,
		params.ReservedBy,
	)
	return err
}
