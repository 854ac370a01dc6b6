package transport

import (
	"time"

	"casestats_backend/internal/statistics/domain"
	"casestats_backend/internal/statistics/repository"
)

// CaseStatusEventRequest is one status transition reported by the case-flow
// system, optionally carrying a snapshot of the case's metadata.
type CaseStatusEventRequest struct {
	CaseID                    string    `json:"caseId" validate:"required"`
	EventTime                 time.Time `json:"eventTime" validate:"required"`
	Status                    string    `json:"status" validate:"required,oneof=OPENED UNDER_PROCESSING WAITING CLOSED"`
	SubStatus                 string    `json:"subStatus,omitempty"`
	WaitReason                string    `json:"waitReason,omitempty"`
	ActivityCode              string    `json:"activityCode,omitempty"`
	LastCompletedActivityCode string    `json:"lastCompletedActivityCode,omitempty"`
	LastWorker                string    `json:"lastWorker,omitempty"`

	Case *CaseMetadata `json:"case,omitempty"`
}

// CaseMetadata is the case-level facts sent along with a status transition.
// Absent fields leave the stored values untouched.
type CaseMetadata struct {
	ReceivedTime        *time.Time               `json:"receivedTime,omitempty"`
	Automatic           *bool                    `json:"automatic,omitempty"`
	LastCompletedWorker string                   `json:"lastCompletedWorker,omitempty"`
	OutcomeCode         string                   `json:"outcomeCode,omitempty" validate:"omitempty,oneof=APPROVED DENIED DISMISSED"`
	DecisionTime        *time.Time               `json:"decisionTime,omitempty"`
	CompletedTime       *time.Time               `json:"completedTime,omitempty"`
	EntitlementPeriods  []EntitlementPeriodInput `json:"entitlementPeriods,omitempty" validate:"dive"`
}

// EntitlementPeriodInput is one granted entitlement period.
type EntitlementPeriodInput struct {
	Type string     `json:"type" validate:"required"`
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// ToParams converts the request into ingest-store parameters.
func (r CaseStatusEventRequest) ToParams() repository.CaseStatusChangeParams {
	params := repository.CaseStatusChangeParams{
		CaseRef:                   r.CaseID,
		EventTime:                 r.EventTime,
		Status:                    r.Status,
		SubStatus:                 r.SubStatus,
		WaitReason:                r.WaitReason,
		ActivityCode:              r.ActivityCode,
		LastCompletedActivityCode: r.LastCompletedActivityCode,
		LastWorker:                r.LastWorker,
	}
	if r.Case != nil {
		params.ReceivedTime = r.Case.ReceivedTime
		params.Automatic = r.Case.Automatic
		params.LastCompletedWorker = r.Case.LastCompletedWorker
		params.OutcomeCode = r.Case.OutcomeCode
		params.DecisionTime = r.Case.DecisionTime
		params.CompletedTime = r.Case.CompletedTime
		for _, period := range r.Case.EntitlementPeriods {
			converted := domain.EntitlementPeriod{
				Type: period.Type,
				To:   period.To,
			}
			if period.From != nil {
				converted.From = *period.From
			}
			params.EntitlementPeriods = append(params.EntitlementPeriods, converted)
		}
	}
	return params
}

// TaskEventRequest is one task lifecycle event reported by the
// task-assignment system. CaseID may be empty for tasks not yet associated
// with a case.
type TaskEventRequest struct {
	TaskID       string    `json:"taskId" validate:"required"`
	CaseID       string    `json:"caseId,omitempty"`
	EventTime    time.Time `json:"eventTime" validate:"required"`
	Kind         string    `json:"kind" validate:"required,oneof=CREATED RESERVED UNRESERVED CLOSED UPDATED"`
	ActivityCode string    `json:"activityCode,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	ReservedBy   string    `json:"reservedBy,omitempty"`
}

// ToParams converts the request into ingest-store parameters.
func (r TaskEventRequest) ToParams() repository.TaskEventParams {
	return repository.TaskEventParams{
		TaskRef:      r.TaskID,
		CaseRef:      r.CaseID,
		EventTime:    r.EventTime,
		Kind:         domain.TaskEventKind(r.Kind),
		ActivityCode: r.ActivityCode,
		Unit:         r.Unit,
		ReservedBy:   r.ReservedBy,
	}
}

// EventAcceptedResponse acknowledges an ingested event.
type EventAcceptedResponse struct {
	CaseID string `json:"caseId,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

// ReconcileAcceptedResponse acknowledges a queued reconciliation.
type ReconcileAcceptedResponse struct {
	CaseID string `json:"caseId"`
}

// RecordResponse is one statistics record as exposed on the read endpoint.
type RecordResponse struct {
	CaseID        string     `json:"caseId"`
	SequenceID    int64      `json:"sequenceId"`
	Version       string     `json:"version"`
	Resend        bool       `json:"resend"`
	ChangeTime    time.Time  `json:"changeTime"`
	IngestTime    time.Time  `json:"ingestTime"`
	Status        string     `json:"status"`
	OwningUnit    string     `json:"owningUnit,omitempty"`
	Worker        string     `json:"worker,omitempty"`
	HandlingType  string     `json:"handlingType"`
	ReceivedTime  time.Time  `json:"receivedTime"`
	DecisionTime  *time.Time `json:"decisionTime,omitempty"`
	CompletedTime *time.Time `json:"completedTime,omitempty"`
	Outcome       string     `json:"outcome,omitempty"`
	OutcomeReason string     `json:"outcomeReason,omitempty"`
}

// RecordListResponse wraps a case's full record series.
type RecordListResponse struct {
	CaseID  string           `json:"caseId"`
	Records []RecordResponse `json:"records"`
}

// NewRecordListResponse maps a record series to its response form.
func NewRecordListResponse(caseRef string, records []domain.Record) RecordListResponse {
	out := RecordListResponse{CaseID: caseRef, Records: make([]RecordResponse, 0, len(records))}
	for _, record := range records {
		out.Records = append(out.Records, RecordResponse{
			CaseID:        record.CaseRef,
			SequenceID:    record.SequenceID,
			Version:       record.Version,
			Resend:        record.Resend,
			ChangeTime:    record.ChangeTime,
			IngestTime:    record.IngestTime,
			Status:        record.Status,
			OwningUnit:    record.OwningUnit,
			Worker:        record.Worker,
			HandlingType:  record.HandlingType,
			ReceivedTime:  record.ReceivedTime,
			DecisionTime:  record.DecisionTime,
			CompletedTime: record.CompletedTime,
			Outcome:       record.Outcome,
			OutcomeReason: record.OutcomeReason,
		})
	}
	return out
}
