package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskProduceRecord = "statistics.record.produce"

const TaskReconcileCase = "statistics.case.reconcile"

// ProduceRecordPayload drives one record production attempt.
// OriginalEventTime is set on the first deferral and never changes afterwards,
// so a record produced after retries still carries the change time of the
// event that triggered it. AllowMissingUnit is set once the retry budget is
// spent.
type ProduceRecordPayload struct {
	CaseRef           string     `json:"caseRef"`
	RetryCount        int        `json:"retryCount"`
	OriginalEventTime *time.Time `json:"originalEventTime,omitempty"`
	AllowMissingUnit  bool       `json:"allowMissingUnit,omitempty"`
}

type ReconcileCasePayload struct {
	CaseRef string `json:"caseRef"`
}

func NewProduceRecordTask(payload ProduceRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProduceRecord, data), nil
}

func ParseProduceRecordPayload(task *asynq.Task) (ProduceRecordPayload, error) {
	var payload ProduceRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProduceRecordPayload{}, err
	}
	return payload, nil
}

func NewReconcileCaseTask(payload ReconcileCasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileCase, data), nil
}

func ParseReconcileCasePayload(task *asynq.Task) (ReconcileCasePayload, error) {
	var payload ReconcileCasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReconcileCasePayload{}, err
	}
	return payload, nil
}
