package domain

import "time"

// Case statuses reported by the case-flow system.
const (
	CaseStatusOpened          = "OPENED"
	CaseStatusUnderProcessing = "UNDER_PROCESSING"
	CaseStatusWaiting         = "WAITING"
	CaseStatusClosed          = "CLOSED"
)

// Sub-statuses that mark a case change as sent back to the submitter for
// rework. A record's outcome rationale is only populated for these.
const (
	SubStatusReturned       = "RETURNED"
	SubStatusReturnedRework = "RETURNED_FOR_REWORK"
)

// IsReturnedSubStatus reports whether the sub-status indicates a
// return-to-sender change.
func IsReturnedSubStatus(subStatus string) bool {
	return subStatus == SubStatusReturned || subStatus == SubStatusReturnedRework
}

// Outcome codes carried by terminal cases.
const (
	OutcomeApproved  = "APPROVED"
	OutcomeDenied    = "DENIED"
	OutcomeDismissed = "DISMISSED"
)

// EntitlementPeriod is one granted entitlement on an approved case.
type EntitlementPeriod struct {
	Type string
	From time.Time
	To   *time.Time
}

// Case is the case-flow system's view of a case plus its full status-change
// history, as returned by the case repository. History is ordered by time.
type Case struct {
	Ref          string
	ReceivedTime time.Time
	Status       string
	ActivityCode string
	// Automatic marks cases handled without a caseworker; their owning unit
	// is a fixed sentinel rather than a real organizational unit.
	Automatic bool
	// LastCompletedWorker is the case-flow system's own record of who last
	// completed an activity on the case.
	LastCompletedWorker string
	OutcomeCode         string
	DecisionTime        *time.Time
	CompletedTime       *time.Time
	EntitlementPeriods  []EntitlementPeriod
	History             []CaseStatusChanged
}

// Terminal reports whether the case is closed.
func (c Case) Terminal() bool {
	return c.Status == CaseStatusClosed
}

// LastChange returns the newest history entry, or false for a case without
// history.
func (c Case) LastChange() (CaseStatusChanged, bool) {
	if len(c.History) == 0 {
		return CaseStatusChanged{}, false
	}
	return c.History[len(c.History)-1], true
}

// ChangeAt returns the newest history entry at or before the given time, or
// false when the case had no history yet at that point.
func (c Case) ChangeAt(at time.Time) (CaseStatusChanged, bool) {
	var result CaseStatusChanged
	found := false
	for _, ch := range c.History {
		if ch.Timestamp.After(at) {
			break
		}
		result = ch
		found = true
	}
	return result, found
}
