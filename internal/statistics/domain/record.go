package domain

import "time"

// RecordVersion is the contract version stamped on every produced record.
const RecordVersion = "1.0"

// OpeningTolerance bounds how far a record's change time may sit from the
// case's received time and still count as the case's opening record. The same
// tolerance matches persisted and recomputed records during a history merge.
const OpeningTolerance = 10 * time.Millisecond

// Record is one row of the statistics feed: the state of a case at one point
// in business time, with all derived descriptive fields. Records are the only
// durable artifact of the reconciliation core.
//
// Identity is CaseRef; ordering is (ChangeTime, IngestTime). SequenceID,
// Version, Resend, IngestTime, and ChangeTime are volatile: they vary between
// productions of semantically identical records and are excluded from
// duplicate comparison.
type Record struct {
	CaseRef    string
	SequenceID int64
	Version    string
	Resend     bool
	ChangeTime time.Time
	IngestTime time.Time

	Status        string
	OwningUnit    string
	Worker        string
	HandlingType  string
	ReceivedTime  time.Time
	DecisionTime  *time.Time
	CompletedTime *time.Time
	Outcome       string
	OutcomeReason string
}

// Handling types reported on records.
const (
	HandlingManual    = "MANUAL"
	HandlingAutomatic = "AUTOMATIC"
)

// IsDuplicate reports whether two records are semantically equal: equal under
// every field outside the volatile set. A record that duplicates the latest
// persisted record for its case must not be written again.
func IsDuplicate(a, b Record) bool {
	return a.CaseRef == b.CaseRef &&
		a.Status == b.Status &&
		a.OwningUnit == b.OwningUnit &&
		a.Worker == b.Worker &&
		a.HandlingType == b.HandlingType &&
		a.ReceivedTime.Equal(b.ReceivedTime) &&
		equalTimePtr(a.DecisionTime, b.DecisionTime) &&
		equalTimePtr(a.CompletedTime, b.CompletedTime) &&
		a.Outcome == b.Outcome &&
		a.OutcomeReason == b.OutcomeReason
}

// WithinOpeningTolerance reports whether two timestamps are close enough to
// be treated as the same business point in time.
func WithinOpeningTolerance(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= OpeningTolerance
}

// Less orders records by (ChangeTime, IngestTime).
func (r Record) Less(other Record) bool {
	if !r.ChangeTime.Equal(other.ChangeTime) {
		return r.ChangeTime.Before(other.ChangeTime)
	}
	return r.IngestTime.Before(other.IngestTime)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
