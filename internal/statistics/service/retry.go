package service

import "time"

// RetryAction is the retry policy's decision for a deferred production.
type RetryAction int

const (
	// RetryReschedule re-enqueues production at the original event time
	// after the policy's delay, with an incremented retry count.
	RetryReschedule RetryAction = iota
	// RetryProduceDegraded produces once more with a missing owning unit
	// allowed and stops retrying.
	RetryProduceDegraded
)

// RetryPolicy is the pure decision logic for deferred record productions.
// The original event time is frozen on the first deferral and carried
// unchanged across every retry; only the assignment facts are expected to
// improve while waiting.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Decide returns the action for a production attempt that came back with a
// missing required attribute after currentRetryCount earlier retries.
func (p RetryPolicy) Decide(currentRetryCount int) RetryAction {
	if currentRetryCount < p.MaxRetries {
		return RetryReschedule
	}
	return RetryProduceDegraded
}
