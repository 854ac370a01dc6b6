package service

import (
	"testing"
	"time"
)

func TestRetryPolicyDecide(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, Delay: 15 * time.Minute}

	for count := 0; count < 5; count++ {
		if got := policy.Decide(count); got != RetryReschedule {
			t.Fatalf("expected reschedule at retry %d, got %v", count, got)
		}
	}
	if got := policy.Decide(5); got != RetryProduceDegraded {
		t.Fatalf("expected degraded production once retries are spent, got %v", got)
	}
	if got := policy.Decide(12); got != RetryProduceDegraded {
		t.Fatalf("expected degraded production past the cap, got %v", got)
	}
}
