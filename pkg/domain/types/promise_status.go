package types

import "fmt"

// PromiseStatus represents the lifecycle status of a promise.
// Transitions are monotonic: pending may become fulfilled or broken,
// and neither terminal state may change again.
type PromiseStatus string

const (
	PromiseStatusPending   PromiseStatus = "pending"
	PromiseStatusFulfilled PromiseStatus = "fulfilled"
	PromiseStatusBroken    PromiseStatus = "broken"
)

// AllPromiseStatuses returns all valid promise statuses
func AllPromiseStatuses() []PromiseStatus {
	return []PromiseStatus{
		PromiseStatusPending,
		PromiseStatusFulfilled,
		PromiseStatusBroken,
	}
}

// IsValid checks if the promise status is valid
func (s PromiseStatus) IsValid() bool {
	switch s {
	case PromiseStatusPending, PromiseStatusFulfilled, PromiseStatusBroken:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can never change again
func (s PromiseStatus) IsTerminal() bool {
	return s == PromiseStatusFulfilled || s == PromiseStatusBroken
}

// CanTransitionTo reports whether a transition from s to next is allowed
func (s PromiseStatus) CanTransitionTo(next PromiseStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return s == PromiseStatusPending && next.IsTerminal()
}

// String returns the string representation of the promise status
func (s PromiseStatus) String() string {
	return string(s)
}

// ParsePromiseStatus parses a string into a PromiseStatus
func ParsePromiseStatus(s string) (PromiseStatus, error) {
	status := PromiseStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid promise status: %s", s)
	}
	return status, nil
}
