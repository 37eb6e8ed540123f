package session

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusActive     Status = "active"
	StatusCommitting Status = "committing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusArchived   Status = "archived"
)

var transitions = map[Status][]Status{
	StatusActive:     {StatusCommitting, StatusArchived},
	StatusCommitting: {StatusCompleted, StatusFailed},
}

// InitialStatus returns the status of a newly started session.
func InitialStatus() Status {
	return StatusActive
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsOpen reports whether the session still counts against the one open
// session per scope.
func (s Status) IsOpen() bool {
	return s == StatusActive
}

// CanTransition reports whether from -> to is a valid lifecycle step.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionResult captures a status change and its timestamp side effects.
type TransitionResult struct {
	NewStatus   Status
	CommittedAt *time.Time
	CompletedAt *time.Time
	ArchivedAt  *time.Time
}

// ApplyTransition validates from -> to and returns the timestamps to set.
// The caller passes the current time to enable testing.
func ApplyTransition(from, to Status, now time.Time) (TransitionResult, error) {
	if !CanTransition(from, to) {
		return TransitionResult{}, fmt.Errorf("invalid session transition %s -> %s", from, to)
	}
	result := TransitionResult{NewStatus: to}
	switch to {
	case StatusCommitting:
		result.CommittedAt = &now
	case StatusCompleted:
		result.CompletedAt = &now
	case StatusArchived:
		result.ArchivedAt = &now
	}
	return result, nil
}

// Percent returns the progress of a commit run. A run with nothing to
// process is complete.
func Percent(processed, total int) int {
	if total <= 0 {
		return 100
	}
	if processed >= total {
		return 100
	}
	if processed <= 0 {
		return 0
	}
	return processed * 100 / total
}
