package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput rejects a run before scheduling starts.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnknownStrategy is returned for an unregistered strategy name.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// DiagnosticKind classifies a soft scheduling failure.
type DiagnosticKind string

const (
	// DiagnosticUnknownField means no lecturer at all lists the session field.
	DiagnosticUnknownField DiagnosticKind = "UNKNOWN_FIELD"
	// DiagnosticNoEligibleLecturer means qualified lecturers exist but none is usable for the role.
	DiagnosticNoEligibleLecturer DiagnosticKind = "NO_ELIGIBLE_LECTURER"
	// DiagnosticCapacityExhausted means every qualified lecturer is at a workload cap.
	DiagnosticCapacityExhausted DiagnosticKind = "CAPACITY_EXHAUSTED"
)

// Diagnostic records a role left unassigned. It never aborts a run.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	SessionID string         `json:"sessionId"`
	Role      Role           `json:"role,omitempty"`
	Message   string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s session=%s role=%s: %s", d.Kind, d.SessionID, d.Role, d.Message)
}
