package wizard

import (
	"errors"
	"fmt"
)

// Kind classifies wizard failures so front ends can map them consistently.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindSessionMissing  Kind = "session_missing"
	KindOutOfOrder      Kind = "out_of_order"
	KindRejected        Kind = "rejected"
	KindNetwork         Kind = "network"
	KindPlanNotFound    Kind = "plan_not_found"
	KindPlanIncomplete  Kind = "plan_incomplete"
	KindPlanUnavailable Kind = "plan_unavailable"
	KindPending         Kind = "pending"
	KindSuperseded      Kind = "superseded"
)

// User-facing messages.
const (
	msgNetwork         = "Network error. Please try again later."
	msgSessionMissing  = "User session not found. Please register again."
	msgPlanNotFound    = "User profile not found. Please complete your profile setup first."
	msgPlanIncomplete  = "Unable to generate plan. Please ensure all required information is provided in your profile."
	msgPlanUnavailable = "No plan data available. Please complete your profile setup."
	msgSuperseded      = "The session was restarted before the response arrived."
)

// Error is a typed wizard failure. Redirect, when set, is the step the user
// should be sent to.
type Error struct {
	Kind     Kind
	Step     Step
	Redirect Step
	Field    string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a wizard error in err's chain, or "".
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// RedirectOf returns the corrective step carried by err, or zero.
func RedirectOf(err error) Step {
	var we *Error
	if errors.As(err, &we) {
		return we.Redirect
	}
	return 0
}
