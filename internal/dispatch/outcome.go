package dispatch

import (
	"fmt"
	"strings"

	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
)

type Kind string

const (
	KindLogin         Kind = "login"
	KindRegister      Kind = "register"
	KindLogout        Kind = "logout"
	KindCreateListing Kind = "create-listing"
	KindApply         Kind = "apply"
	KindApprove       Kind = "approve"
	KindReject        Kind = "reject"
	KindRefresh       Kind = "refresh"
	KindVerify        Kind = "verify"
)

type State int

const (
	Idle State = iota
	Validating
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome describes one action instance. It is reported to the observer on
// every transition and returned once the instance is terminal.
type Outcome struct {
	ID      string
	Kind    Kind
	Target  string
	State   State
	Message string
	Err     error
	Posting *listing.Posting
}

func (o Outcome) Terminal() bool {
	return o.State == Succeeded || o.State == Failed
}

// ValidationError is missing or malformed local input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthorizationError means the acting role lacks the capability.
type AuthorizationError struct {
	Kind Kind
	Role role.Role
}

func (e *AuthorizationError) Error() string {
	if e.Role == role.Unauthenticated {
		return fmt.Sprintf("please log in to %s", verb(e.Kind))
	}
	return fmt.Sprintf("%s accounts cannot %s", strings.ToLower(e.Role.String()), verb(e.Kind))
}

// ErrInFlight is returned when the same action on the same target has not
// finished yet.
var ErrInFlight = &ValidationError{Message: "this action is already in progress"}

func verb(k Kind) string {
	switch k {
	case KindCreateListing:
		return "post a job"
	case KindApply:
		return "apply for jobs"
	case KindApprove:
		return "approve postings"
	case KindReject:
		return "reject postings"
	}
	return string(k)
}
