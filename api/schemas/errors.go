package schemas

import "errors"

// Sentinel errors reported synchronously to the caller as refusals.
// None of them indicate partial mutation; the operation either completed
// or left all state untouched.
var (
	// ErrAlreadyActive is returned when starting a mission while another
	// one is still open.
	ErrAlreadyActive = errors.New("a mission is already active")

	// ErrNoActiveMission is returned when operating on mission state with
	// no mission open.
	ErrNoActiveMission = errors.New("no active mission")

	// ErrInvalidStateName is returned when an unparseable lifecycle state
	// is requested.
	ErrInvalidStateName = errors.New("invalid mission state name")
)
