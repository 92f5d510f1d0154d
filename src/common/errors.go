package common

import "errors"

// Domain error taxonomy. Request-path callers surface these to the
// client and never retry; the task processor retries persistence
// failures up to the attempt cap.
var (
	// ErrInvalidState means the requested transition is not permitted
	// from the booking's current status.
	ErrInvalidState = errors.New("transition not permitted from current status")

	// ErrNotPayable means the booking is not in a payable state
	// (must be confirmed with payment still pending).
	ErrNotPayable = errors.New("booking is not payable")

	// ErrNotDisputable means the booking has no funds in escrow or
	// already has an open dispute.
	ErrNotDisputable = errors.New("booking is not disputable")

	// ErrPaymentRequired means completion was requested before funds
	// were placed in escrow.
	ErrPaymentRequired = errors.New("booking has not been paid")

	// ErrConflict means a concurrent writer changed the row between
	// read and update. The client should re-read and retry.
	ErrConflict = errors.New("booking was modified concurrently")

	// ErrBadFilter means a list filter value could not be parsed.
	ErrBadFilter = errors.New("invalid filter value")
)
