package repository

import "errors"

// Sentinel errors surfaced by capacity-coupled writes. The service layer
// translates them into the API error taxonomy.
var (
	// ErrDuplicateRegistration is returned when a registration already
	// exists for the (event, user) pair.
	ErrDuplicateRegistration = errors.New("registration already exists for event and user")

	// ErrCapacityExhausted is returned when a confirmed-seat count check
	// fails inside the registration transaction.
	ErrCapacityExhausted = errors.New("event capacity exhausted")

	// ErrInvalidState is returned when a lifecycle write targets a
	// registration whose current status does not allow it.
	ErrInvalidState = errors.New("registration state does not allow this operation")
)
