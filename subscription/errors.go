package subscription

import "errors"

var (
	// ErrNotFound means no subscription row exists for the user. Every
	// existing user has exactly one row by construction, so this surfaces
	// only for unknown users.
	ErrNotFound = errors.New("subscription not found")

	ErrAlreadyExists = errors.New("subscription already exists")

	// ErrDuplicateEvent is not a failure: the (provider, event id) pair was
	// already applied and the delivery is acknowledged without reapplying.
	ErrDuplicateEvent = errors.New("webhook event already applied")

	ErrInvalidEffective = errors.New("invalid plan change effective mode")

	// ErrTooManyCheckoutAttempts throttles checkout initiation per user.
	ErrTooManyCheckoutAttempts = errors.New("too many checkout attempts, try again later")
)
