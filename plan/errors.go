package plan

import "errors"

var (
	// ErrPlanNotFound means an unseeded plan id was requested. This is a
	// configuration bug, not a user error, and is logged at error level by the
	// registry rather than silently defaulting.
	ErrPlanNotFound = errors.New("plan not found in catalog")

	ErrInvalidCatalog  = errors.New("invalid plan catalog")
	ErrInvalidCurrency = errors.New("invalid ISO 4217 currency code")
)
