package entitlement

import "errors"

// Expected denials: returned to callers for flow control, never error-logged.
var (
	ErrUnknownAction        = errors.New("unknown action")
	ErrQuotaExceeded        = errors.New("quota exceeded for current period")
	ErrFeatureNotAvailable  = errors.New("feature not available on current plan")
	ErrSubscriptionInactive = errors.New("subscription does not allow this action")
)
