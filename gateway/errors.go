package gateway

import "errors"

var (
	// ErrSignatureInvalid rejects a webhook whose signature does not verify.
	// Responded to with a 4xx so the provider does not retry forever.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")

	// ErrMalformedEvent rejects a verified payload that cannot be normalized
	// (missing event id, unparseable user metadata, unknown shape).
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrUnsupportedEvent marks a well-formed event of a type this system does
	// not react to. Acknowledged to the provider and dropped.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")

	// ErrProviderUnavailable marks a timeout or 5xx from the gateway during a
	// user-initiated call. Retried once locally, then surfaced as retryable.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrProviderNotConfigured means no adapter is registered for the selected
	// gateway. Configuration bug, surfaces as a 500.
	ErrProviderNotConfigured = errors.New("payment provider not configured")

	// ErrNoCheckoutURL means the provider accepted the request but returned no
	// hosted checkout URL.
	ErrNoCheckoutURL = errors.New("no checkout URL returned from provider")
)
