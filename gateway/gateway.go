package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider identifies a payment gateway.
type Provider string

const (
	// ProviderPaddle is the card-based gateway.
	ProviderPaddle Provider = "paddle"
	// ProviderPaymob is the regional wallet-based gateway.
	ProviderPaymob Provider = "paymob"
	// ProviderNone means the subscription has no billing linkage (free tier).
	ProviderNone Provider = "none"
)

// EventKind is the normalized, provider-agnostic webhook event type.
type EventKind string

const (
	KindSubscriptionActivated EventKind = "subscription_activated"
	KindSubscriptionPaused    EventKind = "subscription_paused"
	KindSubscriptionCancelled EventKind = "subscription_cancelled"
	KindPaymentSucceeded      EventKind = "payment_succeeded"
	KindPaymentFailed         EventKind = "payment_failed"
)

// NormalizedEvent is the single event shape the webhook processor consumes,
// regardless of which gateway produced it. UserID is recovered from metadata
// attached at customer/checkout creation time, never from email matching.
type NormalizedEvent struct {
	Provider   Provider
	EventID    string
	Kind       EventKind
	OccurredAt time.Time
	UserID     uuid.UUID

	// Optional fields, present depending on Kind.
	PlanID             string
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	ProviderSubID      string
	ProviderCustomerID string
}

// CheckoutRequest carries everything an adapter needs to create a hosted
// checkout session. UserID and PlanID are echoed back through provider
// metadata so webhooks can be attributed without guessing.
type CheckoutRequest struct {
	UserID     uuid.UUID
	PlanID     string // internal plan slug
	PriceID    string // provider's price/plan identifier
	CustomerID string // provider customer id, empty when not yet linked
	Email      string
	Amount     int64 // minor units, from the local price table
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CheckoutLink represents a hosted checkout session.
type CheckoutLink struct {
	Provider  Provider
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// Adapter is the per-gateway boundary. Each implementation owns signature
// verification for its provider's webhook format and translates provider
// payloads into NormalizedEvent. Adapters are constructed once at process
// start and passed by reference; they hold no request state.
type Adapter interface {
	Provider() Provider

	// VerifySignature authenticates a raw webhook body against the signature
	// header. It must run over the raw, unparsed bytes; no JSON parsing of
	// untrusted content happens before this check passes.
	VerifySignature(rawBody []byte, signatureHeader string) error

	// Normalize parses a verified payload into the provider-agnostic event.
	Normalize(rawBody []byte) (*NormalizedEvent, error)

	// EnsureCustomer returns the provider-side customer id for the user,
	// reusing existingID when it belongs to this gateway and creating a
	// customer otherwise. "Already exists" is a normal outcome here, not an
	// error path.
	EnsureCustomer(ctx context.Context, existingID string, userID uuid.UUID, email string) (string, error)

	// CreateCheckoutLink creates a hosted checkout session for the request.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)
}
