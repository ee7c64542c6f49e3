package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
)

// Store persists subscriptions. One non-terminal row per user at all times;
// UserID is the primary key.
type Store interface {
	// Get retrieves the subscription for a user. Returns ErrNotFound only if
	// the user itself does not exist.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Create inserts the bootstrap row for a new user account.
	// Returns ErrAlreadyExists when the row is already there.
	Create(ctx context.Context, sub *Subscription) error

	// ApplyPlanChange performs a user-initiated plan change. Immediate changes
	// set the plan and leave status and period untouched (the billing period
	// is provider-owned). Period-end changes only record the pending plan and
	// the cancel flag; the webhook processor resolves them when the period-end
	// event arrives. Neither mode touches provider linkage: a downgrade to the
	// free plan must not drop linkage before the provider-side cancellation
	// completes.
	ApplyPlanChange(ctx context.Context, userID uuid.UUID, newPlanID string, effective Effective) (*Subscription, error)

	// ApplyEvent applies a normalized webhook event and records its
	// (provider, event id) pair in the dedup log within the same atomic unit.
	// Returns ErrDuplicateEvent when the pair was applied before; the losing
	// racer of two concurrent deliveries gets the same answer.
	ApplyEvent(ctx context.Context, ev *gateway.NormalizedEvent) (*Subscription, error)

	// SetCustomerLink records the provider customer id resolved during
	// checkout initiation so a later attempt reuses it. Which gateway the id
	// belongs to is encoded in the id itself; adapters only reuse ids they
	// recognize.
	SetCustomerLink(ctx context.Context, userID uuid.UUID, customerID string) error

	// Delete removes the user's subscription row on account deletion.
	// Idempotent: deleting an absent row is not an error. Billing logic
	// itself never deletes rows.
	Delete(ctx context.Context, userID uuid.UUID) error
}
