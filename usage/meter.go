package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/plan"
)

// Usage is one counter row: how many units of a resource a user consumed in
// a billing period. Periods are keyed by their start instant so counters from
// different periods never bleed into each other.
type Usage struct {
	UserID      uuid.UUID
	Resource    plan.Resource
	PeriodStart time.Time
	Count       int64
	UpdatedAt   time.Time
}

// Meter records and reads per-period resource consumption. Increment must be
// atomic under concurrent callers: two racing increments yield two distinct
// counts, never a lost update.
type Meter interface {
	// Increment adds one unit and returns the post-increment count for the
	// period. Creates the counter row on first use.
	Increment(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error)

	// Decrement compensates an increment that was recorded but whose action
	// never ran (for example a duplicate request caught downstream). Never
	// goes below zero.
	Decrement(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error)

	// Get returns the current count for the period. A missing row reads as
	// zero, not as an error.
	Get(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error)

	// Reset deletes the user's counters for periods older than the given
	// period start. Run on period rollover to keep the table lean.
	Reset(ctx context.Context, userID uuid.UUID, before time.Time) error
}

// Remaining computes how many units are left given a plan limit and a
// consumed count. Unlimited plans always have plan.Unlimited remaining.
func Remaining(limit, used int64) int64 {
	if limit == plan.Unlimited {
		return plan.Unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
