package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
	"github.com/roomvista/billing/plan"
)

// Status represents the billing state of a subscription. Transitions are
// driven exclusively by normalized webhook events; no client-visible call
// sets a status directly, keeping the provider the single source of truth.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// AllowsGatedActions reports whether premium, quota-metered actions are
// permitted in this status. Paused keeps read-only access; cancelled and
// expired behave like a forced downgrade to the lowest tier.
func (s Status) AllowsGatedActions() bool {
	return s == StatusTrial || s == StatusActive
}

// Effective selects when a plan change takes effect.
type Effective string

const (
	EffectiveImmediate Effective = "immediate"
	EffectivePeriodEnd Effective = "period_end"
)

// Subscription is the single row-per-user source of truth for billing state.
// Exactly one row exists per user from the moment the account is created.
type Subscription struct {
	UserID             uuid.UUID
	PlanID             string
	Status             Status
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Provider           gateway.Provider
	ProviderCustomerID string
	ProviderSubID      string
	CancelAtPeriodEnd  bool
	PendingPlanID      string
	// LastEventAt is the event-carried timestamp of the newest applied webhook
	// event. Conflict resolution for out-of-order delivery compares against
	// this watermark, never against arrival order.
	LastEventAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds the bootstrap subscription created the instant a user account
// exists: the given plan on a trial if the plan carries one, active
// otherwise, with no provider linkage and a one-month billing period.
func New(userID uuid.UUID, p plan.Plan, now time.Time) *Subscription {
	now = now.UTC()
	status := StatusActive
	periodEnd := now.AddDate(0, 1, 0)
	if p.TrialDays > 0 {
		status = StatusTrial
		periodEnd = now.AddDate(0, 0, p.TrialDays)
	}
	return &Subscription{
		UserID:             userID,
		PlanID:             p.ID,
		Status:             status,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		Provider:           gateway.ProviderNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (s *Subscription) IsActive() bool    { return s.Status == StatusActive }
func (s *Subscription) IsTrialing() bool  { return s.Status == StatusTrial }
func (s *Subscription) IsCancelled() bool { return s.Status == StatusCancelled }

// InPeriod reports whether t falls inside the current billing period. The
// period is owned by the subscription, not by calendar months.
func (s *Subscription) InPeriod(t time.Time) bool {
	return !t.Before(s.CurrentPeriodStart) && t.Before(s.CurrentPeriodEnd)
}

// PeriodStartAt returns the billing period start that covers now, which is
// the key usage counters are filed under. Provider-linked rows get their
// periods rolled by renewal webhooks; rows without linkage (the free tier,
// and cancelled rows after downgrade) never receive webhooks, so their period
// advances here in month-length steps. Quotas reset on the rolled boundary
// without any row write.
func (s *Subscription) PeriodStartAt(now time.Time) time.Time {
	if s.Provider != gateway.ProviderNone || now.Before(s.CurrentPeriodEnd) {
		return s.CurrentPeriodStart
	}
	start := s.CurrentPeriodStart
	for !now.Before(start.AddDate(0, 1, 0)) {
		start = start.AddDate(0, 1, 0)
	}
	return start
}

func (s *Subscription) clone() *Subscription {
	dup := *s
	return &dup
}
