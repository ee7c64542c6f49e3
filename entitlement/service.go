package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/pkg/logger"
	"github.com/roomvista/billing/plan"
	"github.com/roomvista/billing/subscription"
	"github.com/roomvista/billing/usage"
)

// DenyReason explains why an action was denied. It is stable API surface:
// product code branches on it to pick the right upsell or error screen.
type DenyReason string

const (
	DenyNone              DenyReason = ""
	DenySubscriptionState DenyReason = "subscription_inactive"
	DenyFeatureMissing    DenyReason = "feature_not_in_plan"
	DenyQuotaExhausted    DenyReason = "quota_exhausted"
)

// Decision is the answer to "may this user perform this action right now".
// Remaining is plan.Unlimited for unmetered actions and unlimited plans.
type Decision struct {
	Allowed   bool
	Reason    DenyReason
	PlanID    string
	Remaining int64
}

// SubscriptionGetter is the slice of the subscription store this service
// needs. Accepting the narrow interface keeps entitlement checks testable
// without a database.
type SubscriptionGetter interface {
	Get(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

// Service answers entitlement questions by combining the subscription row,
// the plan catalog, and the usage meter. It holds no state of its own.
type Service struct {
	subs  SubscriptionGetter
	meter usage.Meter
	plans *plan.Registry
	log   *slog.Logger
}

// Option configures optional Service dependencies.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(subs SubscriptionGetter, meter usage.Meter, plans *plan.Registry, opts ...Option) *Service {
	if subs == nil {
		panic("entitlement: subscription getter is required")
	}
	if meter == nil {
		panic("entitlement: usage meter is required")
	}
	if plans == nil {
		panic("entitlement: plan registry is required")
	}

	s := &Service{subs: subs, meter: meter, plans: plans, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanPerformAction checks status, then feature, then quota, in that order:
// the reason reported is the first gate that failed, which is also the
// cheapest one to fix from the user's point of view. The check is advisory;
// RecordUsage is the authoritative, race-free gate.
func (s *Service) CanPerformAction(ctx context.Context, userID uuid.UUID, action Action) (Decision, error) {
	req, ok := actionTable[action]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	p := s.effectivePlan(ctx, sub)
	d := Decision{PlanID: p.ID, Remaining: plan.Unlimited}

	// view_history and other ungated actions short-circuit: always allowed,
	// whatever the billing state.
	if req.feature == "" && req.resource == "" {
		d.Allowed = true
		return d, nil
	}

	// Paused is a billing dispute in flight: the row keeps its paid plan,
	// but every gated action is blocked until the provider resumes it.
	// Cancelled and expired fall through and evaluate as the lowest tier.
	if sub.Status == subscription.StatusPaused {
		d.Reason = DenySubscriptionState
		return d, nil
	}

	if req.feature != "" && !p.HasFeature(req.feature) {
		d.Reason = DenyFeatureMissing
		return d, nil
	}

	if req.resource != "" {
		// A resource the plan does not define has a zero allowance; nothing
		// is implicitly unlimited.
		limit, ok := p.Limit(req.resource)
		if !ok {
			limit = 0
		}
		if limit != plan.Unlimited {
			used, err := s.meter.Get(ctx, userID, req.resource, sub.PeriodStartAt(time.Now().UTC()))
			if err != nil {
				return Decision{}, err
			}
			d.Remaining = usage.Remaining(limit, used)
			if d.Remaining == 0 {
				d.Reason = DenyQuotaExhausted
				return d, nil
			}
		}
	}

	d.Allowed = true
	return d, nil
}

// RecordUsage consumes one unit for a metered action. The increment happens
// first and the limit check second, against the returned count, so two racing
// requests at the quota boundary cannot both slip through; the loser is
// compensated back down and denied. Unmetered actions return 0 without
// touching the meter.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID, action Action) (int64, error) {
	req, ok := actionTable[action]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	if sub.Status == subscription.StatusPaused && (req.feature != "" || req.resource != "") {
		return 0, fmt.Errorf("%w: subscription is paused", ErrSubscriptionInactive)
	}

	p := s.effectivePlan(ctx, sub)
	if req.feature != "" && !p.HasFeature(req.feature) {
		return 0, fmt.Errorf("%w: %q requires feature %q", ErrFeatureNotAvailable, action, req.feature)
	}
	if req.resource == "" {
		return 0, nil
	}

	periodStart := sub.PeriodStartAt(time.Now().UTC())
	count, err := s.meter.Increment(ctx, userID, req.resource, periodStart)
	if err != nil {
		return 0, err
	}

	limit, ok := p.Limit(req.resource)
	if !ok {
		limit = 0
	}
	if limit != plan.Unlimited && count > limit {
		if _, derr := s.meter.Decrement(ctx, userID, req.resource, periodStart); derr != nil {
			s.log.ErrorContext(ctx, "failed to compensate over-limit increment",
				logger.UserID(userID), slog.String("resource", string(req.resource)), logger.Error(derr))
		}
		return 0, fmt.Errorf("%w: %s", ErrQuotaExceeded, req.resource)
	}
	return count, nil
}

// Remaining reports the remaining quota for every metered resource of the
// user's effective plan. Feeds the account page's usage widget.
func (s *Service) Remaining(ctx context.Context, userID uuid.UUID) (map[plan.Resource]int64, error) {
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := s.effectivePlan(ctx, sub)
	periodStart := sub.PeriodStartAt(time.Now().UTC())
	out := make(map[plan.Resource]int64, len(p.Limits))
	for res, limit := range p.Limits {
		if limit == plan.Unlimited {
			out[res] = plan.Unlimited
			continue
		}
		used, err := s.meter.Get(ctx, userID, res, periodStart)
		if err != nil {
			return nil, err
		}
		out[res] = usage.Remaining(limit, used)
	}
	return out, nil
}

// effectivePlan resolves what the user is actually entitled to right now.
// A status that blocks gated actions demotes the user to the lowest tier
// regardless of what plan the row still carries; a plan id that no longer
// exists in the catalog does the same rather than failing every request.
func (s *Service) effectivePlan(ctx context.Context, sub *subscription.Subscription) plan.Plan {
	if !sub.Status.AllowsGatedActions() {
		return s.plans.LowestTier()
	}

	p, err := s.plans.Get(sub.PlanID)
	if err != nil {
		s.log.ErrorContext(ctx, "subscription references unseeded plan, demoting to lowest tier",
			logger.UserID(sub.UserID), logger.PlanID(sub.PlanID))
		return s.plans.LowestTier()
	}
	return p
}
