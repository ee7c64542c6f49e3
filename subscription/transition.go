package subscription

import (
	"time"

	"github.com/roomvista/billing/gateway"
)

// allowedTransitions is the status machine driven by webhook events.
// Reactivation from cancelled/expired is a legitimate resubscribe; a repeat
// of the current terminal status is absent on purpose so a redelivered
// cancellation with a fresh event id leaves the row untouched.
var allowedTransitions = map[Status]map[Status]bool{
	StatusTrial:     {StatusActive: true, StatusPaused: true, StatusCancelled: true, StatusExpired: true},
	StatusActive:    {StatusActive: true, StatusPaused: true, StatusCancelled: true, StatusExpired: true},
	StatusPaused:    {StatusActive: true, StatusCancelled: true, StatusExpired: true},
	StatusCancelled: {StatusActive: true},
	StatusExpired:   {StatusActive: true},
}

func canTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// statusAffecting reports whether an event kind competes for status ordering.
// Only these kinds consult the LastEventAt watermark; a late payment_failed
// carries no state and needs no ordering.
func statusAffecting(kind gateway.EventKind) bool {
	switch kind {
	case gateway.KindSubscriptionActivated,
		gateway.KindSubscriptionPaused,
		gateway.KindSubscriptionCancelled,
		gateway.KindPaymentSucceeded:
		return true
	}
	return false
}

// applyEvent mutates s according to a normalized event and reports whether
// anything changed. It is the one state-transition function both store
// implementations share; callers hold the row lock.
//
// Stale events, judged by event-carried time against the LastEventAt
// watermark, are skipped: an activation delivered after a newer cancellation
// must not resurrect the subscription.
func applyEvent(s *Subscription, ev *gateway.NormalizedEvent, freePlanID string, now time.Time) bool {
	if statusAffecting(ev.Kind) && !s.LastEventAt.IsZero() && !ev.OccurredAt.After(s.LastEventAt) {
		return false
	}

	changed := false

	switch ev.Kind {
	case gateway.KindSubscriptionActivated:
		if !canTransition(s.Status, StatusActive) {
			return false
		}
		s.Status = StatusActive
		s.Provider = ev.Provider
		if ev.ProviderSubID != "" {
			s.ProviderSubID = ev.ProviderSubID
		}
		if ev.ProviderCustomerID != "" {
			s.ProviderCustomerID = ev.ProviderCustomerID
		}
		if ev.PlanID != "" {
			s.PlanID = ev.PlanID
			s.PendingPlanID = ""
			s.CancelAtPeriodEnd = false
		}
		rollPeriod(s, ev)
		changed = true

	case gateway.KindSubscriptionPaused:
		if !canTransition(s.Status, StatusPaused) {
			return false
		}
		// Provider sub id is retained: paused subscriptions still exist
		// provider-side and can resume.
		s.Status = StatusPaused
		changed = true

	case gateway.KindSubscriptionCancelled:
		if !canTransition(s.Status, StatusCancelled) {
			return false
		}
		s.Status = StatusCancelled
		s.ProviderSubID = ""
		s.Provider = gateway.ProviderNone
		// Implicit downgrade: a pending plan set by a period_end change wins,
		// otherwise the lowest tier. ProviderCustomerID is retained so a later
		// resubscribe reuses the provider-side customer record.
		if s.PendingPlanID != "" {
			s.PlanID = s.PendingPlanID
		} else {
			s.PlanID = freePlanID
		}
		s.PendingPlanID = ""
		s.CancelAtPeriodEnd = false
		changed = true

	case gateway.KindPaymentSucceeded:
		// Renewal: roll the billing period forward and convert a trial to
		// active. No transition out of paused/cancelled on payment alone.
		if rollPeriod(s, ev) {
			if s.Status == StatusTrial {
				s.Status = StatusActive
			}
			if s.CancelAtPeriodEnd && s.PendingPlanID != "" {
				s.PlanID = s.PendingPlanID
				s.PendingPlanID = ""
				s.CancelAtPeriodEnd = false
			}
			changed = true
		}

	case gateway.KindPaymentFailed:
		// No status change; dunning is out of scope. The processor logs it.
		return false
	}

	if changed {
		s.LastEventAt = ev.OccurredAt
		s.UpdatedAt = now.UTC()
	}
	return changed
}

// rollPeriod adopts event-carried period bounds when they move the period
// forward. Returns true when bounds were updated.
func rollPeriod(s *Subscription, ev *gateway.NormalizedEvent) bool {
	if ev.PeriodStart == nil || ev.PeriodEnd == nil {
		return false
	}
	if !ev.PeriodEnd.After(*ev.PeriodStart) {
		return false
	}
	if ev.PeriodStart.Before(s.CurrentPeriodStart) {
		return false
	}
	s.CurrentPeriodStart = ev.PeriodStart.UTC()
	s.CurrentPeriodEnd = ev.PeriodEnd.UTC()
	return true
}
