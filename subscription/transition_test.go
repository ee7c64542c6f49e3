package subscription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomvista/billing/gateway"
	"github.com/roomvista/billing/plan"
)

func testPlan() plan.Plan {
	return plan.Plan{ID: "free", Tier: 0, Price: plan.Money{Amount: 0, Currency: "USD"}}
}

func activatedEvent(userID uuid.UUID, at time.Time) *gateway.NormalizedEvent {
	start := at
	end := at.AddDate(0, 1, 0)
	return &gateway.NormalizedEvent{
		Provider:           gateway.ProviderPaddle,
		EventID:            "evt_" + uuid.NewString(),
		Kind:               gateway.KindSubscriptionActivated,
		OccurredAt:         at,
		UserID:             userID,
		PlanID:             "pro",
		PeriodStart:        &start,
		PeriodEnd:          &end,
		ProviderSubID:      "sub_123",
		ProviderCustomerID: "ctm_123",
	}
}

func TestApplyEvent_Activation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)

	changed := applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now)
	require.True(t, changed)

	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, gateway.ProviderPaddle, sub.Provider)
	assert.Equal(t, "sub_123", sub.ProviderSubID)
	assert.Equal(t, "ctm_123", sub.ProviderCustomerID)
}

func TestApplyEvent_StaleActivationAfterCancellation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)

	// Activation and cancellation were emitted in order but delivered
	// reversed. The cancellation (newer by event-carried time) lands first.
	activation := activatedEvent(userID, now.Add(1*time.Minute))
	cancellation := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaddle,
		EventID:    "evt_cancel",
		Kind:       gateway.KindSubscriptionCancelled,
		OccurredAt: now.Add(2 * time.Minute),
		UserID:     userID,
	}

	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(30*time.Second)), "free", now))
	require.True(t, applyEvent(sub, cancellation, "free", now))
	assert.Equal(t, StatusCancelled, sub.Status)

	// The older activation must not resurrect the subscription.
	changed := applyEvent(sub, activation, "free", now)
	assert.False(t, changed)
	assert.Equal(t, StatusCancelled, sub.Status)
	assert.Empty(t, sub.ProviderSubID)
}

func TestApplyEvent_Cancellation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now))

	cancel := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaddle,
		EventID:    "evt_cancel",
		Kind:       gateway.KindSubscriptionCancelled,
		OccurredAt: now.Add(2 * time.Minute),
		UserID:     userID,
	}
	require.True(t, applyEvent(sub, cancel, "free", now))

	assert.Equal(t, StatusCancelled, sub.Status)
	assert.Empty(t, sub.ProviderSubID)
	assert.Equal(t, gateway.ProviderNone, sub.Provider)
	assert.Equal(t, "free", sub.PlanID)
	// Customer record is retained for a later resubscribe.
	assert.Equal(t, "ctm_123", sub.ProviderCustomerID)

	// A redelivered cancellation with a fresh event id changes nothing.
	later := *cancel
	later.EventID = "evt_cancel_retry"
	later.OccurredAt = now.Add(3 * time.Minute)
	assert.False(t, applyEvent(sub, &later, "free", now))
	assert.Equal(t, StatusCancelled, sub.Status)
}

func TestApplyEvent_PauseBlocksFromCancelled(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	sub.Status = StatusCancelled

	pause := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaymob,
		Kind:       gateway.KindSubscriptionPaused,
		OccurredAt: now.Add(time.Minute),
		UserID:     userID,
	}
	assert.False(t, applyEvent(sub, pause, "free", now))
	assert.Equal(t, StatusCancelled, sub.Status)
}

func TestApplyEvent_PauseKeepsProviderSubID(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now))

	pause := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaddle,
		Kind:       gateway.KindSubscriptionPaused,
		OccurredAt: now.Add(2 * time.Minute),
		UserID:     userID,
	}
	require.True(t, applyEvent(sub, pause, "free", now))
	assert.Equal(t, StatusPaused, sub.Status)
	assert.Equal(t, "sub_123", sub.ProviderSubID)
}

func TestApplyEvent_PaymentSucceededRollsPeriod(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now))
	firstPeriodStart := sub.CurrentPeriodStart

	nextStart := sub.CurrentPeriodEnd
	nextEnd := nextStart.AddDate(0, 1, 0)
	renewal := &gateway.NormalizedEvent{
		Provider:    gateway.ProviderPaddle,
		EventID:     "evt_renewal",
		Kind:        gateway.KindPaymentSucceeded,
		OccurredAt:  nextStart,
		UserID:      userID,
		PeriodStart: &nextStart,
		PeriodEnd:   &nextEnd,
	}
	require.True(t, applyEvent(sub, renewal, "free", now))

	assert.True(t, sub.CurrentPeriodStart.After(firstPeriodStart))
	assert.Equal(t, nextEnd, sub.CurrentPeriodEnd)
}

func TestApplyEvent_PaymentSucceededResolvesPendingPlan(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now))

	// A period_end plan change waits for the next period to start.
	sub.PendingPlanID = "business"
	sub.CancelAtPeriodEnd = true

	nextStart := sub.CurrentPeriodEnd
	nextEnd := nextStart.AddDate(0, 1, 0)
	renewal := &gateway.NormalizedEvent{
		Provider:    gateway.ProviderPaddle,
		EventID:     "evt_renewal",
		Kind:        gateway.KindPaymentSucceeded,
		OccurredAt:  nextStart,
		UserID:      userID,
		PeriodStart: &nextStart,
		PeriodEnd:   &nextEnd,
	}
	require.True(t, applyEvent(sub, renewal, "free", now))

	assert.Equal(t, "business", sub.PlanID)
	assert.Empty(t, sub.PendingPlanID)
	assert.False(t, sub.CancelAtPeriodEnd)
}

func TestPeriodStartAt(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	sub := New(uuid.New(), testPlan(), created)

	// Inside the bootstrap period nothing moves.
	assert.Equal(t, created, sub.PeriodStartAt(created.AddDate(0, 0, 20)))

	// A free-tier row never sees renewal webhooks: two months later the
	// period has rolled locally twice, so usage keys onto a fresh counter.
	assert.Equal(t, created.AddDate(0, 2, 0), sub.PeriodStartAt(created.AddDate(0, 2, 5)))

	// Provider-linked rows are rolled by webhooks only; a past period end
	// means a renewal event is late, not that the period moved.
	linked := New(uuid.New(), testPlan(), created)
	require.True(t, applyEvent(linked, activatedEvent(linked.UserID, created.Add(time.Minute)), "free", created))
	assert.Equal(t, linked.CurrentPeriodStart, linked.PeriodStartAt(created.AddDate(0, 3, 0)))
}

func TestApplyEvent_PaymentFailedIsNoOp(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	sub := New(userID, testPlan(), now)
	require.True(t, applyEvent(sub, activatedEvent(userID, now.Add(time.Minute)), "free", now))
	before := *sub

	failed := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaddle,
		EventID:    "evt_fail",
		Kind:       gateway.KindPaymentFailed,
		OccurredAt: now.Add(2 * time.Minute),
		UserID:     userID,
	}
	assert.False(t, applyEvent(sub, failed, "free", now))
	assert.Equal(t, before, *sub)
}
