package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
)

// MemoryStore is an in-memory Store with the same semantics as PGStore,
// including atomic event dedup. Used in tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	subs       map[uuid.UUID]*Subscription
	applied    map[string]time.Time // "provider/event_id" -> processed at
	freePlanID string
}

func NewMemoryStore(freePlanID string) *MemoryStore {
	return &MemoryStore{
		subs:       make(map[uuid.UUID]*Subscription),
		applied:    make(map[string]time.Time),
		freePlanID: freePlanID,
	}
}

func (st *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub, ok := st.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.clone(), nil
}

func (st *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.subs[sub.UserID]; exists {
		return ErrAlreadyExists
	}
	st.subs[sub.UserID] = sub.clone()
	return nil
}

func (st *MemoryStore) ApplyPlanChange(ctx context.Context, userID uuid.UUID, newPlanID string, effective Effective) (*Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub, ok := st.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}

	switch effective {
	case EffectiveImmediate:
		sub.PlanID = newPlanID
		sub.PendingPlanID = ""
		sub.CancelAtPeriodEnd = false
	case EffectivePeriodEnd:
		sub.PendingPlanID = newPlanID
		sub.CancelAtPeriodEnd = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEffective, effective)
	}
	sub.UpdatedAt = time.Now().UTC()
	return sub.clone(), nil
}

func (st *MemoryStore) ApplyEvent(ctx context.Context, ev *gateway.NormalizedEvent) (*Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := string(ev.Provider) + "/" + ev.EventID
	if _, dup := st.applied[key]; dup {
		return nil, ErrDuplicateEvent
	}

	sub, ok := st.subs[ev.UserID]
	if !ok {
		return nil, ErrNotFound
	}

	applyEvent(sub, ev, st.freePlanID, time.Now())
	st.applied[key] = time.Now().UTC()
	return sub.clone(), nil
}

func (st *MemoryStore) SetCustomerLink(ctx context.Context, userID uuid.UUID, customerID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub, ok := st.subs[userID]
	if !ok {
		return ErrNotFound
	}
	sub.ProviderCustomerID = customerID
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (st *MemoryStore) Delete(ctx context.Context, userID uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.subs, userID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
