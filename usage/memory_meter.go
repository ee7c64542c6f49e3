package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/plan"
)

type counterKey struct {
	userID      uuid.UUID
	resource    plan.Resource
	periodStart time.Time
}

// MemoryMeter is an in-memory Meter with the same atomicity guarantees as
// PGMeter. Used in tests and local development.
type MemoryMeter struct {
	mu       sync.Mutex
	counters map[counterKey]int64
}

func NewMemoryMeter() *MemoryMeter {
	return &MemoryMeter{counters: make(map[counterKey]int64)}
}

func (m *MemoryMeter) Increment(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := counterKey{userID, resource, periodStart.UTC()}
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemoryMeter) Decrement(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := counterKey{userID, resource, periodStart.UTC()}
	if m.counters[key] > 0 {
		m.counters[key]--
	}
	return m.counters[key], nil
}

func (m *MemoryMeter) Get(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counters[counterKey{userID, resource, periodStart.UTC()}], nil
}

func (m *MemoryMeter) Reset(ctx context.Context, userID uuid.UUID, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.counters {
		if key.userID == userID && key.periodStart.Before(before) {
			delete(m.counters, key)
		}
	}
	return nil
}

var _ Meter = (*MemoryMeter)(nil)
