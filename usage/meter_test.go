package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomvista/billing/plan"
)

func TestMemoryMeter_IncrementReturnsRunningCount(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	period := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for want := int64(1); want <= 5; want++ {
		got, err := m.Increment(ctx, userID, plan.ResourceGenerations, period)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	count, err := m.Get(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestMemoryMeter_ConcurrentIncrementsNeverLoseUpdates(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	period := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Increment(ctx, userID, plan.ResourceGenerations, period)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := m.Get(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)
	assert.EqualValues(t, workers, count)
}

func TestMemoryMeter_PeriodsAreIsolated(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for range 3 {
		_, err := m.Increment(ctx, userID, plan.ResourceGenerations, july)
		require.NoError(t, err)
	}

	// First action of the new period counts from a fresh zero.
	count, err := m.Increment(ctx, userID, plan.ResourceGenerations, august)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	prev, err := m.Get(ctx, userID, plan.ResourceGenerations, july)
	require.NoError(t, err)
	assert.EqualValues(t, 3, prev)
}

func TestMemoryMeter_ResourcesAreIsolated(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	period := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := m.Increment(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)

	count, err := m.Get(ctx, userID, plan.ResourceRoomScans, period)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryMeter_DecrementFloorsAtZero(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	period := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	count, err := m.Decrement(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = m.Increment(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)
	count, err = m.Decrement(ctx, userID, plan.ResourceGenerations, period)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryMeter_ResetDropsOnlyOlderPeriods(t *testing.T) {
	t.Parallel()

	m := NewMemoryMeter()
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()
	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := m.Increment(ctx, userID, plan.ResourceGenerations, july)
	require.NoError(t, err)
	_, err = m.Increment(ctx, userID, plan.ResourceGenerations, august)
	require.NoError(t, err)
	_, err = m.Increment(ctx, other, plan.ResourceGenerations, july)
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx, userID, august))

	count, err := m.Get(ctx, userID, plan.ResourceGenerations, july)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = m.Get(ctx, userID, plan.ResourceGenerations, august)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = m.Get(ctx, other, plan.ResourceGenerations, july)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		limit int64
		used  int64
		want  int64
	}{
		{name: "untouched", limit: 5, used: 0, want: 5},
		{name: "partial", limit: 5, used: 3, want: 2},
		{name: "exhausted", limit: 5, used: 5, want: 0},
		{name: "overrun clamps to zero", limit: 5, used: 9, want: 0},
		{name: "unlimited", limit: plan.Unlimited, used: 1_000_000, want: plan.Unlimited},
		{name: "zero limit", limit: 0, used: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Remaining(tt.limit, tt.used))
		})
	}
}
