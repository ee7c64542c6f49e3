package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomvista/billing/pkg/pg"
	"github.com/roomvista/billing/plan"
)

// PGMeter is the PostgreSQL usage meter. Counters live in usage_records,
// keyed (user_id, resource, period_start); the increment is a single upsert
// so racing workers never lose an update.
type PGMeter struct {
	db *pgxpool.Pool
}

func NewPGMeter(db *pgxpool.Pool) *PGMeter {
	return &PGMeter{db: db}
}

func (m *PGMeter) Increment(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	var count int64
	err := m.db.QueryRow(ctx, `
		INSERT INTO usage_records (user_id, resource, period_start, count, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (user_id, resource, period_start)
		DO UPDATE SET count = usage_records.count + 1, updated_at = now()
		RETURNING count`,
		userID, resource, periodStart,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (m *PGMeter) Decrement(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	var count int64
	err := m.db.QueryRow(ctx, `
		UPDATE usage_records
		SET count = GREATEST(count - 1, 0), updated_at = now()
		WHERE user_id = $1 AND resource = $2 AND period_start = $3
		RETURNING count`,
		userID, resource, periodStart,
	).Scan(&count)
	if err != nil {
		// No row means nothing was ever counted; zero is the right answer.
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (m *PGMeter) Get(ctx context.Context, userID uuid.UUID, resource plan.Resource, periodStart time.Time) (int64, error) {
	var count int64
	err := m.db.QueryRow(ctx, `
		SELECT count FROM usage_records
		WHERE user_id = $1 AND resource = $2 AND period_start = $3`,
		userID, resource, periodStart,
	).Scan(&count)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (m *PGMeter) Reset(ctx context.Context, userID uuid.UUID, before time.Time) error {
	_, err := m.db.Exec(ctx, `
		DELETE FROM usage_records
		WHERE user_id = $1 AND period_start < $2`,
		userID, before,
	)
	return err
}

var _ Meter = (*PGMeter)(nil)
