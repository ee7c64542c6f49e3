package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomvista/billing/gateway"
	"github.com/roomvista/billing/pkg/pg"
)

// PGStore is the PostgreSQL subscription store. freePlanID is the lowest-tier
// plan a cancelled subscription implicitly downgrades to.
type PGStore struct {
	db         *pgxpool.Pool
	freePlanID string
}

func NewPGStore(db *pgxpool.Pool, freePlanID string) *PGStore {
	return &PGStore{db: db, freePlanID: freePlanID}
}

const subscriptionColumns = `user_id, plan_id, status, current_period_start, current_period_end,
	provider, provider_customer_id, provider_subscription_id,
	cancel_at_period_end, pending_plan_id, last_event_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.UserID, &s.PlanID, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.Provider, &s.ProviderCustomerID, &s.ProviderSubID,
		&s.CancelAtPeriodEnd, &s.PendingPlanID, &s.LastEventAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (st *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return scanSubscription(st.db.QueryRow(ctx, query, userID))
}

func (st *PGStore) Create(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := st.db.Exec(ctx, query,
		sub.UserID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.Provider, sub.ProviderCustomerID, sub.ProviderSubID,
		sub.CancelAtPeriodEnd, sub.PendingPlanID, sub.LastEventAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (st *PGStore) ApplyPlanChange(ctx context.Context, userID uuid.UUID, newPlanID string, effective Effective) (*Subscription, error) {
	var query string
	switch effective {
	case EffectiveImmediate:
		// Plan swaps in place; status and period stay provider-owned.
		query = `
			UPDATE subscriptions
			SET plan_id = $2, pending_plan_id = '', cancel_at_period_end = FALSE, updated_at = now()
			WHERE user_id = $1
			RETURNING ` + subscriptionColumns
	case EffectivePeriodEnd:
		query = `
			UPDATE subscriptions
			SET pending_plan_id = $2, cancel_at_period_end = TRUE, updated_at = now()
			WHERE user_id = $1
			RETURNING ` + subscriptionColumns
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEffective, effective)
	}

	return scanSubscription(st.db.QueryRow(ctx, query, userID, newPlanID))
}

// ApplyEvent runs the dedup-log insert and the state mutation in one
// transaction. The unique constraint on (provider, event_id) makes the
// check-and-insert atomic: of two processors racing on the same delivery,
// exactly one applies and the other observes ErrDuplicateEvent.
func (st *PGStore) ApplyEvent(ctx context.Context, ev *gateway.NormalizedEvent) (*Subscription, error) {
	tx, err := st.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO webhook_events (provider, event_id, processed_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (provider, event_id) DO NOTHING`,
		ev.Provider, ev.EventID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDuplicateEvent
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 FOR UPDATE`
	sub, err := scanSubscription(tx.QueryRow(ctx, query, ev.UserID))
	if err != nil {
		return nil, err
	}

	if applyEvent(sub, ev, st.freePlanID, time.Now()) {
		_, err = tx.Exec(ctx, `
			UPDATE subscriptions
			SET plan_id = $2, status = $3, current_period_start = $4, current_period_end = $5,
				provider = $6, provider_customer_id = $7, provider_subscription_id = $8,
				cancel_at_period_end = $9, pending_plan_id = $10, last_event_at = $11, updated_at = $12
			WHERE user_id = $1`,
			sub.UserID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
			sub.Provider, sub.ProviderCustomerID, sub.ProviderSubID,
			sub.CancelAtPeriodEnd, sub.PendingPlanID, sub.LastEventAt, sub.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

func (st *PGStore) SetCustomerLink(ctx context.Context, userID uuid.UUID, customerID string) error {
	tag, err := st.db.Exec(ctx,
		`UPDATE subscriptions SET provider_customer_id = $2, updated_at = now() WHERE user_id = $1`,
		userID, customerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete cascades on account deletion. Subscriptions are never hard-deleted
// by billing logic itself.
func (st *PGStore) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := st.db.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID)
	return err
}

var _ Store = (*PGStore)(nil)
