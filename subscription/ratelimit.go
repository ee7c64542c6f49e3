package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// checkoutLimitScript implements a fixed window counter: first increment in
// the window sets the expiry, later increments ride it out.
var checkoutLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// CheckoutLimiter throttles checkout initiation per user. Checkout creates
// provider-side objects, so hammering it must be stopped before the provider
// call, not after.
type CheckoutLimiter struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
	prefix string
}

func NewCheckoutLimiter(client redis.UniversalClient, limit int64, window time.Duration) *CheckoutLimiter {
	return &CheckoutLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "billing:checkout",
	}
}

// Allow consumes one attempt for the user. Returns
// ErrTooManyCheckoutAttempts when the window budget is exhausted. Redis
// errors bubble up: a broken limiter must not silently open the gate wide.
func (l *CheckoutLimiter) Allow(ctx context.Context, userID uuid.UUID) error {
	if l == nil || l.client == nil || l.limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("%s:%s", l.prefix, userID)
	count, err := checkoutLimitScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if count > l.limit {
		return ErrTooManyCheckoutAttempts
	}
	return nil
}
