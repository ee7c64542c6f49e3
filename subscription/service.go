package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
	"github.com/roomvista/billing/pkg/logger"
	"github.com/roomvista/billing/plan"
)

// Config carries the checkout-facing settings of the subscription service.
type Config struct {
	CheckoutTimeout time.Duration `env:"BILLING_CHECKOUT_TIMEOUT" envDefault:"10s"`
	RetryBackoff    time.Duration `env:"BILLING_CHECKOUT_RETRY_BACKOFF" envDefault:"500ms"`
	SuccessURL      string        `env:"BILLING_CHECKOUT_SUCCESS_URL,required"`
	CancelURL       string        `env:"BILLING_CHECKOUT_CANCEL_URL,required"`
}

// Pricing is the localized price view for a country, including which gateway
// would bill it.
type Pricing struct {
	Provider gateway.Provider
	Currency string
	Amounts  map[string]int64
}

// Service owns user-initiated subscription operations: account bootstrap,
// plan changes, and checkout initiation. Billing status itself is mutated
// only through webhook events (see the webhook package).
type Service struct {
	cfg      Config
	store    Store
	plans    *plan.Registry
	router   *gateway.Router
	adapters map[gateway.Provider]gateway.Adapter
	limiter  *CheckoutLimiter
	log      *slog.Logger
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithCheckoutLimiter enables per-user throttling of checkout initiation.
func WithCheckoutLimiter(l *CheckoutLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the subscription service. Adapters are constructed once at
// process start and passed by reference; a nil required dependency is a
// programming error and panics to fail fast.
func NewService(cfg Config, store Store, plans *plan.Registry, router *gateway.Router, adapters map[gateway.Provider]gateway.Adapter, opts ...Option) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if plans == nil {
		panic("subscription: plan registry is required")
	}
	if router == nil {
		panic("subscription: gateway router is required")
	}
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		plans:    plans,
		router:   router,
		adapters: adapters,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateForUser seeds the bootstrap subscription for a freshly created user
// account: lowest tier, no provider linkage. Idempotent: an existing row is
// returned unchanged.
func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub := New(userID, s.plans.LowestTier(), time.Now())
	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return s.store.Get(ctx, userID)
		}
		return nil, err
	}
	return sub, nil
}

// Get returns the user's subscription.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.Get(ctx, userID)
}

// ChangePlan applies a user-initiated plan change. The target plan must be
// seeded; anything else is a configuration bug surfaced loudly. Downgrades to
// the free plan keep provider linkage until the provider-side cancellation
// webhook lands, so the user is never billed while locally entitled to
// nothing.
func (s *Service) ChangePlan(ctx context.Context, userID uuid.UUID, planID string, effective Effective) (*Subscription, error) {
	if _, err := s.plans.Get(planID); err != nil {
		return nil, err
	}
	return s.store.ApplyPlanChange(ctx, userID, planID, effective)
}

// GetLocalPricing resolves the pricing-page view for a country: localized
// amounts plus the gateway that country routes to. Pure read, no I/O.
func (s *Service) GetLocalPricing(countryCode string) Pricing {
	local := s.plans.LocalPricing(countryCode)
	return Pricing{
		Provider: s.router.Select(countryCode),
		Currency: local.Currency,
		Amounts:  local.Amounts,
	}
}

// InitiateCheckout routes the user's country to a gateway, ensures a
// provider-side customer exists, and creates a hosted checkout session.
// Provider calls run under a bounded timeout and are retried once on
// transient failure; there is never a cross-provider fallback, which would
// create state on the wrong gateway.
func (s *Service) InitiateCheckout(ctx context.Context, userID uuid.UUID, planID, countryCode, email string) (*gateway.CheckoutLink, error) {
	if err := s.limiter.Allow(ctx, userID); err != nil {
		return nil, err
	}

	target, err := s.plans.Get(planID)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The free plan needs no provider: it is a plan change, not a checkout.
	if target.IsFree() {
		if _, err := s.store.ApplyPlanChange(ctx, userID, target.ID, EffectivePeriodEnd); err != nil {
			return nil, err
		}
		return &gateway.CheckoutLink{
			Provider:  gateway.ProviderNone,
			URL:       s.cfg.SuccessURL,
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}, nil
	}

	provider := s.router.Select(countryCode)
	adapter, ok := s.adapters[provider]
	if !ok {
		s.log.ErrorContext(ctx, "no adapter registered for selected gateway",
			logger.Provider(string(provider)), logger.UserID(userID))
		return nil, gateway.ErrProviderNotConfigured
	}

	var customerID string
	err = s.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		customerID, err = adapter.EnsureCustomer(callCtx, sub.ProviderCustomerID, userID, email)
		return err
	})
	if err != nil {
		return nil, err
	}

	if customerID != sub.ProviderCustomerID {
		if err := s.store.SetCustomerLink(ctx, userID, customerID); err != nil {
			return nil, err
		}
	}

	local := s.plans.LocalPricing(countryCode)
	req := gateway.CheckoutRequest{
		UserID:     userID,
		PlanID:     target.ID,
		PriceID:    priceIDFor(provider, target),
		CustomerID: customerID,
		Email:      email,
		Amount:     local.Amounts[target.ID],
		Currency:   local.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	}

	var link *gateway.CheckoutLink
	err = s.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		link, err = adapter.CreateCheckoutLink(callCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// withRetry runs a provider call under the checkout timeout and retries
// exactly once, after a short backoff, on ErrProviderUnavailable.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	call := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CheckoutTimeout)
		defer cancel()
		return fn(callCtx)
	}

	err := call()
	if err == nil || !errors.Is(err, gateway.ErrProviderUnavailable) {
		return err
	}

	select {
	case <-ctx.Done():
		return errors.Join(gateway.ErrProviderUnavailable, ctx.Err())
	case <-time.After(s.cfg.RetryBackoff):
	}
	return call()
}

func priceIDFor(provider gateway.Provider, p plan.Plan) string {
	switch provider {
	case gateway.ProviderPaddle:
		return p.PaddlePriceID
	case gateway.ProviderPaymob:
		return p.PaymobPlanCode
	}
	return ""
}
