package webhook

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roomvista/billing/gateway"
	"github.com/roomvista/billing/pkg/logger"
	"github.com/roomvista/billing/subscription"
)

// ApplyStore is the slice of the subscription store the processor needs:
// atomic dedup plus state mutation in one call.
type ApplyStore interface {
	ApplyEvent(ctx context.Context, ev *gateway.NormalizedEvent) (*subscription.Subscription, error)
}

// Processor drives the webhook pipeline: verify signature, normalize, apply.
// Every step that rejects a delivery classifies it so the HTTP layer can pick
// the right status code, and providers see a 2xx for anything that must not
// be redelivered.
type Processor struct {
	adapters map[gateway.Provider]gateway.Adapter
	store    ApplyStore
	log      *slog.Logger
}

type Option func(*Processor)

func WithLogger(log *slog.Logger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

func NewProcessor(adapters map[gateway.Provider]gateway.Adapter, store ApplyStore, opts ...Option) *Processor {
	if len(adapters) == 0 {
		panic("webhook: at least one adapter is required")
	}
	if store == nil {
		panic("webhook: apply store is required")
	}

	p := &Processor{adapters: adapters, store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one raw delivery for the given provider. Returns nil when
// the provider should see a 2xx: that covers applied events, duplicates, and
// event types this system ignores. Signature and parse failures surface so
// the transport can answer 4xx; store failures surface for a 5xx, letting the
// provider redeliver into the dedup log.
func (p *Processor) Process(ctx context.Context, provider gateway.Provider, rawBody []byte, signatureHeader string) error {
	adapter, ok := p.adapters[provider]
	if !ok {
		return gateway.ErrProviderNotConfigured
	}

	if err := adapter.VerifySignature(rawBody, signatureHeader); err != nil {
		// Possible forgery or secret rotation gone wrong; the payload is
		// untrusted so only its size is logged.
		p.log.WarnContext(ctx, "webhook signature rejected",
			logger.Provider(string(provider)),
			slog.Int("payload_bytes", len(rawBody)),
			logger.Error(err),
		)
		return err
	}

	ev, err := adapter.Normalize(rawBody)
	if err != nil {
		if errors.Is(err, gateway.ErrUnsupportedEvent) {
			p.log.DebugContext(ctx, "ignoring webhook event type",
				logger.Provider(string(provider)), logger.Error(err))
			return nil
		}
		p.log.ErrorContext(ctx, "webhook payload failed normalization",
			logger.Provider(string(provider)), logger.Error(err))
		return err
	}

	if ev.Kind == gateway.KindPaymentFailed {
		// No state change, but dunning needs a trace of every failed charge.
		p.log.WarnContext(ctx, "payment failed",
			logger.Provider(string(provider)),
			logger.UserID(ev.UserID),
			logger.EventID(ev.EventID),
		)
	}

	if _, err := p.store.ApplyEvent(ctx, ev); err != nil {
		if errors.Is(err, subscription.ErrDuplicateEvent) {
			p.log.DebugContext(ctx, "duplicate webhook delivery",
				logger.Provider(string(provider)), logger.EventID(ev.EventID))
			return nil
		}
		p.log.ErrorContext(ctx, "failed to apply webhook event",
			logger.Provider(string(provider)),
			logger.UserID(ev.UserID),
			logger.EventID(ev.EventID),
			logger.Error(err),
		)
		return err
	}

	p.log.InfoContext(ctx, "webhook event applied",
		logger.Provider(string(provider)),
		logger.UserID(ev.UserID),
		logger.EventID(ev.EventID),
		slog.String("kind", string(ev.Kind)),
	)
	return nil
}
