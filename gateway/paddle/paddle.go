package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/PaddleHQ/paddle-go-sdk/v4/pkg/paddleerr"
	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
)

// customerIDPrefix is how Paddle customer ids are namespaced. Used to decide
// whether a stored customer id belongs to this gateway or to another one.
const customerIDPrefix = "ctm_"

// Config holds the Paddle gateway settings.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// Adapter is the card-based gateway built on the official Paddle SDK.
type Adapter struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// New creates the Paddle adapter. The environment selects the sandbox or
// production API host; anything else is a configuration error.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle: API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle: webhook secret is required")
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("paddle: invalid environment %q", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("paddle: create client: %w", err)
	}

	return &Adapter{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (a *Adapter) Provider() gateway.Provider { return gateway.ProviderPaddle }

// VerifySignature checks the Paddle-Signature header against the raw body.
// The SDK verifier wants an *http.Request, so one is rebuilt around the raw
// bytes; nothing is parsed before verification passes.
func (a *Adapter) VerifySignature(rawBody []byte, signatureHeader string) error {
	req, err := http.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(rawBody))
	if err != nil {
		return fmt.Errorf("paddle: build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signatureHeader)

	valid, err := a.verifier.Verify(req)
	if err != nil {
		return errors.Join(gateway.ErrSignatureInvalid, err)
	}
	if !valid {
		return gateway.ErrSignatureInvalid
	}
	return nil
}

// paddleEnvelope is the outer shape shared by all Paddle webhook payloads.
type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleBillingPeriod struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type paddleSubscriptionData struct {
	ID                   string               `json:"id"`
	CustomerID           string               `json:"customer_id"`
	CustomData           paddleCustomData     `json:"custom_data"`
	CurrentBillingPeriod *paddleBillingPeriod `json:"current_billing_period"`
}

type paddleTransactionData struct {
	ID             string               `json:"id"`
	SubscriptionID string               `json:"subscription_id"`
	CustomerID     string               `json:"customer_id"`
	CustomData     paddleCustomData     `json:"custom_data"`
	BillingPeriod  *paddleBillingPeriod `json:"billing_period"`
}

// paddleCustomData is the metadata echoed back from customer and checkout
// creation. user_id is the only trusted attribution channel; email matching
// is never used.
type paddleCustomData struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

// Normalize translates a verified Paddle payload into the provider-agnostic
// event. Event types outside the subscription lifecycle map to
// ErrUnsupportedEvent so the processor can acknowledge and drop them.
func (a *Adapter) Normalize(rawBody []byte) (*gateway.NormalizedEvent, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, errors.Join(gateway.ErrMalformedEvent, err)
	}
	if env.EventID == "" || env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event id or type", gateway.ErrMalformedEvent)
	}

	kind, ok := mapEventType(env.EventType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", gateway.ErrUnsupportedEvent, env.EventType)
	}

	ev := &gateway.NormalizedEvent{
		Provider:   gateway.ProviderPaddle,
		EventID:    env.EventID,
		Kind:       kind,
		OccurredAt: env.OccurredAt,
	}

	switch {
	case strings.HasPrefix(env.EventType, "subscription."):
		var data paddleSubscriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errors.Join(gateway.ErrMalformedEvent, err)
		}
		ev.ProviderSubID = data.ID
		ev.ProviderCustomerID = data.CustomerID
		ev.PlanID = data.CustomData.PlanID
		if data.CurrentBillingPeriod != nil {
			ev.PeriodStart = data.CurrentBillingPeriod.StartsAt
			ev.PeriodEnd = data.CurrentBillingPeriod.EndsAt
		}
		if err := setUserID(ev, data.CustomData.UserID); err != nil {
			return nil, err
		}

	case strings.HasPrefix(env.EventType, "transaction."):
		var data paddleTransactionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errors.Join(gateway.ErrMalformedEvent, err)
		}
		ev.ProviderSubID = data.SubscriptionID
		ev.ProviderCustomerID = data.CustomerID
		ev.PlanID = data.CustomData.PlanID
		if data.BillingPeriod != nil {
			ev.PeriodStart = data.BillingPeriod.StartsAt
			ev.PeriodEnd = data.BillingPeriod.EndsAt
		}
		if err := setUserID(ev, data.CustomData.UserID); err != nil {
			return nil, err
		}
	}

	return ev, nil
}

func setUserID(ev *gateway.NormalizedEvent, raw string) error {
	userID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: custom_data.user_id %q is not a uuid", gateway.ErrMalformedEvent, raw)
	}
	ev.UserID = userID
	return nil
}

// EnsureCustomer reuses the stored customer id when it is a Paddle id and
// creates a customer otherwise. A stored id from the other gateway (a user
// who moved countries) is ignored, not an error.
func (a *Adapter) EnsureCustomer(ctx context.Context, existingID string, userID uuid.UUID, email string) (string, error) {
	if strings.HasPrefix(existingID, customerIDPrefix) {
		return existingID, nil
	}

	customer, err := a.client.CustomersClient.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email: email,
		CustomData: paddle.CustomData{
			"user_id": userID.String(),
		},
	})
	if err != nil {
		return "", wrapAPIError("create customer", err)
	}
	return customer.ID, nil
}

// CreateCheckoutLink creates a Paddle transaction whose hosted checkout URL
// the frontend redirects to. user_id and plan_id ride along as custom data
// and come back on every webhook for that subscription.
func (a *Adapter) CreateCheckoutLink(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("paddle: price id is required for plan %q", req.PlanID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txnReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": req.UserID.String(),
			"plan_id": req.PlanID,
		},
	}
	if req.CustomerID != "" {
		txnReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if req.SuccessURL != "" {
		txnReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	txn, err := a.client.TransactionsClient.CreateTransaction(ctx, txnReq)
	if err != nil {
		return nil, wrapAPIError("create transaction", err)
	}

	if txn.Checkout == nil || txn.Checkout.URL == nil || *txn.Checkout.URL == "" {
		return nil, gateway.ErrNoCheckoutURL
	}

	return &gateway.CheckoutLink{
		Provider:  gateway.ProviderPaddle,
		URL:       *txn.Checkout.URL,
		SessionID: txn.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// wrapAPIError folds timeouts and server-side failures into
// ErrProviderUnavailable so the caller's retry policy can see them.
func wrapAPIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("paddle: %s: %w", op, errors.Join(gateway.ErrProviderUnavailable, err))
	}

	var apiErr *paddleerr.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("paddle: %s: %w", op, err)
	}

	// Transport-level failures (DNS, connection reset) are retryable.
	return fmt.Errorf("paddle: %s: %w", op, errors.Join(gateway.ErrProviderUnavailable, err))
}

func mapEventType(eventType string) (gateway.EventKind, bool) {
	switch eventType {
	case "subscription.created", "subscription.activated", "subscription.resumed":
		return gateway.KindSubscriptionActivated, true
	case "subscription.paused":
		return gateway.KindSubscriptionPaused, true
	case "subscription.canceled":
		return gateway.KindSubscriptionCancelled, true
	case "transaction.completed":
		return gateway.KindPaymentSucceeded, true
	case "transaction.payment_failed":
		return gateway.KindPaymentFailed, true
	}
	return "", false
}

var _ gateway.Adapter = (*Adapter)(nil)
