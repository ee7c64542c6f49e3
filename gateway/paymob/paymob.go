package paymob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomvista/billing/gateway"
)

// customerIDPrefix namespaces Paymob customer ids in our subscription rows,
// mirroring how Paddle prefixes its own. Lets an adapter recognize which
// gateway a stored id belongs to.
const customerIDPrefix = "pmc_"

// Config holds the Paymob gateway settings.
type Config struct {
	SecretKey     string        `env:"PAYMOB_SECRET_KEY,required"`
	WebhookSecret string        `env:"PAYMOB_WEBHOOK_SECRET,required"`
	BaseURL       string        `env:"PAYMOB_BASE_URL" envDefault:"https://accept.paymob.com/api"`
	HTTPTimeout   time.Duration `env:"PAYMOB_HTTP_TIMEOUT" envDefault:"10s"`
}

// Adapter is the regional wallet-based gateway. Paymob has no official Go
// SDK, so the API surface this system needs (customers, hosted checkout) is
// called directly over HTTP.
type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) (*Adapter, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("paymob: secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paymob: webhook secret is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://accept.paymob.com/api"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

func (a *Adapter) Provider() gateway.Provider { return gateway.ProviderPaymob }

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw body carried
// in the X-Paymob-Signature header. Constant-time compare; nothing is parsed
// before this passes.
func (a *Adapter) VerifySignature(rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return fmt.Errorf("%w: missing signature header", gateway.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signatureHeader))) {
		return gateway.ErrSignatureInvalid
	}
	return nil
}

// paymobEvent is the webhook payload shape. Paymob nests the business object
// under obj and echoes the metadata we attached at checkout creation.
type paymobEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Obj        struct {
		SubscriptionID string     `json:"subscription_id"`
		CustomerID     string     `json:"customer_id"`
		PeriodStart    *time.Time `json:"period_start"`
		PeriodEnd      *time.Time `json:"period_end"`
		Metadata       struct {
			UserID string `json:"user_id"`
			PlanID string `json:"plan_id"`
		} `json:"metadata"`
	} `json:"obj"`
}

// Normalize translates a verified Paymob payload into the provider-agnostic
// event.
func (a *Adapter) Normalize(rawBody []byte) (*gateway.NormalizedEvent, error) {
	var pe paymobEvent
	if err := json.Unmarshal(rawBody, &pe); err != nil {
		return nil, errors.Join(gateway.ErrMalformedEvent, err)
	}
	if pe.ID == "" || pe.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", gateway.ErrMalformedEvent)
	}

	kind, ok := mapEventType(pe.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", gateway.ErrUnsupportedEvent, pe.Type)
	}

	userID, err := uuid.Parse(pe.Obj.Metadata.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata.user_id %q is not a uuid", gateway.ErrMalformedEvent, pe.Obj.Metadata.UserID)
	}

	return &gateway.NormalizedEvent{
		Provider:           gateway.ProviderPaymob,
		EventID:            pe.ID,
		Kind:               kind,
		OccurredAt:         pe.OccurredAt,
		UserID:             userID,
		PlanID:             pe.Obj.Metadata.PlanID,
		PeriodStart:        pe.Obj.PeriodStart,
		PeriodEnd:          pe.Obj.PeriodEnd,
		ProviderSubID:      pe.Obj.SubscriptionID,
		ProviderCustomerID: pe.Obj.CustomerID,
	}, nil
}

func mapEventType(eventType string) (gateway.EventKind, bool) {
	switch eventType {
	case "subscription.activated", "subscription.renewed.activated":
		return gateway.KindSubscriptionActivated, true
	case "subscription.suspended":
		return gateway.KindSubscriptionPaused, true
	case "subscription.cancelled":
		return gateway.KindSubscriptionCancelled, true
	case "payment.succeeded":
		return gateway.KindPaymentSucceeded, true
	case "payment.failed":
		return gateway.KindPaymentFailed, true
	}
	return "", false
}

type customerRequest struct {
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

type customerResponse struct {
	ID string `json:"id"`
}

// EnsureCustomer reuses the stored customer id when it is a Paymob id and
// creates one otherwise.
func (a *Adapter) EnsureCustomer(ctx context.Context, existingID string, userID uuid.UUID, email string) (string, error) {
	if strings.HasPrefix(existingID, customerIDPrefix) {
		return existingID, nil
	}

	var resp customerResponse
	err := a.post(ctx, "/customers", customerRequest{
		Email:    email,
		Metadata: map[string]string{"user_id": userID.String()},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("paymob: create customer: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("paymob: create customer: %w: empty id in response", gateway.ErrMalformedEvent)
	}
	return resp.ID, nil
}

type checkoutRequest struct {
	CustomerID  string            `json:"customer_id"`
	PlanCode    string            `json:"plan_code"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type checkoutResponse struct {
	ID          string    `json:"id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateCheckoutLink creates a hosted wallet checkout session. user_id and
// plan_id ride along as metadata and come back on every webhook.
func (a *Adapter) CreateCheckoutLink(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("paymob: plan code is required for plan %q", req.PlanID)
	}
	if req.CustomerID == "" {
		return nil, errors.New("paymob: customer id is required")
	}

	var resp checkoutResponse
	err := a.post(ctx, "/checkouts", checkoutRequest{
		CustomerID:  req.CustomerID,
		PlanCode:    req.PriceID,
		AmountCents: req.Amount,
		Currency:    req.Currency,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
		Metadata: map[string]string{
			"user_id": req.UserID.String(),
			"plan_id": req.PlanID,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("paymob: create checkout: %w", err)
	}
	if resp.CheckoutURL == "" {
		return nil, gateway.ErrNoCheckoutURL
	}

	expires := resp.ExpiresAt
	if expires.IsZero() {
		expires = time.Now().Add(time.Hour)
	}

	return &gateway.CheckoutLink{
		Provider:  gateway.ProviderPaymob,
		URL:       resp.CheckoutURL,
		SessionID: resp.ID,
		ExpiresAt: expires,
	}, nil
}

// post sends an authenticated JSON request and decodes the response.
// Timeouts and 5xx responses fold into ErrProviderUnavailable so the caller's
// retry policy can see them; 4xx responses are terminal.
func (a *Adapter) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+a.cfg.SecretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Join(gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Join(gateway.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ gateway.Adapter = (*Adapter)(nil)
