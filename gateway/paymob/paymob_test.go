package paymob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomvista/billing/gateway"
)

const testWebhookSecret = "whsec_paymob_test"

func testAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()

	a, err := New(Config{
		SecretKey:     "sk_test_paymob",
		WebhookSecret: testWebhookSecret,
		BaseURL:       baseURL,
		HTTPTimeout:   2 * time.Second,
	})
	require.NoError(t, err)
	return a
}

func sign(t *testing.T, body []byte) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	a := testAdapter(t, "")
	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)

	require.NoError(t, a.VerifySignature(body, sign(t, body)))

	// Hex digests arrive in whatever case the sender picked.
	assert.NoError(t, a.VerifySignature(body, strings.ToUpper(sign(t, body))))

	assert.ErrorIs(t, a.VerifySignature(body, "deadbeef"), gateway.ErrSignatureInvalid)
	assert.ErrorIs(t, a.VerifySignature(body, ""), gateway.ErrSignatureInvalid)

	// Signature over different bytes must not verify.
	assert.ErrorIs(t, a.VerifySignature([]byte(`{"id":"evt_2"}`), sign(t, body)), gateway.ErrSignatureInvalid)
}

func TestNormalize_SubscriptionActivated(t *testing.T) {
	t.Parallel()

	a := testAdapter(t, "")
	userID := uuid.New()
	payload := fmt.Sprintf(`{
		"id": "pmev_8821",
		"type": "subscription.activated",
		"occurred_at": "2026-08-01T10:00:00Z",
		"obj": {
			"subscription_id": "pms_4410",
			"customer_id": "pmc_1205",
			"period_start": "2026-08-01T10:00:00Z",
			"period_end": "2026-09-01T10:00:00Z",
			"metadata": {"user_id": %q, "plan_id": "pro"}
		}
	}`, userID)

	ev, err := a.Normalize([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.ProviderPaymob, ev.Provider)
	assert.Equal(t, "pmev_8821", ev.EventID)
	assert.Equal(t, gateway.KindSubscriptionActivated, ev.Kind)
	assert.Equal(t, userID, ev.UserID)
	assert.Equal(t, "pro", ev.PlanID)
	assert.Equal(t, "pms_4410", ev.ProviderSubID)
	assert.Equal(t, "pmc_1205", ev.ProviderCustomerID)
	require.NotNil(t, ev.PeriodEnd)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), ev.PeriodEnd.UTC())
}

func TestNormalize_EventTypeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType string
		want      gateway.EventKind
	}{
		{"subscription.activated", gateway.KindSubscriptionActivated},
		{"subscription.renewed.activated", gateway.KindSubscriptionActivated},
		{"subscription.suspended", gateway.KindSubscriptionPaused},
		{"subscription.cancelled", gateway.KindSubscriptionCancelled},
		{"payment.succeeded", gateway.KindPaymentSucceeded},
		{"payment.failed", gateway.KindPaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			t.Parallel()
			kind, ok := mapEventType(tt.eventType)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	t.Parallel()

	a := testAdapter(t, "")

	_, err := a.Normalize([]byte(`not json`))
	assert.ErrorIs(t, err, gateway.ErrMalformedEvent)

	_, err = a.Normalize([]byte(`{"type": "payment.succeeded"}`))
	assert.ErrorIs(t, err, gateway.ErrMalformedEvent)

	_, err = a.Normalize([]byte(`{
		"id": "pmev_1", "type": "payment.succeeded",
		"obj": {"metadata": {"user_id": "nope"}}
	}`))
	assert.ErrorIs(t, err, gateway.ErrMalformedEvent)

	_, err = a.Normalize([]byte(`{"id": "pmev_2", "type": "refund.created", "obj": {}}`))
	assert.ErrorIs(t, err, gateway.ErrUnsupportedEvent)
}

func TestEnsureCustomer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		assert.Equal(t, "Token sk_test_paymob", r.Header.Get("Authorization"))

		var req customerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "omar@example.com", req.Email)
		assert.NotEmpty(t, req.Metadata["user_id"])

		_ = json.NewEncoder(w).Encode(customerResponse{ID: "pmc_new"})
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	ctx := context.Background()

	id, err := a.EnsureCustomer(ctx, "", uuid.New(), "omar@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pmc_new", id)

	// An id from this gateway short-circuits; one from the card gateway
	// (user moved countries) does not.
	id, err = a.EnsureCustomer(ctx, "pmc_existing", uuid.New(), "omar@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pmc_existing", id)

	id, err = a.EnsureCustomer(ctx, "ctm_foreign", uuid.New(), "omar@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pmc_new", id)
}

func TestCreateCheckoutLink(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts", r.URL.Path)

		var req checkoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pmc_1205", req.CustomerID)
		assert.Equal(t, "rv-pro-monthly", req.PlanCode)
		assert.EqualValues(t, 49900, req.AmountCents)
		assert.Equal(t, "EGP", req.Currency)
		assert.Equal(t, userID.String(), req.Metadata["user_id"])
		assert.Equal(t, "pro", req.Metadata["plan_id"])

		_ = json.NewEncoder(w).Encode(checkoutResponse{
			ID:          "pmch_771",
			CheckoutURL: "https://accept.paymob.com/checkout/pmch_771",
		})
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	link, err := a.CreateCheckoutLink(context.Background(), gateway.CheckoutRequest{
		UserID:     userID,
		PlanID:     "pro",
		PriceID:    "rv-pro-monthly",
		CustomerID: "pmc_1205",
		Amount:     49900,
		Currency:   "EGP",
		SuccessURL: "https://app.roomvista.io/billing/success",
		CancelURL:  "https://app.roomvista.io/billing/cancel",
	})
	require.NoError(t, err)

	assert.Equal(t, gateway.ProviderPaymob, link.Provider)
	assert.Equal(t, "https://accept.paymob.com/checkout/pmch_771", link.URL)
	assert.Equal(t, "pmch_771", link.SessionID)
	assert.False(t, link.ExpiresAt.IsZero())
}

func TestCreateCheckoutLink_ServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	_, err := a.CreateCheckoutLink(context.Background(), gateway.CheckoutRequest{
		PlanID: "pro", PriceID: "rv-pro-monthly", CustomerID: "pmc_1",
	})
	assert.ErrorIs(t, err, gateway.ErrProviderUnavailable)
}

func TestCreateCheckoutLink_ClientErrorIsTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown plan code"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	_, err := a.CreateCheckoutLink(context.Background(), gateway.CheckoutRequest{
		PlanID: "pro", PriceID: "bogus", CustomerID: "pmc_1",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, gateway.ErrProviderUnavailable)
}
