package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomvista/billing/gateway"
)

// maxBodyBytes caps webhook payloads. Both providers stay well under this;
// anything larger is hostile.
const maxBodyBytes = 1 << 20

// signatureHeader maps each provider to the header its deliveries carry.
var signatureHeader = map[gateway.Provider]string{
	gateway.ProviderPaddle: "Paddle-Signature",
	gateway.ProviderPaymob: "X-Paymob-Signature",
}

// NewRouter mounts one endpoint per provider:
//
//	POST /paddle
//	POST /paymob
//
// Response codes steer provider redelivery: 2xx stops it (applied, duplicate,
// or ignored), 4xx stops it (the delivery can never succeed), 5xx invites a
// retry (transient store failure).
func NewRouter(p *Processor) http.Handler {
	r := chi.NewRouter()
	r.Post("/paddle", handleWebhook(p, gateway.ProviderPaddle))
	r.Post("/paymob", handleWebhook(p, gateway.ProviderPaymob))
	return r
}

func handleWebhook(p *Processor, provider gateway.Provider) http.HandlerFunc {
	header := signatureHeader[provider]
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}

		err = p.Process(r.Context(), provider, body, r.Header.Get(header))
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, gateway.ErrSignatureInvalid),
			errors.Is(err, gateway.ErrMalformedEvent):
			http.Error(w, "rejected", http.StatusBadRequest)
		default:
			http.Error(w, "processing failed", http.StatusInternalServerError)
		}
	}
}
