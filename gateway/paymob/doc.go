// Package paymob implements the regional wallet gateway adapter over
// Paymob's HTTP API. Webhooks carry a hex HMAC-SHA256 of the raw body in the
// X-Paymob-Signature header; user attribution travels through checkout
// metadata.
package paymob
