// Package gateway defines the payment-provider boundary: the Adapter
// interface each gateway implements, the NormalizedEvent shape the webhook
// processor consumes, and the country-to-gateway Router.
//
// Two structurally different provider event formats are collapsed into one
// tagged event type at this boundary so the rest of the engine has exactly
// one state-transition function regardless of which gateway delivered the
// webhook.
package gateway
