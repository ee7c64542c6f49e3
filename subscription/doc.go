// Package subscription is the row-per-user source of truth for billing
// state: current plan, status, billing period bounds, and provider linkage.
//
// Status transitions are driven exclusively by normalized webhook events
// applied through Store.ApplyEvent, which also owns the dedup log so the
// event record and the state mutation land in one atomic unit. User-initiated
// operations (plan changes, checkout initiation) go through Service and never
// set a status directly; the provider stays the single source of truth for
// billing state.
package subscription
