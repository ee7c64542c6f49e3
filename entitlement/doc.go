// Package entitlement decides, per user and per action, whether the product
// may run an operation right now. Decisions combine three inputs: the
// subscription status, the plan's feature set, and the period's usage counter.
//
// CanPerformAction is the advisory read used to render UI state; RecordUsage
// is the authoritative gate that atomically consumes quota and must wrap the
// actual operation.
package entitlement
