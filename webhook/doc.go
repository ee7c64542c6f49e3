// Package webhook receives provider deliveries and turns them into
// subscription state changes. The pipeline is strict about ordering: verify
// the raw-body signature first, normalize second, and only then touch the
// store, where the dedup log and the state mutation commit atomically.
//
// Deliveries are assumed to arrive at-least-once and out of order; both are
// absorbed here, not by the providers.
package webhook
