// Package plan is the static catalog of subscription tiers: feature flags,
// numeric limits, trial windows, provider-side price identifiers, and the
// per-country price table. The catalog is seeded from an embedded YAML file
// and validated once at startup; every later lookup is read-only.
//
// Tiers are totally ordered by price and a higher tier's feature set is a
// strict superset of every lower tier's. NewRegistry enforces both so a
// catalog edit that breaks entitlement monotonicity fails the deploy instead
// of silently downgrading users.
package plan
