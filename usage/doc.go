// Package usage meters per-period resource consumption. Counters are keyed
// by (user, resource, period start), so a new billing period starts counting
// from zero without any explicit reset step. All increments are atomic:
// concurrent consumers of the same counter never under-count.
package usage
