// Package pg provides PostgreSQL connectivity helpers for the billing engine:
// pool construction with retries, goose migration wiring, and error
// classification for unique-constraint and not-found handling that the
// subscription store and webhook dedup log depend on.
package pg
