// Package redis wraps the go-redis client with retrying connection setup.
// The billing engine uses Redis only for the checkout-initiation rate
// limiter; all billing state lives in PostgreSQL.
package redis
