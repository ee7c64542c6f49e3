// Package logger builds configured slog loggers for the billing engine.
//
// The factory produces JSON output by default (production) and supports
// context extractors so request-scoped values such as user ids propagate
// into every record without explicit plumbing at call sites.
package logger
