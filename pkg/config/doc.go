// Package config loads typed configuration structs from environment variables.
//
// Every component of the billing engine declares its own Config struct with
// `env` tags (see gateway/paddle, gateway/paymob, pkg/pg, pkg/redis) and is
// constructed explicitly at process start. There is no global configuration
// object: components receive exactly the settings they declare.
package config
