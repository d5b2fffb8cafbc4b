// Package config loads, normalizes, and validates loadcheck configuration.
//
// It supplies repository defaults (including the catalog of DOJ datasets),
// expands user paths, reads TOML files, and honours environment fallbacks for
// the datastore URL and service key. Always obtain settings through this
// package so downstream code receives sanitized paths and clear validation
// errors.
package config
