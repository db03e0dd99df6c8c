// Package config loads, defaults, and validates the gateway
// configuration.
//
// Configuration comes from a YAML file, overridden by NEXUSGATE_* env
// variables, then validated. The validated Config is immutable for the
// process lifetime; every component receives it (or a subsection) by
// reference at startup.
//
// Validation includes the transport-security gate: a plain-HTTP backend
// URL to a public host is fatal when environment is "production" and a
// logged warning in development.
package config
