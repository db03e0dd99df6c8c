// Package logging configures the process-wide structured logger.
//
// Output is log/slog in JSON or text form at the configured level; Setup
// installs the logger as the slog default so every package logs through
// it. Credentials never appear in log fields; callers log digests or
// nothing.
package logging
