// Package secrets resolves backend credentials from their configured
// source: a literal value, an environment variable ("env:NAME"), or a file
// ("file:/path").
//
// File-sourced credentials are watched with fsnotify so a rotated secret
// file takes effect without a restart; literal and environment values are
// fixed for the process lifetime.
package secrets
