// Package auth derives the client identity used for rate-limit accounting.
//
// Three strategies exist: the remote IP (X-Forwarded-For aware), a SHA-256
// digest of the presented credential, or an arbitrary request header. The
// credential strategy never exposes the raw token: only the digest prefix
// leaves this package, so identities are safe to log and label.
package auth
