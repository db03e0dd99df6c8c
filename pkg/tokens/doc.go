// Package tokens estimates token usage when a backend omits it, so the
// caller-facing usage block is best-effort populated instead of zero.
//
// The estimate is the standing chars/4 heuristic. It is intentionally
// crude: it exists for accounting continuity, not billing.
package tokens
