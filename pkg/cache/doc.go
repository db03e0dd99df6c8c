// Package cache memoizes completed chat responses and coalesces duplicate
// in-flight work.
//
// Entries are keyed by a stable fingerprint over everything that
// determines a response under deterministic sampling: adapter, model, the
// full message sequence, and the sampling parameters. Storage is a
// byte-bounded LRU; expired entries are treated as absent, removed lazily
// on access, and swept periodically by a cron janitor.
//
// The single-flight layer guarantees at most one concurrent upstream build
// per fingerprint in this process: late arrivals wait on the owner's
// completion instead of issuing their own call, and see the same result or
// error. An owner that is canceled steps aside; the remaining waiters race
// to become the new owner.
package cache
