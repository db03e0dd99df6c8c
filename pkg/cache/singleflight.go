package cache

import (
	"context"
	"errors"
	"sync"

	"nexusgate/pkg/proxy/types"
)

// BuildFunc performs the upstream work for one fingerprint and returns the
// serialized response.
type BuildFunc func(ctx context.Context) ([]byte, error)

// marker tracks one in-flight build. It holds only the completion signal
// and the result, never a reference to the requester.
type marker struct {
	done    chan struct{}
	result  []byte
	err     error
	handoff bool // owner was canceled; waiters should race for ownership
}

// Group coalesces concurrent builds per fingerprint: one owner executes,
// everyone else waits on its completion and shares the outcome.
type Group struct {
	mu       sync.Mutex
	inflight map[Fingerprint]*marker
}

// NewGroup builds an empty group.
func NewGroup() *Group {
	return &Group{inflight: make(map[Fingerprint]*marker)}
}

// Do executes fn under the single-flight guarantee for fp. The second
// return value reports whether this caller shared another caller's result
// rather than building its own.
//
// A waiter whose own context ends returns that context's error without
// disturbing the build. An owner whose build ends with a cancellation
// removes its marker and signals a handoff: the surviving waiters race to
// become the new owner instead of inheriting the cancellation.
func (g *Group) Do(ctx context.Context, fp Fingerprint, fn BuildFunc) ([]byte, bool, error) {
	for {
		g.mu.Lock()
		if m, ok := g.inflight[fp]; ok {
			g.mu.Unlock()

			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-m.done:
				if m.handoff {
					continue
				}
				return m.result, true, m.err
			}
		}

		m := &marker{done: make(chan struct{})}
		g.inflight[fp] = m
		g.mu.Unlock()

		result, err := fn(ctx)

		g.mu.Lock()
		delete(g.inflight, fp)
		g.mu.Unlock()

		m.result = result
		m.err = err
		m.handoff = isCancellation(err)
		close(m.done)

		return result, false, err
	}
}

// isCancellation recognizes an owner that went away rather than a build
// that failed on its own terms.
func isCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var ge *types.Error
	return errors.As(err, &ge) && ge.Kind == types.KindCanceled
}

// InFlight reports the number of active builds, for tests and diagnostics.
func (g *Group) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
