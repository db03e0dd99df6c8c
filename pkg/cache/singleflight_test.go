package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_CoalescesConcurrentBuilds(t *testing.T) {
	group := NewGroup()

	var builds atomic.Int32
	release := make(chan struct{})

	build := func(ctx context.Context) ([]byte, error) {
		builds.Add(1)
		<-release
		return []byte("result"), nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	shared := make([]bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, wasShared, err := group.Do(context.Background(), "fp", build)
			if err != nil {
				t.Errorf("caller %d failed: %v", i, err)
			}
			results[i] = result
			shared[i] = wasShared
		}(i)
	}

	// Let every caller reach the group before releasing the owner.
	deadline := time.Now().Add(2 * time.Second)
	for group.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Errorf("expected exactly 1 upstream build, got %d", got)
	}

	sharedCount := 0
	for i := range results {
		if string(results[i]) != "result" {
			t.Errorf("caller %d saw %q", i, results[i])
		}
		if shared[i] {
			sharedCount++
		}
	}
	if sharedCount != callers-1 {
		t.Errorf("expected %d shared results, got %d", callers-1, sharedCount)
	}
}

func TestGroup_ErrorPropagatesToAllWaiters(t *testing.T) {
	group := NewGroup()
	release := make(chan struct{})
	buildErr := errors.New("upstream failed")

	build := func(ctx context.Context) ([]byte, error) {
		<-release
		return nil, buildErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = group.Do(context.Background(), "fp", build)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, buildErr) {
			t.Errorf("caller %d got %v, want the build error", i, err)
		}
	}

	if group.InFlight() != 0 {
		t.Error("marker must be removed after failure")
	}
}

func TestGroup_WaiterCancellationDoesNotDisturbBuild(t *testing.T) {
	group := NewGroup()
	release := make(chan struct{})

	build := func(ctx context.Context) ([]byte, error) {
		<-release
		return []byte("late"), nil
	}

	go group.Do(context.Background(), "fp", build)

	deadline := time.Now().Add(2 * time.Second)
	for group.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, _, err := group.Do(ctx, "fp", build)
		waiterDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-waiterDone:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("waiter got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("canceled waiter did not return")
	}

	// The owner is still in flight and completes normally.
	if group.InFlight() != 1 {
		t.Error("owner should still be building")
	}
	close(release)
}

func TestGroup_OwnerCancellationHandsOff(t *testing.T) {
	group := NewGroup()

	ownerCtx, cancelOwner := context.WithCancel(context.Background())
	ownerStarted := make(chan struct{})

	ownerBuild := func(ctx context.Context) ([]byte, error) {
		close(ownerStarted)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ownerDone := make(chan error, 1)
	go func() {
		_, _, err := group.Do(ownerCtx, "fp", ownerBuild)
		ownerDone <- err
	}()
	<-ownerStarted

	// A waiter joins, then the owner is canceled; the waiter must take
	// over ownership and build successfully.
	var tookOver atomic.Bool
	waiterBuild := func(ctx context.Context) ([]byte, error) {
		tookOver.Store(true)
		return []byte("takeover"), nil
	}

	waiterResult := make(chan []byte, 1)
	go func() {
		result, _, err := group.Do(context.Background(), "fp", waiterBuild)
		if err != nil {
			t.Errorf("waiter-turned-owner failed: %v", err)
		}
		waiterResult <- result
	}()

	time.Sleep(50 * time.Millisecond)
	cancelOwner()

	if err := <-ownerDone; !errors.Is(err, context.Canceled) {
		t.Errorf("owner got %v, want context.Canceled", err)
	}

	select {
	case result := <-waiterResult:
		if string(result) != "takeover" || !tookOver.Load() {
			t.Errorf("waiter did not take over ownership: %q", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never became the new owner")
	}
}
