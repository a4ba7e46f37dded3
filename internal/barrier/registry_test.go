package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_WaitReleasesWhenAllArrive(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "phase-1", Required: []string{"a", "b"}, Timeout: 2 * time.Second}

	reg.Arrive("phase-1", "a")

	done := make(chan error, 1)
	go func() {
		done <- reg.Wait(context.Background(), b)
	}()

	// Give the waiter a moment to block, then satisfy the barrier.
	time.Sleep(20 * time.Millisecond)
	reg.Arrive("phase-1", "b")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not release after all agents arrived")
	}
}

func TestRegistry_WaitTimesOutNamingMissingAgents(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "phase-1", Required: []string{"a", "b"}, Timeout: 50 * time.Millisecond}

	reg.Arrive("phase-1", "a")

	start := time.Now()
	err := reg.Wait(context.Background(), b)
	elapsed := time.Since(start)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "phase-1", te.Barrier)
	assert.Equal(t, []string{"b"}, te.Missing)
	assert.Contains(t, err.Error(), `"phase-1"`)
	assert.Contains(t, err.Error(), "b")

	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond, "wait should block for roughly the timeout")
	assert.Less(t, elapsed, 1*time.Second, "wait must not block indefinitely")
}

func TestRegistry_ArriveIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	reg.Arrive("phase-1", "a")
	reg.Arrive("phase-1", "a")
	reg.Arrive("phase-1", "a")

	assert.Equal(t, []string{"a"}, reg.Arrived("phase-1"))

	// A barrier requiring only "a" is satisfied despite the repeats.
	b := SyncBarrier{ID: "phase-1", Required: []string{"a"}, Timeout: 100 * time.Millisecond}
	require.NoError(t, reg.Wait(context.Background(), b))
}

func TestRegistry_ReleaseIsMonotonic(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "phase-1", Required: []string{"a", "b"}, Timeout: 100 * time.Millisecond}

	reg.Arrive("phase-1", "a")
	reg.Arrive("phase-1", "b")

	// Once satisfied, every subsequent wait returns immediately.
	for i := 0; i < 3; i++ {
		start := time.Now()
		require.NoError(t, reg.Wait(context.Background(), b))
		assert.Less(t, time.Since(start), 50*time.Millisecond, "satisfied barrier must not re-block")
	}
}

func TestRegistry_MultipleWaitersReleaseTogether(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "phase-1", Required: []string{"a", "b", "c"}, Timeout: 2 * time.Second}

	const waiters = 4
	var wg sync.WaitGroup
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = reg.Wait(context.Background(), b)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	reg.Arrive("phase-1", "a")
	reg.Arrive("phase-1", "b")
	reg.Arrive("phase-1", "c")

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters released after the barrier was satisfied")
	}

	for i, err := range errs {
		assert.NoError(t, err, "waiter %d should release cleanly", i)
	}
}

func TestRegistry_WaitWithNoRequiredAgents(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "empty", Timeout: 50 * time.Millisecond}

	require.NoError(t, reg.Wait(context.Background(), b))
}

func TestRegistry_WaitHonorsContextCancellation(t *testing.T) {
	reg := NewRegistry()
	b := SyncBarrier{ID: "phase-1", Required: []string{"never"}, Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- reg.Wait(ctx, b)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not observe context cancellation")
	}
}

func TestRegistry_BarriersAreIndependent(t *testing.T) {
	reg := NewRegistry()

	reg.Arrive("one", "a")

	b := SyncBarrier{ID: "two", Required: []string{"a"}, Timeout: 30 * time.Millisecond}
	err := reg.Wait(context.Background(), b)

	var te *TimeoutError
	require.ErrorAs(t, err, &te, "arrival at barrier %q must not satisfy barrier %q", "one", "two")
	assert.Equal(t, []string{"a"}, te.Missing)
}

func TestRegistry_ClearForgetsArrivals(t *testing.T) {
	reg := NewRegistry()

	reg.Arrive("phase-1", "a")
	require.NotEmpty(t, reg.Arrived("phase-1"))

	reg.Clear()
	assert.Empty(t, reg.Arrived("phase-1"))

	b := SyncBarrier{ID: "phase-1", Required: []string{"a"}, Timeout: 30 * time.Millisecond}
	err := reg.Wait(context.Background(), b)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
}
