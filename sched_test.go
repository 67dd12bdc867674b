package aokit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerAcquireHighestReadyWins(t *testing.T) {
	s := newScheduler(8)
	s.markReady(3)
	s.markReady(5)

	done := make(chan struct{})
	go func() {
		ok := s.acquire(context.Background(), 3)
		require.True(t, ok)
		close(done)
	}()

	// priority 5 beats 3; acquiring it first must succeed immediately.
	ok := s.acquire(context.Background(), 5)
	require.True(t, ok)
	s.markIdle(5) // 5's queue has drained, so 3 is now the highest ready
	s.release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("priority 3 never acquired the token after 5 released it")
	}
}

func TestSchedulerAcquireRespectsCeiling(t *testing.T) {
	s := newScheduler(8)
	s.markReady(2)
	s.raiseCeiling(5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok := s.acquire(ctx, 2)
	require.False(t, ok, "priority below the ceiling must not acquire the token")
}

func TestSchedulerAcquireCanceled(t *testing.T) {
	s := newScheduler(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, s.acquire(ctx, 1))
}

func TestSchedulerLowerCeilingOnlyClearsMatchingCeiling(t *testing.T) {
	s := newScheduler(4)
	s.raiseCeiling(3)
	s.raiseCeiling(5)
	s.lowerCeiling(3) // a nested, lower-ceiling mutex releasing first
	require.EqualValues(t, 5, s.ceiling, "the higher ceiling must remain in force")
	s.lowerCeiling(5)
	require.EqualValues(t, 0, s.ceiling)
}

func TestSchedulerISRNesting(t *testing.T) {
	s := newScheduler(4)
	s.ISREntry()
	s.ISREntry()
	require.EqualValues(t, 2, s.isrNest.Load())
	s.ISRExit()
	require.EqualValues(t, 1, s.isrNest.Load())
}
