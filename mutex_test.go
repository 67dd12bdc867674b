package aokit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	c, err := NewContext(DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)
	return c
}

func TestMutexLockUnlockNesting(t *testing.T) {
	c := newTestContext(t)
	m, err := c.NewMutex(10)
	require.NoError(t, err)

	ao := &ActiveObject{extended: true}
	require.NoError(t, m.Lock(context.Background(), ao))
	require.NoError(t, m.Lock(context.Background(), ao)) // re-entrant
	require.EqualValues(t, 10, c.sched.ceiling)

	m.Unlock(ao)
	require.EqualValues(t, 10, c.sched.ceiling, "ceiling stays up until the outermost Unlock")
	m.Unlock(ao)
	require.EqualValues(t, 0, c.sched.ceiling)
}

func TestMutexTryLockFailsWhenHeld(t *testing.T) {
	c := newTestContext(t)
	m, err := c.NewMutex(5)
	require.NoError(t, err)

	a := &ActiveObject{}
	b := &ActiveObject{}
	require.True(t, m.TryLock(a))
	require.False(t, m.TryLock(b))
	m.Unlock(a)
	require.True(t, m.TryLock(b))
}

func TestMutexBasicThreadCannotBlock(t *testing.T) {
	c := newTestContext(t)
	m, err := c.NewMutex(5)
	require.NoError(t, err)

	holder := &ActiveObject{extended: true}
	require.NoError(t, m.Lock(context.Background(), holder))

	basic := &ActiveObject{extended: false}
	err = m.Lock(context.Background(), basic)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeMutexContention))
}

func TestMutexExtendedThreadBlocksThenAcquires(t *testing.T) {
	c := newTestContext(t)
	m, err := c.NewMutex(5)
	require.NoError(t, err)

	holder := &ActiveObject{extended: true}
	waiter := &ActiveObject{extended: true}
	require.NoError(t, m.Lock(context.Background(), holder))

	acquired := make(chan struct{})
	go func() {
		require.NoError(t, m.Lock(context.Background(), waiter))
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("waiter acquired the mutex before the holder released it")
	default:
	}

	m.Unlock(holder)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the mutex after it was released")
	}
	m.Unlock(waiter)
}

func TestMutexLockCanceled(t *testing.T) {
	c := newTestContext(t)
	m, err := c.NewMutex(5)
	require.NoError(t, err)

	holder := &ActiveObject{extended: true}
	require.NoError(t, m.Lock(context.Background(), holder))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiter := &ActiveObject{extended: true}
	err = m.Lock(ctx, waiter)
	require.ErrorIs(t, err, ErrTimeout)
}
