package aokit

import (
	"context"
	"sync"
)

// Mutex is a priority-ceiling lock (§4.I). While held, it raises the
// scheduler's priority floor to its ceiling rather than literally moving
// the holder's ready-set bit the way the original QXK mutex does: with a
// single global dispatch token (sched.go), refusing the token to any
// priority at or below the ceiling achieves the same "no lower priority
// runs while the ceiling is held" invariant with no per-holder bitmap
// surgery needed. The ceiling must be higher than the priority of any
// active object that ever locks it.
type Mutex struct {
	ctx     *Context
	ceiling uint32

	mu      sync.Mutex
	holder  *ActiveObject
	nest    int
	waiters []chan struct{}
}

// NewMutex returns a Mutex with the given ceiling after checking that it
// lies in 1..Config.MaxPriority. It does not reserve the ceiling in the
// priority table, and the framework does not track which priorities serve
// as ceilings versus active objects; the caller chooses a ceiling higher
// than the priority of any active object that will ever lock it (§4.I).
func (c *Context) NewMutex(ceiling uint32) (*Mutex, error) {
	if ceiling == 0 || ceiling >= uint32(len(c.active)) {
		return nil, NewError("NewMutex", ErrCodePriorityRange)
	}
	return &Mutex{ctx: c, ceiling: ceiling}, nil
}

// Lock acquires the mutex, boosting ao's effective priority to the
// ceiling. Basic threads (non-extended active objects) must not call Lock
// on a contended mutex — use TryLock instead; only extended threads may
// block here, matching §4.I's "basic threads may use TryLock only".
func (m *Mutex) Lock(ctx context.Context, ao *ActiveObject) error {
	for {
		m.mu.Lock()
		if m.holder == ao {
			m.nest++
			m.mu.Unlock()
			return nil
		}
		if m.holder == nil {
			m.holder = ao
			m.nest = 1
			m.mu.Unlock()
			m.ctx.sched.raiseCeiling(m.ceiling)
			return nil
		}
		if !ao.extended {
			m.mu.Unlock()
			return NewError("Lock", ErrCodeMutexContention)
		}
		m.ctx.metrics.MutexContentionCount.Add(1)
		wait := make(chan struct{})
		m.waiters = append(m.waiters, wait)
		m.mu.Unlock()

		select {
		case <-wait:
			continue // retry: the unlocking holder may have handed it to us
		case <-ctx.Done():
			m.removeWaiter(wait)
			return ErrTimeout
		}
	}
}

// TryLock attempts to acquire the mutex without blocking. It never boosts
// ao's priority on failure.
func (m *Mutex) TryLock(ao *ActiveObject) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holder == ao {
		m.nest++
		return true
	}
	if m.holder != nil {
		return false
	}
	m.holder = ao
	m.nest = 1
	m.ctx.sched.raiseCeiling(m.ceiling)
	return true
}

// Unlock releases one nesting level. On the last level it lowers the
// scheduler's priority floor back down, frees the mutex, and wakes the
// oldest waiter (if any) to retry Lock.
func (m *Mutex) Unlock(ao *ActiveObject) {
	m.mu.Lock()
	if m.holder != ao {
		m.mu.Unlock()
		m.ctx.Assert("Mutex.Unlock")
		return
	}
	m.nest--
	if m.nest > 0 {
		m.mu.Unlock()
		return
	}

	var next chan struct{}
	if len(m.waiters) > 0 {
		next = m.waiters[0]
		m.waiters = m.waiters[1:]
		// Ownership passes to whichever active object re-enters Lock and
		// finds the mutex free; we don't know which waiter that will be
		// until it wakes, so release holder here and let the race resolve
		// via the mutex's own free-check in Lock.
	}
	m.holder = nil
	m.mu.Unlock()

	m.ctx.sched.lowerCeiling(m.ceiling)
	if next != nil {
		close(next)
	}
}

func (m *Mutex) removeWaiter(wait chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == wait {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}
