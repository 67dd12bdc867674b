package aokit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kestrelsys/aokit/internal/bitset"
)

// scheduler implements the native preemptive priority-ceiling scheduler of
// §4.H. Go already gives every active object its own goroutine, which
// would otherwise let the runtime interleave them arbitrarily; the
// scheduler collapses that back down to a single logical "currently
// running AO" by handing out one dispatch token, so the framework's
// run-to-completion and priority-ceiling guarantees hold exactly as they
// do on the original's single-core target. This is the one place the port
// deliberately does not exploit Go's parallelism.
type scheduler struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready *bitset.PrioritySet

	running  uint32 // priority currently holding the dispatch token, 0 = none
	ceiling  uint32 // highest priority-ceiling mutex currently held by anyone
	held     []uint32 // ceilings of every mutex currently held

	isrNest atomic.Int32
}

func newScheduler(maxPrio uint32) *scheduler {
	s := &scheduler{ready: bitset.New(maxPrio)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// markReady sets prio's ready bit and wakes any goroutine waiting to
// acquire the dispatch token.
func (s *scheduler) markReady(prio uint32) {
	s.mu.Lock()
	s.ready.Insert(prio)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// markIdle clears prio's ready bit (its queue has drained).
func (s *scheduler) markIdle(prio uint32) {
	s.mu.Lock()
	s.ready.Remove(prio)
	s.mu.Unlock()
}

// acquire blocks until prio is the highest ready priority, above the
// current priority-ceiling floor, and no other priority holds the token,
// then claims it. Returns false if ctx is canceled first.
func (s *scheduler) acquire(ctx context.Context, prio uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if top, ok := s.ready.FindMax(); ok && top == prio && prio > s.ceiling && s.running == 0 {
			s.running = prio
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			close(done)
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		s.cond.Wait()
		stop()
		select {
		case <-done:
		default:
		}
	}
}

// release gives up the dispatch token and wakes waiters so the next
// highest-ready priority can claim it.
func (s *scheduler) release() {
	s.mu.Lock()
	s.running = 0
	s.cond.Broadcast()
	s.mu.Unlock()
}

// raiseCeiling and lowerCeiling implement the priority-ceiling half of
// Mutex.Lock/Unlock: while any mutex is held, no priority at or below its
// ceiling may acquire the dispatch token, which is exactly the "no lower
// priority runs while the ceiling is held" invariant §4.I requires,
// generalized across possibly-nested mutexes by tracking the highest
// ceiling currently in force.
func (s *scheduler) raiseCeiling(ceiling uint32) {
	s.mu.Lock()
	s.held = append(s.held, ceiling)
	if ceiling > s.ceiling {
		s.ceiling = ceiling
	}
	s.mu.Unlock()
}

func (s *scheduler) lowerCeiling(ceiling uint32) {
	s.mu.Lock()
	for i, c := range s.held {
		if c == ceiling {
			s.held = append(s.held[:i], s.held[i+1:]...)
			break
		}
	}
	s.ceiling = 0
	for _, c := range s.held {
		if c > s.ceiling {
			s.ceiling = c
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

// ISREntry/ISRExit increment and decrement isrNest, a nesting count of
// "ISR context" calls (§4.H). The framework does not call them itself, and
// nothing reads the counter: scheduling is not deferred while isrNest > 0.
func (s *scheduler) ISREntry() {
	s.isrNest.Add(1)
}

func (s *scheduler) ISRExit() {
	s.isrNest.Add(-1)
}

// ISREntry and ISRExit are exposed on Context so application code can
// bracket its own interrupt-like entry points with them.
func (c *Context) ISREntry() { c.sched.ISREntry() }
func (c *Context) ISRExit()  { c.sched.ISRExit() }
