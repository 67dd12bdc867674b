package aokit

import (
	"context"
	"fmt"

	"github.com/kestrelsys/aokit/internal/equeue"
	"github.com/kestrelsys/aokit/internal/hsm"
)

// ActiveObject binds a hierarchical state machine to a private event queue
// and a unique priority (§4.G). It is created statically via
// Context.NewActiveObject, then Start registers it, runs its top-most
// initial transition, and spawns its dispatch-loop goroutine.
type ActiveObject struct {
	hsm.Machine

	ctx      *Context
	name     string
	initial  *hsm.State
	extended bool

	priority uint32
	queue    *equeue.Queue[*Event]

	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewActiveObject creates an unstarted active object named name, whose
// statechart's top-most initial transition targets initial. extended marks
// it as an extended thread (§4.H): one that may block inside its own
// goroutine on a Mutex, a timed delay, or another queue, as opposed to a
// basic thread's strict run-to-completion contract. Every active object in
// this Go port already has its own goroutine; extended only changes
// whether Mutex.Lock may block for it on a contended mutex.
func (c *Context) NewActiveObject(name string, initial *hsm.State, extended bool) *ActiveObject {
	ao := &ActiveObject{
		ctx:      c,
		name:     name,
		initial:  initial,
		extended: extended,
	}
	ao.Machine = *hsm.NewMachine(name)
	ao.Machine.SetTracer(func(format string, args ...any) {
		c.trace.Trace(TraceRecord{Kind: TraceTransition, AO: name, Detail: fmt.Sprintf(format, args...)})
	})
	return ao
}

// Name returns the active object's diagnostic name.
func (ao *ActiveObject) Name() string { return ao.name }

// Priority returns the active object's registered priority, or 0 if it
// hasn't been started.
func (ao *ActiveObject) Priority() uint32 { return ao.priority }

// Start registers the active object at prio with a queue of qlen events,
// takes its top-most initial transition, and spawns its dispatch loop.
// Priorities are unique and in 1..Config.MaxPriority; Start fails if prio
// is out of range or already taken.
func (ao *ActiveObject) Start(prio uint32, qlen int) error {
	ao.priority = prio
	if err := ao.ctx.register(ao); err != nil {
		ao.priority = 0
		return err
	}
	if qlen <= 0 {
		qlen = ao.ctx.config.DefaultQueueDepth
	}
	ao.queue = equeue.New[*Event](qlen)

	ao.Machine.Init(ao.initial, nil)

	runCtx, cancel := context.WithCancel(context.Background())
	ao.cancel = cancel
	ao.done = make(chan struct{})
	go ao.loop(runCtx)

	ao.ctx.logger.Infof("active object %s started at priority %d", ao.name, prio)
	return nil
}

// loop is the active object's run-to-completion dispatch cycle (§2's data
// flow paragraph): wait for an event, win the dispatch token for this
// priority, dequeue, dispatch through the HSM, recycle, release the token,
// repeat.
func (ao *ActiveObject) loop(ctx context.Context) {
	defer close(ao.done)
	for {
		if !ao.queue.WaitNonEmpty(ctx) {
			return
		}
		ao.ctx.sched.markReady(ao.priority)
		if !ao.ctx.sched.acquire(ctx, ao.priority) {
			return
		}

		evt, ok := ao.queue.Get()
		if ao.queue.Len() == 0 {
			ao.ctx.sched.markIdle(ao.priority)
		}
		if ok {
			ao.Machine.Dispatch(evt)
			ao.ctx.recycle(evt)
			ao.ctx.metrics.DispatchCount.Add(1)
		}
		ao.ctx.sched.release()
	}
}

// PostFIFO enqueues e at the back of the active object's queue (§4.G).
// margin == 0 behaves as a guaranteed post (a full queue is a fatal
// assertion); margin > 0 fails softly, returning false, once fewer than
// margin slots remain free.
func (ao *ActiveObject) PostFIFO(e *Event, margin int) bool {
	if ao.stopped {
		ao.ctx.logger.Debugf("dropped post to stopped active object %s", ao.name)
		ao.ctx.metrics.QueueDropCount.Add(1)
		return false
	}
	if margin > 0 && ao.queue.Cap()-ao.queue.Len() < margin {
		ao.ctx.metrics.QueueDropCount.Add(1)
		return false
	}
	ao.ctx.retain(e)
	ok := ao.queue.Post(e)
	if !ok {
		ao.ctx.recycle(e)
		ao.ctx.metrics.QueueDropCount.Add(1)
		if margin == 0 {
			ao.ctx.Assert("PostFIFO")
		}
		return false
	}
	ao.ctx.metrics.noteQueueDepth(uint32(ao.queue.Len()))
	ao.ctx.trace.Trace(TraceRecord{Kind: TracePost, AO: ao.name, Signal: e.Sig})
	return true
}

// PostLIFO splices e ahead of everything already queued, so it is the very
// next event this active object dispatches. Not permitted for extended
// threads that block on their own queue mid-processing (§4.C); basic
// threads use it to requeue a partially handled event for immediate
// redispatch.
func (ao *ActiveObject) PostLIFO(e *Event) bool {
	if ao.stopped {
		ao.ctx.logger.Debugf("dropped LIFO post to stopped active object %s", ao.name)
		ao.ctx.metrics.QueueDropCount.Add(1)
		return false
	}
	ao.ctx.retain(e)
	ok := ao.queue.PostLIFO(e)
	if !ok {
		ao.ctx.recycle(e)
		ao.ctx.metrics.QueueDropCount.Add(1)
		ao.ctx.Assert("PostLIFO")
		return false
	}
	ao.ctx.metrics.noteQueueDepth(uint32(ao.queue.Len()))
	return true
}

// Stop removes the active object from the priority table, cancels its
// dispatch loop, and drains and recycles whatever it was still holding.
func (ao *ActiveObject) Stop() {
	ao.stopped = true
	ao.ctx.unregister(ao)
	ao.ctx.UnsubscribeAll(ao)
	ao.cancel()
	<-ao.done
	ao.queue.Close()
	for {
		e, ok := ao.queue.Get()
		if !ok {
			break
		}
		ao.ctx.recycle(e)
	}
	ao.ctx.logger.Infof("active object %s stopped", ao.name)
}
