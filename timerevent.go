package aokit

import "sync"

// TimeEvent is a one-shot or periodic timer tied to a tick rate (§4.E). It
// embeds Event so it can be posted to its target exactly like any other
// event once it fires.
//
// QP links time events within a tick rate via an intrusive singly-linked
// list threaded through the event itself, since C has no GC to make a
// pointer-based list between arbitrarily-lived objects safe. Go's GC makes
// that restriction unnecessary: TimeEvent here is an ordinary
// pointer-linked list node, which is both simpler and exactly as safe as
// the index-linked arena internal/pool uses for GC-unmanaged storage.
type TimeEvent struct {
	Event

	ctx      *Context
	target   *ActiveObject
	tickRate int

	ctr      uint32
	interval uint32
	linked   bool
	next     *TimeEvent
}

// timeWheel holds one tick rate's timer list, plus a separate "freshly
// armed" list. Splicing new arms onto a separate head prevents Tick's own
// walk from observing a timer armed during that same walk — the mechanism
// behind the "rearmed in its own handler fires next tick, not this one"
// guarantee (§4.E, §9 open question 3).
type timeWheel struct {
	mu    sync.Mutex
	head  *TimeEvent
	fresh *TimeEvent
}

// NewTimeEvent creates a disarmed timer on tickRate that, when it expires,
// posts itself (signal sig) to target.
func (c *Context) NewTimeEvent(sig Signal, tickRate int, target *ActiveObject) *TimeEvent {
	return &TimeEvent{
		Event:    Event{Sig: sig},
		ctx:      c,
		target:   target,
		tickRate: tickRate,
	}
}

// ArmIn arms the timer to fire after ticks ticks. ticks must be at least 1;
// Tick treats a counter that is already zero as disarmed and sweeps it
// without firing, the same assumption QP's QTimeEvt_armX makes. interval ==
// 0 makes it a one-shot; interval > 0 reloads the counter and fires again
// every interval ticks thereafter.
func (te *TimeEvent) ArmIn(ticks, interval uint32) {
	w := te.ctx.wheels[te.tickRate]
	w.mu.Lock()
	defer w.mu.Unlock()
	te.ctr = ticks
	te.interval = interval
	if !te.linked {
		te.linked = true
		te.next = w.fresh
		w.fresh = te
	}
	te.ctx.trace.Trace(TraceRecord{Kind: TraceTimerArm, Signal: te.Sig, TickRate: te.tickRate})
}

// Disarm prevents the timer from firing. Actual unlinking happens lazily
// on the next Tick pass; Disarm is idempotent and safe to call on an
// already-disarmed or already-fired timer.
func (te *TimeEvent) Disarm() {
	w := te.ctx.wheels[te.tickRate]
	w.mu.Lock()
	te.ctr = 0
	w.mu.Unlock()
}

// Tick advances tickRate's wheel by one step: every linked timer's counter
// is decremented, expired one-shots are unlinked, expired periodics are
// reloaded, and every expiry posts the timer's embedded event to its
// target. After the walk, timers armed since the previous Tick are
// spliced onto the main list so they start counting down from the next
// Tick, never this one.
func (c *Context) Tick(tickRate int) {
	w := c.wheels[tickRate]

	w.mu.Lock()
	var fire []*TimeEvent
	var prev *TimeEvent
	cur := w.head
	for cur != nil {
		next := cur.next
		switch {
		case cur.ctr == 0:
			cur.linked = false
			unlinkTimeEvent(w, prev, cur, next)
		default:
			cur.ctr--
			if cur.ctr == 0 {
				fire = append(fire, cur)
				if cur.interval != 0 {
					cur.ctr = cur.interval
					prev = cur
				} else {
					cur.linked = false
					unlinkTimeEvent(w, prev, cur, next)
				}
			} else {
				prev = cur
			}
		}
		cur = next
	}

	if w.fresh != nil {
		tail := w.fresh
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = w.head
		w.head = w.fresh
		w.fresh = nil
	}
	w.mu.Unlock()

	for _, te := range fire {
		c.metrics.TimerFireCount.Add(1)
		c.trace.Trace(TraceRecord{Kind: TraceTimerFire, Signal: te.Sig, TickRate: tickRate})
		if te.target != nil {
			te.target.PostFIFO(&te.Event, 0)
		}
	}
}

// unlinkTimeEvent removes cur from w's main list, given its predecessor
// (nil if cur was the head) and successor.
func unlinkTimeEvent(w *timeWheel, prev, cur, next *TimeEvent) {
	if prev == nil {
		w.head = next
	} else {
		prev.next = next
	}
	_ = cur
}
