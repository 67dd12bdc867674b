package aokit

import "github.com/kestrelsys/aokit/internal/bitset"

// Subscribe sets ao's priority bit in signal's subscriber set (§4.F).
func (c *Context) Subscribe(ao *ActiveObject, signal Signal) {
	c.pubsubMu.Lock()
	defer c.pubsubMu.Unlock()
	set := c.subscribers[signal]
	if set == nil {
		set = bitset.New(c.config.MaxPriority)
		c.subscribers[signal] = set
	}
	set.Insert(ao.priority)
}

// Unsubscribe clears ao's priority bit in signal's subscriber set.
func (c *Context) Unsubscribe(ao *ActiveObject, signal Signal) {
	c.pubsubMu.Lock()
	defer c.pubsubMu.Unlock()
	if set := c.subscribers[signal]; set != nil {
		set.Remove(ao.priority)
	}
}

// UnsubscribeAll clears ao's bit from every signal's subscriber set. Called
// automatically by Stop.
func (c *Context) UnsubscribeAll(ao *ActiveObject) {
	c.pubsubMu.Lock()
	defer c.pubsubMu.Unlock()
	for _, set := range c.subscribers {
		set.Remove(ao.priority)
	}
}

// Publish multicasts event to every active object subscribed to its
// signal, highest priority first (§4.F). The subscriber set is snapshotted
// before the multicast begins, so a concurrent Subscribe/Unsubscribe never
// affects a publish already in flight — this resolves the framework's
// "unsubscribe during publish" open question (see DESIGN.md).
//
// The event's reference count is bumped once before the loop (protecting
// it even if there turn out to be zero subscribers) and given back to
// recycle afterward, exactly mirroring qf_ps.cpp's protective increment:
// without it, the first subscriber could dispatch and recycle the event
// before the multicast loop reaches the next subscriber.
func (c *Context) Publish(event *Event) {
	c.pubsubMu.RLock()
	set := c.subscribers[event.Sig]
	var snapshot *bitset.PrioritySet
	if set != nil {
		snapshot = set.Clone()
	}
	c.pubsubMu.RUnlock()

	c.metrics.PublishCount.Add(1)
	c.retain(event)

	if snapshot == nil || snapshot.IsEmpty() {
		c.metrics.PublishNoSubscriberCount.Add(1)
	} else {
		c.trace.Trace(TraceRecord{Kind: TracePublish, Signal: event.Sig})
		for prio, ok := snapshot.FindMax(); ok; prio, ok = snapshot.FindMax() {
			snapshot.Remove(prio)
			if ao := c.activeObject(prio); ao != nil {
				ao.PostFIFO(event, 0)
			}
		}
	}

	c.recycle(event)
}
