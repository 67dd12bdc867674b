package aokit

import (
	"github.com/kestrelsys/aokit/internal/hsm"
	"github.com/kestrelsys/aokit/internal/pool"
)

// Signal identifies the kind of event. It's an alias for hsm.Signal so
// application code never has to import internal/hsm directly to name a
// signal or compare against the reserved ones.
type Signal = hsm.Signal

const (
	SigEmpty = hsm.SigEmpty
	SigEntry = hsm.SigEntry
	SigExit  = hsm.SigExit
	SigInit  = hsm.SigInit
)

// UserSigBase is the first signal value application code may define.
const UserSigBase = hsm.UserSigBase

// Event is a tagged record carrying a signal and an optional payload. A
// concrete event "subclass" embeds Event as its first field — the same
// struct-embedding convention the teacher uses for its own layered types —
// and carries whatever extra fields its signal's handler expects.
//
// PoolID is 0 for a static/immortal event (one that is never recycled) and
// otherwise 1 + the index of the EventPool it was allocated from. RefCtr
// tracks how many queues currently hold a reference; it is meaningless when
// PoolID == 0.
type Event struct {
	Sig    Signal
	PoolID int32
	RefCtr int32
	Payload any

	slot int32 // index back into its owning pool's slab, valid when PoolID != 0
}

// Signal satisfies hsm.Event.
func (e *Event) Signal() Signal {
	return e.Sig
}

// NewStaticEvent wraps sig as an immortal event with no backing pool.
// Recycling a static event is always a no-op.
func NewStaticEvent(sig Signal) *Event {
	return &Event{Sig: sig}
}

// EventPool is a fixed-block allocator for events of roughly BlockSize
// payload weight. Context orders pools by ascending BlockSize and picks the
// first one that fits a given NewEvent request, mirroring §4.A's
// size-indexed allocator; built on internal/pool's index-linked arena for
// the free-list bookkeeping, with its own slab of Event values as backing
// storage (the arena's byte blocks are used only as the free-list vehicle,
// since an Event's Payload is a Go interface value, not a fixed-width
// blob an arbitrary []byte could stand in for).
type EventPool struct {
	blockSize uint32
	arena     *pool.Pool
	slab      []Event
}

func newEventPool(capacity int, blockSize uint32) *EventPool {
	return &EventPool{
		blockSize: blockSize,
		arena:     pool.New(capacity, blockSize),
		slab:      make([]Event, capacity),
	}
}

// BlockSize returns the pool's configured block-size weight.
func (p *EventPool) BlockSize() uint32 {
	return p.blockSize
}

// MinFree returns the pool's low-water mark, per §4.A's diagnostic.
func (p *EventPool) MinFree() uint32 {
	return p.arena.MinFree()
}

// Total returns the pool's fixed block count.
func (p *EventPool) Total() uint32 {
	return p.arena.Total()
}

func (p *EventPool) get(margin uint32, poolIdx int, sig Signal) (*Event, bool) {
	idx, _, ok := p.arena.Get(margin)
	if !ok {
		return nil, false
	}
	e := &p.slab[idx]
	*e = Event{Sig: sig, PoolID: int32(poolIdx + 1), slot: idx}
	return e, true
}

func (p *EventPool) put(slot int32) bool {
	return p.arena.Put(slot)
}
