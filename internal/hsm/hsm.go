// Package hsm implements the hierarchical state machine dispatch algorithm
// every active object runs its events through.
//
// It is a direct port of QP/C++'s QHsm: qhsm_ini.cpp for the top-most
// initial transition, qhsm_dis.cpp for event dispatch (the six-case
// least-common-ancestor transition algorithm), qhsm_in.cpp for isIn(), and
// qhsm_top.cpp for the root "top" state.
//
// QP represents a state as a C function pointer (QStateHandler) and
// compares state identity with pointer equality throughout the dispatch
// algorithm. Go function values are not comparable (other than to nil), so
// here a state is a *State: a small struct wrapping the handler function,
// compared by pointer identity exactly the way QP compares function
// pointers. Construct one with New and never copy it by value.
package hsm

import "fmt"

// Signal identifies the kind of event a state handler is being asked to
// process. The four reserved values below are never posted by application
// code; they are synthesized by Machine during dispatch.
type Signal uint32

const (
	SigEmpty Signal = iota // ask a handler for its superstate
	SigEntry                // run entry actions
	SigExit                 // run exit actions
	SigInit                 // take the state's initial transition, if any
)

// UserSigBase is the first signal value application code may use.
const UserSigBase Signal = 4

// Event is the minimal contract a state handler needs: its signal. The
// active-object layer's Event type carries considerably more (pool id,
// reference count, payload) and satisfies this interface.
type Event interface {
	Signal() Signal
}

type plainEvent Signal

func (s plainEvent) Signal() Signal { return Signal(s) }

var (
	emptyEvt Event = plainEvent(SigEmpty)
	entryEvt Event = plainEvent(SigEntry)
	exitEvt  Event = plainEvent(SigExit)
	initEvt  Event = plainEvent(SigInit)
)

// Result is the value a state handler returns to tell Machine what it did
// with the event.
type Result int

const (
	// ResultHandled means the event was consumed; no further action.
	ResultHandled Result = iota
	// ResultIgnored means the state deliberately has no reaction (only the
	// Top state should normally return this).
	ResultIgnored
	// ResultUnhandled means a guard declined the event; Machine retries it
	// against the state's superstate.
	ResultUnhandled
	// ResultSuper means the handler was asked for its superstate (Machine
	// called it with SigEmpty) and has recorded it via Machine.Super.
	ResultSuper
	// ResultTran means the handler took a transition, recorded via
	// Machine.Tran.
	ResultTran
)

// HandlerFunc is the code a state runs for a given event.
type HandlerFunc func(m *Machine, e Event) Result

// State is one node of a statechart. Two States are the same state if and
// only if they are the same pointer; never copy a State by value.
type State struct {
	name string
	fn   HandlerFunc
}

// New creates a named state backed by fn. name is used only for tracing and
// diagnostics.
func New(name string, fn HandlerFunc) *State {
	return &State{name: name, fn: fn}
}

// Name returns the state's diagnostic name.
func (s *State) Name() string {
	if s == nil {
		return "<nil>"
	}
	return s.name
}

// Top is the ultimate root of every statechart. It ignores every signal and
// has no superstate; every other state's SigEmpty case must eventually
// resolve to Top.
var Top = New("top", func(_ *Machine, _ Event) Result {
	return ResultIgnored
})

// maxNestDepth bounds the entry/exit path arrays built during a transition.
// Exceeding it means the statechart is nested deeper than any reasonable
// design calls for; Machine treats that as a programming error, not a
// resource limit, and panics rather than returning an error.
const maxNestDepth = 32

// Machine holds the dispatch state for one state machine instance: the
// current stable configuration (state) and the working register used while
// walking the hierarchy (temp). Embed Machine in the owning active object
// rather than holding it separately, mirroring how QP derives application
// state machines from QHsm.
type Machine struct {
	state  *State
	temp   *State
	name   string
	tracer func(format string, args ...any)
}

// New machine states start in Top with temp pointed at the application's
// top-most initial pseudostate handler, set by Init.
func NewMachine(name string) *Machine {
	return &Machine{state: Top, temp: Top, name: name}
}

// SetTracer installs a callback invoked with a formatted line for every
// state transition and entry/exit action. A nil tracer disables tracing.
func (m *Machine) SetTracer(tracer func(format string, args ...any)) {
	m.tracer = tracer
}

func (m *Machine) trace(format string, args ...any) {
	if m.tracer != nil {
		m.tracer(format, args...)
	}
}

// State returns the machine's current stable leaf state.
func (m *Machine) State() *State {
	return m.state
}

// Tran records a transition to target. Call this from inside a state
// handler and return its result: `return m.Tran(otherState)`.
func (m *Machine) Tran(target *State) Result {
	m.temp = target
	return ResultTran
}

// Super records target's superstate. Call this from a state handler's
// SigEmpty case: `return m.Super(parentState)`.
func (m *Machine) Super(super *State) Result {
	m.temp = super
	return ResultSuper
}

// Init performs the top-most initial transition. It must be called exactly
// once, before the first Dispatch, with initial set to the state machine's
// top-most initial pseudostate handler (ports qhsm_ini.cpp).
func (m *Machine) Init(initial *State, e Event) {
	if m.state != Top {
		panic(fmt.Sprintf("hsm %s: Init called after the machine already started", m.name))
	}
	if e == nil {
		e = plainEvent(SigInit)
	}
	m.temp = initial

	t := m.state
	if m.temp.fn(m, e) != ResultTran {
		panic(fmt.Sprintf("hsm %s: top-most initial handler must take a transition", m.name))
	}

	for {
		path := make([]*State, 0, maxNestDepth)
		path = append(path, m.temp)
		m.trig(m.temp, emptyEvt)
		for m.temp != t {
			path = appendPath(path, m.temp, m.name)
			m.trig(m.temp, emptyEvt)
		}
		m.temp = path[0]

		for i := len(path) - 1; i >= 0; i-- {
			m.enter(path[i])
		}

		t = path[0]
		if m.trig(t, initEvt) != ResultTran {
			m.state = t
			m.temp = t
			m.trace("%s: init -> %s", m.name, t.Name())
			return
		}
	}
}

func appendPath(path []*State, s *State, name string) []*State {
	if len(path) >= maxNestDepth {
		panic(fmt.Sprintf("hsm %s: state nesting exceeds %d levels", name, maxNestDepth))
	}
	return append(path, s)
}

// trig invokes s with e and, for the handful of callers that need it,
// returns the handler's Result. It is the Go analogue of the QEP_TRIG_
// macro.
func (m *Machine) trig(s *State, e Event) Result {
	return s.fn(m, e)
}

func (m *Machine) enter(s *State) {
	m.trace("%s: enter %s", m.name, s.Name())
	m.trig(s, entryEvt)
}

func (m *Machine) exit(s *State) Result {
	m.trace("%s: exit %s", m.name, s.Name())
	return m.trig(s, exitEvt)
}

// Dispatch processes one event through the machine's current state,
// bubbling it up the hierarchy until some state handles it, then performs
// whatever transition (if any) the handler requested. This is the Go
// translation of QHsm::dispatch (qhsm_dis.cpp), preserving its six-case
// least-common-ancestor algorithm exactly; only the data representation
// (slice instead of fixed C array, *State instead of function pointer)
// differs.
func (m *Machine) Dispatch(e Event) {
	t := m.state

	var s *State
	var r Result
	for {
		s = m.temp
		r = s.fn(m, e)
		if r == ResultUnhandled {
			r = m.trig(s, emptyEvt) // find superstate of s
		}
		if r != ResultSuper {
			break
		}
	}

	if r != ResultTran {
		m.state = t
		m.temp = t
		return
	}

	path := make([]*State, 0, maxNestDepth)
	path = append(path, m.temp) // path[0]: transition target
	path = append(path, t)      // path[1]: transition source, temporarily

	for t != s {
		if m.exit(t) == ResultHandled {
			m.trig(t, emptyEvt) // find superstate of t
		}
		t = m.temp
	}

	t = path[0]
	var ip int

	switch {
	case s == t:
		// (a) transition to self: exit and re-enter the source.
		m.exit(s)
		ip = 0

	default:
		m.trig(t, emptyEvt) // superstate of target
		t = m.temp
		switch {
		case s == t:
			// (b) source == target's superstate: no source exit needed.
			ip = 0

		default:
			m.trig(s, emptyEvt) // superstate of source
			switch {
			case m.temp == t:
				// (c) source's superstate == target's superstate.
				m.exit(s)
				ip = 0

			case m.temp == path[0]:
				// (d) source's superstate == target itself.
				m.exit(s)
				ip = -1

			default:
				// (e)..(g): walk up from target looking for the source,
				// then walk up from source looking for the LCA, recording
				// the entry path along the way.
				lcaFound := false
				ip = 1
				path[1] = t // superstate of target
				t = m.temp  // source's superstate

				r = m.trig(path[1], emptyEvt)
				for r == ResultSuper {
					ip++
					path = appendPath(path, m.temp, m.name)
					if m.temp == s {
						lcaFound = true
						ip--
						break
					}
					r = m.trig(m.temp, emptyEvt)
				}

				if !lcaFound {
					m.exit(s)

					// (f) look for the LCA among the entry path already
					// collected walking up from target.
					found := false
					for iq := ip; iq >= 0; iq-- {
						if t == path[iq] {
							ip = iq - 1
							found = true
							break
						}
					}

					if !found {
						// (g) climb from source toward Top, one level at a
						// time, checking against the recorded target path
						// after each step.
						for {
							if m.exit(t) == ResultHandled {
								m.trig(t, emptyEvt)
							}
							t = m.temp
							done := false
							for iq := ip; iq >= 0; iq-- {
								if t == path[iq] {
									ip = iq - 1
									done = true
									break
								}
							}
							if done {
								break
							}
						}
					}
				}
			}
		}
	}

	for ; ip >= 0; ip-- {
		m.enter(path[ip])
	}
	t = path[0]
	m.temp = t

	for m.trig(t, initEvt) == ResultTran {
		initPath := make([]*State, 0, maxNestDepth)
		initPath = append(initPath, m.temp)
		m.trig(m.temp, emptyEvt)
		for m.temp != t {
			initPath = appendPath(initPath, m.temp, m.name)
			m.trig(m.temp, emptyEvt)
		}
		m.temp = initPath[0]

		for i := len(initPath) - 1; i >= 0; i-- {
			m.enter(initPath[i])
		}
		t = initPath[0]
	}

	m.trace("%s: %s -> %s", m.name, s.Name(), t.Name())
	m.state = t
	m.temp = t
}

// IsIn reports whether the machine's current configuration includes s,
// i.e. whether s is the current state or one of its superstates
// (qhsm_in.cpp).
func (m *Machine) IsIn(s *State) bool {
	saved := m.state
	m.temp = m.state
	inState := false
	for {
		if m.temp == s {
			inState = true
			break
		}
		if m.trig(m.temp, emptyEvt) != ResultSuper {
			break
		}
	}
	m.temp = saved
	return inState
}
