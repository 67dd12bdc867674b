package aokit

import "sync"

// MockPort is a Port implementation that records every call instead of
// acting on it, so tests can assert on lifecycle and assertion behavior
// without crashing the test process — the aokit analogue of the teacher's
// exported MockBackend, useful to downstream consumers writing their own
// active objects, not just internal tests.
type MockPort struct {
	mu sync.Mutex

	startupCalls int
	cleanupCalls int
	idleCalls    int
	asserts      []MockAssert
}

// MockAssert records one OnAssert call.
type MockAssert struct {
	Module string
	Line   int
}

func (p *MockPort) OnStartup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startupCalls++
}

func (p *MockPort) OnCleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanupCalls++
}

func (p *MockPort) OnIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleCalls++
}

// OnAssert records the call instead of panicking, so a test exercising a
// deliberate invariant violation can assert it happened and keep running.
func (p *MockPort) OnAssert(module string, line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asserts = append(p.asserts, MockAssert{Module: module, Line: line})
}

// Asserts returns a copy of every OnAssert call recorded so far.
func (p *MockPort) Asserts() []MockAssert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MockAssert(nil), p.asserts...)
}

// StartupCalls, CleanupCalls, IdleCalls report how many times each
// lifecycle hook fired.
func (p *MockPort) StartupCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startupCalls
}

func (p *MockPort) CleanupCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupCalls
}

func (p *MockPort) IdleCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleCalls
}

var _ Port = (*MockPort)(nil)

// MockTraceSink records every TraceRecord it receives, in order, for tests
// that need to assert on the exact sequence of trace points a run produced.
type MockTraceSink struct {
	mu      sync.Mutex
	records []TraceRecord
}

func (s *MockTraceSink) Trace(rec TraceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Records returns a copy of every trace record received so far.
func (s *MockTraceSink) Records() []TraceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TraceRecord(nil), s.records...)
}

// Reset clears every recorded trace record.
func (s *MockTraceSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

var _ TraceSink = (*MockTraceSink)(nil)
