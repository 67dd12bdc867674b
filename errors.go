package aokit

import (
	"errors"
	"fmt"
)

// ErrorCode is a high-level category for a structured framework error.
type ErrorCode string

const (
	ErrCodeInvalidConfig     ErrorCode = "invalid configuration"
	ErrCodePriorityInUse     ErrorCode = "priority already registered"
	ErrCodePriorityRange     ErrorCode = "priority out of range"
	ErrCodePoolExhausted     ErrorCode = "event pool exhausted"
	ErrCodeQueueFull         ErrorCode = "event queue full"
	ErrCodeNotStarted        ErrorCode = "active object not started"
	ErrCodeMutexContention   ErrorCode = "mutex would block"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodePortSetupFailed   ErrorCode = "port setup failed"
)

// Error is the framework's structured error type for the one class of
// failure that returns normally rather than going through Port.OnAssert:
// Config validation, Port-level setup, and CLI-facing failures.
//
// Invariant violations (bad handler return, entry-path overflow, priority
// collisions detected deep inside a critical section) are fatal assertions
// reported through Port.OnAssert instead — they never return an *Error.
type Error struct {
	Op    string    // operation that failed, e.g. "Init", "Start"
	Code  ErrorCode // high-level category
	Inner error     // wrapped cause
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = fmt.Sprintf("aokit: %s: %s", e.Op, msg)
	} else {
		msg = fmt.Sprintf("aokit: %s", msg)
	}
	if e.Inner != nil {
		return fmt.Sprintf("%s: %v", msg, e.Inner)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error code, the same compatibility
// shim pattern the teacher uses for its legacy sentinel error set.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError creates a structured error for operation op.
func NewError(op string, code ErrorCode) *Error {
	return &Error{Op: op, Code: code}
}

// WrapError wraps inner with framework context. Returns nil if inner is nil.
func WrapError(op string, code ErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Inner: inner}
}

// ErrTimeout is returned by Mutex.Lock when its context is done before an
// extended-thread caller gets the mutex.
var ErrTimeout = &Error{Op: "Wait", Code: ErrCodeTimeout}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
