package aokit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := NewError("Start", ErrCodePriorityInUse)
	require.Equal(t, "aokit: Start: priority already registered", e.Error())

	wrapped := WrapError("NewEvent", ErrCodePoolExhausted, errors.New("no free blocks"))
	require.Contains(t, wrapped.Error(), "pool exhausted")
	require.Contains(t, wrapped.Error(), "no free blocks")
}

func TestWrapErrorNilInner(t *testing.T) {
	require.Nil(t, WrapError("op", ErrCodeTimeout, nil))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := WrapError("Lock", ErrCodeMutexContention, inner)
	require.ErrorIs(t, e, inner)
}

func TestIsCode(t *testing.T) {
	e := NewError("Config.Validate", ErrCodeInvalidConfig)
	require.True(t, IsCode(e, ErrCodeInvalidConfig))
	require.False(t, IsCode(e, ErrCodeTimeout))
	require.False(t, IsCode(errors.New("plain"), ErrCodeInvalidConfig))
}

func TestErrorIsByCode(t *testing.T) {
	a := NewError("Lock", ErrCodeMutexContention)
	b := NewError("TryLock", ErrCodeMutexContention)
	require.True(t, errors.Is(a, b))
}
