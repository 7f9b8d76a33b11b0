package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_PanicError_WrapsErrorValue(t *testing.T) {
	cause := errors.New("boom")

	pe := NewPanicError(cause)

	require.Equal(t, "panic: boom", pe.Error())
	require.ErrorIs(t, pe, cause)
	require.NotEmpty(t, pe.Stacktrace())
}

func Test_PanicError_NonErrorValue(t *testing.T) {
	pe := NewPanicError(42)

	require.Equal(t, "panic: 42", pe.Error())
	require.Nil(t, pe.Unwrap())
	require.Equal(t, 42, pe.Value())
}

func Test_UsageError_Message(t *testing.T) {
	ue := NewUsageError("clause %d already targets this object", 2)

	require.EqualError(t, ue, "clause 2 already targets this object")
}
