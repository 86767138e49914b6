package gelf

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGetCaller(t *testing.T) {
	file, line := getCaller(1000)
	require.Equal(t, "???", file)
	require.Zero(t, line)

	file, _ = getCaller(0)
	require.Contains(t, file, "caller_test.go")

	file, _ = getCallerIgnoringLogMulti(0)
	require.Contains(t, file, "caller_test.go")
}

func TestErrorTrace(t *testing.T) {
	trace, file, line, ok := errorTrace(pkgerrors.New("boom"))
	require.True(t, ok)
	require.Contains(t, trace, "boom")
	require.Contains(t, file, "caller_test.go")
	require.NotZero(t, line)
}

func TestErrorTrace_WrappedStdlibError(t *testing.T) {
	err := pkgerrors.WithStack(errors.New("inner"))

	_, file, _, ok := errorTrace(err)
	require.True(t, ok)
	require.Contains(t, file, "caller_test.go")
}

func TestErrorTrace_NoStack(t *testing.T) {
	_, _, _, ok := errorTrace(errors.New("plain"))
	require.False(t, ok)
}
