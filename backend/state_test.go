package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/backend"
)

func TestStateOpenCloseLifecycle(t *testing.T) {
	s := backend.NewState(nil)
	require.False(t, s.IsFunctional())

	s.MarkOpen()
	require.True(t, s.IsFunctional())

	s.MarkClosed()
	require.False(t, s.IsFunctional())
}

func TestStateSetExceptionFaultsAndRecordsMessage(t *testing.T) {
	s := backend.NewState(nil)
	s.MarkOpen()

	s.SetException("bus error")
	require.False(t, s.IsFunctional())
	require.Equal(t, "bus error", s.FaultMessage())
}

func TestStateSetExceptionIsNoopWhenClosed(t *testing.T) {
	s := backend.NewState(nil)
	s.SetException("ignored")
	require.Equal(t, "", s.FaultMessage())
}

func TestStateOnFaultCallbacksInvokedOnException(t *testing.T) {
	s := backend.NewState(nil)
	s.MarkOpen()

	var got string
	s.OnFault(func(msg string) { got = msg })
	s.SetException("timeout")
	require.Equal(t, "timeout", got)
}

func TestStateMarkOpenClearsPriorFault(t *testing.T) {
	s := backend.NewState(nil)
	s.MarkOpen()
	s.SetException("boom")
	require.False(t, s.IsFunctional())

	s.MarkOpen()
	require.True(t, s.IsFunctional())
	require.Equal(t, "", s.FaultMessage())
}
