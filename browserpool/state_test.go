package browserpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateBox_CASTransitions(t *testing.T) {
	var s stateBox
	s.Store(Uninitialized)

	require.True(t, s.CAS(Uninitialized, Starting))
	require.Equal(t, Starting, s.Load())

	require.False(t, s.CAS(Uninitialized, Ready), "CAS must fail when the current state doesn't match old")
	require.Equal(t, Starting, s.Load())

	require.True(t, s.CAS(Starting, Ready))
	require.Equal(t, Ready, s.Load())
	require.True(t, s.Is(Ready))
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		Uninitialized: "uninitialized",
		Starting:      "starting",
		Ready:         "ready",
		Draining:      "draining",
		Restarting:    "restarting",
		ShutdownState: "shutdown",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}
