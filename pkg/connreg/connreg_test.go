package connreg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconnectWithinWindow(t *testing.T) {
	r := New()
	t0 := time.Now()
	r.Save("p1", "room1", "conn1", t0)
	r.MarkDisconnected("p1", t0)

	require.True(t, r.CanReconnect("p1", t0.Add(10*time.Second)))
	require.False(t, r.CanReconnect("p1", t0.Add(31*time.Second)))
}

func TestLookupAndRemove(t *testing.T) {
	r := New()
	r.Save("p1", "room1", "conn1", time.Now())
	m, ok := r.Lookup("p1")
	require.True(t, ok)
	require.Equal(t, "room1", m.RoomID)

	r.Remove("p1")
	_, ok = r.Lookup("p1")
	require.False(t, ok)
}

func TestCanReconnectFalseWhenNeverDisconnected(t *testing.T) {
	r := New()
	r.Save("p1", "room1", "conn1", time.Now())
	require.False(t, r.CanReconnect("p1", time.Now()))
}
