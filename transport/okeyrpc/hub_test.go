package okeyrpc

import (
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func testLog() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	l := backend.Logger("test")
	l.SetLevel(slog.LevelError)
	return l
}

func TestSendToConnectionDeliversToRegisteredQueue(t *testing.T) {
	h := NewHub(testLog())
	ch := h.register("conn1")
	defer h.unregister("conn1")

	h.SendToConnection("conn1", &Event{Type: EventError, Message: "hi"})

	ev := <-ch
	require.Equal(t, "hi", ev.Message)
}

func TestSendToConnectionUnknownConnDoesNotPanic(t *testing.T) {
	h := NewHub(testLog())
	h.SendToConnection("missing", &Event{Type: EventError})
}

func TestSendToGroupFansOutToEveryMember(t *testing.T) {
	h := NewHub(testLog())
	ch1 := h.register("c1")
	ch2 := h.register("c2")
	defer h.unregister("c1")
	defer h.unregister("c2")
	h.AddToGroup("c1", "room1")
	h.AddToGroup("c2", "room1")

	h.SendToGroup("room1", &Event{Type: EventDeckUpdated, RemainingTileCount: 50})

	require.Equal(t, 50, (<-ch1).RemainingTileCount)
	require.Equal(t, 50, (<-ch2).RemainingTileCount)
}

func TestRemoveFromGroupStopsFutureDelivery(t *testing.T) {
	h := NewHub(testLog())
	ch := h.register("c1")
	defer h.unregister("c1")
	h.AddToGroup("c1", "room1")
	h.RemoveFromGroup("c1", "room1")

	h.SendToGroup("room1", &Event{Type: EventRoomLeft})

	select {
	case <-ch:
		t.Fatal("expected no delivery after RemoveFromGroup")
	default:
	}
}

func TestUnregisterClosesQueueAndDropsGroups(t *testing.T) {
	h := NewHub(testLog())
	h.register("c1")
	h.AddToGroup("c1", "room1")
	h.unregister("c1")

	_, open := h.conns["c1"]
	require.False(t, open)
	_, inGroup := h.groups["room1"]
	require.False(t, inGroup)
}
