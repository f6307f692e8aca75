package okeyrpc

import (
	"testing"

	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/room"
	"github.com/stretchr/testify/require"
)

func TestToStoreWinTypeMapsEveryRuleWinType(t *testing.T) {
	require.Equal(t, "Normal", toStoreWinType(rules.Normal).String())
	require.Equal(t, "Pairs", toStoreWinType(rules.Pairs).String())
	require.Equal(t, "OkeyDiscard", toStoreWinType(rules.OkeyDiscard).String())
	require.Equal(t, "DeckEmpty", toStoreWinType(rules.NotWinning).String())
}

func TestHandleIgnoresNilGameHistoryWithoutPanicking(t *testing.T) {
	d := &Dispatcher{hub: NewHub(testLog())}
	d.handle("room1", room.OutboundMessage{Kind: room.OutGameHistory, History: nil})
}

func TestHandleTimerRequestKindsAreNoOps(t *testing.T) {
	d := &Dispatcher{hub: NewHub(testLog())}
	d.handle("room1", room.OutboundMessage{Kind: room.OutTimerStartRequest})
	d.handle("room1", room.OutboundMessage{Kind: room.OutTimerStopRequest})
	d.handle("room1", room.OutboundMessage{Kind: room.OutPersistSnapshot})
}

func TestProjectionToEventCarriesDeckRemainingAndCommitment(t *testing.T) {
	p := &room.Projection{RoomID: "r1", DeckRemaining: 42, CommitmentHash: "abc"}
	ev := projectionToEvent(p)
	require.Equal(t, EventGameStateUpdated, ev.Type)
	require.Equal(t, 42, ev.RemainingTileCount)
	require.Equal(t, "abc", ev.ServerSeedHash)
}

func TestProjectionToEventHandlesNilProjection(t *testing.T) {
	ev := projectionToEvent(nil)
	require.Equal(t, EventGameStateUpdated, ev.Type)
}

func TestDomainEventToEventHandlesNilDomain(t *testing.T) {
	ev := domainEventToEvent("r1", nil)
	require.Equal(t, EventError, ev.Type)
}

func TestDomainEventToEventMapsEveryKindToItsNamedEvent(t *testing.T) {
	cases := []struct {
		kind room.DomainEventKind
		want EventType
	}{
		{room.EvRoomJoined, EventRoomJoined},
		{room.EvPlayerJoined, EventPlayerJoined},
		{room.EvPlayerLeft, EventPlayerLeft},
		{room.EvRoomLeft, EventRoomLeft},
		{room.EvGameStarted, EventGameStarted},
		{room.EvTileDrawn, EventTileDrawn},
		{room.EvOpponentDrewTile, EventOpponentDrewTile},
		{room.EvTileDiscarded, EventTileDiscarded},
		{room.EvDeckUpdated, EventDeckUpdated},
		{room.EvTurnChanged, EventTurnChanged},
		{room.EvTurnTimerTick, EventTurnTimerTick},
		{room.EvAutoPlayTriggered, EventAutoPlayTriggered},
		{room.EvPlayerTimeout, EventPlayerTimeout},
		{room.EvGamePhaseChanged, EventGamePhaseChanged},
		{room.EvPlayerDisconnected, EventPlayerDisconnected},
		{room.EvPlayerReconnected, EventPlayerReconnected},
		{room.EvReconnected, EventReconnected},
	}
	for _, c := range cases {
		ev := domainEventToEvent("r1", &room.DomainEvent{Kind: c.kind})
		require.Equal(t, c.want, ev.Type, "kind %d", c.kind)
	}
}

func TestDomainEventToEventCarriesGameStartedCommitmentHash(t *testing.T) {
	ev := domainEventToEvent("r1", &room.DomainEvent{Kind: room.EvGameStarted, CommitmentHash: "deadbeef"})
	require.Equal(t, EventGameStarted, ev.Type)
	require.True(t, ev.IsGameStarted)
	require.Equal(t, "deadbeef", ev.ServerSeedHash)
}
