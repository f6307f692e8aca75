package room

import (
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/tiles"
	"github.com/stretchr/testify/require"
)

func testLogger() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	l := backend.Logger("test")
	l.SetLevel(slog.LevelError)
	return l
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	cfg := Config{ID: "r1", Name: "test room", Stake: 100, Log: testLogger()}
	return New(cfg, "south", "South Player", connreg.New())
}

func TestJoinRoomFillsSeatsInOrder(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: "p2"}))
	require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: "p3"}))
	require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: "p4"}))

	require.Equal(t, tiles.East, r.playerByID["p2"].Seat)
	require.Equal(t, tiles.North, r.playerByID["p3"].Seat)
	require.Equal(t, tiles.West, r.playerByID["p4"].Seat)
	require.Equal(t, Ready, r.phase)
}

func TestJoinRoomFullReturnsError(t *testing.T) {
	r := newTestRoom(t)
	for _, id := range []string{"p2", "p3", "p4"} {
		require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: id}))
	}
	err := r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: "p5"})
	require.Error(t, err)
}

func TestStartGameFillsWithBotsAndDeals(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	require.Equal(t, Playing, r.phase)
	require.Equal(t, WaitingForDiscard, r.subPhase)
	require.Equal(t, tiles.South, r.currentTurn)
	require.Len(t, r.seats[tiles.South].Hand, 15)
	require.Len(t, r.seats[tiles.East].Hand, 14)
	require.Len(t, r.seats[tiles.North].Hand, 14)
	require.Len(t, r.seats[tiles.West].Hand, 14)
	require.Len(t, r.deck, 48)
	require.NotEmpty(t, r.commitment.Hash)
	require.NotEmpty(t, r.commitment.ServerSeed)
}

func TestDiscardAdvancesTurnCounterClockwise(t *testing.T) {
	r := newTestRoom(t)
	// Seat humans everywhere: bot seats would take their turns
	// synchronously inside the same dispatch.
	for _, id := range []string{"p2", "p3", "p4"} {
		require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: id}))
	}
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	southHand := r.seats[tiles.South].Hand
	tileToDiscard := southHand[0].ID
	// If this discard happens to complete a winning hand (exceedingly
	// unlikely on a random deal) the game finishes instead, and the
	// turn assertions below are skipped.
	require.NoError(t, r.dispatchErr(Command{Type: CmdDiscard, PlayerID: "south", TileID: tileToDiscard}))

	if r.phase == Finished {
		return // a legitimate opening win; nothing more to assert here
	}
	require.Equal(t, tiles.West, r.currentTurn)
	require.Equal(t, WaitingForDraw, r.subPhase)
}

func TestNotYourTurnRejected(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	err := r.dispatchErr(Command{Type: CmdDrawFromDeck, PlayerID: r.seats[tiles.East].ID})
	require.Error(t, err)
}

func TestDeclareWinTransitionsToFinished(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	south := r.seats[tiles.South]
	winningHand := tiles.Hand{
		{ID: 1000, Color: tiles.Red, Value: 1},
		{ID: 1001, Color: tiles.Red, Value: 2},
		{ID: 1002, Color: tiles.Red, Value: 3},
		{ID: 1003, Color: tiles.Blue, Value: 1},
		{ID: 1004, Color: tiles.Blue, Value: 2},
		{ID: 1005, Color: tiles.Blue, Value: 3},
		{ID: 1006, Color: tiles.Red, Value: 7},
		{ID: 1007, Color: tiles.Blue, Value: 7},
		{ID: 1008, Color: tiles.Black, Value: 7},
		{ID: 1009, Color: tiles.Yellow, Value: 7},
		{ID: 1010, Color: tiles.Black, Value: 9},
		{ID: 1011, Color: tiles.Black, Value: 10},
		{ID: 1012, Color: tiles.Black, Value: 11},
		{ID: 1013, Color: tiles.Black, Value: 12},
		{ID: 1014, Color: tiles.Yellow, Value: 12}, // discard
	}
	south.Hand = winningHand

	require.NoError(t, r.dispatchErr(Command{Type: CmdDeclareWin, PlayerID: south.ID, TileID: 1014}))
	require.Equal(t, Finished, r.phase)
}

func TestHandleLeaveMidGameCancels(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	require.NoError(t, r.dispatchErr(Command{Type: CmdLeaveRoom, PlayerID: "south"}))
	require.Equal(t, Cancelled, r.phase)
}

func TestJoinRoomEmitsDomainEventsToJoinerAndExistingSeats(t *testing.T) {
	r := newTestRoom(t)
	r.seats[tiles.South].ConnID = "conn-south"
	require.NoError(t, r.dispatchErr(Command{Type: CmdJoinRoom, PlayerID: "p2", ConnID: "conn-p2"}))

	var kinds []DomainEventKind
	for {
		select {
		case msg := <-r.outbound:
			if msg.Kind == OutDomainEvent {
				kinds = append(kinds, msg.Domain.Kind)
			}
		default:
			require.Contains(t, kinds, EvRoomJoined, "joiner gets its own RoomJoined")
			require.Contains(t, kinds, EvPlayerJoined, "existing seat is told who joined")
			return
		}
	}
}

func TestGameStartedDomainEventCarriesCommitmentHash(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.dispatchErr(Command{Type: CmdStartGame, PlayerID: "south"}))

	for {
		select {
		case msg := <-r.outbound:
			if msg.Kind == OutDomainEvent && msg.Domain.Kind == EvGameStarted {
				require.Equal(t, r.commitment.Hash, msg.Domain.CommitmentHash)
				return
			}
		default:
			t.Fatal("no EvGameStarted domain event observed")
		}
	}
}

// dispatchErr is a small test helper around the package-private
// dispatch that surfaces the reply error synchronously without
// needing a running Run() loop or channel plumbing.
func (r *Room) dispatchErr(cmd Command) error {
	cmd.Reply = make(chan error, 1)
	r.dispatch(cmd)
	select {
	case err := <-cmd.Reply:
		return err
	default:
		return nil
	}
}
