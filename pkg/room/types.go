// Package room implements the single-writer, per-room authoritative
// state machine of spec.md §4.2: one goroutine owns all mutable state
// for a room; external intents enter through a bounded command
// channel and every observable effect leaves through an outbound
// channel, eliminating intra-room locking. Grounded on the teacher's
// pkg/poker/table.go (phase/seat/turn bookkeeping) and on
// TylerPetri-P2Poker's internal/table/apply.go dispatch shape
// (other_examples/...apply.go: a single apply(action) switch over a
// tagged action type), generalized from poker betting rounds to Okey
// turn/meld phases.
package room

import (
	"time"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/bot"
	"github.com/okeyrelay/core/pkg/fairness"
	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/tiles"
)

// Phase is the game-level phase of spec.md §4.2.
type Phase int

const (
	Waiting Phase = iota
	Ready
	Shuffling
	Dealing
	Playing
	Finished
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "Waiting"
	case Ready:
		return "Ready"
	case Shuffling:
		return "Shuffling"
	case Dealing:
		return "Dealing"
	case Playing:
		return "Playing"
	case Finished:
		return "Finished"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// SubPhase is the within-Playing turn sub-phase of spec.md §4.2.
type SubPhase int

const (
	NoSubPhase SubPhase = iota
	WaitingForDraw
	WaitingForDiscard
	TurnCompleted
)

func (s SubPhase) String() string {
	switch s {
	case WaitingForDraw:
		return "WaitingForDraw"
	case WaitingForDiscard:
		return "WaitingForDiscard"
	case TurnCompleted:
		return "TurnCompleted"
	default:
		return "NoSubPhase"
	}
}

// Player is one seated participant, human or bot.
type Player struct {
	ID          string
	DisplayName string
	Seat        tiles.Seat
	Hand        tiles.Hand
	Connected   bool
	ConnID      string
	IsBot       bool
	BotEngine   *bot.Engine

	// HasDrawn marks that the seated player already drew this turn.
	HasDrawn bool
}

// Config are the immutable parameters a room is created with.
type Config struct {
	ID        string
	Name      string
	Stake     int64
	CreatorID string
	Log       slog.Logger
}

// OutboundKind tags the payload carried by an OutboundMessage.
type OutboundKind int

const (
	OutProjection OutboundKind = iota
	OutError
	OutReveal
	OutGameHistory
	OutTimerStartRequest
	OutTimerStopRequest
	OutPersistSnapshot
	OutDomainEvent
)

// OutboundMessage is one typed effect leaving the room loop. ToPlayerID
// is empty for room-wide effects (persistence, timer requests).
type OutboundMessage struct {
	Kind        OutboundKind
	ToPlayerID  string
	Projection  *Projection
	Err         *OutboundError
	Reveal      *RevealRecord
	History     *GameHistoryRecord
	TimerTurn   int
	TimerPlayer string
	Domain      *DomainEvent
}

// DomainEventKind names one of spec.md §6's stable outbound events that
// isn't a full projection or a bare error. The room loop has no notion
// of the wire's EventType; this is the differentiated signal the
// transport layer's Dispatcher translates into one.
type DomainEventKind int

const (
	EvRoomJoined DomainEventKind = iota
	EvPlayerJoined
	EvPlayerLeft
	EvRoomLeft
	EvGameStarted
	EvTileDrawn
	EvOpponentDrewTile
	EvTileDiscarded
	EvDeckUpdated
	EvTurnChanged
	EvTurnTimerTick
	EvAutoPlayTriggered
	EvPlayerTimeout
	EvGamePhaseChanged
	EvPlayerDisconnected
	EvPlayerReconnected
	EvReconnected
)

// DomainEvent carries the fields a single named event needs; only the
// fields relevant to Kind are populated. Tile is nil whenever the
// acting player's draw source must stay hidden from the recipient
// (spec.md §4.2: opponents never see another seat's tile identities
// except what a discard pile draw already made public).
type DomainEvent struct {
	Kind DomainEventKind

	PlayerID     string
	PlayerName   string
	Seat         tiles.Seat
	TotalPlayers int

	Tile        *tiles.Tile
	FromDiscard bool

	NextPlayerID string
	NextSeat     tiles.Seat
	TurnNumber   int

	DeckRemaining int
	DiscardCount  int

	TimeLeft   int
	IsCritical bool

	OldPhase Phase
	NewPhase Phase

	CommitmentHash string
	Reason         string
}

// OutboundError mirrors okerr.Error without importing it into the
// outbound wire shape, keeping transport decoupled from the error
// package's internal fields the caller doesn't need to serialize.
type OutboundError struct {
	Kind            string
	Msg             string
	CorrectPlayerID string
}

// OpponentView is the limited, non-leaking view of another seat.
type OpponentView struct {
	PlayerID    string
	DisplayName string
	Seat        tiles.Seat
	TileCount   int
	Connected   bool
}

// Projection is the per-player view emitted on every observable
// mutation (spec.md §4.2): own full hand, opponents reduced to
// identity/seat/tile-count, indicator, turn state, deck count, top
// of discard, phase, and the room's sealed commitment hash.
type Projection struct {
	RoomID          string
	Phase           Phase
	SubPhase        SubPhase
	OwnHand         tiles.Hand
	Opponents       []OpponentView
	Indicator       tiles.Tile
	CurrentTurn     tiles.Seat
	DeckRemaining   int
	TopOfDiscard    *tiles.Tile
	CommitmentHash  string
	ServerTimestamp time.Time
}

// RevealRecord is emitted once a room reaches Finished or Cancelled,
// per spec.md §4.2's "Reveal on termination".
type RevealRecord struct {
	RoomID         string
	ServerSeed     string
	InitialState   string
	Nonce          int64
	ClientSeed     string
	CommitmentHash string
	GameHistoryID  string
}

// GameHistoryRecord is the completed-game summary handed to the
// persistence/settlement boundary (spec.md §1's "persistent
// game-replay storage beyond a completed-game summary record" carve
// out — only the summary is kept).
type GameHistoryRecord struct {
	ID          string
	RoomID      string
	WinnerID    string
	WinType     rules.WinType
	Score       int
	Stake       int64
	PlayerIDs   []string
	FinishedAt  time.Time
	Cancelled   bool
	CancelCause string
}

// Commitment re-exports the fairness package's sealed shuffle state
// under the room's own name to keep call sites reading room.* instead
// of threading two package imports through every signature.
type Commitment = fairness.Commitment
