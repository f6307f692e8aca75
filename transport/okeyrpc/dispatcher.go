package okeyrpc

import (
	"context"
	"time"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/leaderboard"
	"github.com/okeyrelay/core/pkg/room"
	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/settlement"
	"github.com/okeyrelay/core/store"
)

// Dispatcher binds the room state machine to the wire: it drains every
// room's outbound channel and translates room.OutboundMessage into
// okeyrpc.Events delivered through the Hub, and it is where
// Settle/Refund are invoked (CollectStakes is called by
// Server.onIntent on StartGame), since spec.md §5 keeps the
// persistent store and its transaction boundary outside the
// single-writer room loop entirely. Grounded on the teacher's
// EventProcessor (pkg/server/events.go): a worker that drains a
// queue of domain events and fans them out to transport.
type Dispatcher struct {
	connReg *connreg.Registry
	hub     *Hub
	pipe    *settlement.Pipeline
	proj    *leaderboard.Projection
	log     slog.Logger
}

func NewDispatcher(connReg *connreg.Registry, hub *Hub, pipe *settlement.Pipeline, proj *leaderboard.Projection, log slog.Logger) *Dispatcher {
	return &Dispatcher{connReg: connReg, hub: hub, pipe: pipe, proj: proj, log: log}
}

// Watch launches the goroutine that drains r's outbound channel for
// its entire lifetime; callers must invoke this once per room
// immediately after creation, since Room.emit drops events with
// nobody reading them.
func (d *Dispatcher) Watch(r *room.Room) {
	go func() {
		for msg := range r.Outbound() {
			d.handle(r.ID(), msg)
		}
	}()
}

func (d *Dispatcher) handle(roomID string, msg room.OutboundMessage) {
	switch msg.Kind {
	case room.OutProjection:
		ev := projectionToEvent(msg.Projection)
		d.sendTo(msg.ToPlayerID, ev)

	case room.OutDomainEvent:
		ev := domainEventToEvent(roomID, msg.Domain)
		d.sendTo(msg.ToPlayerID, ev)

	case room.OutError:
		ev := &Event{Type: EventError, RoomID: roomID, Message: msg.Err.Msg, Timestamp: time.Now().UTC()}
		d.sendTo(msg.ToPlayerID, ev)

	case room.OutGameHistory:
		d.settle(roomID, msg.History)

	case room.OutReveal:
		// The sealed-shuffle commitment hash already rode out in
		// OnGameStarted at deal time; the reveal (server seed + nonce,
		// the verification half) has no dedicated wire event in
		// spec.md §6 beyond that, so it is logged for audit and
		// otherwise a no-op here.
		d.log.Debugf("room %s: reveal %s", roomID, msg.Reveal.CommitmentHash)

	case room.OutPersistSnapshot:
		// pkg/room never emits this kind, and nothing in the
		// repository writes room snapshots to store/sqlite.

	case room.OutTimerStartRequest, room.OutTimerStopRequest:
		// The room owns its own *timer.Timer (pkg/room/play.go).
		// OutTimerStartRequest is emitted on every timer tick next to
		// the EvTurnTimerTick domain events that carry the tick to
		// players; OutTimerStopRequest is never emitted.
	}
}

func (d *Dispatcher) sendTo(playerID string, ev *Event) {
	if playerID == "" {
		return
	}
	m, ok := d.connReg.Lookup(playerID)
	if !ok || m.ConnID == "" {
		return
	}
	d.hub.SendToConnection(m.ConnID, ev)
}

// domainEventToEvent translates one room.DomainEvent into its named
// wire Event, per spec.md §6's 18 stable outbound events — the
// counterpart to projectionToEvent's OnGameStateUpdated, which alone
// cannot distinguish a join from a discard from a disconnect.
func domainEventToEvent(roomID string, d *room.DomainEvent) *Event {
	now := time.Now().UTC()
	if d == nil {
		return &Event{Type: EventError, RoomID: roomID, Timestamp: now}
	}

	ev := &Event{RoomID: roomID, PlayerID: d.PlayerID, PlayerName: d.PlayerName, TotalPlayers: d.TotalPlayers, Timestamp: now}
	if d.Tile != nil {
		ev.Tile = d.Tile
	}

	switch d.Kind {
	case room.EvRoomJoined:
		ev.Type = EventRoomJoined
		ev.Position = int(d.Seat)
	case room.EvPlayerJoined:
		ev.Type = EventPlayerJoined
		ev.Position = int(d.Seat)
	case room.EvPlayerLeft:
		ev.Type = EventPlayerLeft
		ev.Position = int(d.Seat)
	case room.EvRoomLeft:
		ev.Type = EventRoomLeft
	case room.EvGameStarted:
		ev.Type = EventGameStarted
		ev.IsGameStarted = true
		ev.ServerSeedHash = d.CommitmentHash
	case room.EvTileDrawn:
		ev.Type = EventTileDrawn
		ev.FromDiscard = d.FromDiscard
	case room.EvOpponentDrewTile:
		ev.Type = EventOpponentDrewTile
		ev.FromDiscard = d.FromDiscard
	case room.EvTileDiscarded:
		ev.Type = EventTileDiscarded
	case room.EvDeckUpdated:
		ev.Type = EventDeckUpdated
		ev.RemainingTileCount = d.DeckRemaining
		ev.DiscardPileCount = d.DiscardCount
	case room.EvTurnChanged:
		ev.Type = EventTurnChanged
		ev.NextTurnPlayerID = d.NextPlayerID
		ev.NextTurnPosition = int(d.NextSeat)
		ev.TurnNumber = d.TurnNumber
	case room.EvTurnTimerTick:
		ev.Type = EventTurnTimerTick
		ev.TimeLeft = d.TimeLeft
		ev.TurnNumber = d.TurnNumber
		ev.IsCritical = d.IsCritical
	case room.EvAutoPlayTriggered:
		ev.Type = EventAutoPlayTriggered
		ev.TurnNumber = d.TurnNumber
	case room.EvPlayerTimeout:
		ev.Type = EventPlayerTimeout
		ev.TurnNumber = d.TurnNumber
	case room.EvGamePhaseChanged:
		ev.Type = EventGamePhaseChanged
		ev.OldPhase = d.OldPhase.String()
		ev.NewPhase = d.NewPhase.String()
		ev.Reason = d.Reason
	case room.EvPlayerDisconnected:
		ev.Type = EventPlayerDisconnected
		ev.Position = int(d.Seat)
	case room.EvPlayerReconnected:
		ev.Type = EventPlayerReconnected
		ev.Position = int(d.Seat)
	case room.EvReconnected:
		ev.Type = EventReconnected
		ev.Position = int(d.Seat)
	default:
		ev.Type = EventError
		ev.Message = "unrecognized domain event"
	}
	return ev
}

func projectionToEvent(p *room.Projection) *Event {
	if p == nil {
		return &Event{Type: EventGameStateUpdated, Timestamp: time.Now().UTC()}
	}
	return &Event{
		Type:               EventGameStateUpdated,
		RoomID:             p.RoomID,
		GameState:          p,
		ServerSeedHash:     p.CommitmentHash,
		RemainingTileCount: p.DeckRemaining,
		TurnPhase:          p.SubPhase.String(),
		Timestamp:          p.ServerTimestamp,
	}
}

// settle runs the settlement pipeline's commit-side half of a
// finished or cancelled game, per spec.md §4.6: a cancelled game (no
// winner nominated, or explicitly Cancelled) refunds every stake
// rather than paying out, and a completed game computes rake + ELO
// through Pipeline.Settle. After a successful Settle the leaderboard
// projection is updated for every involved player (spec.md §4.7:
// "asynchronously updates the leaderboard" post-commit); the refund
// path leaves the projection untouched.
func (d *Dispatcher) settle(roomID string, h *room.GameHistoryRecord) {
	if h == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.Cancelled || h.WinnerID == "" {
		cause := h.CancelCause
		if cause == "" {
			cause = "deck exhausted"
		}
		// Stakes are collected under the room id (Server.onIntent), so
		// the refund looks them up by that id.
		if err := d.pipe.Refund(ctx, h.RoomID, h.PlayerIDs, h.Stake, cause); err != nil {
			d.log.Errorf("room %s: refund settlement failed: %v", roomID, err)
		}
		return
	}

	res := settlement.GameResult{
		GameID:     h.ID,
		RoomID:     h.RoomID,
		PlayerIDs:  h.PlayerIDs,
		WinnerID:   h.WinnerID,
		WinType:    toStoreWinType(h.WinType),
		TableStake: h.Stake,
	}
	if err := d.pipe.Settle(ctx, res); err != nil {
		d.log.Errorf("room %s: settle failed: %v", roomID, err)
		return
	}

	if d.proj == nil {
		return
	}
	for _, playerID := range h.PlayerIDs {
		u, err := d.userForProjection(ctx, playerID)
		if err != nil || u == nil {
			continue
		}
		if err := d.proj.SetScore(ctx, u); err != nil {
			d.log.Warnf("room %s: leaderboard update for %s failed, reconciler will catch up: %v", roomID, playerID, err)
		}
	}
}

func (d *Dispatcher) userForProjection(ctx context.Context, playerID string) (*store.User, error) {
	uow, err := d.pipe.Store().BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)
	return uow.Users().GetByID(ctx, playerID)
}

func toStoreWinType(w rules.WinType) store.WinType {
	switch w {
	case rules.Normal:
		return store.WinNormal
	case rules.Pairs:
		return store.WinPairs
	case rules.OkeyDiscard:
		return store.WinOkeyDiscard
	default:
		return store.WinDeckEmpty
	}
}
