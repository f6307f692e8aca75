package room

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/okeyrelay/core/pkg/bot"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/fairness"
	"github.com/okeyrelay/core/pkg/okerr"
	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/tiles"
	"github.com/okeyrelay/core/pkg/timer"
)

const inboundBufferSize = 32

// Summary is a lock-free, eventually-consistent snapshot the room
// loop publishes after every command, letting the manager answer
// lobby-style queries (list rooms, find a player's room) without
// touching the loop's owned state. Grounded on the teacher's
// TableSnapshot (pkg/server/events.go): an immutable struct handed out
// for external reads instead of a guarded getter.
type Summary struct {
	ID          string
	Name        string
	Phase       Phase
	PlayerCount int
	PlayerIDs   []string
	Stake       int64
	FinishedAt  time.Time
}

// Room is one authoritative, single-writer game instance.
type Room struct {
	cfg Config
	log slog.Logger

	inbound  chan Command
	outbound chan OutboundMessage
	summary  atomic.Pointer[Summary]

	connReg *connreg.Registry

	// --- state owned exclusively by the run loop goroutine ---
	phase       Phase
	subPhase    SubPhase
	seats       [4]*Player
	playerByID  map[string]*Player
	rosterCount int

	deck      []tiles.Tile
	discard   []tiles.Tile
	indicator tiles.Tile

	commitment fairness.Commitment
	nonce      int64
	clientSeed string

	currentTurn tiles.Seat
	turnNumber  int

	activeTimer *timer.Timer
	cancelCtx   atomic.Pointer[context.CancelFunc]

	finishedAt time.Time
}

// New constructs a room in Waiting, seating the creator at South, per
// spec.md §4.2's CreateRoom.
func New(cfg Config, creatorID, creatorName string, connReg *connreg.Registry) *Room {
	r := &Room{
		cfg:        cfg,
		log:        cfg.Log,
		inbound:    make(chan Command, inboundBufferSize),
		outbound:   make(chan OutboundMessage, inboundBufferSize),
		connReg:    connReg,
		phase:      Waiting,
		playerByID: make(map[string]*Player),
	}
	r.seats[tiles.South] = &Player{ID: creatorID, DisplayName: creatorName, Seat: tiles.South, Connected: true}
	r.playerByID[creatorID] = r.seats[tiles.South]
	r.rosterCount = 1
	r.publishSummary()
	return r
}

func (r *Room) Inbound() chan<- Command          { return r.inbound }
func (r *Room) Outbound() <-chan OutboundMessage { return r.outbound }
func (r *Room) ID() string                       { return r.cfg.ID }

// Stop tears down the room's loop goroutine immediately, used by the
// manager to force-retire a room (e.g. on server shutdown) outside
// the normal Finished/Cancelled termination paths.
func (r *Room) Stop() {
	if cancel := r.cancelCtx.Load(); cancel != nil {
		(*cancel)()
	}
}

// Summary returns the most recently published lock-free snapshot.
func (r *Room) Summary() Summary {
	if s := r.summary.Load(); s != nil {
		return *s
	}
	return Summary{ID: r.cfg.ID, Name: r.cfg.Name, Phase: r.phase}
}

// Submit sends cmd on the inbound channel and blocks for its reply,
// or until ctx is cancelled. A convenience wrapper over the raw
// channel for synchronous callers (the transport layer).
func (r *Room) Submit(ctx context.Context, cmd Command) error {
	if cmd.Reply == nil {
		cmd.Reply = newReply()
	}
	select {
	case r.inbound <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.Reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the single-writer loop: it owns every read and write of the
// room's mutable state and must be launched in exactly one goroutine
// per room (spec.md §4.2).
func (r *Room) Run(ctx context.Context) {
	defer close(r.outbound)
	runCtx, cancel := context.WithCancel(ctx)
	r.cancelCtx.Store(&cancel)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("room %s: fatal invariant, cancelling: %v", r.cfg.ID, rec)
			r.forceCancelled(fmt.Sprintf("panic: %v", rec))
		}
	}()

	var timerEvents <-chan timer.Event
	for {
		if r.activeTimer != nil {
			timerEvents = r.activeTimer.Events()
		} else {
			timerEvents = nil
		}

		select {
		case <-runCtx.Done():
			return

		case cmd, ok := <-r.inbound:
			if !ok {
				return
			}
			r.dispatch(cmd)

		case ev, ok := <-timerEvents:
			if !ok {
				continue
			}
			r.handleTimerEvent(ev)
		}

		if r.phase == Finished || r.phase == Cancelled {
			return
		}
	}
}

func (r *Room) dispatch(cmd Command) {
	var err error
	switch cmd.Type {
	case CmdJoinRoom:
		err = r.handleJoin(cmd)
	case CmdLeaveRoom:
		err = r.handleLeave(cmd)
	case CmdStartGame:
		err = r.handleStartGame(cmd)
	case CmdAddBots:
		err = r.handleAddBots(cmd)
	case CmdSetClientSeed:
		err = r.handleSetClientSeed(cmd)
	case CmdDrawFromDeck:
		err = r.handleDrawFromDeck(cmd.PlayerID)
	case CmdDrawFromDiscard:
		err = r.handleDrawFromDiscard(cmd.PlayerID)
	case CmdDiscard:
		err = r.handleDiscard(cmd.PlayerID, cmd.TileID)
	case CmdDeclareWin:
		err = r.handleDeclareWin(cmd.PlayerID, cmd.TileID)
	case CmdDisconnect:
		err = r.handleDisconnect(cmd.PlayerID)
	case CmdReconnect:
		err = r.handleReconnect(cmd.PlayerID, cmd.ConnID)
	default:
		err = okerr.New(okerr.InvalidAction, "unknown command")
	}

	if cmd.Reply != nil {
		select {
		case cmd.Reply <- err:
		default:
		}
	}
	if err != nil {
		if oe, ok := err.(*okerr.Error); ok {
			r.sendError(cmd.PlayerID, oe)
		}
	}
	r.publishSummary()
}

func (r *Room) sendError(playerID string, e *okerr.Error) {
	r.emit(OutboundMessage{
		Kind:       OutError,
		ToPlayerID: playerID,
		Err:        &OutboundError{Kind: e.Kind.String(), Msg: e.Msg, CorrectPlayerID: e.CorrectPlayerID},
	})
}

// emitDomain sends one differentiated domain event to a single
// connected human; bots never receive outbound traffic.
func (r *Room) emitDomain(toPlayerID string, ev DomainEvent) {
	p := r.playerByID[toPlayerID]
	if p == nil || p.IsBot || !p.Connected {
		return
	}
	r.emit(OutboundMessage{Kind: OutDomainEvent, ToPlayerID: toPlayerID, Domain: &ev})
}

// broadcastDomain sends ev to every connected human seat except
// excludePlayerID (typically the actor, who gets its own tailored
// event, or "" to include everyone).
func (r *Room) broadcastDomain(ev DomainEvent, excludePlayerID string) {
	for _, p := range r.seats {
		if p == nil || p.IsBot || !p.Connected || p.ID == excludePlayerID {
			continue
		}
		r.emitDomain(p.ID, ev)
	}
}

func (r *Room) emit(msg OutboundMessage) {
	select {
	case r.outbound <- msg:
	default:
		r.log.Warnf("room %s: outbound full, dropping %v", r.cfg.ID, msg.Kind)
	}
}

func (r *Room) publishSummary() {
	ids := make([]string, 0, r.rosterCount)
	for _, p := range r.seats {
		if p != nil {
			ids = append(ids, p.ID)
		}
	}
	r.summary.Store(&Summary{
		ID:          r.cfg.ID,
		Name:        r.cfg.Name,
		Phase:       r.phase,
		PlayerCount: len(ids),
		PlayerIDs:   ids,
		Stake:       r.cfg.Stake,
		FinishedAt:  r.finishedAt,
	})
}

// --- roster commands ---

func (r *Room) handleJoin(cmd Command) error {
	if _, ok := r.playerByID[cmd.PlayerID]; ok {
		// reconnection via JoinRoom is tolerated idempotently.
		r.seats[r.playerByID[cmd.PlayerID].Seat].Connected = true
		r.emitDomain(cmd.PlayerID, DomainEvent{Kind: EvRoomJoined, PlayerID: cmd.PlayerID, TotalPlayers: r.rosterCount})
		r.emitProjectionTo(cmd.PlayerID)
		return nil
	}
	if r.phase != Waiting && r.phase != Ready {
		return okerr.New(okerr.GameAlreadyStarted, "game already started")
	}
	seat, ok := r.firstFreeSeat()
	if !ok {
		return okerr.New(okerr.RoomFull, "room full")
	}
	p := &Player{ID: cmd.PlayerID, DisplayName: cmd.DisplayName, Seat: seat, Connected: true, ConnID: cmd.ConnID}
	r.seats[seat] = p
	r.playerByID[cmd.PlayerID] = p
	r.rosterCount++
	if r.connReg != nil {
		r.connReg.Save(cmd.PlayerID, r.cfg.ID, cmd.ConnID, time.Now())
	}
	if r.rosterCount == 4 {
		r.phase = Ready
	}
	r.emitDomain(cmd.PlayerID, DomainEvent{Kind: EvRoomJoined, PlayerID: cmd.PlayerID, Seat: seat, TotalPlayers: r.rosterCount})
	r.broadcastDomain(DomainEvent{Kind: EvPlayerJoined, PlayerID: p.ID, PlayerName: p.DisplayName, Seat: seat, TotalPlayers: r.rosterCount}, p.ID)
	r.broadcastProjection()
	return nil
}

func (r *Room) handleLeave(cmd Command) error {
	p, ok := r.playerByID[cmd.PlayerID]
	if !ok {
		return okerr.New(okerr.NotFound, "player not in room")
	}
	if r.phase == Playing {
		r.cancelGame(fmt.Sprintf("player %s left mid-game", cmd.PlayerID))
		return nil
	}
	r.emitDomain(cmd.PlayerID, DomainEvent{Kind: EvRoomLeft, PlayerID: cmd.PlayerID})
	delete(r.playerByID, cmd.PlayerID)
	r.seats[p.Seat] = nil
	r.rosterCount--
	if r.phase == Ready {
		r.phase = Waiting
	}
	r.broadcastDomain(DomainEvent{Kind: EvPlayerLeft, PlayerID: p.ID, PlayerName: p.DisplayName, Seat: p.Seat, TotalPlayers: r.rosterCount}, "")
	r.broadcastProjection()
	return nil
}

func (r *Room) handleAddBots(cmd Command) error {
	if r.phase != Waiting && r.phase != Ready {
		return okerr.New(okerr.GameAlreadyStarted, "game already started")
	}
	added := 0
	for added < cmd.BotCount {
		seat, ok := r.firstFreeSeat()
		if !ok {
			break
		}
		id := "bot-" + uuid.NewString()
		p := &Player{
			ID:          id,
			DisplayName: fmt.Sprintf("Bot %s", seat),
			Seat:        seat,
			Connected:   true,
			IsBot:       true,
			BotEngine:   bot.NewEngine(toBotDifficulty(cmd.BotDifficulty), time.Now().UnixNano()),
		}
		r.seats[seat] = p
		r.playerByID[id] = p
		r.rosterCount++
		added++
	}
	if r.rosterCount == 4 {
		r.phase = Ready
	}
	r.broadcastProjection()
	return nil
}

func toBotDifficulty(d Difficulty) bot.Difficulty {
	switch d {
	case BotEasy:
		return bot.Easy
	case BotHard:
		return bot.Hard
	case BotExpert:
		return bot.Expert
	default:
		return bot.Normal
	}
}

func (r *Room) handleSetClientSeed(cmd Command) error {
	if r.phase == Playing || r.phase == Finished {
		return okerr.New(okerr.InvalidPhase, "cannot set client seed after dealing")
	}
	r.clientSeed = cmd.ClientSeed
	return nil
}

func (r *Room) firstFreeSeat() (tiles.Seat, bool) {
	for _, s := range [4]tiles.Seat{tiles.South, tiles.East, tiles.North, tiles.West} {
		if r.seats[s] == nil {
			return s, true
		}
	}
	return 0, false
}
