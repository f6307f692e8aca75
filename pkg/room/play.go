package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okeyrelay/core/pkg/bot"
	"github.com/okeyrelay/core/pkg/fairness"
	"github.com/okeyrelay/core/pkg/okerr"
	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/tiles"
	"github.com/okeyrelay/core/pkg/timer"
)

// handleStartGame runs the Shuffling and Dealing phases atomically
// (spec.md §4.2): fill empty seats with Normal bots, shuffle via the
// fairness protocol, deal, and start the first turn.
func (r *Room) handleStartGame(cmd Command) error {
	if r.phase != Waiting && r.phase != Ready {
		return okerr.New(okerr.InvalidPhase, "game already started")
	}
	if r.rosterCount == 0 {
		return okerr.New(okerr.InvalidAction, "no players seated")
	}

	for r.rosterCount < 4 {
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
			BotEngine:   bot.NewEngine(bot.Normal, time.Now().UnixNano()),
		}
		r.seats[seat] = p
		r.playerByID[id] = p
		r.rosterCount++
	}

	r.phase = Shuffling
	r.nonce++
	set, indicator, commitment, err := fairness.Shuffle(r.clientSeed, r.nonce)
	if err != nil {
		return okerr.New(okerr.FatalInvariant, "shuffle failed: "+err.Error())
	}
	r.commitment = commitment
	r.indicator = indicator

	remaining, _, ok := tiles.Hand(set).Remove(indicator.ID)
	if !ok || len(remaining) != 105 {
		panic("tile count diverged from 106 during shuffle")
	}

	r.phase = Dealing
	dealt, ok := tiles.Deal(remaining)
	if !ok {
		panic("deal failed on a 105-tile remainder")
	}
	for seat := 0; seat < 4; seat++ {
		r.seats[seat].Hand = dealt.Hands[seat]
		if r.seats[seat].IsBot {
			r.seats[seat].BotEngine.Memory().ObserveHand(r.seats[seat].Hand)
		}
	}
	r.deck = dealt.Deck
	r.discard = nil

	r.phase = Playing
	r.turnNumber = 1
	r.currentTurn = tiles.South
	// The dealer (South) received 15 tiles and starts directly in
	// WaitingForDiscard (spec.md §4.2).
	r.subPhase = WaitingForDiscard
	r.seats[tiles.South].HasDrawn = true

	r.broadcastDomain(DomainEvent{Kind: EvGameStarted, TotalPlayers: r.rosterCount, CommitmentHash: r.commitment.Hash}, "")
	r.broadcastProjection()
	r.startTurnTimer()
	r.maybeRunBotTurn()
	return nil
}

func (r *Room) startTurnTimer() {
	if r.activeTimer != nil {
		r.activeTimer.Stop()
	}
	current := r.seats[r.currentTurn]
	r.activeTimer = timer.Start(context.Background(), r.cfg.ID, current.ID, r.turnNumber, timer.DefaultDuration)
}

func (r *Room) stopTurnTimer() {
	if r.activeTimer != nil {
		r.activeTimer.Stop()
		r.activeTimer = nil
	}
}

func (r *Room) handleTimerEvent(ev timer.Event) {
	if r.phase != Playing {
		return
	}
	switch ev.Kind {
	case timer.Tick:
		r.emit(OutboundMessage{Kind: OutTimerStartRequest, ToPlayerID: "", TimerTurn: ev.TurnNumber, TimerPlayer: ev.PlayerID})
		r.broadcastDomain(DomainEvent{
			Kind:       EvTurnTimerTick,
			PlayerID:   ev.PlayerID,
			TurnNumber: ev.TurnNumber,
			TimeLeft:   ev.RemainingSecs,
			IsCritical: ev.IsCritical,
		}, "")
		if ev.IsCritical {
			r.broadcastTick(ev)
		}
	case timer.Timeout:
		r.broadcastDomain(DomainEvent{Kind: EvPlayerTimeout, PlayerID: ev.PlayerID, TurnNumber: ev.TurnNumber}, "")
		r.autoPlay(ev.PlayerID)
		r.broadcastDomain(DomainEvent{Kind: EvAutoPlayTriggered, PlayerID: ev.PlayerID, TurnNumber: ev.TurnNumber}, "")
	}
}

func (r *Room) broadcastTick(ev timer.Event) {
	for _, p := range r.seats {
		if p == nil || p.IsBot || !p.Connected {
			continue
		}
		r.emit(OutboundMessage{Kind: OutProjection, ToPlayerID: p.ID, Projection: r.buildProjection(p.ID)})
	}
}

// autoPlay synthesizes a transient Easy-bot decision over the timed-
// out player's current hand, per spec.md §4.4.
func (r *Room) autoPlay(playerID string) {
	p, ok := r.playerByID[playerID]
	if !ok || r.currentTurn != p.Seat {
		return
	}
	engine := bot.NewEngine(bot.Easy, time.Now().UnixNano())

	if r.subPhase == WaitingForDraw {
		var hasDiscard bool
		var top tiles.Tile
		if len(r.discard) > 0 {
			top = r.discard[len(r.discard)-1]
			hasDiscard = true
		}
		if engine.DecideDrawSource(p.Hand, top, hasDiscard) == bot.DrawFromDiscard {
			_ = r.handleDrawFromDiscard(playerID)
		} else {
			_ = r.handleDrawFromDeck(playerID)
		}
	}

	if r.subPhase == WaitingForDiscard && r.currentTurn == p.Seat {
		decision := engine.DecideDiscard(p.Hand, r.indicator)
		if decision.DeclareWin {
			_ = r.handleDeclareWin(playerID, decision.Discard.ID)
		} else {
			_ = r.handleDiscard(playerID, decision.Discard.ID)
		}
	}
}

func (r *Room) maybeRunBotTurn() {
	if r.phase != Playing {
		return
	}
	current := r.seats[r.currentTurn]
	if current == nil || !current.IsBot {
		return
	}
	engine := current.BotEngine

	if r.subPhase == WaitingForDraw {
		var hasDiscard bool
		var top tiles.Tile
		if len(r.discard) > 0 {
			top = r.discard[len(r.discard)-1]
			hasDiscard = true
		}
		if engine.DecideDrawSource(current.Hand, top, hasDiscard) == bot.DrawFromDiscard {
			_ = r.handleDrawFromDiscard(current.ID)
		} else {
			_ = r.handleDrawFromDeck(current.ID)
		}
	}

	if r.phase == Playing && r.subPhase == WaitingForDiscard && r.seats[r.currentTurn] == current {
		decision := engine.DecideDiscard(current.Hand, r.indicator)
		if decision.DeclareWin {
			_ = r.handleDeclareWin(current.ID, decision.Discard.ID)
		} else {
			_ = r.handleDiscard(current.ID, decision.Discard.ID)
		}
	}
}

func (r *Room) requirePlayingTurn(playerID string, want SubPhase) (*Player, error) {
	if r.phase != Playing {
		return nil, okerr.New(okerr.InvalidPhase, "room is not playing")
	}
	p, ok := r.playerByID[playerID]
	if !ok {
		return nil, okerr.New(okerr.NotFound, "player not in room")
	}
	if p.Seat != r.currentTurn {
		return nil, okerr.NotYourTurnErr(r.seats[r.currentTurn].ID)
	}
	if r.subPhase != want {
		return nil, okerr.New(okerr.InvalidPhase, fmt.Sprintf("expected sub-phase %s", want))
	}
	return p, nil
}

func (r *Room) handleDrawFromDeck(playerID string) error {
	p, err := r.requirePlayingTurn(playerID, WaitingForDraw)
	if err != nil {
		return err
	}
	if len(r.deck) == 0 {
		r.finishDeckExhausted()
		return nil
	}
	drawn := r.deck[0]
	r.deck = r.deck[1:]
	p.Hand = p.Hand.Add(drawn)
	p.HasDrawn = true
	r.subPhase = WaitingForDiscard
	if p.IsBot {
		p.BotEngine.Memory().Observe(drawn)
	}
	r.emitDomain(p.ID, DomainEvent{Kind: EvTileDrawn, PlayerID: p.ID, Tile: &drawn, FromDiscard: false})
	r.broadcastDomain(DomainEvent{Kind: EvOpponentDrewTile, PlayerID: p.ID, FromDiscard: false}, p.ID)
	r.broadcastDomain(DomainEvent{Kind: EvDeckUpdated, DeckRemaining: len(r.deck), DiscardCount: len(r.discard)}, "")
	r.broadcastProjection()
	return nil
}

func (r *Room) handleDrawFromDiscard(playerID string) error {
	p, err := r.requirePlayingTurn(playerID, WaitingForDraw)
	if err != nil {
		return err
	}
	if len(r.discard) == 0 {
		return okerr.New(okerr.InvalidAction, "discard pile empty")
	}
	top := r.discard[len(r.discard)-1]
	r.discard = r.discard[:len(r.discard)-1]
	p.Hand = p.Hand.Add(top)
	p.HasDrawn = true
	r.subPhase = WaitingForDiscard
	if p.IsBot {
		p.BotEngine.Memory().Observe(top)
	}
	for _, other := range r.seats {
		if other != nil && other.IsBot && other.ID != p.ID {
			other.BotEngine.Memory().RecordDiscardPickup(p.ID, top)
		}
	}
	r.emitDomain(p.ID, DomainEvent{Kind: EvTileDrawn, PlayerID: p.ID, Tile: &top, FromDiscard: true})
	r.broadcastDomain(DomainEvent{Kind: EvOpponentDrewTile, PlayerID: p.ID, Tile: &top, FromDiscard: true}, p.ID)
	r.broadcastDomain(DomainEvent{Kind: EvDeckUpdated, DeckRemaining: len(r.deck), DiscardCount: len(r.discard)}, "")
	r.broadcastProjection()
	return nil
}

func (r *Room) handleDiscard(playerID string, tileID int) error {
	p, err := r.requirePlayingTurn(playerID, WaitingForDiscard)
	if err != nil {
		return err
	}
	newHand, tile, ok := p.Hand.Remove(tileID)
	if !ok {
		return okerr.New(okerr.InvalidAction, "tile not in hand")
	}

	if len(newHand)+1 == 15 {
		win := rules.CheckWinningHand(p.Hand, r.indicator)
		if win.Type != rules.NotWinning && win.Discard.ID == tileID {
			return r.finishWithWin(p, win)
		}
	}

	p.Hand = newHand
	r.discard = append(r.discard, tile)
	for _, other := range r.seats {
		if other != nil && other.IsBot {
			other.BotEngine.Memory().Observe(tile)
		}
	}
	r.broadcastDomain(DomainEvent{Kind: EvTileDiscarded, PlayerID: p.ID, Tile: &tile}, "")
	r.advanceTurn()
	return nil
}

func (r *Room) handleDeclareWin(playerID string, discardTileID int) error {
	p, err := r.requirePlayingTurn(playerID, WaitingForDiscard)
	if err != nil {
		return err
	}
	win := rules.CheckWinningHand(p.Hand, r.indicator)
	if win.Type == rules.NotWinning || win.Discard.ID != discardTileID {
		return okerr.New(okerr.InvalidAction, "hand does not win with that discard")
	}
	return r.finishWithWin(p, win)
}

func (r *Room) finishWithWin(p *Player, win rules.WinResult) error {
	r.stopTurnTimer()
	r.broadcastDomain(DomainEvent{Kind: EvGamePhaseChanged, OldPhase: r.phase, NewPhase: Finished, PlayerID: p.ID, Reason: win.Type.String()}, "")
	r.phase = Finished
	r.finishedAt = time.Now()

	historyID := uuid.NewString()
	playerIDs := make([]string, 0, 4)
	for _, seat := range r.seats {
		if seat != nil {
			playerIDs = append(playerIDs, seat.ID)
		}
	}

	r.emit(OutboundMessage{
		Kind: OutGameHistory,
		History: &GameHistoryRecord{
			ID:         historyID,
			RoomID:     r.cfg.ID,
			WinnerID:   p.ID,
			WinType:    win.Type,
			Score:      win.Score,
			Stake:      r.cfg.Stake,
			PlayerIDs:  playerIDs,
			FinishedAt: r.finishedAt,
		},
	})
	r.emitReveal(historyID)
	r.broadcastProjection()
	return nil
}

// finishDeckExhausted ends the hand with no winner when the deck runs
// out mid-draw (spec.md §4.2: "Playing -> Finished ... deck
// exhausted").
func (r *Room) finishDeckExhausted() {
	r.stopTurnTimer()
	r.broadcastDomain(DomainEvent{Kind: EvGamePhaseChanged, OldPhase: r.phase, NewPhase: Finished, Reason: "deck exhausted"}, "")
	r.phase = Finished
	r.finishedAt = time.Now()

	historyID := uuid.NewString()
	playerIDs := make([]string, 0, 4)
	for _, seat := range r.seats {
		if seat != nil {
			playerIDs = append(playerIDs, seat.ID)
		}
	}
	r.emit(OutboundMessage{
		Kind: OutGameHistory,
		History: &GameHistoryRecord{
			ID:         historyID,
			RoomID:     r.cfg.ID,
			WinnerID:   "",
			WinType:    rules.NotWinning,
			Stake:      r.cfg.Stake,
			PlayerIDs:  playerIDs,
			FinishedAt: r.finishedAt,
		},
	})
	r.emitReveal(historyID)
	r.broadcastProjection()
}

func (r *Room) cancelGame(cause string) {
	r.stopTurnTimer()
	r.broadcastDomain(DomainEvent{Kind: EvGamePhaseChanged, OldPhase: r.phase, NewPhase: Cancelled, Reason: cause}, "")
	r.phase = Cancelled
	r.finishedAt = time.Now()

	historyID := uuid.NewString()
	playerIDs := make([]string, 0, 4)
	for _, seat := range r.seats {
		if seat != nil {
			playerIDs = append(playerIDs, seat.ID)
		}
	}
	r.emit(OutboundMessage{
		Kind: OutGameHistory,
		History: &GameHistoryRecord{
			ID:          historyID,
			RoomID:      r.cfg.ID,
			Stake:       r.cfg.Stake,
			PlayerIDs:   playerIDs,
			FinishedAt:  r.finishedAt,
			Cancelled:   true,
			CancelCause: cause,
		},
	})
	r.emitReveal(historyID)
	r.broadcastProjection()
}

// forceCancelled is invoked from Run's recover() on a fatal internal
// invariant (spec.md §4.2 class-(c) failure semantics).
func (r *Room) forceCancelled(cause string) {
	r.cancelGame(cause)
}

func (r *Room) emitReveal(historyID string) {
	r.emit(OutboundMessage{
		Kind: OutReveal,
		Reveal: &RevealRecord{
			RoomID:         r.cfg.ID,
			ServerSeed:     r.commitment.ServerSeed,
			InitialState:   r.commitment.InitialState,
			Nonce:          r.commitment.Nonce,
			ClientSeed:     r.commitment.ClientSeed,
			CommitmentHash: r.commitment.Hash,
			GameHistoryID:  historyID,
		},
	})
}

func (r *Room) advanceTurn() {
	r.currentTurn = r.currentTurn.Next()
	r.turnNumber++
	next := r.seats[r.currentTurn]
	next.HasDrawn = false
	r.subPhase = WaitingForDraw
	r.broadcastDomain(DomainEvent{Kind: EvTurnChanged, NextPlayerID: next.ID, NextSeat: next.Seat, TurnNumber: r.turnNumber}, "")
	r.broadcastProjection()
	r.startTurnTimer()
	r.maybeRunBotTurn()
}

func (r *Room) handleDisconnect(playerID string) error {
	p, ok := r.playerByID[playerID]
	if !ok {
		return okerr.New(okerr.NotFound, "player not in room")
	}
	p.Connected = false
	if r.connReg != nil {
		r.connReg.MarkDisconnected(playerID, time.Now())
	}
	r.broadcastDomain(DomainEvent{Kind: EvPlayerDisconnected, PlayerID: p.ID, PlayerName: p.DisplayName, Seat: p.Seat}, p.ID)
	if r.phase == Waiting {
		return r.handleLeave(Command{PlayerID: playerID})
	}
	return nil
}

func (r *Room) handleReconnect(playerID, connID string) error {
	p, ok := r.playerByID[playerID]
	if !ok {
		return okerr.New(okerr.NotFound, "player not in room")
	}
	if r.connReg != nil && !r.connReg.CanReconnect(playerID, time.Now()) {
		return okerr.New(okerr.ReconnectExpired, "reconnect window expired")
	}
	p.Connected = true
	p.ConnID = connID
	if r.connReg != nil {
		r.connReg.Save(playerID, r.cfg.ID, connID, time.Now())
	}
	if r.activeTimer != nil && r.seats[r.currentTurn].ID == playerID {
		r.activeTimer.Extend(5 * time.Second)
	}
	r.emitDomain(playerID, DomainEvent{Kind: EvReconnected, PlayerID: playerID, Seat: p.Seat})
	r.broadcastDomain(DomainEvent{Kind: EvPlayerReconnected, PlayerID: p.ID, PlayerName: p.DisplayName, Seat: p.Seat}, p.ID)
	r.emitProjectionTo(playerID)
	return nil
}
