package room

import (
	"time"
)

// buildProjection renders the per-player view of spec.md §4.2: the
// viewer's own full hand, opponents reduced to seat/name/tile-count,
// and room-wide public facts. Opponent tile identities never appear
// here, regardless of phase.
func (r *Room) buildProjection(viewerID string) *Projection {
	viewer := r.playerByID[viewerID]
	proj := &Projection{
		RoomID:          r.cfg.ID,
		Phase:           r.phase,
		SubPhase:        r.subPhase,
		Indicator:       r.indicator,
		CurrentTurn:     r.currentTurn,
		DeckRemaining:   len(r.deck),
		CommitmentHash:  r.commitment.Hash,
		ServerTimestamp: time.Now(),
	}
	if viewer != nil {
		proj.OwnHand = viewer.Hand.SortedByColorThenValue()
	}
	if len(r.discard) > 0 {
		top := r.discard[len(r.discard)-1]
		proj.TopOfDiscard = &top
	}
	for _, p := range r.seats {
		if p == nil || p.ID == viewerID {
			continue
		}
		proj.Opponents = append(proj.Opponents, OpponentView{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Seat:        p.Seat,
			TileCount:   len(p.Hand),
			Connected:   p.Connected,
		})
	}
	return proj
}

func (r *Room) emitProjectionTo(playerID string) {
	p := r.playerByID[playerID]
	if p == nil || p.IsBot {
		return
	}
	r.emit(OutboundMessage{Kind: OutProjection, ToPlayerID: playerID, Projection: r.buildProjection(playerID)})
}

// broadcastProjection emits an individualized projection to every
// connected human; bot players read state in-process and receive
// none (spec.md §4.2).
func (r *Room) broadcastProjection() {
	for _, p := range r.seats {
		if p == nil || p.IsBot || !p.Connected {
			continue
		}
		r.emitProjectionTo(p.ID)
	}
}
