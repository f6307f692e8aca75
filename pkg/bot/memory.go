package bot

import "github.com/okeyrelay/core/pkg/tiles"

// maxSeenCount caps the per-(color,value) seen count at 2 (both
// physical copies), per spec.md §4.4.
const maxSeenCount = 2

// Memory tracks the tiles a bot has personally seen: its own hand,
// discarded tiles by any player, and the indicator. Grounded on
// lox-pokerforbots' complex bot's tableState struct
// (other_examples/.../sdk-bots-complex-handler.go.go), which holds an
// accumulating per-hand state snapshot the same way.
type Memory struct {
	seen               map[tiles.Identity]int
	discardPickups     map[string]tiles.Identity // opponent playerID -> tile they picked up
}

func NewMemory() *Memory {
	return &Memory{
		seen:           make(map[tiles.Identity]int),
		discardPickups: make(map[string]tiles.Identity),
	}
}

// Observe records that a tile has been seen (own hand, indicator, or a
// discard), capping the per-identity count at 2. False jokers are not
// tracked; Okey tiles are counted under their own color and value.
func (m *Memory) Observe(t tiles.Tile) {
	if t.IsFalseJoker {
		return
	}
	key := tiles.Identity{Color: t.Color, Value: t.Value}
	if m.seen[key] < maxSeenCount {
		m.seen[key]++
	}
}

func (m *Memory) ObserveHand(h tiles.Hand) {
	for _, t := range h {
		m.Observe(t)
	}
}

// AvailabilityProbability estimates how likely an unseen copy of
// (color, value) remains live: (2 - seenCount) / 2.
func (m *Memory) AvailabilityProbability(id tiles.Identity) float64 {
	seen := m.seen[id]
	if seen > maxSeenCount {
		seen = maxSeenCount
	}
	return float64(maxSeenCount-seen) / float64(maxSeenCount)
}

// RecordDiscardPickup notes that opponentID picked up tile from the
// discard pile; the bot now treats that opponent as valuing tiles
// adjacent to it.
func (m *Memory) RecordDiscardPickup(opponentID string, t tiles.Tile) {
	if t.IsWild() {
		return
	}
	m.discardPickups[opponentID] = tiles.Identity{Color: t.Color, Value: t.Value}
}

// OpponentValues reports the identity opponentID is known to value, if any.
func (m *Memory) OpponentValues(opponentID string) (tiles.Identity, bool) {
	id, ok := m.discardPickups[opponentID]
	return id, ok
}
