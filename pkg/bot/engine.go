// Package bot implements the AI opponent engine used both for bot
// players and for timeout auto-play (spec.md §4.4). Grounded on
// lox-pokerforbots' complex bot (other_examples/.../sdk-bots-complex-handler.go.go):
// a per-seat struct holding a deterministic math/rand/v2-style source,
// a memory/state snapshot, and a difficulty-tuned strategy of scoring
// weights, deciding by threshold rather than search.
package bot

import (
	"math/rand"
	"time"

	"github.com/okeyrelay/core/pkg/rules"
	"github.com/okeyrelay/core/pkg/tiles"
)

// Difficulty tunes the bot's decision thresholds and think time.
type Difficulty int

const (
	Easy Difficulty = iota
	Normal
	Hard
	Expert
)

// Weights are the per-tile heuristic scores of spec.md §4.4.
type Weights struct {
	IsOkey              float64
	MeldParticipation   float64
	AdjacentPair        float64
	Isolated            float64
	BothCopiesSeenPenalty float64
	// DrawFromDiscardThreshold is the minimum marginal utility gain
	// required to draw from the discard pile instead of the deck.
	// Easy uses +Inf (always deck, except when the discard completes
	// a meld outright).
	DrawFromDiscardThreshold float64
}

func weightsFor(d Difficulty) Weights {
	switch d {
	case Easy:
		return Weights{IsOkey: 10, MeldParticipation: 3, AdjacentPair: 2, Isolated: -1, BothCopiesSeenPenalty: -0.5, DrawFromDiscardThreshold: largeSentinel}
	case Normal:
		return Weights{IsOkey: 10, MeldParticipation: 4, AdjacentPair: 2.5, Isolated: -1.5, BothCopiesSeenPenalty: -1, DrawFromDiscardThreshold: 1.5}
	case Hard:
		return Weights{IsOkey: 10, MeldParticipation: 5, AdjacentPair: 3, Isolated: -2, BothCopiesSeenPenalty: -2, DrawFromDiscardThreshold: 1.0}
	default: // Expert
		return Weights{IsOkey: 10, MeldParticipation: 6, AdjacentPair: 3.5, Isolated: -2.5, BothCopiesSeenPenalty: -3, DrawFromDiscardThreshold: 0.5}
	}
}

const largeSentinel = 1e18

// DrawSource is the bot's chosen draw action.
type DrawSource int

const (
	DrawFromDeck DrawSource = iota
	DrawFromDiscard
)

// Decision is the bot's discard-phase outcome.
type Decision struct {
	DeclareWin bool
	Discard    tiles.Tile
	// WinResult is populated when DeclareWin is true.
	WinResult rules.WinResult
}

// Engine is a stateful, per-seat decision maker.
type Engine struct {
	difficulty Difficulty
	weights    Weights
	memory     *Memory
	rng        *rand.Rand
}

// NewEngine constructs a bot engine for one seat. seed makes its
// think-time and any tie-break randomness reproducible in tests.
func NewEngine(difficulty Difficulty, seed int64) *Engine {
	return &Engine{
		difficulty: difficulty,
		weights:    weightsFor(difficulty),
		memory:     NewMemory(),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (e *Engine) Memory() *Memory { return e.memory }

// ThinkTime returns a simulated decision latency in [1.5s, 5.5s];
// Easy bots are fastest (spec.md §4.4).
func (e *Engine) ThinkTime() time.Duration {
	base := 1500 + e.rng.Int63n(4000) // ms
	switch e.difficulty {
	case Easy:
		base = 1500 + e.rng.Int63n(1500)
	case Expert:
		base = 3000 + e.rng.Int63n(2500)
	}
	return time.Duration(base) * time.Millisecond
}

// DecideDrawSource chooses between the deck and the discard pile's top
// tile, given the current hand (14 tiles, pre-draw).
func (e *Engine) DecideDrawSource(hand tiles.Hand, lastDiscard tiles.Tile, hasDiscard bool) DrawSource {
	if !hasDiscard {
		return DrawFromDeck
	}
	withDiscard := hand.Add(lastDiscard)
	if completesWinningMeld(withDiscard) {
		return DrawFromDiscard
	}
	if e.weights.DrawFromDiscardThreshold >= largeSentinel {
		for i := range hand {
			for j := i + 1; j < len(hand); j++ {
				if rules.IsValidMeld([]tiles.Tile{hand[i], hand[j], lastDiscard}) != rules.Invalid {
					return DrawFromDiscard
				}
			}
		}
		return DrawFromDeck
	}

	before := e.handUtility(hand)
	after := e.handUtility(withDiscard)
	marginal := after - before
	if marginal >= e.weights.DrawFromDiscardThreshold {
		return DrawFromDiscard
	}
	return DrawFromDeck
}

// DecideDiscard chooses the tile to discard from a 15-tile hand
// (after drawing), or signals a win declaration when the hand melds.
// Never discards the Okey tile while a non-wild alternative exists.
func (e *Engine) DecideDiscard(hand15 tiles.Hand, indicator tiles.Tile) Decision {
	win := rules.CheckWinningHand(hand15, indicator)
	if win.Type != rules.NotWinning {
		return Decision{DeclareWin: true, Discard: win.Discard, WinResult: win}
	}

	best := hand15[0]
	bestScore := largeSentinel
	haveNonWild := false
	for _, candidate := range hand15 {
		if candidate.IsWild() {
			continue
		}
		haveNonWild = true
		remaining := make(tiles.Hand, 0, len(hand15)-1)
		for _, t := range hand15 {
			if t.ID != candidate.ID {
				remaining = append(remaining, t)
			}
		}
		score := e.handUtility(remaining)
		if score < bestScore {
			bestScore = score
			best = candidate
		}
	}
	if !haveNonWild {
		best = hand15[0]
	}
	return Decision{DeclareWin: false, Discard: best}
}

// handUtility scores a hand under this engine's difficulty weights:
// wildcards score highly, tiles adjacent to another tile or
// participating in a complete meld score well, isolated tiles and
// tiles whose both copies the bot has already seen score poorly.
func (e *Engine) handUtility(h tiles.Hand) float64 {
	total := 0.0
	for _, t := range h {
		total += e.tileScore(h, t)
	}
	return total
}

func (e *Engine) tileScore(h tiles.Hand, t tiles.Tile) float64 {
	if t.IsWild() {
		return e.weights.IsOkey
	}

	score := 0.0
	isolated := true
	for _, other := range h {
		if other.ID == t.ID || other.IsWild() {
			continue
		}
		if other.Value == t.Value && other.Color != t.Color {
			score += e.weights.MeldParticipation
			isolated = false
		}
		if other.Color == t.Color {
			diff := other.Value - t.Value
			if diff < 0 {
				diff = -diff
			}
			if diff == 1 {
				score += e.weights.AdjacentPair
				isolated = false
			}
		}
	}
	if isolated {
		score += e.weights.Isolated
	}

	id := tiles.Identity{Color: t.Color, Value: t.Value}
	if e.memory.seen[id] >= maxSeenCount {
		score += e.weights.BothCopiesSeenPenalty
	}
	return score
}

func completesWinningMeld(h tiles.Hand) bool {
	if len(h) != 15 {
		return false
	}
	return rules.CheckWinningHand(h, tiles.Tile{}).Type != rules.NotWinning
}
