package rules

import "github.com/okeyrelay/core/pkg/tiles"

// WinType distinguishes the three ways a hand can win, each with its
// own score and (applied during Settlement) ELO multiplier.
type WinType int

const (
	NotWinning WinType = iota
	Normal
	Pairs
	OkeyDiscard
)

func (w WinType) String() string {
	switch w {
	case Normal:
		return "Normal"
	case Pairs:
		return "Pairs"
	case OkeyDiscard:
		return "OkeyDiscard"
	default:
		return "NotWinning"
	}
}

// WinResult is the outcome of CheckWinningHand.
type WinResult struct {
	Type    WinType
	Discard tiles.Tile
	Score   int
	// Melds is the winning partition of the remaining 14 tiles (empty
	// for a Pairs win, which has no meld partition).
	Melds [][]tiles.Tile
}

// ScoreWin implements spec.md §4.1's scoring table. The +1-per-wildcard
// bonus for tiles remaining in losers' hands is applied by the
// settlement pipeline, not here.
func ScoreWin(winType WinType) int {
	switch winType {
	case Normal:
		return 2
	case Pairs:
		return 3
	case OkeyDiscard:
		return 4
	default:
		return 0
	}
}

// CheckWinningHand attempts to partition 14 of the 15 tiles in hand
// into valid melds, trying each tile in turn as the mandatory discard.
// It also checks the Pairs win (seven disjoint same-color-same-value
// pairs plus one extra tile). When multiple results are possible it
// prefers the highest-scoring one, then the lowest discard value
// (spec.md §4.1's tie-break; false jokers sort as value 0, the
// lowest possible).
func CheckWinningHand(hand15 tiles.Hand, indicator tiles.Tile) WinResult {
	if len(hand15) != 15 {
		return WinResult{Type: NotWinning}
	}

	best := WinResult{Type: NotWinning}

	if pairDiscard, ok := checkPairsWin(hand15); ok {
		candidate := WinResult{Type: Pairs, Discard: pairDiscard, Score: ScoreWin(Pairs)}
		best = betterOf(best, candidate)
	}

	for i, discard := range hand15 {
		rest := make(tiles.Hand, 0, 14)
		rest = append(rest, hand15[:i]...)
		rest = append(rest, hand15[i+1:]...)

		melds, ok := partitionIntoMelds(rest)
		if !ok {
			continue
		}
		winType := Normal
		if discard.IsOkey {
			winType = OkeyDiscard
		}
		candidate := WinResult{
			Type:    winType,
			Discard: discard,
			Score:   ScoreWin(winType),
			Melds:   melds,
		}
		best = betterOf(best, candidate)
	}

	return best
}

// betterOf applies the tie-break rule: higher score wins; on a tie,
// the lower discard value wins (false joker = 0, lowest possible).
func betterOf(a, b WinResult) WinResult {
	if a.Type == NotWinning {
		return b
	}
	if b.Type == NotWinning {
		return a
	}
	if b.Score != a.Score {
		if b.Score > a.Score {
			return b
		}
		return a
	}
	if discardValue(b) < discardValue(a) {
		return b
	}
	return a
}

func discardValue(r WinResult) int {
	if r.Discard.IsFalseJoker {
		return 0
	}
	return r.Discard.Value
}

// checkPairsWin reports whether the 15 tiles contain seven disjoint
// (color, value) pairs plus one extra tile, which becomes the
// discard. Wildcards do not substitute into pairs in this
// implementation (a conservative reading of spec.md's "same color and
// value").
func checkPairsWin(hand15 tiles.Hand) (tiles.Tile, bool) {
	byIdentity := make(map[tiles.Identity][]tiles.Tile)
	var extras []tiles.Tile
	for _, t := range hand15 {
		if t.IsWild() {
			extras = append(extras, t)
			continue
		}
		key := tiles.Identity{Color: t.Color, Value: t.Value}
		byIdentity[key] = append(byIdentity[key], t)
	}

	pairCount := 0
	var leftover []tiles.Tile
	for _, group := range byIdentity {
		pairCount += len(group) / 2
		if len(group)%2 == 1 {
			leftover = append(leftover, group[len(group)-1])
		}
	}
	leftover = append(leftover, extras...)

	if pairCount == 7 && len(leftover) == 1 {
		return leftover[0], true
	}
	return tiles.Tile{}, false
}

// partitionIntoMelds attempts to split rest (14 tiles) entirely into
// valid melds of size >= 3. Backtracks over all ways to pick the meld
// containing the first remaining tile.
func partitionIntoMelds(rest tiles.Hand) ([][]tiles.Tile, bool) {
	if len(rest) == 0 {
		return nil, true
	}
	first := rest[0]
	others := rest[1:]

	maxMeld := len(rest)
	if maxMeld > 13 {
		maxMeld = 13
	}
	for size := 2; size <= min(maxMeld-1, len(others)); size++ {
		for combo, complement := range combinations(others, size) {
			candidate := append([]tiles.Tile{first}, combo...)
			if IsValidMeld(candidate) == Invalid {
				continue
			}
			restMelds, ok := partitionIntoMelds(tiles.Hand(complement))
			if ok {
				return append([][]tiles.Tile{candidate}, restMelds...), true
			}
		}
	}
	return nil, false
}

// combinations yields every way to choose k elements from items
// (order-preserving), paired with the complementary remainder, via a
// callback-style iterator so callers can break out early.
func combinations(items []tiles.Tile, k int) func(yield func([]tiles.Tile, []tiles.Tile) bool) {
	return func(yield func([]tiles.Tile, []tiles.Tile) bool) {
		n := len(items)
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			combo := make([]tiles.Tile, k)
			chosen := make(map[int]bool, k)
			for i, v := range idx {
				combo[i] = items[v]
				chosen[v] = true
			}
			var complement []tiles.Tile
			for i, t := range items {
				if !chosen[i] {
					complement = append(complement, t)
				}
			}
			if !yield(combo, complement) {
				return
			}

			// advance idx like an odometer
			i := k - 1
			for i >= 0 && idx[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
