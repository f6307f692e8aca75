package tiles

import "math/rand"

// Shuffle performs a Fisher-Yates shuffle in place using rng, grounded
// on the teacher's Deck.Shuffle (pkg/poker/deck.go), generalized from
// rand.Rand.Shuffle over cards to the same over tiles.
func Shuffle(t []Tile, rng *rand.Rand) {
	rng.Shuffle(len(t), func(i, j int) {
		t[i], t[j] = t[j], t[i]
	})
}

// ChooseIndicator picks uniformly over the non-false-joker tiles in t,
// and marks both physical copies of the resulting Okey identity
// in-place. It returns the indicator tile (a copy, without IsOkey set
// on it — the indicator itself is never a playable Okey tile).
func ChooseIndicator(t []Tile, rng *rand.Rand) Tile {
	candidates := make([]int, 0, len(t))
	for i, tile := range t {
		if !tile.IsFalseJoker {
			candidates = append(candidates, i)
		}
	}
	idx := candidates[rng.Intn(len(candidates))]
	indicator := t[idx]

	okeyValue := indicator.Value%13 + 1
	for i := range t {
		if !t[i].IsFalseJoker && t[i].Color == indicator.Color && t[i].Value == okeyValue {
			t[i].IsOkey = true
		}
	}
	return indicator
}

// Seats enumerates the four table positions in counter-clockwise play
// order: South → West → North → East → South (spec.md §4.2).
type Seat int

const (
	South Seat = iota
	East
	North
	West
)

func (s Seat) String() string {
	switch s {
	case South:
		return "South"
	case East:
		return "East"
	case North:
		return "North"
	case West:
		return "West"
	default:
		return "Unknown"
	}
}

// Next returns the next seat counter-clockwise: (pos + 3) mod 4. This
// is the only correct turn order per spec.md §4.2; implementations
// must not use +1 mod 4.
func (s Seat) Next() Seat {
	return Seat((int(s) + 3) % 4)
}

// DealResult is the output of Deal: four hands in seat order (South
// first, as dealer) and the remaining facedown deck.
type DealResult struct {
	Hands [4]Hand
	Deck  []Tile
}

// Deal distributes tiles from a shuffled, post-indicator tile slice
// (the 105 tiles remaining once the indicator has been drawn, per the
// spec.md "Open Questions" convention of 48 remaining after dealing)
// into four hands of sizes 15, 14, 14, 14 in seat order, dealer first,
// and returns the remaining 48-tile deck.
func Deal(remaining []Tile) (DealResult, bool) {
	if len(remaining) != 105 {
		return DealResult{}, false
	}
	var res DealResult
	i := 0
	sizes := [4]int{15, 14, 14, 14}
	for seat := 0; seat < 4; seat++ {
		res.Hands[seat] = append(Hand{}, remaining[i:i+sizes[seat]]...)
		i += sizes[seat]
	}
	res.Deck = append([]Tile{}, remaining[i:]...)
	return res, true
}
