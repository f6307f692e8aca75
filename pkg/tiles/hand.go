package tiles

import "sort"

// Hand is an ordered multiset of tiles held by one player. Invariant
// (enforced by callers, not this type): len(Hand) is 14 or 15 during
// play.
type Hand []Tile

// Contains reports whether id is present in the hand.
func (h Hand) Contains(id int) bool {
	for _, t := range h {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Remove returns a new hand with the tile matching id removed, and the
// removed tile. ok is false if id was not present.
func (h Hand) Remove(id int) (Hand, Tile, bool) {
	for i, t := range h {
		if t.ID == id {
			out := make(Hand, 0, len(h)-1)
			out = append(out, h[:i]...)
			out = append(out, h[i+1:]...)
			return out, t, true
		}
	}
	return h, Tile{}, false
}

// Add returns a new hand with t appended.
func (h Hand) Add(t Tile) Hand {
	out := make(Hand, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// SortedByColorThenValue returns a new hand sorted by color, then
// value; false jokers sort last. Idempotent under repeated sorting, as
// required by spec.md §8.
func (h Hand) SortedByColorThenValue() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsFalseJoker != b.IsFalseJoker {
			return !a.IsFalseJoker
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		return a.Value < b.Value
	})
	return out
}

// SortedByValueThenColor returns a new hand sorted by value, then
// color; false jokers sort last. Idempotent under repeated sorting.
func (h Hand) SortedByValueThenColor() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsFalseJoker != b.IsFalseJoker {
			return !a.IsFalseJoker
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		return a.Color < b.Color
	})
	return out
}

// CountByIdentity returns, per (color, value) key, the count of tiles
// in the hand other than false jokers; Okey tiles are counted under
// their own color and value.
type Identity struct {
	Color Color
	Value int
}

func (h Hand) CountByIdentity() map[Identity]int {
	out := make(map[Identity]int)
	for _, t := range h {
		if t.IsFalseJoker {
			continue
		}
		out[Identity{t.Color, t.Value}]++
	}
	return out
}
