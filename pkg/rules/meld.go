// Package rules is the pure, stateless Okey rule engine: meld
// validation, win detection, and scoring. Grounded on the shape of
// lamyinia-GoMahjong's riichi 4-player engine (a meld/partition
// evaluator operating over tile multisets) and on the teacher's
// pkg/poker/hand_evaluator.go (pure functions returning a typed
// result, never erroring on bad input).
package rules

import (
	"sort"

	"github.com/okeyrelay/core/pkg/tiles"
)

// MeldKind is the outcome of IsValidMeld.
type MeldKind int

const (
	Invalid MeldKind = iota
	Run
	Group
)

func (k MeldKind) String() string {
	switch k {
	case Run:
		return "Run"
	case Group:
		return "Group"
	default:
		return "Invalid"
	}
}

// IsValidMeld classifies a tile multiset as Run, Group, or Invalid per
// spec.md §3/§4.1. It depends only on the multiset, not the input
// order (required invariant, spec.md §8).
func IsValidMeld(h []tiles.Tile) MeldKind {
	if len(h) < 3 {
		return Invalid
	}

	var nonWild []tiles.Tile
	wildCount := 0
	for _, t := range h {
		if t.IsWild() {
			wildCount++
		} else {
			nonWild = append(nonWild, t)
		}
	}

	if len(nonWild) == 0 {
		// All-wild meld: valid for any length >= 3; ambiguous between
		// Run and Group, so prefer Group within its size bound and
		// fall back to Run otherwise.
		if len(h) <= 4 {
			return Group
		}
		if len(h) <= 13 {
			return Run
		}
		return Invalid
	}

	if isValidGroup(nonWild, len(h)) {
		return Group
	}
	if isValidRun(nonWild, len(h)) {
		return Run
	}
	return Invalid
}

func isValidGroup(nonWild []tiles.Tile, total int) bool {
	if total != 3 && total != 4 {
		return false
	}
	value := nonWild[0].Value
	seenColor := make(map[tiles.Color]bool, len(nonWild))
	for _, t := range nonWild {
		if t.Value != value {
			return false
		}
		if seenColor[t.Color] {
			return false
		}
		seenColor[t.Color] = true
	}
	return true
}

func isValidRun(nonWild []tiles.Tile, total int) bool {
	if total > 13 {
		return false
	}
	color := nonWild[0].Color
	values := make([]int, 0, len(nonWild))
	seen := make(map[int]bool, len(nonWild))
	for _, t := range nonWild {
		if t.Color != color {
			return false
		}
		if seen[t.Value] {
			return false
		}
		seen[t.Value] = true
		values = append(values, t.Value)
	}
	sort.Ints(values)

	// Normal (non-wrapping) windows of length `total` within [1,13].
	for start := 1; start <= 13-total+1; start++ {
		if fitsWindow(values, start, start+total-1) {
			return true
		}
	}

	// Wrap-around window 12-13-1, permitted only for length exactly 3.
	if total == 3 {
		ok := true
		for _, v := range values {
			if v != 12 && v != 13 && v != 1 {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func fitsWindow(sortedValues []int, lo, hi int) bool {
	for _, v := range sortedValues {
		if v < lo || v > hi {
			return false
		}
	}
	return true
}
