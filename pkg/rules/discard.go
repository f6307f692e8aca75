package rules

import "github.com/okeyrelay/core/pkg/tiles"

// tileUtility scores how useful a tile is to keep: wildcards score
// highest, tiles adjacent (same color, value within 1) to another
// tile in hand score well, isolated tiles score lowest.
func tileUtility(hand tiles.Hand, t tiles.Tile) int {
	if t.IsWild() {
		return 100
	}
	score := 0
	for _, other := range hand {
		if other.ID == t.ID || other.IsWild() {
			continue
		}
		if other.Value == t.Value && other.Color != t.Color {
			score += 3 // group potential
		}
		if other.Color == t.Color {
			diff := other.Value - t.Value
			if diff < 0 {
				diff = -diff
			}
			if diff == 1 {
				score += 4 // adjacent run potential
			} else if diff == 2 {
				score += 1 // one-gap run potential
			}
		}
	}
	return score
}

// SuggestBestDiscard returns the tile whose removal from a 15-tile
// hand minimizes lost hand utility — the tile least useful to keep.
// Never returns a wildcard while a non-wild alternative exists.
// Auto-play and bots pick their discard with bot.Engine.DecideDiscard
// instead; nothing in this repository calls this function.
func SuggestBestDiscard(hand15 tiles.Hand) tiles.Tile {
	var best tiles.Tile
	bestScore := -1
	haveCandidate := false
	for _, t := range hand15 {
		if t.IsWild() {
			continue
		}
		score := tileUtility(hand15, t)
		if !haveCandidate || score < bestScore {
			best = t
			bestScore = score
			haveCandidate = true
		}
	}
	if !haveCandidate {
		// All-wild hand: nothing better to do than discard one of them.
		return hand15[0]
	}
	return best
}
