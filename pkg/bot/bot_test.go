package bot

import (
	"testing"

	"github.com/okeyrelay/core/pkg/tiles"
	"github.com/stretchr/testify/require"
)

func tile(id int, c tiles.Color, v int) tiles.Tile {
	return tiles.Tile{ID: id, Color: c, Value: v}
}

func TestMemoryAvailabilityProbabilityDecreasesWithSightings(t *testing.T) {
	m := NewMemory()
	id := tiles.Identity{Color: tiles.Red, Value: 5}
	require.Equal(t, 1.0, m.AvailabilityProbability(id))

	m.Observe(tile(1, tiles.Red, 5))
	require.Equal(t, 0.5, m.AvailabilityProbability(id))

	m.Observe(tile(2, tiles.Red, 5))
	require.Equal(t, 0.0, m.AvailabilityProbability(id))

	// A third sighting (shouldn't happen, but must not go negative).
	m.Observe(tile(3, tiles.Red, 5))
	require.Equal(t, 0.0, m.AvailabilityProbability(id))
}

func TestMemoryIgnoresFalseJokers(t *testing.T) {
	m := NewMemory()
	m.Observe(tiles.Tile{ID: 1, IsFalseJoker: true})
	require.Empty(t, m.seen)
}

func TestThinkTimeWithinBounds(t *testing.T) {
	for _, d := range []Difficulty{Easy, Normal, Hard, Expert} {
		e := NewEngine(d, 42)
		for i := 0; i < 20; i++ {
			tt := e.ThinkTime()
			require.GreaterOrEqual(t, tt.Milliseconds(), int64(1500))
			require.LessOrEqual(t, tt.Milliseconds(), int64(5500))
		}
	}
}

func TestDecideDrawSourceTakesDiscardThatCompletesWin(t *testing.T) {
	e := NewEngine(Expert, 1)
	hand := tiles.Hand{
		tile(1, tiles.Red, 1), tile(2, tiles.Red, 2),
		tile(3, tiles.Blue, 1), tile(4, tiles.Blue, 2),
		tile(5, tiles.Black, 1), tile(6, tiles.Black, 2),
		tile(7, tiles.Yellow, 1), tile(8, tiles.Yellow, 2),
		tile(9, tiles.Red, 9), tile(10, tiles.Blue, 9),
		tile(11, tiles.Black, 9), tile(12, tiles.Yellow, 9),
		tile(13, tiles.Red, 12), tile(14, tiles.Red, 11),
	}
	discard := tile(15, tiles.Red, 13) // completes Red 11-12-13 run
	src := e.DecideDrawSource(hand, discard, true)
	require.Equal(t, DrawFromDiscard, src)
}

func TestDecideDrawSourceNoDiscardAvailable(t *testing.T) {
	e := NewEngine(Normal, 1)
	src := e.DecideDrawSource(tiles.Hand{}, tiles.Tile{}, false)
	require.Equal(t, DrawFromDeck, src)
}

func TestDecideDiscardAvoidsDiscardingOkeyWhenAlternativeExists(t *testing.T) {
	e := NewEngine(Normal, 7)
	hand := tiles.Hand{
		tile(1, tiles.Red, 1), tile(2, tiles.Red, 2), tile(3, tiles.Red, 3),
		tile(4, tiles.Blue, 5), tile(5, tiles.Blue, 6), tile(6, tiles.Blue, 7),
		tile(7, tiles.Black, 9), tile(8, tiles.Black, 10), tile(9, tiles.Black, 11),
		tile(10, tiles.Yellow, 2), tile(11, tiles.Yellow, 3), tile(12, tiles.Yellow, 4),
		tile(13, tiles.Red, 13),
		{ID: 14, IsOkey: true},
		tile(15, tiles.Blue, 12), // isolated, not part of any meld
	}
	indicator := tile(99, tiles.Black, 1)
	decision := e.DecideDiscard(hand, indicator)
	require.False(t, decision.Discard.IsOkey)
}
