package rules

import (
	"testing"

	"github.com/okeyrelay/core/pkg/tiles"
	"github.com/stretchr/testify/require"
)

func tile(id int, c tiles.Color, v int) tiles.Tile {
	return tiles.Tile{ID: id, Color: c, Value: v}
}

func wild(id int) tiles.Tile {
	return tiles.Tile{ID: id, IsFalseJoker: true}
}

func TestIsValidMeldRun(t *testing.T) {
	run := []tiles.Tile{tile(1, tiles.Red, 4), tile(2, tiles.Red, 5), tile(3, tiles.Red, 6)}
	require.Equal(t, Run, IsValidMeld(run))
}

func TestIsValidMeldRunWrapOnlyLengthThree(t *testing.T) {
	wrap3 := []tiles.Tile{tile(1, tiles.Blue, 12), tile(2, tiles.Blue, 13), tile(3, tiles.Blue, 1)}
	require.Equal(t, Run, IsValidMeld(wrap3))

	wrap4 := []tiles.Tile{tile(1, tiles.Blue, 11), tile(2, tiles.Blue, 12), tile(3, tiles.Blue, 13), tile(4, tiles.Blue, 1)}
	require.Equal(t, Invalid, IsValidMeld(wrap4))
}

func TestIsValidMeldGroup(t *testing.T) {
	group := []tiles.Tile{tile(1, tiles.Red, 7), tile(2, tiles.Blue, 7), tile(3, tiles.Black, 7)}
	require.Equal(t, Group, IsValidMeld(group))

	dup := []tiles.Tile{tile(1, tiles.Red, 7), tile(2, tiles.Red, 7), tile(3, tiles.Black, 7)}
	require.Equal(t, Invalid, IsValidMeld(dup))
}

func TestIsValidMeldWithWildcards(t *testing.T) {
	withWild := []tiles.Tile{tile(1, tiles.Red, 4), wild(2), tile(3, tiles.Red, 6)}
	require.Equal(t, Run, IsValidMeld(withWild))
}

func TestIsValidMeldInvariantUnderPermutation(t *testing.T) {
	a := []tiles.Tile{tile(1, tiles.Red, 4), tile(2, tiles.Red, 5), tile(3, tiles.Red, 6)}
	b := []tiles.Tile{tile(3, tiles.Red, 6), tile(1, tiles.Red, 4), tile(2, tiles.Red, 5)}
	require.Equal(t, IsValidMeld(a), IsValidMeld(b))
}

func TestIsValidMeldTooShort(t *testing.T) {
	require.Equal(t, Invalid, IsValidMeld([]tiles.Tile{tile(1, tiles.Red, 4), tile(2, tiles.Red, 5)}))
}

func TestCheckWinningHandRunsAndGroupPlusDiscard(t *testing.T) {
	id := 0
	next := func(c tiles.Color, v int) tiles.Tile {
		id++
		return tile(id, c, v)
	}
	hand := tiles.Hand{
		next(tiles.Red, 1), next(tiles.Red, 2), next(tiles.Red, 3),
		next(tiles.Blue, 1), next(tiles.Blue, 2), next(tiles.Blue, 3),
		next(tiles.Red, 7), next(tiles.Blue, 7), next(tiles.Black, 7), next(tiles.Yellow, 7),
		next(tiles.Black, 9), next(tiles.Black, 10), next(tiles.Black, 11), next(tiles.Black, 12),
		next(tiles.Yellow, 12), // extra tile, discard candidate
	}
	result := CheckWinningHand(hand, tiles.Tile{})
	require.Equal(t, Normal, result.Type)
}

func TestCheckWinningHandNotWinning(t *testing.T) {
	id := 0
	next := func(c tiles.Color, v int) tiles.Tile {
		id++
		return tile(id, c, v)
	}
	hand := make(tiles.Hand, 0, 15)
	for i := 0; i < 15; i++ {
		hand = append(hand, next(tiles.Color([]tiles.Color{tiles.Red, tiles.Blue, tiles.Black, tiles.Yellow}[i%4]), (i%13)+1))
	}
	result := CheckWinningHand(hand, tiles.Tile{})
	require.Equal(t, NotWinning, result.Type)
}

func TestScoreWinTable(t *testing.T) {
	require.Equal(t, 2, ScoreWin(Normal))
	require.Equal(t, 3, ScoreWin(Pairs))
	require.Equal(t, 4, ScoreWin(OkeyDiscard))
}
