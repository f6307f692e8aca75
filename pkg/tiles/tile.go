// Package tiles implements the Okey tile model: colors, values, the
// full 106-tile set, and hands. It is pure data modeling, grounded on
// the teacher's pkg/poker/deck.go Card/Suit/Value shape (JSON
// marshaling pattern, unexported fields with accessor methods) adapted
// from a 52-card poker deck to the 106-tile Okey set.
package tiles

import (
	"encoding/json"
	"fmt"
)

// Color is one of the four tile colors.
type Color string

const (
	Yellow Color = "Yellow"
	Blue   Color = "Blue"
	Black  Color = "Black"
	Red    Color = "Red"
)

var allColors = [4]Color{Yellow, Blue, Black, Red}

// Tile is a single physical Okey tile. Equality is by ID; Color/Value
// are meaningless for false jokers.
type Tile struct {
	ID           int   `json:"id"`
	Color        Color `json:"Color"`
	Value        int   `json:"Value"`
	IsFalseJoker bool  `json:"IsFalseJoker"`
	IsOkey       bool  `json:"-"`
}

// wireTile mirrors the bit-exact commitment serialization field order
// from spec.md §6: id, Color, Value, IsFalseJoker, compact JSON.
// Color and Value are left out for false jokers.
type wireTile struct {
	ID           int    `json:"id"`
	Color        string `json:"Color,omitempty"`
	Value        int    `json:"Value,omitempty"`
	IsFalseJoker bool   `json:"IsFalseJoker"`
}

// MarshalJSON never includes IsOkey: the commitment covers only the
// initial shuffled order, never the post-indicator Okey flag.
func (t Tile) MarshalJSON() ([]byte, error) {
	w := wireTile{ID: t.ID, IsFalseJoker: t.IsFalseJoker}
	if !t.IsFalseJoker {
		w.Color = string(t.Color)
		w.Value = t.Value
	}
	return json.Marshal(w)
}

func (t *Tile) UnmarshalJSON(data []byte) error {
	var w wireTile
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.ID = w.ID
	t.Color = Color(w.Color)
	t.Value = w.Value
	t.IsFalseJoker = w.IsFalseJoker
	return nil
}

func (t Tile) String() string {
	if t.IsFalseJoker {
		return fmt.Sprintf("FJ#%d", t.ID)
	}
	return fmt.Sprintf("%s%d#%d", t.Color, t.Value, t.ID)
}

// IsWild reports whether t can fill any meld slot: the Okey identity
// tile or a false joker.
func (t Tile) IsWild() bool {
	return t.IsOkey || t.IsFalseJoker
}

// BuildFullSet returns the deterministic 106-tile set: for each
// (color, value) pair two copies (4×13×2 = 104) plus two false jokers,
// each with a unique, stable ID.
func BuildFullSet() []Tile {
	out := make([]Tile, 0, 106)
	id := 0
	for _, c := range allColors {
		for v := 1; v <= 13; v++ {
			out = append(out, Tile{ID: id, Color: c, Value: v})
			id++
			out = append(out, Tile{ID: id, Color: c, Value: v})
			id++
		}
	}
	out = append(out, Tile{ID: id, IsFalseJoker: true})
	id++
	out = append(out, Tile{ID: id, IsFalseJoker: true})
	return out
}
