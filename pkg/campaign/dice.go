package campaign

import "math/rand/v2"

// Dice is the game's random source. Each draw is a pure function of the
// seed and the draw counter, so a state can be saved and resumed mid-game
// without changing the rolls that follow. Forced rolls, when present, are
// consumed first and let tests script exact outcomes.
type Dice struct {
	Seed    uint64 `json:"seed"`
	Counter uint64 `json:"counter"`
	Forced  []int  `json:"forced,omitempty"`
}

// Roll draws one six-sided die.
func (d *Dice) Roll() int {
	var v int
	if d.Counter < uint64(len(d.Forced)) {
		v = d.Forced[d.Counter]
	} else {
		v = rand.New(rand.NewPCG(d.Seed, d.Counter)).IntN(6) + 1
	}
	d.Counter++
	return v
}

// RollAt draws n dice and counts those at or below strength.
func (d *Dice) RollAt(n, strength int) (hits int, rolls []int) {
	rolls = make([]int, n)
	for i := range n {
		rolls[i] = d.Roll()
		if rolls[i] <= strength {
			hits++
		}
	}
	return hits, rolls
}

func (d Dice) clone() Dice {
	c := d
	if d.Forced != nil {
		c.Forced = append([]int(nil), d.Forced...)
	}
	return c
}
