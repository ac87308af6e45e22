package campaign

import (
	"fmt"
	"slices"
)

// Engine runs one game. It is single-writer and not safe for concurrent
// use; callers serialize access per game. The Graph may be shared between
// engines.
type Engine struct {
	g  Graph
	gs *GameState
}

// Option configures a new engine.
type Option func(*GameState)

// WithForcedRolls makes the first draws return the given values, in
// order, before the seeded generator takes over.
func WithForcedRolls(rolls ...int) Option {
	return func(gs *GameState) {
		gs.Dice.Forced = slices.Clone(rolls)
	}
}

// New starts a game on g from the scenario's opening position.
func New(g Graph, seed uint64, opts ...Option) *Engine {
	gs := NewGameState(g, seed)
	for _, opt := range opts {
		opt(gs)
	}
	return &Engine{g: g, gs: gs}
}

// NewFromState resumes a game from a saved state.
func NewFromState(g Graph, gs *GameState) (*Engine, error) {
	if gs == nil {
		return nil, fmt.Errorf("campaign: nil state")
	}
	for _, id := range g.Regions() {
		if gs.Regions[id] == nil {
			return nil, fmt.Errorf("campaign: state has no region %s", id)
		}
	}
	if err := gs.CheckIntegrity(); err != nil {
		return nil, fmt.Errorf("campaign: %w", err)
	}
	if len(gs.Checkpoints) == 0 {
		gs.Checkpoints = []int{0}
	}
	return &Engine{g: g, gs: gs}, nil
}

// State returns the live game state. It must not be modified and is only
// valid until the next Submit.
func (e *Engine) State() *GameState { return e.gs }

// Graph returns the map the game is played on.
func (e *Engine) Graph() Graph { return e.g }

// Outcome is the result of a successful Submit. For an undo, Applied is
// the record that was reversed and Undone is set.
type Outcome struct {
	Applied Record  `json:"applied"`
	Events  []Event `json:"events,omitempty"`
	Undone  bool    `json:"undone,omitempty"`
}

// Submit validates and applies an action. A rejected action returns a
// *RuleError and leaves the state untouched.
func (e *Engine) Submit(a Action) (Outcome, error) {
	if err := Validate(e.gs, e.g, a); err != nil {
		return Outcome{}, err
	}
	if a.Kind == ActionUndo {
		return e.undo()
	}
	next := e.gs.cloneWorld()
	res, err := apply(next, e.g, a)
	if err != nil {
		return Outcome{}, err
	}
	rec := Record{Action: a.clone(), Inverse: res.inverse, Draws: next.Dice.Counter - e.gs.Dice.Counter}
	next.Log = append(e.gs.Log, rec)
	// A phase's checkpoint sits just past its irreversible confirm record.
	if res.checkpoint {
		next.Checkpoints = append(slices.Clip(e.gs.Checkpoints), len(next.Log))
	}
	e.gs = next
	return Outcome{Applied: rec, Events: res.events}, nil
}

func (e *Engine) undo() (Outcome, error) {
	n := len(e.gs.Log)
	last := e.gs.Log[n-1]
	next := e.gs.cloneWorld()
	if err := applyInverse(next, e.g, last.Inverse); err != nil {
		return Outcome{}, err
	}
	next.Log = e.gs.Log[: n-1 : n-1]
	e.gs = next
	return Outcome{Applied: last, Undone: true}, nil
}

// CanUndo reports whether the most recent action can be reversed.
func (e *Engine) CanUndo() bool { return e.gs.CanUndo() }

// CheckVictory returns the team that currently meets its victory
// condition, or "" if neither does.
func (e *Engine) CheckVictory() Team {
	if e.gs.Winner != "" {
		return e.gs.Winner
	}
	return victor(e.gs, e.g)
}

// ResetPhase undoes actions back to the start of the current phase and
// returns how many were undone. It stops early with ErrPartialReset at an
// action that cannot be undone.
func (e *Engine) ResetPhase() (int, error) {
	cp := e.gs.lastCheckpoint()
	undone := 0
	for len(e.gs.Log) > cp {
		if !e.gs.CanUndo() {
			return undone, ErrPartialReset
		}
		if _, err := e.undo(); err != nil {
			return undone, err
		}
		undone++
	}
	return undone, nil
}

// Replay rebuilds a game by submitting actions in order from the opening
// position.
func Replay(g Graph, seed uint64, forced []int, actions []Action) (*Engine, error) {
	e := New(g, seed, WithForcedRolls(forced...))
	for i, a := range actions {
		if _, err := e.Submit(a); err != nil {
			return nil, fmt.Errorf("replay action %d (%s): %w", i, a.Kind, err)
		}
	}
	return e, nil
}
