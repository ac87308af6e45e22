package bot

import (
	"errors"
	"fmt"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// Strategy chooses the next action for the faction on move. ChooseAction
// must return one of the legal actions it is given and must not modify gs.
type Strategy interface {
	Name() string
	ChooseAction(gs *campaign.GameState, g campaign.Graph, legal []campaign.LegalAction) campaign.Action
}

// ExternalEnginePath is the binary used by StrategyFor("external").
// When empty, "external" falls back to the easy strategy.
var ExternalEnginePath string

// StrategyFor returns the strategy registered under name. Unknown names
// get the easy strategy.
func StrategyFor(name string, seed uint64) Strategy {
	switch name {
	case "random":
		return NewRandomStrategy(seed)
	case "external":
		if ExternalEnginePath == "" {
			return EasyStrategy{}
		}
		return newExternalOrFallback(ExternalEnginePath)
	default:
		return EasyStrategy{}
	}
}

// RandomStrategy picks uniformly among the legal actions, never undoing and
// closing the phase with some probability so games keep moving.
type RandomStrategy struct {
	rng *lockedRand
}

// NewRandomStrategy returns a RandomStrategy seeded with seed. Zero picks a
// random seed.
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: newLockedRand(seed)}
}

func (*RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) ChooseAction(_ *campaign.GameState, _ campaign.Graph, legal []campaign.LegalAction) campaign.Action {
	confirm, ok := findConfirm(legal)
	var others []campaign.Action
	for _, la := range legal {
		if la.Action.Kind == campaign.ActionUndo || la.Action.Kind.IsConfirm() || la.Action.Kind == campaign.ActionDeclareWar {
			continue
		}
		others = append(others, la.Action)
	}
	if ok && (len(others) == 0 || s.rng.IntN(4) == 0) {
		return confirm
	}
	if len(others) == 0 {
		return legal[s.rng.IntN(len(legal))].Action
	}
	return others[s.rng.IntN(len(others))]
}

// findConfirm returns the action that closes the current phase.
func findConfirm(legal []campaign.LegalAction) (campaign.Action, bool) {
	for _, la := range legal {
		if la.Action.Kind.IsConfirm() {
			return la.Action, true
		}
	}
	return campaign.Action{}, false
}

// ofKind returns the legal actions of the given kind in offer order.
func ofKind(legal []campaign.LegalAction, kind campaign.ActionKind) []campaign.Action {
	var out []campaign.Action
	for _, la := range legal {
		if la.Action.Kind == kind {
			out = append(out, la.Action)
		}
	}
	return out
}

// fallback closes the phase when possible and otherwise takes the first
// action that is not an undo.
func fallback(legal []campaign.LegalAction) campaign.Action {
	if a, ok := findConfirm(legal); ok {
		return a
	}
	for _, la := range legal {
		if la.Action.Kind != campaign.ActionUndo {
			return la.Action
		}
	}
	return legal[0].Action
}

// ErrActionLimit is returned by PlayWhile when a strategy keeps acting
// without reaching the stop condition.
var ErrActionLimit = errors.New("bot: action limit reached")

// Step is one action a bot submitted and what it produced.
type Step struct {
	Action  campaign.Action
	Outcome campaign.Outcome
}

// PlayWhile submits actions chosen by s while more reports true and the
// game has no winner, giving up after limit actions.
func PlayWhile(e *campaign.Engine, s Strategy, limit int, more func(*campaign.GameState) bool) ([]Step, error) {
	var steps []Step
	for e.State().Winner == "" && more(e.State()) {
		if len(steps) >= limit {
			return steps, ErrActionLimit
		}
		legal := e.LegalActions()
		if len(legal) == 0 {
			gs := e.State()
			return steps, fmt.Errorf("bot: no legal actions for %s in %s", gs.Current, gs.Phase)
		}
		a := s.ChooseAction(e.State(), e.Graph(), legal)
		out, err := e.Submit(a)
		if err != nil {
			return steps, fmt.Errorf("bot: %s chose %q: %w", s.Name(), campaign.FormatAction(a), err)
		}
		steps = append(steps, Step{Action: a, Outcome: out})
	}
	return steps, nil
}

// PlayTurn plays until the faction on move changes.
func PlayTurn(e *campaign.Engine, s Strategy, limit int) ([]Step, error) {
	f := e.State().Current
	return PlayWhile(e, s, limit, func(gs *campaign.GameState) bool { return gs.Current == f })
}
