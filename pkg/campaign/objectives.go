package campaign

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Objective is a national objective: a condition checked at income time
// that pays a bonus to one faction while it holds.
type Objective struct {
	ID      string
	Faction Faction
	Theater Theater // pool credited for split economies
	Bonus   int
	When    string // expr source
	program *vm.Program
}

func (o *Objective) compile() error {
	prog, err := expr.Compile(o.When, expr.Env(ObjectiveEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile %q: %w", o.When, err)
	}
	o.program = prog
	return nil
}

// ObjectiveEnv is the environment objective conditions are evaluated in.
// Region arguments are map ids; faction arguments are faction ids.
type ObjectiveEnv struct {
	Turn int

	gs      *GameState
	faction Faction
}

// Controls reports whether the objective's faction owns the region.
func (e ObjectiveEnv) Controls(region string) bool {
	rs := e.gs.Regions[RegionID(region)]
	return rs != nil && rs.Owner == e.faction
}

// TeamControls reports whether any faction on the objective faction's
// team owns the region.
func (e ObjectiveEnv) TeamControls(region string) bool {
	rs := e.gs.Regions[RegionID(region)]
	return rs != nil && rs.Owner != NoFaction && rs.Owner.Team() == e.faction.Team()
}

// AtWar reports whether the objective's faction is at war with another.
func (e ObjectiveEnv) AtWar(other string) bool {
	return e.gs.Politics.AtWar(e.faction, Faction(other))
}

// EnemyUnits counts units hostile to the objective's faction in a region.
func (e ObjectiveEnv) EnemyUnits(region string) int {
	return len(e.gs.enemyUnits(RegionID(region), e.faction))
}

// Achieved evaluates the objective against a state.
func (o *Objective) Achieved(gs *GameState) (bool, error) {
	if o.program == nil {
		return false, fmt.Errorf("objective %s is not compiled", o.ID)
	}
	env := ObjectiveEnv{Turn: gs.Turn, gs: gs, faction: o.Faction}
	out, err := vm.Run(o.program, env)
	if err != nil {
		return false, fmt.Errorf("objective %s: %w", o.ID, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// objectiveIncome returns the bonuses f earns this turn, one event per
// objective met. Objectives that fail to evaluate count as unmet.
func objectiveIncome(gs *GameState, g Graph, f Faction) (europe, pacific int, events []Event) {
	for _, o := range g.Scenario().Objectives {
		if o.Faction != f {
			continue
		}
		ok, err := o.Achieved(gs)
		if err != nil || !ok {
			continue
		}
		if o.Theater == Pacific && f.SplitEconomy() {
			pacific += o.Bonus
		} else {
			europe += o.Bonus
		}
		events = append(events, Event{Kind: EventObjectiveAchieved, Faction: f, Amount: o.Bonus, Note: o.ID})
	}
	return europe, pacific, events
}
