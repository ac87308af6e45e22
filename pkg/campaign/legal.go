package campaign

import (
	"fmt"
	"slices"
	"strings"
)

var confirmDescriptions = map[Phase]string{
	PhasePurchase:      "Confirm purchases and advance to Combat Movement",
	PhaseCombatMove:    "Confirm combat moves and advance to Conduct Combat",
	PhaseCombat:        "Confirm combat results and advance to Non-Combat Movement",
	PhaseNonCombatMove: "Confirm non-combat moves and advance to Mobilize",
	PhaseMobilize:      "Confirm unit placements and advance to Collect Income",
	PhaseIncome:        "Collect income and end turn",
}

// LegalActions enumerates the actions the validator accepts in the
// current state. Movement is offered once per reachable destination along
// a shortest legal path.
func (e *Engine) LegalActions() []LegalAction { return LegalActions(e.gs, e.g) }

// LegalActions enumerates the legal actions for gs on g.
func LegalActions(gs *GameState, g Graph) []LegalAction {
	if gs.Winner != "" {
		return nil
	}
	l := &legalList{gs: gs, g: g}
	switch gs.Phase {
	case PhasePurchase:
		l.purchases()
		l.wars()
	case PhaseCombatMove:
		l.moves(ActionMoveUnit)
		l.undoMoves()
		l.transports()
		l.wars()
	case PhaseCombat:
		l.combat()
	case PhaseNonCombatMove:
		l.moves(ActionMoveUnitNonCombat)
		l.transports()
	case PhaseMobilize:
		l.placements()
	}
	l.add(Action{Kind: gs.Phase.confirmKind()}, confirmDescriptions[gs.Phase])
	if gs.CanUndo() {
		l.add(Action{Kind: ActionUndo}, "Undo the last action")
	}
	return l.out
}

type legalList struct {
	gs  *GameState
	g   Graph
	out []LegalAction
}

func (l *legalList) add(a Action, desc string) {
	if Validate(l.gs, l.g, a) == nil {
		l.out = append(l.out, LegalAction{Action: a, Description: desc})
	}
}

func (l *legalList) theaters() []Theater {
	if l.gs.Current.SplitEconomy() {
		return []Theater{Europe, Pacific}
	}
	return []Theater{""}
}

func theaterSuffix(th Theater) string {
	if th == "" {
		return ""
	}
	return " (" + string(th) + ")"
}

func (l *legalList) purchases() {
	for _, th := range l.theaters() {
		for _, t := range unitTypes {
			l.add(Action{Kind: ActionPurchaseUnit, UnitType: t, Count: 1, Theater: th},
				fmt.Sprintf("Purchase 1 %s for %d IPCs%s", t, t.Cost(), theaterSuffix(th)))
		}
	}
	for _, p := range l.gs.PhaseState.Purchase.Purchases {
		if p.Count > 0 {
			l.add(Action{Kind: ActionRemovePurchase, UnitType: p.Type, Count: 1, Theater: p.Theater},
				fmt.Sprintf("Remove 1 %s from purchases%s", p.Type, theaterSuffix(p.Theater)))
		}
	}
	for _, rid := range l.gs.TerritoriesOwned(l.g, l.gs.Current) {
		for _, fac := range l.gs.Regions[rid].Facilities {
			if fac.Damage == 0 {
				continue
			}
			th := economyFor(l.gs.Current, regionInfo(l.g, rid).Theater)
			n := min(fac.Damage, *l.gs.faction(l.gs.Current).Pool(th))
			l.add(Action{Kind: ActionRepairFacility, Region: rid, Facility: fac.Type, Count: n},
				fmt.Sprintf("Repair %d damage to the %s in %s", n, fac.Type, rid))
		}
	}
}

func (l *legalList) wars() {
	for _, f := range turnOrder {
		l.add(Action{Kind: ActionDeclareWar, Target: f}, fmt.Sprintf("Declare war on %s", f))
	}
}

func (l *legalList) moves(kind ActionKind) {
	f := l.gs.Current
	for _, rid := range l.g.Regions() {
		for _, u := range l.gs.Regions[rid].Units {
			if u.Owner != f || u.MovementLeft == 0 {
				continue
			}
			k := kind
			if kind == ActionMoveUnitNonCombat && u.IsAir() && u.Moved {
				k = ActionLandAirUnit
			}
			paths := l.gs.reachable(l.g, u, rid, k)
			for _, dest := range l.g.Regions() {
				path, ok := paths[dest]
				if !ok {
					continue
				}
				l.add(Action{Kind: k, Unit: u.ID, Path: path},
					fmt.Sprintf("Move %s %d from %s to %s", u.Type, u.ID, rid, strings.Join(regionStrings(path[1:]), ", ")))
			}
		}
	}
}

func regionStrings(ids []RegionID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func (l *legalList) undoMoves() {
	var seen []UnitID
	moves := l.gs.PhaseState.CombatMove.Moves
	for i := len(moves) - 1; i >= 0; i-- {
		id := moves[i].Unit
		if slices.Contains(seen, id) {
			continue
		}
		seen = append(seen, id)
		l.add(Action{Kind: ActionUndoMove, Unit: id}, fmt.Sprintf("Take back the move of unit %d", id))
	}
}

func (l *legalList) transports() {
	f := l.gs.Current
	for _, rid := range l.g.Regions() {
		if !l.g.IsCoastal(rid) {
			continue
		}
		for _, u := range l.gs.Regions[rid].Units {
			if u.Owner != f || !u.IsLand() || u.Moved {
				continue
			}
			for _, sea := range l.g.AdjacentSea(rid) {
				for _, t := range l.gs.Regions[sea].Units {
					if t.Owner == f && t.Type == Transport {
						l.add(Action{Kind: ActionLoadUnit, Unit: u.ID, Transport: t.ID},
							fmt.Sprintf("Load %s %d onto transport %d in %s", u.Type, u.ID, t.ID, sea))
					}
				}
			}
		}
	}
	for _, id := range l.gs.embarkedIDs() {
		u := l.gs.Embarked[id]
		if u.Owner != f {
			continue
		}
		_, sea := l.gs.carrierOf(id)
		for _, land := range l.g.AdjacentLand(sea) {
			l.add(Action{Kind: ActionUnloadUnit, Unit: id, Region: land},
				fmt.Sprintf("Unload %s %d into %s", u.Type, id, land))
		}
	}
}

func (l *legalList) combat() {
	cs := l.gs.PhaseState.Combat
	b := cs.Active
	if b == nil {
		for _, rid := range cs.Pending {
			l.add(Action{Kind: ActionSelectBattle, Region: rid}, fmt.Sprintf("Fight the battle in %s", rid))
		}
		return
	}
	switch {
	case b.Step == StepDefenderSubStrike || b.Step == StepDefenderRolls:
		l.add(Action{Kind: ActionRollDefense}, fmt.Sprintf("Roll defense in %s", b.Region))
	case b.Step.IsCasualtyStep():
		l.add(Action{Kind: ActionSelectCasualties, Casualties: DefaultCasualties(l.gs, l.g)},
			fmt.Sprintf("Take the cheapest casualties in %s", b.Region))
	case b.Step == StepAttackerDecision:
		l.add(Action{Kind: ActionContinueCombat}, fmt.Sprintf("Continue the battle in %s", b.Region))
		for _, rid := range neighbors(l.g, b.Region) {
			l.add(Action{Kind: ActionRetreat, Region: rid}, fmt.Sprintf("Retreat from %s to %s", b.Region, rid))
		}
		for _, id := range b.Attackers {
			l.add(Action{Kind: ActionSubmerge, Unit: id}, fmt.Sprintf("Submerge submarine %d", id))
		}
	default:
		l.add(Action{Kind: ActionRollAttack}, fmt.Sprintf("Roll attack in %s", b.Region))
	}
}

func (l *legalList) placements() {
	for _, p := range l.gs.Purchased {
		if p.Count == 0 {
			continue
		}
		for _, rid := range l.g.Regions() {
			if placementTheater(l.g, l.gs.Current, rid) != p.Theater {
				continue
			}
			l.add(Action{Kind: ActionPlaceUnit, UnitType: p.Type, Region: rid},
				fmt.Sprintf("Place %s in %s", p.Type, rid))
		}
	}
	for _, m := range l.gs.PhaseState.Mobilize.Placed {
		l.add(Action{Kind: ActionRemovePlacement, Unit: m.Unit}, fmt.Sprintf("Take back %s %d from %s", m.Type, m.Unit, m.Region))
	}
}
