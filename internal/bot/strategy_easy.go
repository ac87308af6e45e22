package bot

import (
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

const (
	// attackRatio is the local strength advantage needed to open an attack.
	attackRatio = 1.5
	// overkill is the strength advantage at which no more units are sent.
	overkill = 2.0
)

// EasyStrategy plays with simple heuristics: it buys infantry and
// artillery, attacks neighbouring land where it has the local advantage,
// takes the cheapest casualties, and places new units at its capital first.
// It never moves aircraft or ships.
type EasyStrategy struct{}

func (EasyStrategy) Name() string { return "easy" }

// ChooseAction picks one action for the current phase and falls back to
// closing the phase when it has nothing better to do.
func (s EasyStrategy) ChooseAction(gs *campaign.GameState, g campaign.Graph, legal []campaign.LegalAction) campaign.Action {
	var (
		a  campaign.Action
		ok bool
	)
	switch gs.Phase {
	case campaign.PhasePurchase:
		a, ok = s.purchase(gs, legal)
	case campaign.PhaseCombatMove:
		a, ok = s.attack(gs, g, legal)
	case campaign.PhaseCombat:
		a, ok = s.fight(gs, legal)
	case campaign.PhaseMobilize:
		a, ok = s.place(gs, g, legal)
	}
	if ok {
		return a
	}
	return fallback(legal)
}

// purchase buys two infantry for every artillery until nothing affordable
// is left.
func (EasyStrategy) purchase(gs *campaign.GameState, legal []campaign.LegalAction) (campaign.Action, bool) {
	buys := ofKind(legal, campaign.ActionPurchaseUnit)
	if len(buys) == 0 {
		return campaign.Action{}, false
	}
	inf, art := 0, 0
	if ps := gs.PhaseState.Purchase; ps != nil {
		for _, p := range ps.Purchases {
			switch p.Type {
			case campaign.Infantry:
				inf += p.Count
			case campaign.Artillery:
				art += p.Count
			}
		}
	}
	want := []campaign.UnitType{campaign.Infantry, campaign.Artillery}
	if art*2+2 <= inf {
		want = []campaign.UnitType{campaign.Artillery, campaign.Infantry}
	}
	for _, t := range want {
		for _, a := range buys {
			if a.UnitType == t {
				return a, true
			}
		}
	}
	return campaign.Action{}, false
}

// attack sends unmoved land units one step into hostile land. A target is
// opened only when the units that can reach it outgun its defenders by
// attackRatio, and is reinforced until the committed units reach overkill.
func (EasyStrategy) attack(gs *campaign.GameState, g campaign.Graph, legal []campaign.LegalAction) (campaign.Action, bool) {
	f := gs.Current
	byTarget := make(map[campaign.RegionID][]campaign.Action)
	for _, a := range ofKind(legal, campaign.ActionMoveUnit) {
		if len(a.Path) != 2 {
			continue
		}
		u, from, ok := gs.Unit(a.Unit)
		if !ok || !u.IsLand() || u.Moved {
			continue
		}
		if info, _ := g.Region(from); info.CapitalOf == f {
			continue
		}
		if to := a.Path[1]; isTarget(gs, g, f, to) {
			byTarget[to] = append(byTarget[to], a)
		}
	}

	for _, rid := range g.Regions() {
		cands := byTarget[rid]
		if len(cands) == 0 {
			continue
		}
		committed, defense := committedAttack(gs, rid, f), defenseAt(gs, rid, f)
		if committed >= max(1, overkill*defense) {
			continue
		}
		available := committed
		best, bestAttack := cands[0], -1
		for _, a := range cands {
			u, _, _ := gs.Unit(a.Unit)
			v := attackOf(u.Type)
			available += float64(v)
			if v > bestAttack {
				best, bestAttack = a, v
			}
		}
		if committed == 0 && available < attackRatio*defense {
			continue
		}
		return best, true
	}
	return campaign.Action{}, false
}

// fight resolves battles in the order offered, pressing on while the
// attackers still match the defence and retreating otherwise.
func (EasyStrategy) fight(gs *campaign.GameState, legal []campaign.LegalAction) (campaign.Action, bool) {
	cs := gs.PhaseState.Combat
	if cs == nil {
		return campaign.Action{}, false
	}
	if b := cs.Active; b != nil && b.Step == campaign.StepAttackerDecision {
		atk, def := 0, 0
		for _, id := range b.Attackers {
			if u, _, ok := gs.Unit(id); ok {
				atk += attackOf(u.Type)
			}
		}
		for _, id := range b.Defenders {
			if u, _, ok := gs.Unit(id); ok {
				def += defenseOf(u.Type)
			}
		}
		if atk < def {
			if r := ofKind(legal, campaign.ActionRetreat); len(r) > 0 {
				return r[0], true
			}
		}
		if c := ofKind(legal, campaign.ActionContinueCombat); len(c) > 0 {
			return c[0], true
		}
	}
	for _, la := range legal {
		switch la.Action.Kind {
		case campaign.ActionUndo, campaign.ActionSubmerge, campaign.ActionRetreat:
			continue
		}
		if !la.Action.Kind.IsConfirm() {
			return la.Action, true
		}
	}
	return campaign.Action{}, false
}

// place puts purchased units at the capital while it has room, then
// wherever the engine allows.
func (EasyStrategy) place(gs *campaign.GameState, g campaign.Graph, legal []campaign.LegalAction) (campaign.Action, bool) {
	places := ofKind(legal, campaign.ActionPlaceUnit)
	if len(places) == 0 {
		return campaign.Action{}, false
	}
	for _, a := range places {
		if info, ok := g.Region(a.Region); ok && info.CapitalOf == gs.Current {
			return a, true
		}
	}
	return places[0], true
}

// isTarget reports whether rid is land the faction could attack.
func isTarget(gs *campaign.GameState, g campaign.Graph, f campaign.Faction, rid campaign.RegionID) bool {
	info, ok := g.Region(rid)
	if !ok || !info.IsLand() || info.Impassable {
		return false
	}
	rs := gs.Region(rid)
	if rs == nil {
		return false
	}
	if gs.Hostile(rs.Owner, f) {
		return true
	}
	for _, u := range rs.Units {
		if gs.Hostile(u.Owner, f) {
			return true
		}
	}
	return false
}

// committedAttack sums the attack of the faction's units that already
// moved into rid this phase.
func committedAttack(gs *campaign.GameState, rid campaign.RegionID, f campaign.Faction) float64 {
	total := 0
	for _, u := range gs.Region(rid).Units {
		if u.Owner == f && u.Moved {
			total += attackOf(u.Type)
		}
	}
	return float64(total)
}

// defenseAt sums the defence of the enemy units in rid.
func defenseAt(gs *campaign.GameState, rid campaign.RegionID, f campaign.Faction) float64 {
	total := 0
	for _, u := range gs.Region(rid).Units {
		if gs.Hostile(u.Owner, f) {
			total += defenseOf(u.Type)
		}
	}
	return float64(total)
}

func attackOf(t campaign.UnitType) int {
	s, _ := campaign.StatsOf(t)
	return s.Attack
}

func defenseOf(t campaign.UnitType) int {
	s, _ := campaign.StatsOf(t)
	return s.Defense
}
