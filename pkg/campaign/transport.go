package campaign

import (
	"slices"
)

func (gs *GameState) inMovementPhase() bool {
	return gs.Phase == PhaseCombatMove || gs.Phase == PhaseNonCombatMove
}

func validateLoad(gs *GameState, g Graph, a Action) error {
	u, land, err := gs.boardUnit(a.Unit)
	if err != nil {
		return err
	}
	if !u.IsLand() {
		return reject(KindIllegalPath, "unit %d cannot be carried by a transport", u.ID)
	}
	if u.Moved {
		return reject(KindIllegalPath, "unit %d has already moved this turn", u.ID)
	}
	t, sea, err := gs.boardUnit(a.Transport)
	if err != nil {
		return err
	}
	if t.Type != Transport {
		return reject(KindInvalidActionShape, "unit %d is not a transport", t.ID)
	}
	if !g.IsCoastal(land) {
		return reject(KindIllegalPath, "%s has no coast", land)
	}
	if !slices.Contains(g.AdjacentSea(land), sea) {
		return reject(KindIllegalPath, "%s does not border %s", land, sea)
	}
	if gs.hasEnemyBlockers(sea, gs.Current, false) {
		return reject(KindIllegalPath, "enemy warships in %s prevent loading", sea)
	}
	if !cargoFits(gs.cargoOf(t), u.Type) {
		return reject(KindIllegalPath, "transport %d has no room for %s", t.ID, u.Type)
	}
	return nil
}

func applyLoad(gs *GameState, a Action) Inverse {
	_, land, _ := gs.Unit(a.Unit)
	_, sea, _ := gs.Unit(a.Transport)
	snap := takeSnapshot(gs, land, sea)

	u, _ := gs.removeUnit(land, a.Unit)
	u.Moved = true
	u.MovementLeft = 0
	if gs.Embarked == nil {
		gs.Embarked = make(map[UnitID]Unit)
	}
	gs.Embarked[u.ID] = u
	t, _ := gs.unitPtr(a.Transport)
	t.Cargo = append(t.Cargo, u.ID)
	return Inverse{Kind: InverseSnapshot, Snapshot: snap}
}

// carrierOf returns the transport holding an embarked unit.
func (gs *GameState) carrierOf(id UnitID) (*Unit, RegionID) {
	ref, ok := gs.locate(id)
	if !ok || ref.Transport == 0 {
		return nil, ""
	}
	return gs.unitPtr(ref.Transport)
}

func validateUnload(gs *GameState, g Graph, a Action) error {
	u, ok := gs.Embarked[a.Unit]
	if !ok {
		return reject(KindInvalidActionShape, "unit %d is not aboard a transport", a.Unit)
	}
	if u.Owner != gs.Current {
		return reject(KindNotCurrentActor, "unit %d belongs to %s", u.ID, u.Owner)
	}
	t, sea := gs.carrierOf(a.Unit)
	if t == nil {
		return reject(KindInvalidActionShape, "unit %d has no transport", a.Unit)
	}
	if t.Owner != gs.Current {
		return reject(KindNotCurrentActor, "transport %d belongs to %s", t.ID, t.Owner)
	}
	if !g.IsCoastal(a.Region) {
		return reject(KindIllegalPath, "%s has no coast", a.Region)
	}
	if !slices.Contains(g.AdjacentLand(sea), a.Region) {
		return reject(KindIllegalPath, "%s does not border %s", sea, a.Region)
	}
	if gs.hasEnemyBlockers(sea, gs.Current, false) {
		return reject(KindIllegalPath, "enemy warships in %s prevent unloading", sea)
	}
	combat := gs.Phase == PhaseCombatMove
	return gs.landStep(g, u, regionInfo(g, a.Region), combat, true)
}

// applyUnload puts a unit ashore. Landing in hostile territory during
// combat movement makes it an amphibious attacker.
func applyUnload(gs *GameState, g Graph, a Action) ([]Event, Inverse) {
	t, sea := gs.carrierOf(a.Unit)
	snap := takeSnapshot(gs, sea, a.Region)

	u := gs.Embarked[a.Unit]
	delete(gs.Embarked, a.Unit)
	if len(gs.Embarked) == 0 {
		gs.Embarked = nil
	}
	t.Cargo = slices.DeleteFunc(t.Cargo, func(id UnitID) bool { return id == a.Unit })
	if len(t.Cargo) == 0 {
		t.Cargo = nil
	}
	t.MovementLeft = 0

	u.Moved = true
	u.MovementLeft = 0
	u.MovedFrom = sea
	u.Amphibious = gs.Phase == PhaseCombatMove && gs.Hostile(gs.Regions[a.Region].Owner, u.Owner)
	var events []Event
	if gs.Phase == PhaseCombatMove && gs.flipsNeutral(g, u, a.Region) {
		gs.Regions[a.Region].Owner = u.Owner
		events = append(events, Event{Kind: EventTerritoryCaptured, Faction: u.Owner, Region: a.Region, Note: "neutral joined"})
	}
	gs.addUnit(a.Region, u)
	return events, Inverse{Kind: InverseSnapshot, Snapshot: snap}
}
