package campaign

import (
	"slices"
	"sort"
)

// addUnit inserts a unit into a region stack, keeping the stack ordered
// by unit id.
func (gs *GameState) addUnit(rid RegionID, u Unit) {
	rs := gs.Regions[rid]
	i := sort.Search(len(rs.Units), func(i int) bool { return rs.Units[i].ID > u.ID })
	rs.Units = slices.Insert(rs.Units, i, u)
}

// boardUnit finds a unit of the current faction that sits in a region
// stack rather than a transport's hold.
func (gs *GameState) boardUnit(id UnitID) (Unit, RegionID, error) {
	u, rid, ok := gs.Unit(id)
	if !ok {
		return Unit{}, "", reject(KindInvalidActionShape, "unit %d does not exist", id)
	}
	if u.Owner != gs.Current {
		return Unit{}, "", reject(KindNotCurrentActor, "unit %d belongs to %s", id, u.Owner)
	}
	if _, embarked := gs.Embarked[id]; embarked {
		return Unit{}, "", reject(KindIllegalPath, "unit %d is aboard a transport", id)
	}
	return u, rid, nil
}

func stanceFavors(s Stance, t Team) bool {
	return (s == ProAllies && t == Allies) || (s == ProAxis && t == Axis)
}

// flipsNeutral reports whether a land unit ending its combat move in rid
// brings a friendly-leaning neutral over to its side.
func (gs *GameState) flipsNeutral(g Graph, u Unit, rid RegionID) bool {
	info := regionInfo(g, rid)
	return u.IsLand() && info.IsLand() && gs.Regions[rid].Owner == NoFaction && stanceFavors(info.Neutral, u.Owner.Team())
}

// seaAdjacent reports whether a ship of faction f can sail directly from
// one zone to another, either across open water or through a strait
// whose controlling territory is friendly.
func (gs *GameState) seaAdjacent(g Graph, f Faction, from, to RegionID) bool {
	if slices.Contains(g.AdjacentSea(from), to) {
		return true
	}
	for _, s := range g.Straits(from) {
		if s.Other(from) != to {
			continue
		}
		if owner := gs.Regions[s.Controller].Owner; owner != NoFaction && gs.Friendly(owner, f) {
			return true
		}
	}
	return false
}

// stepOK checks one step of a path. final marks the last step, where a
// move may end in territory it could not pass through.
func (gs *GameState) stepOK(g Graph, u Unit, from, to RegionID, combat, final bool) error {
	info, ok := g.Region(to)
	if !ok {
		return reject(KindIllegalPath, "unknown region %q", to)
	}
	f := u.Owner
	switch u.stats().Domain {
	case DomainLand:
		if !info.IsLand() || !slices.Contains(g.AdjacentLand(from), to) {
			return reject(KindIllegalPath, "%s does not border %s by land", from, to)
		}
		return gs.landStep(g, u, info, combat, final)
	case DomainSea:
		if !info.IsSea() || !gs.seaAdjacent(g, f, from, to) {
			return reject(KindIllegalPath, "no sea passage from %s to %s", from, to)
		}
		if !final && gs.hasEnemyBlockers(to, f, u.Type == Submarine) {
			return reject(KindIllegalPath, "%s is blocked by enemy ships", to)
		}
		if final && !combat && gs.hasEnemyBlockers(to, f, false) {
			return reject(KindIllegalPath, "non-combat moves may not enter %s while enemy warships are there", to)
		}
	case DomainAir:
		if !isAdjacent(g, from, to) {
			return reject(KindIllegalPath, "%s is not adjacent to %s", from, to)
		}
		if info.Impassable {
			return reject(KindIllegalPath, "%s is impassable", to)
		}
		if info.Neutral != NotNeutral && gs.Regions[to].Owner == NoFaction {
			return reject(KindIllegalPath, "%s is neutral", to)
		}
	}
	return nil
}

func (gs *GameState) landStep(g Graph, u Unit, info RegionInfo, combat, final bool) error {
	f := u.Owner
	rs := gs.Regions[info.ID]
	if info.Impassable {
		return reject(KindIllegalPath, "%s is impassable", info.ID)
	}
	if rs.Owner == NoFaction {
		if info.Neutral == NotNeutral {
			return nil
		}
		if combat && final && gs.flipsNeutral(g, u, info.ID) {
			return nil
		}
		return reject(KindIllegalPath, "%s is neutral", info.ID)
	}
	if gs.Friendly(rs.Owner, f) {
		return nil
	}
	if !gs.Hostile(rs.Owner, f) {
		return reject(KindIllegalPath, "%s is held by %s, which %s is not at war with", info.ID, rs.Owner, f)
	}
	if !combat {
		return reject(KindIllegalPath, "non-combat moves must stay in friendly territory, %s is hostile", info.ID)
	}
	for _, o := range rs.Units {
		if !gs.Friendly(o.Owner, f) && !gs.Hostile(o.Owner, f) {
			return reject(KindIllegalPath, "%s holds units of %s, which %s is not at war with", info.ID, o.Owner, f)
		}
	}
	if final {
		if u.Type == AAA {
			return reject(KindIllegalPath, "anti-aircraft guns cannot attack")
		}
		return nil
	}
	if u.stats().Blitz && len(gs.enemyUnits(info.ID, f)) == 0 {
		return nil
	}
	return reject(KindIllegalPath, "cannot pass through hostile %s", info.ID)
}

// canLandAt reports whether an aircraft may end its turn in rid: friendly
// land that was not captured this turn, or a sea zone with a friendly
// carrier that has a free deck slot.
func (gs *GameState) canLandAt(g Graph, u Unit, rid RegionID) bool {
	info, ok := g.Region(rid)
	if !ok {
		return false
	}
	rs := gs.Regions[rid]
	if info.IsLand() {
		return rs.Owner != NoFaction && gs.Friendly(rs.Owner, u.Owner) && !rs.JustCaptured &&
			len(gs.enemyUnits(rid, u.Owner)) == 0
	}
	if !u.stats().OnCarrier {
		return false
	}
	return gs.deckSpace(rid, u.Owner, u.ID) > 0
}

// deckSpace returns the free carrier slots for faction f in a sea zone,
// ignoring the aircraft with id skip.
func (gs *GameState) deckSpace(rid RegionID, f Faction, skip UnitID) int {
	slots := 0
	for _, o := range gs.Regions[rid].Units {
		if !gs.Friendly(o.Owner, f) {
			continue
		}
		if o.Type == Carrier {
			slots += o.stats().AirSlots
		} else if o.IsAir() && o.ID != skip {
			slots--
		}
	}
	return slots
}

// airSteps lists the regions an aircraft can fly to in one step.
func (gs *GameState) airSteps(g Graph, u Unit, from RegionID) []RegionID {
	var out []RegionID
	for _, n := range neighbors(g, from) {
		if gs.stepOK(g, u, from, n, false, false) == nil {
			out = append(out, n)
		}
	}
	return out
}

// landingReachable searches for a landing spot within the aircraft's
// remaining movement.
func (gs *GameState) landingReachable(g Graph, u Unit, from RegionID) bool {
	if gs.canLandAt(g, u, from) {
		return true
	}
	depth := map[RegionID]int{from: 0}
	queue := []RegionID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= u.MovementLeft {
			continue
		}
		for _, n := range gs.airSteps(g, u, cur) {
			if _, seen := depth[n]; seen {
				continue
			}
			if gs.canLandAt(g, u, n) {
				return true
			}
			depth[n] = depth[cur] + 1
			queue = append(queue, n)
		}
	}
	return false
}

// reachable returns a shortest legal path to every region the unit can
// end a move in, checked through validateMove.
func (gs *GameState) reachable(g Graph, u Unit, from RegionID, kind ActionKind) map[RegionID][]RegionID {
	combat := kind == ActionMoveUnit
	parent := map[RegionID]RegionID{from: ""}
	depth := map[RegionID]int{from: 0}
	queue := []RegionID{from}
	out := make(map[RegionID][]RegionID)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= u.MovementLeft {
			continue
		}
		for _, n := range neighbors(g, cur) {
			if _, seen := parent[n]; seen {
				continue
			}
			if gs.stepOK(g, u, cur, n, combat, true) != nil {
				continue
			}
			parent[n] = cur
			depth[n] = depth[cur] + 1
			var path []RegionID
			for at := n; at != ""; at = parent[at] {
				path = append([]RegionID{at}, path...)
			}
			a := Action{Kind: kind, Unit: u.ID, Path: path}
			if validateMove(gs, g, a) == nil {
				out[n] = path
			}
			if gs.stepOK(g, u, cur, n, combat, false) == nil {
				queue = append(queue, n)
			}
		}
	}
	return out
}

func validateMove(gs *GameState, g Graph, a Action) error {
	combat := a.Kind == ActionMoveUnit
	u, from, err := gs.boardUnit(a.Unit)
	if err != nil {
		return err
	}
	if a.Path[0] != from {
		return reject(KindIllegalPath, "unit %d is in %s, path starts at %s", u.ID, from, a.Path[0])
	}
	if a.Kind == ActionLandAirUnit && !u.IsAir() {
		return reject(KindInvalidActionShape, "unit %d is not an aircraft", u.ID)
	}
	if u.Moved && !u.IsAir() {
		return reject(KindIllegalPath, "unit %d has already moved this turn", u.ID)
	}
	if u.Submerged {
		return reject(KindIllegalPath, "unit %d is submerged", u.ID)
	}
	if steps := len(a.Path) - 1; steps > u.MovementLeft {
		return reject(KindIllegalPath, "path of %d steps exceeds remaining movement %d", steps, u.MovementLeft)
	}
	dest := a.Path[len(a.Path)-1]
	if _, ok := g.Path(from, dest, u.stats().Domain, u.MovementLeft); !ok {
		return reject(KindIllegalPath, "%s is out of reach of unit %d", dest, u.ID)
	}
	for i := 1; i < len(a.Path); i++ {
		if err := gs.stepOK(g, u, a.Path[i-1], a.Path[i], combat, i == len(a.Path)-1); err != nil {
			return err
		}
	}
	if !combat && u.IsAir() && !gs.canLandAt(g, u, dest) {
		return reject(KindRegionNotEligible, "unit %d cannot land in %s", u.ID, dest)
	}
	return nil
}

// applyMove moves a unit along a validated path. Moves that change
// ownership or continue an earlier flight are reversed from a snapshot.
func applyMove(gs *GameState, g Graph, a Action) ([]Event, Inverse) {
	combat := a.Kind == ActionMoveUnit
	u, from, _ := gs.Unit(a.Unit)
	dest := a.Path[len(a.Path)-1]
	flips := combat && gs.flipsNeutral(g, u, dest)
	var snap *Snapshot
	if flips || u.Moved || !combat {
		snap = takeSnapshot(gs, from, dest)
	}

	moved, _ := gs.removeUnit(from, a.Unit)
	moved.Moved = true
	moved.MovementLeft -= len(a.Path) - 1
	moved.MovedFrom = a.Path[len(a.Path)-2]
	gs.addUnit(dest, moved)
	ms := gs.PhaseState.moves()
	ms.Moves = append(ms.Moves, PlannedMove{Unit: a.Unit, Path: slices.Clone(a.Path)})

	var events []Event
	if flips {
		gs.Regions[dest].Owner = u.Owner
		events = append(events, Event{Kind: EventTerritoryCaptured, Faction: u.Owner, Region: dest, Note: "neutral joined"})
	}
	if snap != nil {
		return events, Inverse{Kind: InverseSnapshot, Snapshot: snap}
	}
	return events, simpleInverse(Action{Kind: ActionUndoMove, Unit: a.Unit})
}

func validateUndoMove(gs *GameState, a Action) error {
	ms := gs.PhaseState.moves()
	i := ms.lastMove(a.Unit)
	if i < 0 {
		return reject(KindInvalidActionShape, "unit %d has no move to take back", a.Unit)
	}
	path := ms.Moves[i].Path
	_, rid, ok := gs.Unit(a.Unit)
	if !ok || rid != path[len(path)-1] {
		return reject(KindInvalidActionShape, "unit %d is no longer where its move ended", a.Unit)
	}
	if _, embarked := gs.Embarked[a.Unit]; embarked {
		return reject(KindInvalidActionShape, "unit %d has been loaded since it moved", a.Unit)
	}
	return nil
}

// applyUndoMove returns a unit to where its last move started and gives
// back the movement spent.
func applyUndoMove(gs *GameState, a Action) Inverse {
	ms := gs.PhaseState.moves()
	i := ms.lastMove(a.Unit)
	m := ms.Moves[i]
	dest := m.Path[len(m.Path)-1]
	origin := m.Path[0]
	snap := takeSnapshot(gs, origin, dest)

	u, _ := gs.removeUnit(dest, a.Unit)
	u.MovementLeft += len(m.Path) - 1
	ms.Moves = slices.Delete(ms.Moves, i, i+1)
	if j := ms.lastMove(a.Unit); j >= 0 {
		prev := ms.Moves[j].Path
		u.MovedFrom = prev[len(prev)-2]
	} else {
		u.Moved = false
		u.MovedFrom = ""
		u.Amphibious = false
	}
	gs.addUnit(origin, u)
	return Inverse{Kind: InverseSnapshot, Snapshot: snap}
}

// validateConfirmCombatMove requires every aircraft that flew this phase
// to have somewhere to land.
func validateConfirmCombatMove(gs *GameState, g Graph) error {
	for _, rid := range g.Regions() {
		for _, u := range gs.Regions[rid].Units {
			if u.Owner != gs.Current || !u.IsAir() || !u.Moved {
				continue
			}
			if !gs.landingReachable(g, u, rid) {
				return reject(KindIllegalPath, "unit %d in %s cannot reach a landing spot", u.ID, rid)
			}
		}
	}
	return nil
}

// pendingBattles lists the regions where the current faction must fight:
// sea zones first, then land, each in map order.
func pendingBattles(gs *GameState, g Graph) []RegionID {
	var sea, land []RegionID
	f := gs.Current
	for _, rid := range g.Regions() {
		rs := gs.Regions[rid]
		info := regionInfo(g, rid)
		moved, movedLand := false, false
		for _, u := range rs.Units {
			if u.Owner == f && u.Moved {
				moved = true
				movedLand = movedLand || u.IsLand()
			}
		}
		if !moved {
			continue
		}
		enemies := false
		for _, u := range gs.enemyUnits(rid, f) {
			if !u.Submerged {
				enemies = true
				break
			}
		}
		hostileLand := info.IsLand() && movedLand && gs.Hostile(rs.Owner, f)
		if !enemies && !hostileLand {
			continue
		}
		if info.IsSea() {
			sea = append(sea, rid)
		} else {
			land = append(land, rid)
		}
	}
	return append(sea, land...)
}

// scrapStrandedAir removes the current faction's aircraft that have no
// place to land at the end of non-combat movement.
func scrapStrandedAir(gs *GameState, g Graph) []Event {
	f := gs.Current
	var lost []UnitID
	for _, rid := range g.Regions() {
		rs := gs.Regions[rid]
		if regionInfo(g, rid).IsLand() {
			for _, u := range rs.Units {
				if u.Owner == f && u.IsAir() && u.Moved && !gs.canLandAt(g, u, rid) {
					lost = append(lost, u.ID)
				}
			}
			continue
		}
		slots := 0
		for _, u := range rs.Units {
			if !gs.Friendly(u.Owner, f) {
				continue
			}
			if u.Type == Carrier {
				slots += u.stats().AirSlots
			} else if u.IsAir() && u.Owner != f {
				slots--
			}
		}
		for _, u := range rs.Units {
			if u.Owner != f || !u.IsAir() {
				continue
			}
			if u.stats().OnCarrier && slots > 0 {
				slots--
				continue
			}
			lost = append(lost, u.ID)
		}
	}
	if len(lost) == 0 {
		return nil
	}
	for _, id := range lost {
		_, rid, _ := gs.Unit(id)
		gs.removeUnit(rid, id)
	}
	return []Event{{Kind: EventUnitsLost, Faction: f, Units: lost, Note: "no landing spot"}}
}
