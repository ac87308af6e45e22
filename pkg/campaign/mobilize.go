package campaign

import "slices"

// chinaStackLimit caps how many infantry China may raise in one
// territory per turn.
const chinaStackLimit = 3

// placementTheater returns the economy a placement in rid draws from.
func placementTheater(g Graph, f Faction, rid RegionID) Theater {
	return economyFor(f, regionInfo(g, rid).Theater)
}

// placedFrom counts the units mobilized this turn using the production of
// territory src.
func placedFrom(ms *MobilizeState, src RegionID) int {
	n := 0
	for _, p := range ms.Placed {
		if p.Source == src {
			n++
		}
	}
	return n
}

// canProduce reports whether f can mobilize one more unit through the
// industrial complex in territory rid.
func (gs *GameState) canProduce(g Graph, f Faction, rid RegionID) bool {
	info, ok := g.Region(rid)
	if !ok || !info.IsLand() {
		return false
	}
	rs := gs.Regions[rid]
	if rs.Owner != f || rs.JustCaptured {
		return false
	}
	i := industrialComplex(rs.Facilities)
	if i < 0 || !rs.Facilities[i].Operational(info.IPC) {
		return false
	}
	return placedFrom(gs.PhaseState.Mobilize, rid) < rs.Facilities[i].Production(info.IPC)
}

// placementSource finds the territory whose production a new unit of type
// t placed in rid would use.
func (gs *GameState) placementSource(g Graph, f Faction, t UnitType, rid RegionID) (RegionID, error) {
	info, ok := g.Region(rid)
	if !ok {
		return "", reject(KindInvalidActionShape, "unknown region %q", rid)
	}
	if f == China {
		rs := gs.Regions[rid]
		if t != Infantry || !info.IsLand() || rs.Owner != China {
			return "", reject(KindRegionNotEligible, "china raises infantry only in its own territory")
		}
		n := 0
		for _, p := range gs.PhaseState.Mobilize.Placed {
			if p.Region == rid {
				n++
			}
		}
		if n >= chinaStackLimit {
			return "", reject(KindRegionNotEligible, "at most %d units may be raised in %s", chinaStackLimit, rid)
		}
		return rid, nil
	}
	if t.Domain() != DomainSea {
		if !info.IsLand() || !gs.canProduce(g, f, rid) {
			return "", reject(KindRegionNotEligible, "%s cannot mobilize %s for %s", rid, t, f)
		}
		return rid, nil
	}
	if !info.IsSea() {
		return "", reject(KindRegionNotEligible, "ships must be placed in a sea zone")
	}
	if len(gs.enemyUnits(rid, f)) > 0 {
		return "", reject(KindRegionNotEligible, "enemy units occupy %s", rid)
	}
	for _, land := range g.AdjacentLand(rid) {
		if g.IsCoastal(land) && gs.canProduce(g, f, land) {
			return land, nil
		}
	}
	return "", reject(KindRegionNotEligible, "no industrial complex with capacity borders %s", rid)
}

func validatePlace(gs *GameState, g Graph, a Action) error {
	f := gs.Current
	if _, ok := g.Region(a.Region); !ok {
		return reject(KindInvalidActionShape, "unknown region %q", a.Region)
	}
	i := findPurchase(gs.Purchased, a.UnitType, placementTheater(g, f, a.Region))
	if i < 0 || gs.Purchased[i].Count == 0 {
		return reject(KindInsufficientResources, "no purchased %s left to place in %s", a.UnitType, a.Region)
	}
	_, err := gs.placementSource(g, f, a.UnitType, a.Region)
	return err
}

func applyPlace(gs *GameState, g Graph, a Action) ([]Event, Inverse) {
	f := gs.Current
	th := placementTheater(g, f, a.Region)
	src, _ := gs.placementSource(g, f, a.UnitType, a.Region)
	id := gs.NextUnitID
	gs.NextUnitID++
	gs.addUnit(a.Region, newUnit(id, a.UnitType, f))
	gs.Purchased[findPurchase(gs.Purchased, a.UnitType, th)].Count--
	ms := gs.PhaseState.Mobilize
	ms.Placed = append(ms.Placed, Mobilization{Unit: id, Type: a.UnitType, Region: a.Region, Source: src, Theater: th})
	ev := Event{Kind: EventUnitsPlaced, Faction: f, UnitType: a.UnitType, Count: 1, Region: a.Region, Units: []UnitID{id}}
	return []Event{ev}, simpleInverse(Action{Kind: ActionRemovePlacement, Unit: id})
}

func validateRemovePlacement(gs *GameState, a Action) error {
	if !slices.ContainsFunc(gs.PhaseState.Mobilize.Placed, func(p Mobilization) bool { return p.Unit == a.Unit }) {
		return reject(KindInvalidActionShape, "unit %d was not placed this turn", a.Unit)
	}
	return nil
}

// applyRemovePlacement takes a unit placed this turn back into the
// mobilization pool.
func applyRemovePlacement(gs *GameState, a Action) Inverse {
	ms := gs.PhaseState.Mobilize
	i := slices.IndexFunc(ms.Placed, func(p Mobilization) bool { return p.Unit == a.Unit })
	p := ms.Placed[i]
	snap := takeSnapshot(gs, p.Region)

	gs.removeUnit(p.Region, p.Unit)
	ms.Placed = slices.Delete(ms.Placed, i, i+1)
	if j := findPurchase(gs.Purchased, p.Type, p.Theater); j >= 0 {
		gs.Purchased[j].Count++
	} else {
		gs.Purchased = append(gs.Purchased, Purchase{Type: p.Type, Count: 1, Theater: p.Theater})
	}
	if p.Unit == gs.NextUnitID-1 {
		gs.NextUnitID--
	}
	return Inverse{Kind: InverseSnapshot, Snapshot: snap}
}

// placeableAnywhere reports whether some region could take a unit of
// type t for the current faction.
func (gs *GameState) placeableAnywhere(g Graph, t UnitType, th Theater) bool {
	for _, rid := range g.Regions() {
		if placementTheater(g, gs.Current, rid) != th {
			continue
		}
		if _, err := gs.placementSource(g, gs.Current, t, rid); err == nil {
			return true
		}
	}
	return false
}

func validateConfirmMobilization(gs *GameState, g Graph) error {
	for _, p := range gs.Purchased {
		if p.Count > 0 && gs.placeableAnywhere(g, p.Type, p.Theater) {
			return reject(KindRegionNotEligible, "%d %s still to be placed", p.Count, p.Type)
		}
	}
	return nil
}

// forfeitUnplaced drops purchased units that could not be placed.
func forfeitUnplaced(gs *GameState) []Event {
	var events []Event
	for _, p := range gs.Purchased {
		if p.Count > 0 {
			events = append(events, Event{Kind: EventUnitsForfeited, Faction: gs.Current, UnitType: p.Type, Count: p.Count})
		}
	}
	gs.Purchased = nil
	return events
}
