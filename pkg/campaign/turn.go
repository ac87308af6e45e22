package campaign

// advancePhase moves to the next phase of the current faction's turn.
func advancePhase(gs *GameState) []Event {
	from := gs.Phase
	next, _ := from.Next()
	gs.Phase = next
	gs.PhaseState = newPhaseState(next)
	return []Event{{Kind: EventPhaseChanged, From: from, To: next, Faction: gs.Current}}
}

// endTurn hands play to the next faction, starting a new game turn after
// the last faction in the order.
func endTurn(gs *GameState, g Graph) []Event {
	from := gs.Phase
	last := gs.Current.IsLast()
	gs.Current = gs.Current.Next()
	gs.Phase = PhasePurchase
	gs.PhaseState = newPhaseState(PhasePurchase)
	var events []Event
	if last {
		gs.Turn++
		events = append(events, Event{Kind: EventTurnChanged, Turn: gs.Turn})
	}
	events = append(events, Event{Kind: EventPhaseChanged, From: from, To: PhasePurchase, Faction: gs.Current})
	return append(events, beginTurn(gs, g)...)
}

func refresh(u *Unit) {
	u.Moved = false
	u.MovementLeft = u.stats().Movement
	u.MovedFrom = ""
	u.Amphibious = false
	u.Submerged = false
}

// beginTurn readies the current faction's units and territories: movement
// is restored, capture marks expire, ships next to a working naval base
// are repaired, and the United States may enter the war.
func beginTurn(gs *GameState, g Graph) []Event {
	f := gs.Current
	for _, rid := range g.Regions() {
		rs := gs.Regions[rid]
		if rs.Owner == f {
			rs.JustCaptured = false
		}
		repair := regionInfo(g, rid).IsSea() && gs.hasNavalBase(g, f, rid)
		for i := range rs.Units {
			u := &rs.Units[i]
			if u.Owner != f {
				continue
			}
			refresh(u)
			if repair && u.Hits > 0 {
				u.Hits = 0
			}
		}
	}
	for id, u := range gs.Embarked {
		if u.Owner == f {
			refresh(&u)
			gs.Embarked[id] = u
		}
	}
	return checkUSEntry(gs)
}

// hasNavalBase reports whether a sea zone borders a territory where f has
// an operational naval base.
func (gs *GameState) hasNavalBase(g Graph, f Faction, sea RegionID) bool {
	for _, land := range g.AdjacentLand(sea) {
		rs := gs.Regions[land]
		if rs.Owner != f {
			continue
		}
		for _, fac := range rs.Facilities {
			if fac.Type == NavalBase && fac.Operational(regionInfo(g, land).IPC) {
				return true
			}
		}
	}
	return false
}
