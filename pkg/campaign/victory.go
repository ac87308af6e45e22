package campaign

// victor returns the team that has met its victory condition, or "".
func victor(gs *GameState, g Graph) Team {
	sc := g.Scenario()
	europe, pacific := 0, 0
	for _, rid := range g.Regions() {
		info := regionInfo(g, rid)
		if info.VictoryCity == "" {
			continue
		}
		owner := gs.Regions[rid].Owner
		if owner == NoFaction || owner.Team() != Axis {
			continue
		}
		if info.Theater == Pacific {
			pacific++
		} else {
			europe++
		}
	}
	if (sc.AxisEuropeCities > 0 && europe >= sc.AxisEuropeCities) ||
		(sc.AxisPacificCities > 0 && pacific >= sc.AxisPacificCities) {
		return Axis
	}
	if len(sc.AlliedCapitals) == 0 {
		return ""
	}
	for _, f := range sc.AlliedCapitals {
		info, ok := capitalOf(g, f)
		if !ok {
			return ""
		}
		owner := gs.Regions[info.ID].Owner
		if owner == NoFaction || owner.Team() != Allies {
			return ""
		}
	}
	return Allies
}

// checkVictory records the winner the first time a condition holds.
func checkVictory(gs *GameState, g Graph) []Event {
	if gs.Winner != "" {
		return nil
	}
	t := victor(gs, g)
	if t == "" {
		return nil
	}
	gs.Winner = t
	return []Event{{Kind: EventVictoryAchieved, Team: t, Turn: gs.Turn}}
}
