package campaign

// territoryIncome sums the IPC value of the land f controls, split by
// theater for factions with two economies.
func territoryIncome(gs *GameState, g Graph, f Faction) (europe, pacific int) {
	for _, rid := range gs.TerritoriesOwned(g, f) {
		info := regionInfo(g, rid)
		if f.SplitEconomy() && info.Theater == Pacific {
			pacific += info.IPC
		} else {
			europe += info.IPC
		}
	}
	return europe, pacific
}

// convoyLosses charges f for enemy ships in convoy zones next to its
// territory: two per submarine and one per other warship, capped at the
// value of the faction's land bordering the zone.
func convoyLosses(gs *GameState, g Graph, f Faction) (europe, pacific int, events []Event) {
	for _, rid := range g.Regions() {
		info := regionInfo(g, rid)
		if !info.IsSea() || !info.Convoy {
			continue
		}
		limit := 0
		for _, land := range g.AdjacentLand(rid) {
			if gs.Regions[land].Owner == f {
				limit += regionInfo(g, land).IPC
			}
		}
		if limit == 0 {
			continue
		}
		raid := 0
		for _, u := range gs.enemyUnits(rid, f) {
			switch {
			case u.Type == Submarine:
				raid += 2
			case u.IsSea() && u.Type != Transport:
				raid++
			}
		}
		lost := min(raid, limit)
		if lost == 0 {
			continue
		}
		if f.SplitEconomy() && info.Theater == Pacific {
			pacific += lost
		} else {
			europe += lost
		}
		events = append(events, Event{Kind: EventConvoyDisrupted, Faction: f, Region: rid, Amount: lost})
	}
	return europe, pacific, events
}

// collectIncome credits the current faction's income for the turn. A
// faction whose capital is held by the enemy collects nothing.
func collectIncome(gs *GameState, g Graph) []Event {
	f := gs.Current
	fs := gs.faction(f)
	if fs.CapitalCaptured {
		return []Event{{Kind: EventIncomeCollected, Faction: f, Note: "capital captured"}}
	}
	eu, pac := territoryIncome(gs, g, f)
	oe, op, events := objectiveIncome(gs, g, f)
	ce, cp, convoy := convoyLosses(gs, g, f)
	events = append(events, convoy...)
	eu = max(eu+oe-ce, 0)
	pac = max(pac+op-cp, 0)
	fs.IPCs += eu
	fs.PacificIPCs += pac
	return append(events, Event{Kind: EventIncomeCollected, Faction: f, Amount: eu + pac})
}
