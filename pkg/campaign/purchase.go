package campaign

import (
	"cmp"
	"slices"
)

func validatePurchase(gs *GameState, a Action) error {
	fs := gs.faction(gs.Current)
	if err := checkTheater(gs.Current, a.Theater); err != nil {
		return err
	}
	if gs.Current == China && a.UnitType != Infantry {
		return reject(KindInvalidActionShape, "china may only purchase infantry")
	}
	unit, pool := a.UnitType.Cost(), *fs.Pool(a.Theater)
	if a.Count > pool/unit {
		return reject(KindInsufficientResources, "%d %s cost %d IPCs each, %d available", a.Count, a.UnitType, unit, pool)
	}
	return nil
}

func checkTheater(f Faction, th Theater) error {
	if f.SplitEconomy() {
		if th != Europe && th != Pacific {
			return reject(KindInvalidActionShape, "%s must name the europe or pacific economy", f)
		}
		return nil
	}
	if th != "" {
		return reject(KindInvalidActionShape, "%s has a single economy", f)
	}
	return nil
}

func findPurchase(list []Purchase, t UnitType, th Theater) int {
	for i, p := range list {
		if p.Type == t && p.Theater == th {
			return i
		}
	}
	return -1
}

func validateRemovePurchase(gs *GameState, a Action) error {
	ps := gs.PhaseState.Purchase
	i := findPurchase(ps.Purchases, a.UnitType, a.Theater)
	if i < 0 || ps.Purchases[i].Count < a.Count {
		return reject(KindInvalidActionShape, "no pending purchase of %d %s", a.Count, a.UnitType)
	}
	return nil
}

// applyPurchase debits the pool immediately.
func applyPurchase(gs *GameState, a Action) ([]Event, Inverse) {
	ps := gs.PhaseState.Purchase
	cost := a.UnitType.Cost() * a.Count
	*gs.faction(gs.Current).Pool(a.Theater) -= cost
	ps.Spent += cost
	if i := findPurchase(ps.Purchases, a.UnitType, a.Theater); i >= 0 {
		ps.Purchases[i].Count += a.Count
	} else {
		ps.Purchases = append(ps.Purchases, Purchase{Type: a.UnitType, Count: a.Count, Theater: a.Theater})
	}
	ps.Purchases = normalizePurchases(ps.Purchases)
	ev := Event{Kind: EventUnitsPurchased, Faction: gs.Current, UnitType: a.UnitType, Count: a.Count, Amount: cost}
	inv := Action{Kind: ActionRemovePurchase, UnitType: a.UnitType, Count: a.Count, Theater: a.Theater}
	return []Event{ev}, simpleInverse(inv)
}

func applyRemovePurchase(gs *GameState, a Action) Inverse {
	ps := gs.PhaseState.Purchase
	cost := a.UnitType.Cost() * a.Count
	*gs.faction(gs.Current).Pool(a.Theater) += cost
	ps.Spent -= cost
	if i := findPurchase(ps.Purchases, a.UnitType, a.Theater); i >= 0 {
		ps.Purchases[i].Count -= a.Count
	}
	ps.Purchases = normalizePurchases(ps.Purchases)
	return simpleInverse(Action{Kind: ActionPurchaseUnit, UnitType: a.UnitType, Count: a.Count, Theater: a.Theater})
}

// normalizePurchases drops empty entries and orders the rest by theater
// and unit catalog order, so a purchase list depends only on what was
// bought.
func normalizePurchases(list []Purchase) []Purchase {
	list = slices.DeleteFunc(list, func(p Purchase) bool { return p.Count <= 0 })
	slices.SortFunc(list, func(a, b Purchase) int {
		if c := cmp.Compare(a.Theater, b.Theater); c != 0 {
			return c
		}
		return cmp.Compare(slices.Index(unitTypes, a.Type), slices.Index(unitTypes, b.Type))
	})
	return list
}

// repairCost is the IPC price of removing one point of facility damage.
const repairCost = 1

func validateRepair(gs *GameState, g Graph, a Action) error {
	rs := gs.Regions[a.Region]
	if rs == nil {
		return reject(KindInvalidActionShape, "unknown region %q", a.Region)
	}
	if rs.Owner != gs.Current {
		return reject(KindRegionNotEligible, "%s is not controlled by %s", a.Region, gs.Current)
	}
	i := facilityIndex(rs.Facilities, a.Facility)
	if i < 0 {
		return reject(KindRegionNotEligible, "%s has no %s", a.Region, a.Facility)
	}
	if rs.Facilities[i].Damage < a.Count {
		return reject(KindInvalidActionShape, "%s in %s has only %d damage", a.Facility, a.Region, rs.Facilities[i].Damage)
	}
	th := economyFor(gs.Current, regionInfo(g, a.Region).Theater)
	if pool := *gs.faction(gs.Current).Pool(th); a.Count*repairCost > pool {
		return reject(KindInsufficientResources, "repair costs %d IPCs, %d available", a.Count*repairCost, pool)
	}
	return nil
}

func applyRepair(gs *GameState, g Graph, a Action) Inverse {
	rs := gs.Regions[a.Region]
	i := facilityIndex(rs.Facilities, a.Facility)
	rs.Facilities[i].Damage -= a.Count
	th := economyFor(gs.Current, regionInfo(g, a.Region).Theater)
	*gs.faction(gs.Current).Pool(th) -= a.Count * repairCost
	ps := gs.PhaseState.Purchase
	ps.Spent += a.Count * repairCost
	ps.Repairs = append(ps.Repairs, Repair{Region: a.Region, Facility: a.Facility, Amount: a.Count})
	return irreversible()
}

func facilityIndex(fs []Facility, t FacilityType) int {
	for i, f := range fs {
		if f.Type == t {
			return i
		}
	}
	return -1
}

// economyFor maps a region's theater to the pool a faction pays from.
// Factions with a single economy always use their main pool.
func economyFor(f Faction, th Theater) Theater {
	if f.SplitEconomy() {
		return th
	}
	return ""
}

// applyConfirmPurchases moves the purchased units to the mobilization
// pool.
func applyConfirmPurchases(gs *GameState) {
	gs.Purchased = gs.Purchased[:0]
	for _, p := range gs.PhaseState.Purchase.Purchases {
		if p.Count > 0 {
			gs.Purchased = append(gs.Purchased, p)
		}
	}
	if len(gs.Purchased) == 0 {
		gs.Purchased = nil
	}
}
