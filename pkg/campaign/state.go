package campaign

import (
	"fmt"
	"sort"
)

// RegionState is the mutable part of a region.
type RegionState struct {
	Owner        Faction    `json:"owner,omitempty"`
	Units        []Unit     `json:"units,omitempty"`
	Facilities   []Facility `json:"facilities,omitempty"`
	JustCaptured bool       `json:"justCaptured,omitempty"`
}

func (rs *RegionState) clone() *RegionState {
	c := &RegionState{Owner: rs.Owner, JustCaptured: rs.JustCaptured}
	if rs.Units != nil {
		c.Units = make([]Unit, len(rs.Units))
		for i, u := range rs.Units {
			c.Units[i] = u.clone()
		}
	}
	if rs.Facilities != nil {
		c.Facilities = append([]Facility(nil), rs.Facilities...)
	}
	return c
}

// FactionState is a faction's treasury and status. IPCs is the Europe
// pool for factions with a split economy.
type FactionState struct {
	Faction         Faction `json:"faction"`
	IPCs            int     `json:"ipcs"`
	PacificIPCs     int     `json:"pacificIpcs,omitempty"`
	AtWar           bool    `json:"atWar,omitempty"`
	CapitalCaptured bool    `json:"capitalCaptured,omitempty"`
}

// Pool returns the treasury that pays for spending in theater th.
func (fs *FactionState) Pool(th Theater) *int {
	if th == Pacific && fs.Faction.SplitEconomy() {
		return &fs.PacificIPCs
	}
	return &fs.IPCs
}

// Total returns the faction's combined treasury.
func (fs *FactionState) Total() int { return fs.IPCs + fs.PacificIPCs }

// GameState is a complete snapshot of a game.
type GameState struct {
	Turn       int                        `json:"turn"`
	Phase      Phase                      `json:"phase"`
	Current    Faction                    `json:"current"`
	PhaseState PhaseState                 `json:"phaseState"`
	Regions    map[RegionID]*RegionState  `json:"regions"`
	Factions   [FactionCount]FactionState `json:"factions"`
	Politics   Politics                   `json:"politics"`
	Embarked   map[UnitID]Unit            `json:"embarked,omitempty"`
	Purchased  []Purchase                 `json:"purchased,omitempty"`
	Dice       Dice                       `json:"dice"`
	NextUnitID UnitID                     `json:"nextUnitId"`
	Winner     Team                       `json:"winner,omitempty"`
	Log        []Record                   `json:"log,omitempty"`
	// Checkpoints holds log indices at which a phase began.
	Checkpoints []int `json:"checkpoints"`
}

// NewGameState builds the opening position described by the graph's
// scenario, with Germany to purchase on turn 1.
func NewGameState(g Graph, seed uint64) *GameState {
	gs := &GameState{
		Turn:        1,
		Phase:       PhasePurchase,
		Current:     turnOrder[0],
		PhaseState:  newPhaseState(PhasePurchase),
		Regions:     make(map[RegionID]*RegionState, len(g.Regions())),
		Politics:    newPolitics(),
		Dice:        Dice{Seed: seed},
		NextUnitID:  1,
		Checkpoints: []int{0},
	}
	for i, f := range turnOrder {
		eu, pac := startingIPCs(f)
		gs.Factions[i] = FactionState{Faction: f, IPCs: eu, PacificIPCs: pac, AtWar: startsAtWar(f)}
	}
	for _, id := range g.Regions() {
		info := regionInfo(g, id)
		rs := &RegionState{Owner: info.Owner}
		for _, ft := range info.Facilities {
			rs.Facilities = append(rs.Facilities, Facility{Type: ft})
		}
		gs.Regions[id] = rs
	}
	for _, p := range g.Scenario().Setup {
		rs := gs.Regions[p.Region]
		for range p.Count {
			rs.Units = append(rs.Units, newUnit(gs.NextUnitID, p.Type, p.Owner))
			gs.NextUnitID++
		}
	}
	for _, f := range turnOrder {
		info, ok := capitalOf(g, f)
		if ok && gs.Regions[info.ID].Owner != f {
			gs.faction(f).CapitalCaptured = true
			gs.faction(f).IPCs = 0
		}
	}
	return gs
}

// Region returns the mutable state for id, or nil.
func (gs *GameState) Region(id RegionID) *RegionState { return gs.Regions[id] }

// FactionState returns the treasury and status of f.
func (gs *GameState) FactionState(f Faction) FactionState { return *gs.faction(f) }

func (gs *GameState) faction(f Faction) *FactionState {
	i := f.Index()
	if i < 0 {
		return &FactionState{}
	}
	return &gs.Factions[i]
}

// unitRef locates a unit on the board. Embarked units have an empty
// Region and the id of the transport carrying them.
type unitRef struct {
	Region    RegionID
	Index     int
	Transport UnitID
}

// locate finds a unit by id, searching region stacks first and then the
// transports' holds.
func (gs *GameState) locate(id UnitID) (unitRef, bool) {
	for rid, rs := range gs.Regions {
		for i := range rs.Units {
			if rs.Units[i].ID == id {
				return unitRef{Region: rid, Index: i}, true
			}
		}
	}
	if _, ok := gs.Embarked[id]; ok {
		for rid, rs := range gs.Regions {
			for _, u := range rs.Units {
				for _, c := range u.Cargo {
					if c == id {
						return unitRef{Region: rid, Index: -1, Transport: u.ID}, true
					}
				}
			}
		}
	}
	return unitRef{}, false
}

// Unit returns a copy of the unit with the given id and where it is.
// Embarked units report the region of their transport.
func (gs *GameState) Unit(id UnitID) (Unit, RegionID, bool) {
	ref, ok := gs.locate(id)
	if !ok {
		return Unit{}, "", false
	}
	if ref.Transport != 0 {
		return gs.Embarked[id], ref.Region, true
	}
	return gs.Regions[ref.Region].Units[ref.Index], ref.Region, true
}

// unitPtr returns a pointer into the region stack for a unit on the board.
func (gs *GameState) unitPtr(id UnitID) (*Unit, RegionID) {
	ref, ok := gs.locate(id)
	if !ok || ref.Transport != 0 {
		return nil, ""
	}
	return &gs.Regions[ref.Region].Units[ref.Index], ref.Region
}

// removeUnit takes a unit out of its region stack and returns it.
func (gs *GameState) removeUnit(rid RegionID, id UnitID) (Unit, bool) {
	rs := gs.Regions[rid]
	if rs == nil {
		return Unit{}, false
	}
	for i, u := range rs.Units {
		if u.ID == id {
			rs.Units = append(rs.Units[:i], rs.Units[i+1:]...)
			return u, true
		}
	}
	return Unit{}, false
}

// cargoOf returns the units embarked on a transport.
func (gs *GameState) cargoOf(t Unit) []Unit {
	out := make([]Unit, 0, len(t.Cargo))
	for _, id := range t.Cargo {
		if u, ok := gs.Embarked[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// UnitsOf returns every unit the faction has on the board, region by
// region in map order, followed by its embarked units.
func (gs *GameState) UnitsOf(g Graph, f Faction) []Unit {
	var out []Unit
	for _, id := range g.Regions() {
		for _, u := range gs.Regions[id].Units {
			if u.Owner == f {
				out = append(out, u)
			}
		}
	}
	for _, id := range gs.embarkedIDs() {
		if u := gs.Embarked[id]; u.Owner == f {
			out = append(out, u)
		}
	}
	return out
}

func (gs *GameState) embarkedIDs() []UnitID {
	ids := make([]UnitID, 0, len(gs.Embarked))
	for id := range gs.Embarked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OwnerTally counts the units in a region stack by owner.
func (gs *GameState) OwnerTally(id RegionID) map[Faction]int {
	tally := make(map[Faction]int)
	if rs := gs.Regions[id]; rs != nil {
		for _, u := range rs.Units {
			tally[u.Owner]++
		}
	}
	return tally
}

// UnitCount returns the number of units the faction has on the board,
// including embarked units.
func (gs *GameState) UnitCount(f Faction) int {
	n := 0
	for _, rs := range gs.Regions {
		for _, u := range rs.Units {
			if u.Owner == f {
				n++
			}
		}
	}
	for _, u := range gs.Embarked {
		if u.Owner == f {
			n++
		}
	}
	return n
}

// TerritoriesOwned returns the land regions controlled by f in map order.
func (gs *GameState) TerritoriesOwned(g Graph, f Faction) []RegionID {
	var out []RegionID
	for _, id := range g.Regions() {
		if gs.Regions[id].Owner == f && regionInfo(g, id).IsLand() {
			out = append(out, id)
		}
	}
	return out
}

// enemyUnits returns units in a region belonging to factions at war with f.
func (gs *GameState) enemyUnits(rid RegionID, f Faction) []Unit {
	var out []Unit
	if rs := gs.Regions[rid]; rs != nil {
		for _, u := range rs.Units {
			if gs.Hostile(u.Owner, f) {
				out = append(out, u)
			}
		}
	}
	return out
}

// hasEnemyBlockers reports whether enemy ships that stop movement are in
// a sea zone. When forSub is set, only destroyers count.
func (gs *GameState) hasEnemyBlockers(rid RegionID, f Faction, forSub bool) bool {
	for _, u := range gs.enemyUnits(rid, f) {
		if forSub {
			if u.Type == Destroyer {
				return true
			}
			continue
		}
		if u.blocksShipping() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (gs *GameState) Clone() *GameState {
	c := gs.cloneWorld()
	c.Log = make([]Record, len(gs.Log))
	for i, r := range gs.Log {
		c.Log[i] = r.clone()
	}
	c.Checkpoints = append([]int(nil), gs.Checkpoints...)
	return c
}

// cloneWorld deep-copies everything except the ledger, which the copy
// shares with the original.
func (gs *GameState) cloneWorld() *GameState {
	c := &GameState{
		Turn:        gs.Turn,
		Phase:       gs.Phase,
		Current:     gs.Current,
		PhaseState:  gs.PhaseState.clone(),
		Regions:     make(map[RegionID]*RegionState, len(gs.Regions)),
		Factions:    gs.Factions,
		Politics:    gs.Politics.clone(),
		Dice:        gs.Dice.clone(),
		NextUnitID:  gs.NextUnitID,
		Winner:      gs.Winner,
		Log:         gs.Log,
		Checkpoints: gs.Checkpoints,
	}
	for id, rs := range gs.Regions {
		c.Regions[id] = rs.clone()
	}
	if gs.Embarked != nil {
		c.Embarked = make(map[UnitID]Unit, len(gs.Embarked))
		for id, u := range gs.Embarked {
			c.Embarked[id] = u.clone()
		}
	}
	if gs.Purchased != nil {
		c.Purchased = append([]Purchase(nil), gs.Purchased...)
	}
	return c
}

// CheckIntegrity verifies the structural invariants: every unit appears in
// exactly one region stack or transport hold, embarked units and transport
// cargo lists agree, the war matrix is symmetric, and the phase sub-state
// matches the phase.
func (gs *GameState) CheckIntegrity() error {
	seen := make(map[UnitID]RegionID)
	held := make(map[UnitID]UnitID)
	for rid, rs := range gs.Regions {
		for _, u := range rs.Units {
			if prev, dup := seen[u.ID]; dup {
				return fmt.Errorf("unit %d in both %s and %s", u.ID, prev, rid)
			}
			seen[u.ID] = rid
			for _, c := range u.Cargo {
				if t, dup := held[c]; dup {
					return fmt.Errorf("unit %d carried by %d and %d", c, t, u.ID)
				}
				held[c] = u.ID
			}
		}
	}
	for id := range gs.Embarked {
		if rid, dup := seen[id]; dup {
			return fmt.Errorf("embarked unit %d also in %s", id, rid)
		}
		if _, ok := held[id]; !ok {
			return fmt.Errorf("embarked unit %d has no transport", id)
		}
	}
	for c := range held {
		if _, ok := gs.Embarked[c]; !ok {
			return fmt.Errorf("cargo %d is not embarked", c)
		}
	}
	for i := range FactionCount {
		for j := range FactionCount {
			if gs.Politics.War[i][j] != gs.Politics.War[j][i] {
				return fmt.Errorf("war matrix asymmetric at %s/%s", turnOrder[i], turnOrder[j])
			}
		}
	}
	if got := gs.PhaseState.phase(); got != gs.Phase {
		return fmt.Errorf("phase %s has %s sub-state", gs.Phase, got)
	}
	return nil
}

// capitalOf finds the territory that is f's capital on the map.
func capitalOf(g Graph, f Faction) (RegionInfo, bool) {
	for _, id := range g.Regions() {
		if info := regionInfo(g, id); info.CapitalOf == f {
			return info, true
		}
	}
	return RegionInfo{}, false
}
