package campaign

// UnitType names a kind of military unit.
type UnitType string

const (
	Infantry        UnitType = "infantry"
	MechInfantry    UnitType = "mech_infantry"
	Artillery       UnitType = "artillery"
	Tank            UnitType = "tank"
	AAA             UnitType = "aaa"
	Fighter         UnitType = "fighter"
	TacticalBomber  UnitType = "tactical_bomber"
	StrategicBomber UnitType = "strategic_bomber"
	Transport       UnitType = "transport"
	Submarine       UnitType = "submarine"
	Destroyer       UnitType = "destroyer"
	Cruiser         UnitType = "cruiser"
	Carrier         UnitType = "carrier"
	Battleship      UnitType = "battleship"
)

// Domain is the terrain a unit operates in.
type Domain string

const (
	DomainLand Domain = "land"
	DomainAir  Domain = "air"
	DomainSea  Domain = "sea"
)

// UnitStats holds the fixed rules values for a unit type.
type UnitStats struct {
	Cost      int
	Attack    int
	Defense   int
	Movement  int
	Domain    Domain
	HitPoints int
	Bombard   int  // shore bombardment value, 0 if the unit cannot bombard
	Capacity  int  // transport slots
	AirSlots  int  // carrier deck slots
	Blitz     bool // may pass through empty hostile territory
	Supported bool // attacks at 2 when paired with artillery
	OnCarrier bool // may land on a carrier
}

var unitTypes = []UnitType{
	Infantry, MechInfantry, Artillery, Tank, AAA,
	Fighter, TacticalBomber, StrategicBomber,
	Transport, Submarine, Destroyer, Cruiser, Carrier, Battleship,
}

var unitStats = map[UnitType]UnitStats{
	Infantry:        {Cost: 3, Attack: 1, Defense: 2, Movement: 1, Domain: DomainLand, HitPoints: 1, Supported: true},
	MechInfantry:    {Cost: 4, Attack: 1, Defense: 2, Movement: 2, Domain: DomainLand, HitPoints: 1, Supported: true, Blitz: true},
	Artillery:       {Cost: 4, Attack: 2, Defense: 2, Movement: 1, Domain: DomainLand, HitPoints: 1},
	Tank:            {Cost: 6, Attack: 3, Defense: 3, Movement: 2, Domain: DomainLand, HitPoints: 1, Blitz: true},
	AAA:             {Cost: 5, Attack: 0, Defense: 0, Movement: 1, Domain: DomainLand, HitPoints: 1},
	Fighter:         {Cost: 10, Attack: 3, Defense: 4, Movement: 4, Domain: DomainAir, HitPoints: 1, OnCarrier: true},
	TacticalBomber:  {Cost: 11, Attack: 3, Defense: 3, Movement: 4, Domain: DomainAir, HitPoints: 1, OnCarrier: true},
	StrategicBomber: {Cost: 12, Attack: 4, Defense: 1, Movement: 6, Domain: DomainAir, HitPoints: 1},
	Transport:       {Cost: 7, Attack: 0, Defense: 0, Movement: 2, Domain: DomainSea, HitPoints: 1, Capacity: 2},
	Submarine:       {Cost: 6, Attack: 2, Defense: 1, Movement: 2, Domain: DomainSea, HitPoints: 1},
	Destroyer:       {Cost: 8, Attack: 2, Defense: 2, Movement: 2, Domain: DomainSea, HitPoints: 1},
	Cruiser:         {Cost: 12, Attack: 3, Defense: 3, Movement: 2, Domain: DomainSea, HitPoints: 1, Bombard: 3},
	Carrier:         {Cost: 16, Attack: 0, Defense: 2, Movement: 2, Domain: DomainSea, HitPoints: 2, AirSlots: 2},
	Battleship:      {Cost: 20, Attack: 4, Defense: 4, Movement: 2, Domain: DomainSea, HitPoints: 2, Bombard: 4},
}

// AllUnitTypes returns every unit type in catalog order.
func AllUnitTypes() []UnitType {
	out := make([]UnitType, len(unitTypes))
	copy(out, unitTypes)
	return out
}

// StatsOf returns the rules values for t.
func StatsOf(t UnitType) (UnitStats, bool) {
	s, ok := unitStats[t]
	return s, ok
}

// Valid reports whether t is a known unit type.
func (t UnitType) Valid() bool {
	_, ok := unitStats[t]
	return ok
}

// Domain returns the terrain the unit type operates in.
func (t UnitType) Domain() Domain { return unitStats[t].Domain }

// Cost returns the purchase price in IPCs.
func (t UnitType) Cost() int { return unitStats[t].Cost }

// UnitID addresses a unit for the lifetime of a game. Zero is never assigned.
type UnitID uint32

// Unit is a single unit on the board or in a transport's hold.
type Unit struct {
	ID           UnitID   `json:"id"`
	Type         UnitType `json:"type"`
	Owner        Faction  `json:"owner"`
	Hits         int      `json:"hits,omitempty"`
	Moved        bool     `json:"moved,omitempty"`
	MovementLeft int      `json:"movementLeft"`
	MovedFrom    RegionID `json:"movedFrom,omitempty"`
	Amphibious   bool     `json:"amphibious,omitempty"`
	Submerged    bool     `json:"submerged,omitempty"`
	Cargo        []UnitID `json:"cargo,omitempty"`
}

func newUnit(id UnitID, t UnitType, owner Faction) Unit {
	return Unit{ID: id, Type: t, Owner: owner, MovementLeft: unitStats[t].Movement}
}

func (u Unit) stats() UnitStats { return unitStats[u.Type] }

// IsLand reports whether the unit is a land unit.
func (u Unit) IsLand() bool { return u.stats().Domain == DomainLand }

// IsAir reports whether the unit is an aircraft.
func (u Unit) IsAir() bool { return u.stats().Domain == DomainAir }

// IsSea reports whether the unit is a ship.
func (u Unit) IsSea() bool { return u.stats().Domain == DomainSea }

// HitPointsLeft returns how many more hits the unit can absorb.
func (u Unit) HitPointsLeft() int { return u.stats().HitPoints - u.Hits }

// blocksShipping reports whether the unit stops enemy ships passing through
// its sea zone. Submarines and transports never do.
func (u Unit) blocksShipping() bool {
	return u.IsSea() && u.Type != Transport && u.Type != Submarine && !u.Submerged
}

func (u Unit) clone() Unit {
	c := u
	if u.Cargo != nil {
		c.Cargo = append([]UnitID(nil), u.Cargo...)
	}
	return c
}

// cargoFits reports whether a unit of type t can join the given cargo.
// A transport holds two units, at most one of which is not infantry.
func cargoFits(cargo []Unit, t UnitType) bool {
	if len(cargo) >= unitStats[Transport].Capacity {
		return false
	}
	if t.Domain() != DomainLand {
		return false
	}
	if t == Infantry {
		return true
	}
	for _, c := range cargo {
		if c.Type != Infantry {
			return false
		}
	}
	return true
}
