package campaign

// RegionID identifies a land territory or sea zone.
type RegionID string

// RegionKind distinguishes land territories from sea zones.
type RegionKind string

const (
	LandRegion RegionKind = "land"
	SeaRegion  RegionKind = "sea"
)

// Theater is one of the two economic halves of the map.
type Theater string

const (
	Europe  Theater = "europe"
	Pacific Theater = "pacific"
)

// Stance describes how an unowned neutral territory leans.
type Stance string

const (
	NotNeutral  Stance = ""
	TrueNeutral Stance = "true_neutral"
	ProAllies   Stance = "pro_allies"
	ProAxis     Stance = "pro_axis"
)

// RegionInfo holds the static attributes of a region.
type RegionInfo struct {
	ID            RegionID
	Name          string
	Kind          RegionKind
	Theater       Theater
	IPC           int
	Owner         Faction // controller at game start
	OriginalOwner Faction
	CapitalOf     Faction
	VictoryCity   string
	Impassable    bool
	Neutral       Stance
	Convoy        bool
	Facilities    []FacilityType
}

// IsLand reports whether the region is a land territory.
func (r RegionInfo) IsLand() bool { return r.Kind == LandRegion }

// IsSea reports whether the region is a sea zone.
func (r RegionInfo) IsSea() bool { return r.Kind == SeaRegion }

// Strait joins two sea zones that are only connected while the
// controlling territory is friendly.
type Strait struct {
	ID         string
	Controller RegionID
	A, B       RegionID
}

// Other returns the zone on the far side of the strait from z.
func (s Strait) Other(z RegionID) RegionID {
	if s.A == z {
		return s.B
	}
	return s.A
}

// Graph is the read-only map service the engine queries. Implementations
// must be safe for concurrent reads.
type Graph interface {
	Name() string
	Region(id RegionID) (RegionInfo, bool)
	// Regions returns every region id in map order.
	Regions() []RegionID
	// AdjacentLand returns the land territories bordering id.
	AdjacentLand(id RegionID) []RegionID
	// AdjacentSea returns the sea zones bordering id, not counting straits.
	AdjacentSea(id RegionID) []RegionID
	// Straits returns the straits that touch the sea zone id.
	Straits(id RegionID) []Strait
	IsCoastal(id RegionID) bool
	// Path returns a shortest path from one region to another that a unit of
	// the given domain could travel on empty terrain, or false when none is
	// within maxDistance steps.
	Path(from, to RegionID, d Domain, maxDistance int) ([]RegionID, bool)
	Scenario() *Scenario
}

// Scenario is the starting position and victory conditions that ship
// with a map.
type Scenario struct {
	AxisEuropeCities  int
	AxisPacificCities int
	AlliedCapitals    []Faction
	Objectives        []*Objective
	Setup             []Placement
}

// Placement puts a group of units into a region at game start.
type Placement struct {
	Region RegionID
	Owner  Faction
	Type   UnitType
	Count  int
}

// neighbors returns every region adjacent to id, land first.
func neighbors(g Graph, id RegionID) []RegionID {
	land := g.AdjacentLand(id)
	sea := g.AdjacentSea(id)
	out := make([]RegionID, 0, len(land)+len(sea))
	out = append(out, land...)
	return append(out, sea...)
}

func isAdjacent(g Graph, a, b RegionID) bool {
	for _, n := range neighbors(g, a) {
		if n == b {
			return true
		}
	}
	return false
}

func regionInfo(g Graph, id RegionID) RegionInfo {
	info, _ := g.Region(id)
	return info
}
