package campaign

// Faction identifies one of the nine playable sides.
type Faction string

const (
	Germany       Faction = "germany"
	SovietUnion   Faction = "soviet_union"
	Japan         Faction = "japan"
	UnitedStates  Faction = "united_states"
	China         Faction = "china"
	UnitedKingdom Faction = "united_kingdom"
	Italy         Faction = "italy"
	ANZAC         Faction = "anzac"
	France        Faction = "france"
	NoFaction     Faction = ""
)

// FactionCount is the number of playable factions.
const FactionCount = 9

// Team is one of the two alliances.
type Team string

const (
	Axis   Team = "axis"
	Allies Team = "allies"
)

// turnOrder is the fixed order in which factions take their turns.
var turnOrder = [FactionCount]Faction{
	Germany, SovietUnion, Japan, UnitedStates, China, UnitedKingdom, Italy, ANZAC, France,
}

// AllFactions returns the nine factions in turn order.
func AllFactions() []Faction {
	out := make([]Faction, FactionCount)
	copy(out, turnOrder[:])
	return out
}

// Index returns the faction's position in turn order, or -1 if unknown.
func (f Faction) Index() int {
	for i, o := range turnOrder {
		if o == f {
			return i
		}
	}
	return -1
}

// Valid reports whether f is one of the nine factions.
func (f Faction) Valid() bool { return f.Index() >= 0 }

// Team returns the alliance the faction belongs to.
func (f Faction) Team() Team {
	switch f {
	case Germany, Japan, Italy:
		return Axis
	default:
		return Allies
	}
}

// Next returns the faction that plays after f.
func (f Faction) Next() Faction {
	i := f.Index()
	if i < 0 {
		return turnOrder[0]
	}
	return turnOrder[(i+1)%FactionCount]
}

// IsLast reports whether f closes the turn order.
func (f Faction) IsLast() bool { return f.Index() == FactionCount-1 }

// SplitEconomy reports whether the faction keeps separate Europe and
// Pacific treasuries.
func (f Faction) SplitEconomy() bool { return f == UnitedKingdom }

// startingIPCs returns the opening treasury for a faction. Only factions
// with a split economy have a Pacific pool.
func startingIPCs(f Faction) (europe, pacific int) {
	switch f {
	case Germany:
		return 30, 0
	case SovietUnion:
		return 37, 0
	case Japan:
		return 26, 0
	case UnitedStates:
		return 52, 0
	case China:
		return 12, 0
	case UnitedKingdom:
		return 28, 17
	case Italy:
		return 10, 0
	case ANZAC:
		return 10, 0
	}
	return 0, 0
}

// startsAtWar reports whether the faction is a belligerent at game start.
func startsAtWar(f Faction) bool {
	switch f {
	case Germany, Japan, Italy, UnitedKingdom, France:
		return true
	}
	return false
}
