package campaign

// FacilityType names a production or logistics structure.
type FacilityType string

const (
	MinorIC   FacilityType = "minor_ic"
	MajorIC   FacilityType = "major_ic"
	AirBase   FacilityType = "air_base"
	NavalBase FacilityType = "naval_base"
)

// Valid reports whether t is a known facility type.
func (t FacilityType) Valid() bool {
	switch t {
	case MinorIC, MajorIC, AirBase, NavalBase:
		return true
	}
	return false
}

// IsIndustrial reports whether the facility can produce units.
func (t FacilityType) IsIndustrial() bool { return t == MinorIC || t == MajorIC }

// Facility is a structure attached to a territory. It belongs to whoever
// controls the territory.
type Facility struct {
	Type   FacilityType `json:"type"`
	Damage int          `json:"damage,omitempty"`
}

// MaxDamage is the damage at which the facility stops operating.
// Industrial complexes take up to twice the territory's value.
func (f Facility) MaxDamage(ipc int) int {
	if f.Type.IsIndustrial() {
		return ipc * 2
	}
	return 6
}

// Operational reports whether the facility still functions.
func (f Facility) Operational(ipc int) bool { return f.Damage < f.MaxDamage(ipc) }

// Production returns how many units the facility can mobilize per turn.
func (f Facility) Production(ipc int) int {
	var base int
	switch f.Type {
	case MajorIC:
		base = min(ipc, 10)
	case MinorIC:
		base = min(ipc, 3)
	default:
		return 0
	}
	return max(base-f.Damage, 0)
}

// industrialComplex returns the index of the first industrial facility in
// the list, or -1.
func industrialComplex(fs []Facility) int {
	for i, f := range fs {
		if f.Type.IsIndustrial() {
			return i
		}
	}
	return -1
}
