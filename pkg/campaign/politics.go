package campaign

import "encoding/json"

// Trigger is a one-way political flag.
type Trigger string

const (
	TriggerUSAtWar              Trigger = "us_at_war"
	TriggerSovietAtWarWithAxis  Trigger = "soviet_at_war_with_axis"
	TriggerJapanAttackedUKANZAC Trigger = "japan_attacked_uk_anzac"
	TriggerLondonCaptured       Trigger = "london_captured"
	TriggerParisCaptured        Trigger = "paris_captured"
)

// Triggers is a set of flags that can be raised but never lowered.
type Triggers struct {
	set []Trigger
}

// Has reports whether t has been raised.
func (t *Triggers) Has(flag Trigger) bool {
	for _, f := range t.set {
		if f == flag {
			return true
		}
	}
	return false
}

// Set raises flag and reports whether it was newly raised.
func (t *Triggers) Set(flag Trigger) bool {
	if t.Has(flag) {
		return false
	}
	t.set = append(t.set, flag)
	return true
}

// List returns the raised flags in the order they were raised.
func (t *Triggers) List() []Trigger {
	return append([]Trigger(nil), t.set...)
}

func (t Triggers) MarshalJSON() ([]byte, error) {
	if t.set == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.set)
}

func (t *Triggers) UnmarshalJSON(data []byte) error {
	var flags []Trigger
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	t.set = nil
	for _, f := range flags {
		t.Set(f)
	}
	return nil
}

// Politics holds the war matrix and the political triggers.
type Politics struct {
	War       [FactionCount][FactionCount]bool `json:"war"`
	Triggers  Triggers                         `json:"triggers"`
	USWarTurn int                              `json:"usWarTurn,omitempty"`
}

func newPolitics() Politics {
	var p Politics
	for _, a := range []Faction{Germany, Italy} {
		for _, b := range []Faction{UnitedKingdom, France} {
			p.setWar(a, b)
		}
	}
	for _, b := range []Faction{UnitedKingdom, China, ANZAC} {
		p.setWar(Japan, b)
	}
	p.Triggers.Set(TriggerJapanAttackedUKANZAC)
	p.Triggers.Set(TriggerParisCaptured)
	return p
}

// AtWar reports whether a and b are at war.
func (p *Politics) AtWar(a, b Faction) bool {
	i, j := a.Index(), b.Index()
	if i < 0 || j < 0 {
		return false
	}
	return p.War[i][j]
}

func (p *Politics) setWar(a, b Faction) {
	i, j := a.Index(), b.Index()
	p.War[i][j] = true
	p.War[j][i] = true
}

func (p *Politics) clone() Politics {
	c := *p
	c.Triggers = Triggers{set: p.Triggers.List()}
	return c
}

// Friendly reports whether units of a and b may share territory and pass
// through each other's regions.
func (gs *GameState) Friendly(a, b Faction) bool {
	return a == b || (a.Team() == b.Team() && !gs.Politics.AtWar(a, b))
}

// Hostile reports whether a and b are at war.
func (gs *GameState) Hostile(a, b Faction) bool {
	return a != NoFaction && b != NoFaction && gs.Politics.AtWar(a, b)
}

func validateDeclareWar(gs *GameState, target Faction) error {
	me := gs.Current
	switch {
	case !target.Valid():
		return reject(KindInvalidActionShape, "unknown faction %q", target)
	case target == me:
		return reject(KindIllegalDeclaration, "cannot declare war on yourself")
	case target.Team() == me.Team():
		return reject(KindIllegalDeclaration, "cannot declare war on an allied faction")
	case gs.Politics.AtWar(me, target):
		return reject(KindIllegalDeclaration, "already at war with %s", target)
	}
	return nil
}

func applyDeclareWar(gs *GameState, target Faction) []Event {
	return declareWar(gs, gs.Current, target)
}

// declareWar updates the matrix and raises any triggers the new war
// implies. Trigger order: US entry, Soviet entry, Japan vs UK/ANZAC.
func declareWar(gs *GameState, aggressor, target Faction) []Event {
	gs.Politics.setWar(aggressor, target)
	gs.faction(aggressor).AtWar = true
	gs.faction(target).AtWar = true
	events := []Event{{Kind: EventWarDeclared, Faction: aggressor, Target: target}}

	if aggressor == UnitedStates || target == UnitedStates {
		gs.Politics.Triggers.Set(TriggerUSAtWar)
		if gs.Politics.USWarTurn == 0 {
			gs.Politics.USWarTurn = gs.Turn
		}
	}
	if (aggressor == SovietUnion && target.Team() == Axis) || (target == SovietUnion && aggressor.Team() == Axis) {
		gs.Politics.Triggers.Set(TriggerSovietAtWarWithAxis)
	}
	if aggressor == Japan && (target == UnitedKingdom || target == ANZAC) {
		gs.Politics.Triggers.Set(TriggerJapanAttackedUKANZAC)
	}
	return events
}

// usEntryTurn is the turn from which the United States joins the war on
// its own.
const usEntryTurn = 4

// checkUSEntry brings the United States into the war at the start of its
// turn once usEntryTurn is reached, unless TriggerUSAtWar is already raised.
func checkUSEntry(gs *GameState) []Event {
	if gs.Current != UnitedStates || gs.Turn < usEntryTurn || gs.Politics.Triggers.Has(TriggerUSAtWar) {
		return nil
	}
	var events []Event
	for _, axis := range []Faction{Germany, Japan, Italy} {
		if !gs.Politics.AtWar(UnitedStates, axis) {
			events = append(events, declareWar(gs, UnitedStates, axis)...)
		}
	}
	gs.faction(UnitedStates).AtWar = true
	gs.Politics.Triggers.Set(TriggerUSAtWar)
	if gs.Politics.USWarTurn == 0 {
		gs.Politics.USWarTurn = gs.Turn
	}
	return events
}
