package campaign

import (
	"slices"
	"sort"
)

// BattleStep is a point in the combat sequence that waits for an action.
type BattleStep string

const (
	StepAAFire                      BattleStep = "aa_fire"
	StepAAFireCasualties            BattleStep = "aa_fire_casualties"
	StepBombardment                 BattleStep = "shore_bombardment"
	StepBombardmentCasualties       BattleStep = "bombardment_casualties"
	StepAttackerSubStrike           BattleStep = "attacker_sub_strike"
	StepAttackerSubStrikeCasualties BattleStep = "attacker_sub_strike_casualties"
	StepDefenderSubStrike           BattleStep = "defender_sub_strike"
	StepDefenderSubStrikeCasualties BattleStep = "defender_sub_strike_casualties"
	StepAttackerRolls               BattleStep = "attacker_rolls"
	StepDefenderRolls               BattleStep = "defender_rolls"
	StepDefenderCasualties          BattleStep = "defender_casualties"
	StepAttackerCasualties          BattleStep = "attacker_casualties"
	StepAttackerDecision            BattleStep = "attacker_decision"
	StepRaid                        BattleStep = "strategic_raid"
	StepOver                        BattleStep = "over"
)

var roundSteps = []BattleStep{
	StepAAFire, StepAAFireCasualties,
	StepBombardment, StepBombardmentCasualties,
	StepAttackerSubStrike, StepAttackerSubStrikeCasualties,
	StepDefenderSubStrike, StepDefenderSubStrikeCasualties,
	StepAttackerRolls, StepDefenderRolls,
	StepDefenderCasualties, StepAttackerCasualties,
}

// IsCasualtyStep reports whether the step waits for SelectCasualties.
func (s BattleStep) IsCasualtyStep() bool {
	switch s {
	case StepAAFireCasualties, StepBombardmentCasualties, StepAttackerSubStrikeCasualties,
		StepDefenderSubStrikeCasualties, StepDefenderCasualties, StepAttackerCasualties:
		return true
	}
	return false
}

// AttackerChooses reports whether the attacker picks the casualties at
// this step. The defender picks at the other casualty steps.
func (s BattleStep) AttackerChooses() bool {
	return s == StepAAFireCasualties || s == StepDefenderSubStrikeCasualties || s == StepAttackerCasualties
}

// FireClass describes which units made up a side's general roll, which
// limits the targets its hits may be assigned to.
type FireClass string

const (
	FireMixed    FireClass = ""
	FireAirOnly  FireClass = "air"  // cannot hit submarines without a destroyer
	FireSubsOnly FireClass = "subs" // cannot hit aircraft
)

// Battle is the combat in progress at one location.
type Battle struct {
	Region   RegionID   `json:"region"`
	Attacker Faction    `json:"attacker"`
	Round    int        `json:"round"`
	Step     BattleStep `json:"step"`
	Raid     bool       `json:"raid,omitempty"`

	Attackers  []UnitID `json:"attackers"`
	Defenders  []UnitID `json:"defenders"`
	Bombarders []UnitID `json:"bombarders,omitempty"`
	// Hits is the pending hit count for AA, bombardment, and submarine
	// strike casualty steps.
	Hits         int       `json:"hits,omitempty"`
	AttackerHits int       `json:"attackerHits,omitempty"`
	DefenderHits int       `json:"defenderHits,omitempty"`
	AttackFire   FireClass `json:"attackFire,omitempty"`
	DefenseFire  FireClass `json:"defenseFire,omitempty"`
	// Struck holds submarines that fired in this round's strike.
	Struck []UnitID `json:"struck,omitempty"`
	// Doomed holds bombardment casualties, which still fire in the first
	// defender roll.
	Doomed []UnitID `json:"doomed,omitempty"`

	InitialAttackers int      `json:"initialAttackers"`
	InitialDefenders int      `json:"initialDefenders"`
	AttackerLosses   []UnitID `json:"attackerLosses,omitempty"`
	DefenderLosses   []UnitID `json:"defenderLosses,omitempty"`
	Withdrawn        []UnitID `json:"withdrawn,omitempty"`
}

func (b *Battle) clone() *Battle {
	c := *b
	c.Attackers = slices.Clone(b.Attackers)
	c.Defenders = slices.Clone(b.Defenders)
	c.Bombarders = slices.Clone(b.Bombarders)
	c.Struck = slices.Clone(b.Struck)
	c.Doomed = slices.Clone(b.Doomed)
	c.AttackerLosses = slices.Clone(b.AttackerLosses)
	c.DefenderLosses = slices.Clone(b.DefenderLosses)
	c.Withdrawn = slices.Clone(b.Withdrawn)
	return &c
}

// Conserved reports whether every unit that entered the battle is either
// still fighting or accounted for as a loss or withdrawal.
func (b *Battle) Conserved() bool {
	return b.InitialAttackers == len(b.Attackers)+len(b.AttackerLosses)+len(b.Withdrawn) &&
		b.InitialDefenders == len(b.Defenders)+len(b.DefenderLosses)
}

// units resolves ids to the units in the battle region.
func (gs *GameState) units(rid RegionID, ids []UnitID) []Unit {
	out := make([]Unit, 0, len(ids))
	for _, u := range gs.Regions[rid].Units {
		if slices.Contains(ids, u.ID) {
			out = append(out, u)
		}
	}
	return out
}

func hasType(us []Unit, t UnitType) bool {
	return slices.ContainsFunc(us, func(u Unit) bool { return u.Type == t })
}

func onlyTransports(us []Unit) bool {
	return len(us) > 0 && !slices.ContainsFunc(us, func(u Unit) bool { return u.Type != Transport })
}

// startBattle sets up the battle at rid for the current faction. Empty
// hostile territory is captured without a fight.
func (gs *GameState) startBattle(g Graph, rid RegionID) []Event {
	f := gs.Current
	info := regionInfo(g, rid)
	rs := gs.Regions[rid]
	b := &Battle{Region: rid, Attacker: f, Round: 1}
	for _, u := range rs.Units {
		switch {
		case u.Owner == f && !u.Submerged:
			b.Attackers = append(b.Attackers, u.ID)
		case gs.Hostile(u.Owner, f) && !u.Submerged:
			b.Defenders = append(b.Defenders, u.ID)
		}
	}
	b.InitialAttackers = len(b.Attackers)
	b.InitialDefenders = len(b.Defenders)
	events := []Event{{Kind: EventBattleStarted, Faction: f, Region: rid, Count: len(b.Attackers)}}
	cs := gs.PhaseState.Combat

	if len(b.Defenders) == 0 {
		cs.Active = b
		return append(events, gs.finishBattle(g, b, true)...)
	}

	attackers := gs.units(rid, b.Attackers)
	if info.IsLand() && len(info.Facilities) > 0 && gs.Hostile(rs.Owner, f) &&
		!slices.ContainsFunc(attackers, func(u Unit) bool { return u.Type != StrategicBomber }) {
		b.Raid = true
		b.Step = StepRaid
		cs.Active = b
		return events
	}

	if info.IsLand() && slices.ContainsFunc(attackers, func(u Unit) bool { return u.Amphibious }) {
		for _, sea := range g.AdjacentSea(rid) {
			if gs.hasEnemyBlockers(sea, f, false) {
				continue
			}
			for _, u := range gs.Regions[sea].Units {
				if u.Owner == f && u.stats().Bombard > 0 {
					b.Bombarders = append(b.Bombarders, u.ID)
				}
			}
		}
	}
	cs.Active = b
	events = append(events, gs.sinkUndefendedTransports(b)...)
	if len(b.Attackers) == 0 || len(b.Defenders) == 0 {
		return append(events, gs.finishBattle(g, b, len(b.Defenders) == 0)...)
	}
	return append(events, gs.advanceBattle(g, b)...)
}

// stepApplies reports whether the battle stops at step s this round.
func (gs *GameState) stepApplies(g Graph, b *Battle, s BattleStep) bool {
	if s.IsCasualtyStep() {
		return gs.requiredHits(g, b, s) > 0
	}
	att := gs.units(b.Region, b.Attackers)
	def := gs.units(b.Region, b.Defenders)
	if len(att) == 0 || len(def) == 0 {
		return false
	}
	land := regionInfo(g, b.Region).IsLand()
	switch s {
	case StepAAFire:
		return b.Round == 1 && land && hasType(def, AAA) && slices.ContainsFunc(att, Unit.IsAir)
	case StepBombardment:
		return b.Round == 1 && land && len(b.Bombarders) > 0
	case StepAttackerSubStrike:
		return hasType(att, Submarine) && !hasType(def, Destroyer)
	case StepDefenderSubStrike:
		return hasType(def, Submarine) && !hasType(att, Destroyer)
	case StepAttackerRolls:
		return len(gs.rollers(b, att)) > 0
	case StepDefenderRolls:
		return len(gs.rollers(b, def)) > 0
	}
	return false
}

// advanceBattle moves past the current step to the next one that waits
// for an action, closing the round when none is left.
func (gs *GameState) advanceBattle(g Graph, b *Battle) []Event {
	i := slices.Index(roundSteps, b.Step)
	var events []Event
	for j := i + 1; j < len(roundSteps); j++ {
		s := roundSteps[j]
		if s == StepDefenderCasualties {
			events = append(events, gs.removeDoomed(b)...)
		}
		if gs.stepApplies(g, b, s) {
			b.Step = s
			return events
		}
		if s.IsCasualtyStep() {
			b.clearHits(s)
		}
	}
	return append(events, gs.endRound(g, b)...)
}

func (gs *GameState) endRound(g Graph, b *Battle) []Event {
	events := gs.removeDoomed(b)
	events = append(events, gs.sinkUndefendedTransports(b)...)
	b.Hits, b.AttackerHits, b.DefenderHits = 0, 0, 0
	if len(b.Attackers) == 0 || len(b.Defenders) == 0 {
		return append(events, gs.finishBattle(g, b, len(b.Attackers) > 0)...)
	}
	att := gs.units(b.Region, b.Attackers)
	def := gs.units(b.Region, b.Defenders)
	if !gs.canInflict(b, att, def) && !gs.canInflict(b, def, att) {
		return append(events, gs.finishBattle(g, b, false)...)
	}
	b.Step = StepAttackerDecision
	return events
}

// rollers returns the units of a side that take part in the general roll.
func (gs *GameState) rollers(b *Battle, side []Unit) []Unit {
	var out []Unit
	for _, u := range side {
		if u.Type == Transport || u.Type == AAA || u.Submerged || slices.Contains(b.Struck, u.ID) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func fireClass(rolling []Unit) FireClass {
	air, subs := 0, 0
	for _, u := range rolling {
		if u.IsAir() {
			air++
		}
		if u.Type == Submarine {
			subs++
		}
	}
	switch {
	case len(rolling) > 0 && air == len(rolling):
		return FireAirOnly
	case len(rolling) > 0 && subs == len(rolling):
		return FireSubsOnly
	}
	return FireMixed
}

// targetable filters the units that hits from a side with the given fire
// class may be assigned to.
func targetable(class FireClass, firingHasDestroyer bool, targets []Unit) []Unit {
	var out []Unit
	for _, u := range targets {
		if class == FireAirOnly && !firingHasDestroyer && u.Type == Submarine {
			continue
		}
		if class == FireSubsOnly && u.IsAir() {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (gs *GameState) canInflict(b *Battle, side, other []Unit) bool {
	attacking := len(side) > 0 && side[0].Owner == b.Attacker
	var strong []Unit
	for _, u := range gs.rollers(&Battle{}, side) {
		st := u.stats().Defense
		if attacking {
			st = u.stats().Attack
		}
		if st > 0 {
			strong = append(strong, u)
		}
	}
	if len(strong) == 0 {
		return false
	}
	return len(targetable(fireClass(strong), hasType(side, Destroyer), other)) > 0
}

// strengths returns the roll target for each attacking unit, pairing
// infantry with artillery in stack order.
func attackStrengths(us []Unit) []int {
	artillery := 0
	for _, u := range us {
		if u.Type == Artillery {
			artillery++
		}
	}
	out := make([]int, len(us))
	for i, u := range us {
		out[i] = u.stats().Attack
		if u.stats().Supported && artillery > 0 {
			out[i] = 2
			artillery--
		}
	}
	return out
}

func (gs *GameState) rollEach(us []Unit, strengths []int) (hits int, rolls []int) {
	rolls = make([]int, len(us))
	for i := range us {
		rolls[i] = gs.Dice.Roll()
		if rolls[i] <= strengths[i] {
			hits++
		}
	}
	return hits, rolls
}

func defenseStrengths(us []Unit) []int {
	out := make([]int, len(us))
	for i, u := range us {
		out[i] = u.stats().Defense
	}
	return out
}

func rolledEvent(f Faction, b *Battle, hits int, rolls []int) Event {
	return Event{Kind: EventDiceRolled, Faction: f, Region: b.Region, Count: hits, Rolls: rolls, Note: string(b.Step)}
}

// defendingFaction names the side that owns most of the defending units.
func (gs *GameState) defendingFaction(b *Battle) Faction {
	def := gs.units(b.Region, b.Defenders)
	if len(def) == 0 {
		return NoFaction
	}
	return def[0].Owner
}

func applyRollAttack(gs *GameState, g Graph) []Event {
	b := gs.PhaseState.Combat.Active
	att := gs.units(b.Region, b.Attackers)
	def := gs.units(b.Region, b.Defenders)
	var events []Event
	switch b.Step {
	case StepRaid:
		return gs.resolveRaid(g, b)
	case StepAAFire:
		air := 0
		aaa := 0
		for _, u := range att {
			if u.IsAir() {
				air++
			}
		}
		for _, u := range def {
			if u.Type == AAA {
				aaa++
			}
		}
		hits, rolls := gs.Dice.RollAt(min(3*aaa, air), 1)
		b.Hits = hits
		events = append(events, rolledEvent(gs.defendingFaction(b), b, hits, rolls))
	case StepBombardment:
		ships := gs.bombarders(b)
		st := make([]int, len(ships))
		for i, u := range ships {
			st[i] = u.stats().Bombard
		}
		hits, rolls := gs.rollEach(ships, st)
		b.Hits = hits
		events = append(events, rolledEvent(b.Attacker, b, hits, rolls))
	case StepAttackerSubStrike:
		var subs []Unit
		for _, u := range att {
			if u.Type == Submarine {
				subs = append(subs, u)
				b.Struck = append(b.Struck, u.ID)
			}
		}
		hits, rolls := gs.rollEach(subs, attackStrengths(subs))
		b.Hits = hits
		events = append(events, rolledEvent(b.Attacker, b, hits, rolls))
	case StepAttackerRolls:
		rolling := gs.rollers(b, att)
		hits, rolls := gs.rollEach(rolling, attackStrengths(rolling))
		b.AttackerHits = hits
		b.AttackFire = fireClass(rolling)
		events = append(events, rolledEvent(b.Attacker, b, hits, rolls))
	}
	return append(events, gs.advanceBattle(g, b)...)
}

func (gs *GameState) bombarders(b *Battle) []Unit {
	var out []Unit
	for _, id := range b.Bombarders {
		if u, _, ok := gs.Unit(id); ok {
			out = append(out, u)
		}
	}
	return out
}

func applyRollDefense(gs *GameState, g Graph) []Event {
	b := gs.PhaseState.Combat.Active
	def := gs.units(b.Region, b.Defenders)
	var rolling []Unit
	if b.Step == StepDefenderSubStrike {
		for _, u := range def {
			if u.Type == Submarine {
				rolling = append(rolling, u)
				b.Struck = append(b.Struck, u.ID)
			}
		}
	} else {
		rolling = gs.rollers(b, def)
	}
	hits, rolls := gs.rollEach(rolling, defenseStrengths(rolling))
	if b.Step == StepDefenderSubStrike {
		b.Hits = hits
	} else {
		b.DefenderHits = hits
		b.DefenseFire = fireClass(rolling)
	}
	events := []Event{rolledEvent(gs.defendingFaction(b), b, hits, rolls)}
	return append(events, gs.advanceBattle(g, b)...)
}

// eligibleCasualties lists the units that may absorb hits at step s.
func (gs *GameState) eligibleCasualties(g Graph, b *Battle, s BattleStep) []Unit {
	att := gs.units(b.Region, b.Attackers)
	def := gs.units(b.Region, b.Defenders)
	var out []Unit
	switch s {
	case StepAAFireCasualties:
		for _, u := range att {
			if u.IsAir() {
				out = append(out, u)
			}
		}
	case StepBombardmentCasualties:
		for _, u := range def {
			if !slices.Contains(b.Doomed, u.ID) {
				out = append(out, u)
			}
		}
	case StepAttackerSubStrikeCasualties:
		for _, u := range def {
			if !u.IsAir() {
				out = append(out, u)
			}
		}
	case StepDefenderSubStrikeCasualties:
		for _, u := range att {
			if !u.IsAir() {
				out = append(out, u)
			}
		}
	case StepDefenderCasualties:
		live := slices.DeleteFunc(def, func(u Unit) bool { return slices.Contains(b.Doomed, u.ID) })
		out = targetable(b.AttackFire, hasType(att, Destroyer), live)
	case StepAttackerCasualties:
		out = targetable(b.DefenseFire, hasType(def, Destroyer), att)
	}
	return out
}

func (b *Battle) pendingHits(s BattleStep) int {
	switch s {
	case StepDefenderCasualties:
		return b.AttackerHits
	case StepAttackerCasualties:
		return b.DefenderHits
	}
	return b.Hits
}

func (b *Battle) clearHits(s BattleStep) {
	switch s {
	case StepDefenderCasualties:
		b.AttackerHits = 0
	case StepAttackerCasualties:
		b.DefenderHits = 0
	default:
		b.Hits = 0
	}
}

// requiredHits is the number of casualty entries the step needs: the
// pending hits, capped at what the eligible units can absorb.
func (gs *GameState) requiredHits(g Graph, b *Battle, s BattleStep) int {
	hp := 0
	for _, u := range gs.eligibleCasualties(g, b, s) {
		hp += u.HitPointsLeft()
	}
	return min(b.pendingHits(s), hp)
}

func validateCasualties(gs *GameState, g Graph, b *Battle, ids []UnitID) error {
	need := gs.requiredHits(g, b, b.Step)
	if len(ids) != need {
		return reject(KindInvalidCasualties, "%d hits to assign, got %d", need, len(ids))
	}
	elig := gs.eligibleCasualties(g, b, b.Step)
	byID := make(map[UnitID]Unit, len(elig))
	nonTransportHP := 0
	for _, u := range elig {
		byID[u.ID] = u
		if u.Type != Transport {
			nonTransportHP += u.HitPointsLeft()
		}
	}
	taken := make(map[UnitID]int)
	onTransports, onOthers := 0, 0
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			return reject(KindInvalidCasualties, "unit %d cannot be taken as a casualty", id)
		}
		taken[id]++
		if taken[id] > u.HitPointsLeft() {
			return reject(KindInvalidCasualties, "unit %d cannot absorb %d hits", id, taken[id])
		}
		if u.Type == Transport {
			onTransports++
		} else {
			onOthers++
		}
	}
	if onTransports > 0 && onOthers < nonTransportHP {
		return reject(KindInvalidCasualties, "transports are taken only after every other unit")
	}
	if b.Step.AttackerChooses() && regionInfo(g, b.Region).IsLand() {
		landLeft, othersLeft := 0, 0
		for _, u := range gs.units(b.Region, b.Attackers) {
			if u.HitPointsLeft() > taken[u.ID] {
				if u.IsLand() {
					landLeft++
				} else if _, selectable := byID[u.ID]; selectable {
					othersLeft++
				}
			}
		}
		if landLeft == 0 && othersLeft > 0 && slices.ContainsFunc(ids, func(id UnitID) bool { return byID[id].IsLand() }) {
			return reject(KindInvalidCasualties, "the last land unit must be the last casualty")
		}
	}
	return nil
}

// DefaultCasualties picks the cheapest legal casualty list for the active
// battle: free hits on undamaged two-hit units first, then units by cost,
// with transports and the attacker's last land unit kept for last.
func DefaultCasualties(gs *GameState, g Graph) []UnitID {
	cs := gs.PhaseState.Combat
	if cs == nil || cs.Active == nil || !cs.Active.Step.IsCasualtyStep() {
		return nil
	}
	b := cs.Active
	need := gs.requiredHits(g, b, b.Step)
	elig := slices.Clone(gs.eligibleCasualties(g, b, b.Step))
	sort.SliceStable(elig, func(i, j int) bool {
		if ci, cj := elig[i].Type.Cost(), elig[j].Type.Cost(); ci != cj {
			return ci < cj
		}
		return elig[i].ID < elig[j].ID
	})
	var free, slots, lastLand, transports []UnitID
	keepLand := b.Step.AttackerChooses() && regionInfo(g, b.Region).IsLand()
	lastLandIdx := -1
	if keepLand {
		for i, u := range elig {
			if u.IsLand() {
				lastLandIdx = i
			}
		}
	}
	for i, u := range elig {
		hp := u.HitPointsLeft()
		if hp > 1 {
			free = append(free, u.ID)
			hp--
		}
		for range hp {
			switch {
			case u.Type == Transport:
				transports = append(transports, u.ID)
			case i == lastLandIdx:
				lastLand = append(lastLand, u.ID)
			default:
				slots = append(slots, u.ID)
			}
		}
	}
	order := slices.Concat(free, slots, lastLand, transports)
	if need > len(order) {
		need = len(order)
	}
	return order[:need]
}

// applySelectCasualties takes the listed hits. Bombardment casualties are
// only marked; they leave after the first defender roll.
func applySelectCasualties(gs *GameState, g Graph, a Action) []Event {
	b := gs.PhaseState.Combat.Active
	var order []UnitID
	count := make(map[UnitID]int)
	for _, id := range a.Casualties {
		if count[id] == 0 {
			order = append(order, id)
		}
		count[id]++
	}
	var destroyed []UnitID
	for _, id := range order {
		u, _ := gs.unitPtr(id)
		u.Hits += count[id]
		if u.HitPointsLeft() <= 0 {
			destroyed = append(destroyed, id)
		}
	}
	b.clearHits(b.Step)
	var events []Event
	switch b.Step {
	case StepBombardmentCasualties:
		b.Doomed = append(b.Doomed, destroyed...)
	case StepDefenderSubStrikeCasualties, StepAAFireCasualties, StepAttackerCasualties:
		events = gs.destroy(b, destroyed, true)
	default:
		events = gs.destroy(b, destroyed, false)
	}
	return append(events, gs.advanceBattle(g, b)...)
}

// destroy removes units from the battle and the board. Cargo aboard a
// sunk transport goes down with it and is not counted as a battle loss.
func (gs *GameState) destroy(b *Battle, ids []UnitID, attackers bool) []Event {
	if len(ids) == 0 {
		return nil
	}
	var events []Event
	byOwner := make(map[Faction][]UnitID)
	var owners []Faction
	for _, id := range ids {
		u, ok := gs.removeUnit(b.Region, id)
		if !ok {
			continue
		}
		if _, seen := byOwner[u.Owner]; !seen {
			owners = append(owners, u.Owner)
		}
		byOwner[u.Owner] = append(byOwner[u.Owner], id)
		for _, c := range u.Cargo {
			delete(gs.Embarked, c)
			events = append(events, Event{Kind: EventUnitsLost, Faction: u.Owner, Region: b.Region, Units: []UnitID{c}, Note: "lost with transport"})
		}
		if attackers {
			b.Attackers = slices.DeleteFunc(b.Attackers, func(x UnitID) bool { return x == id })
			b.AttackerLosses = append(b.AttackerLosses, id)
		} else {
			b.Defenders = slices.DeleteFunc(b.Defenders, func(x UnitID) bool { return x == id })
			b.DefenderLosses = append(b.DefenderLosses, id)
		}
	}
	if len(gs.Embarked) == 0 {
		gs.Embarked = nil
	}
	for _, o := range owners {
		events = append(events, Event{Kind: EventUnitsLost, Faction: o, Region: b.Region, Units: byOwner[o]})
	}
	return events
}

func (gs *GameState) removeDoomed(b *Battle) []Event {
	if len(b.Doomed) == 0 {
		return nil
	}
	doomed := b.Doomed
	b.Doomed = nil
	return gs.destroy(b, doomed, false)
}

// sinkUndefendedTransports destroys the transports of a side that has
// nothing else left.
func (gs *GameState) sinkUndefendedTransports(b *Battle) []Event {
	var events []Event
	if att := gs.units(b.Region, b.Attackers); onlyTransports(att) {
		events = append(events, gs.destroy(b, slices.Clone(b.Attackers), true)...)
	}
	if def := gs.units(b.Region, b.Defenders); onlyTransports(def) {
		events = append(events, gs.destroy(b, slices.Clone(b.Defenders), false)...)
	}
	return events
}

// resolveRaid fires one AA shot at each bomber, then lets the survivors
// damage the target facility.
func (gs *GameState) resolveRaid(g Graph, b *Battle) []Event {
	bombers := gs.units(b.Region, b.Attackers)
	hits, rolls := gs.Dice.RollAt(len(bombers), 1)
	events := []Event{rolledEvent(gs.Regions[b.Region].Owner, b, hits, rolls)}
	var shot []UnitID
	for i, u := range bombers {
		if rolls[i] <= 1 {
			shot = append(shot, u.ID)
		}
	}
	events = append(events, gs.destroy(b, shot, true)...)

	rs := gs.Regions[b.Region]
	ipc := regionInfo(g, b.Region).IPC
	target := industrialComplex(rs.Facilities)
	if target < 0 {
		target = 0
	}
	fac := &rs.Facilities[target]
	damage := 0
	var dmgRolls []int
	for range len(b.Attackers) {
		r := gs.Dice.Roll()
		dmgRolls = append(dmgRolls, r)
		damage += r + 2
	}
	before := fac.Damage
	fac.Damage = min(fac.Damage+damage, fac.MaxDamage(ipc))
	if len(dmgRolls) > 0 {
		events = append(events, Event{Kind: EventDiceRolled, Faction: b.Attacker, Region: b.Region, Count: damage, Rolls: dmgRolls, Note: "raid_damage"})
	}
	if fac.Damage > before {
		events = append(events, Event{Kind: EventFacilityDamaged, Faction: b.Attacker, Target: rs.Owner, Region: b.Region,
			Amount: fac.Damage - before, Note: string(fac.Type)})
	}
	return append(events, gs.finishBattle(g, b, len(b.Attackers) > 0)...)
}

// finishBattle closes the active battle and, when a land attack wins with
// a land unit still standing, captures the territory.
func (gs *GameState) finishBattle(g Graph, b *Battle, attackerWon bool) []Event {
	b.Step = StepOver
	events := []Event{{Kind: EventBattleEnded, Faction: b.Attacker, Region: b.Region, AttackerWon: attackerWon, Battle: b.clone()}}
	if attackerWon && !b.Raid && regionInfo(g, b.Region).IsLand() {
		if slices.ContainsFunc(gs.units(b.Region, b.Attackers), Unit.IsLand) {
			events = append(events, gs.capture(g, b.Region, b.Attacker)...)
		}
	}
	cs := gs.PhaseState.Combat
	cs.Pending = slices.DeleteFunc(cs.Pending, func(r RegionID) bool { return r == b.Region })
	if len(cs.Pending) == 0 {
		cs.Pending = nil
	}
	cs.Resolved = append(cs.Resolved, b.Region)
	cs.Active = nil
	return events
}

// capture hands a territory to the captor, or back to its original owner
// when an ally liberates it. Capitals carry the victim's treasury with them.
func (gs *GameState) capture(g Graph, rid RegionID, captor Faction) []Event {
	info := regionInfo(g, rid)
	rs := gs.Regions[rid]
	prev := rs.Owner
	owner := captor
	orig := info.OriginalOwner
	liberated := false
	if orig != NoFaction && orig != captor && gs.Friendly(orig, captor) &&
		(!gs.faction(orig).CapitalCaptured || info.CapitalOf == orig) {
		owner = orig
		liberated = true
	}
	rs.Owner = owner
	rs.JustCaptured = true

	var events []Event
	if prev != NoFaction && info.CapitalOf == prev && gs.Hostile(prev, captor) {
		victim := gs.faction(prev)
		loot := victim.Total()
		*gs.faction(captor).Pool(info.Theater) += loot
		victim.IPCs, victim.PacificIPCs = 0, 0
		victim.CapitalCaptured = true
		switch prev {
		case UnitedKingdom:
			gs.Politics.Triggers.Set(TriggerLondonCaptured)
		case France:
			gs.Politics.Triggers.Set(TriggerParisCaptured)
		}
		events = append(events, Event{Kind: EventCapitalCaptured, Faction: captor, Target: prev, Region: rid, Amount: loot})
	}
	if info.CapitalOf == owner {
		gs.faction(owner).CapitalCaptured = false
	}
	if liberated {
		events = append(events, Event{Kind: EventTerritoryLiberated, Faction: captor, Target: orig, Region: rid})
	} else {
		events = append(events, Event{Kind: EventTerritoryCaptured, Faction: captor, Target: prev, Region: rid})
	}
	return events
}

func validateRetreat(gs *GameState, g Graph, b *Battle, to RegionID) error {
	att := gs.units(b.Region, b.Attackers)
	if slices.ContainsFunc(att, func(u Unit) bool { return u.Amphibious }) {
		return reject(KindIllegalPath, "amphibious units cannot retreat")
	}
	if !slices.ContainsFunc(att, func(u Unit) bool { return u.MovedFrom == to }) {
		return reject(KindIllegalPath, "no attacking unit came from %s", to)
	}
	if !isAdjacent(g, b.Region, to) {
		return reject(KindIllegalPath, "%s is not adjacent to %s", to, b.Region)
	}
	info := regionInfo(g, to)
	if info.IsLand() {
		owner := gs.Regions[to].Owner
		if owner == NoFaction || !gs.Friendly(owner, b.Attacker) || len(gs.enemyUnits(to, b.Attacker)) > 0 {
			return reject(KindIllegalPath, "cannot retreat into %s", to)
		}
	} else if gs.hasEnemyBlockers(to, b.Attacker, false) {
		return reject(KindIllegalPath, "enemy warships hold %s", to)
	}
	return nil
}

func applyRetreat(gs *GameState, g Graph, to RegionID) []Event {
	b := gs.PhaseState.Combat.Active
	for _, id := range b.Attackers {
		u, ok := gs.removeUnit(b.Region, id)
		if !ok {
			continue
		}
		gs.addUnit(to, u)
		b.Withdrawn = append(b.Withdrawn, id)
	}
	b.Attackers = nil
	return gs.finishBattle(g, b, false)
}

func validateSubmerge(gs *GameState, b *Battle, id UnitID) error {
	if !slices.Contains(b.Attackers, id) {
		return reject(KindInvalidActionShape, "unit %d is not attacking here", id)
	}
	u, _, _ := gs.Unit(id)
	if u.Type != Submarine {
		return reject(KindInvalidActionShape, "unit %d is not a submarine", id)
	}
	if hasType(gs.units(b.Region, b.Defenders), Destroyer) {
		return reject(KindIllegalPath, "submarines cannot submerge while an enemy destroyer is present")
	}
	return nil
}

func applySubmerge(gs *GameState, g Graph, id UnitID) []Event {
	b := gs.PhaseState.Combat.Active
	u, _ := gs.unitPtr(id)
	u.Submerged = true
	b.Attackers = slices.DeleteFunc(b.Attackers, func(x UnitID) bool { return x == id })
	b.Withdrawn = append(b.Withdrawn, id)
	if len(b.Attackers) == 0 {
		return gs.finishBattle(g, b, false)
	}
	return nil
}

func applyContinue(gs *GameState, g Graph) []Event {
	b := gs.PhaseState.Combat.Active
	b.Round++
	b.Step = ""
	b.Struck = nil
	b.AttackFire, b.DefenseFire = FireMixed, FireMixed
	return gs.advanceBattle(g, b)
}

// validateBattleAction checks an in-battle action against the active
// battle's step.
func validateBattleAction(gs *GameState, g Graph, a Action) error {
	cs := gs.PhaseState.Combat
	if a.Kind == ActionSelectBattle {
		if cs.Active != nil {
			return reject(KindBattleStepMismatch, "the battle in %s is not finished", cs.Active.Region)
		}
		if !slices.Contains(cs.Pending, a.Region) {
			return reject(KindNoSuchBattle, "no pending battle in %s", a.Region)
		}
		return nil
	}
	if a.Kind == ActionConfirmPhase {
		if cs.Active != nil || len(cs.Pending) > 0 {
			return reject(KindBattleStepMismatch, "battles remain to be fought")
		}
		return nil
	}
	b := cs.Active
	if b == nil {
		return reject(KindNoSuchBattle, "no battle is in progress")
	}
	var ok bool
	switch a.Kind {
	case ActionRollAttack:
		ok = b.Step == StepAAFire || b.Step == StepBombardment || b.Step == StepAttackerSubStrike ||
			b.Step == StepAttackerRolls || b.Step == StepRaid
	case ActionRollDefense:
		ok = b.Step == StepDefenderSubStrike || b.Step == StepDefenderRolls
	case ActionSelectCasualties:
		ok = b.Step.IsCasualtyStep()
	case ActionRetreat, ActionSubmerge, ActionContinueCombat:
		ok = b.Step == StepAttackerDecision
	}
	if !ok {
		return reject(KindBattleStepMismatch, "%s is not allowed at step %s", a.Kind, b.Step)
	}
	switch a.Kind {
	case ActionSelectCasualties:
		if a.Faction != NoFaction && a.Faction != gs.Current && b.Step.AttackerChooses() {
			return reject(KindNotCurrentActor, "the attacker chooses casualties at step %s", b.Step)
		}
		return validateCasualties(gs, g, b, a.Casualties)
	case ActionRetreat:
		return validateRetreat(gs, g, b, a.Region)
	case ActionSubmerge:
		return validateSubmerge(gs, b, a.Unit)
	}
	return nil
}

// isDefender reports whether f owns units defending in the active battle.
func (gs *GameState) isDefender(f Faction) bool {
	cs := gs.PhaseState.Combat
	if cs == nil || cs.Active == nil {
		return false
	}
	for _, u := range gs.units(cs.Active.Region, cs.Active.Defenders) {
		if u.Owner == f {
			return true
		}
	}
	return false
}
