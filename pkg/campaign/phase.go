package campaign

// Phase is one of the six steps of a faction's turn.
type Phase string

const (
	PhasePurchase      Phase = "purchase"
	PhaseCombatMove    Phase = "combat_move"
	PhaseCombat        Phase = "combat"
	PhaseNonCombatMove Phase = "noncombat_move"
	PhaseMobilize      Phase = "mobilize"
	PhaseIncome        Phase = "income"
)

var phaseOrder = []Phase{
	PhasePurchase, PhaseCombatMove, PhaseCombat, PhaseNonCombatMove, PhaseMobilize, PhaseIncome,
}

// AllPhases returns the six phases in turn order.
func AllPhases() []Phase { return append([]Phase(nil), phaseOrder...) }

// Next returns the phase after p. The second result is false after
// PhaseIncome, which ends the faction's turn.
func (p Phase) Next() (Phase, bool) {
	for i, o := range phaseOrder {
		if o == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return PhasePurchase, false
}

// Description is the human-readable phase name.
func (p Phase) Description() string {
	switch p {
	case PhasePurchase:
		return "Purchase & Repair Units"
	case PhaseCombatMove:
		return "Combat Movement"
	case PhaseCombat:
		return "Conduct Combat"
	case PhaseNonCombatMove:
		return "Non-Combat Movement"
	case PhaseMobilize:
		return "Mobilize New Units"
	case PhaseIncome:
		return "Collect Income"
	}
	return string(p)
}

// confirmKind is the action that closes phase p.
func (p Phase) confirmKind() ActionKind {
	switch p {
	case PhasePurchase:
		return ActionConfirmPurchases
	case PhaseCombatMove:
		return ActionConfirmCombatMovement
	case PhaseCombat:
		return ActionConfirmPhase
	case PhaseNonCombatMove:
		return ActionConfirmNonCombatMovement
	case PhaseMobilize:
		return ActionConfirmMobilization
	default:
		return ActionConfirmIncome
	}
}

// PhaseState is the phase-specific working state. Exactly one field is
// set, matching the current phase.
type PhaseState struct {
	Purchase   *PurchaseState `json:"purchase,omitempty"`
	CombatMove *MoveState     `json:"combatMove,omitempty"`
	Combat     *CombatState   `json:"combat,omitempty"`
	NonCombat  *MoveState     `json:"nonCombat,omitempty"`
	Mobilize   *MobilizeState `json:"mobilize,omitempty"`
	Income     *IncomeState   `json:"income,omitempty"`
}

// Purchase is a batch of units bought this turn.
type Purchase struct {
	Type    UnitType `json:"type"`
	Count   int      `json:"count"`
	Theater Theater  `json:"theater,omitempty"`
}

// Repair records facility damage repaired this phase.
type Repair struct {
	Region   RegionID     `json:"region"`
	Facility FacilityType `json:"facility"`
	Amount   int          `json:"amount"`
}

type PurchaseState struct {
	Purchases []Purchase `json:"purchases,omitempty"`
	Repairs   []Repair   `json:"repairs,omitempty"`
	Spent     int        `json:"spent"`
}

// PlannedMove is a unit move made during a movement phase.
type PlannedMove struct {
	Unit UnitID     `json:"unit"`
	Path []RegionID `json:"path"`
}

type MoveState struct {
	Moves []PlannedMove `json:"moves,omitempty"`
}

type CombatState struct {
	Pending  []RegionID `json:"pending,omitempty"`
	Resolved []RegionID `json:"resolved,omitempty"`
	Active   *Battle    `json:"active,omitempty"`
}

// Mobilization records a unit placed this phase and the territory whose
// production it used.
type Mobilization struct {
	Unit    UnitID   `json:"unit"`
	Type    UnitType `json:"type"`
	Region  RegionID `json:"region"`
	Source  RegionID `json:"source"`
	Theater Theater  `json:"theater,omitempty"`
}

type MobilizeState struct {
	Placed []Mobilization `json:"placed,omitempty"`
}

type IncomeState struct{}

func newPhaseState(p Phase) PhaseState {
	switch p {
	case PhasePurchase:
		return PhaseState{Purchase: &PurchaseState{}}
	case PhaseCombatMove:
		return PhaseState{CombatMove: &MoveState{}}
	case PhaseCombat:
		return PhaseState{Combat: &CombatState{}}
	case PhaseNonCombatMove:
		return PhaseState{NonCombat: &MoveState{}}
	case PhaseMobilize:
		return PhaseState{Mobilize: &MobilizeState{}}
	default:
		return PhaseState{Income: &IncomeState{}}
	}
}

// phase reports which phase the sub-state belongs to, or "" if the
// sub-state is malformed.
func (ps PhaseState) phase() Phase {
	var found []Phase
	if ps.Purchase != nil {
		found = append(found, PhasePurchase)
	}
	if ps.CombatMove != nil {
		found = append(found, PhaseCombatMove)
	}
	if ps.Combat != nil {
		found = append(found, PhaseCombat)
	}
	if ps.NonCombat != nil {
		found = append(found, PhaseNonCombatMove)
	}
	if ps.Mobilize != nil {
		found = append(found, PhaseMobilize)
	}
	if ps.Income != nil {
		found = append(found, PhaseIncome)
	}
	if len(found) != 1 {
		return ""
	}
	return found[0]
}

// moves returns the move list for whichever movement phase is active.
func (ps PhaseState) moves() *MoveState {
	if ps.CombatMove != nil {
		return ps.CombatMove
	}
	return ps.NonCombat
}

func (ps PhaseState) clone() PhaseState {
	var c PhaseState
	if ps.Purchase != nil {
		p := *ps.Purchase
		p.Purchases = append([]Purchase(nil), ps.Purchase.Purchases...)
		p.Repairs = append([]Repair(nil), ps.Purchase.Repairs...)
		c.Purchase = &p
	}
	if ps.CombatMove != nil {
		c.CombatMove = ps.CombatMove.clone()
	}
	if ps.NonCombat != nil {
		c.NonCombat = ps.NonCombat.clone()
	}
	if ps.Combat != nil {
		cs := *ps.Combat
		cs.Pending = append([]RegionID(nil), ps.Combat.Pending...)
		cs.Resolved = append([]RegionID(nil), ps.Combat.Resolved...)
		if ps.Combat.Active != nil {
			cs.Active = ps.Combat.Active.clone()
		}
		c.Combat = &cs
	}
	if ps.Mobilize != nil {
		m := *ps.Mobilize
		m.Placed = append([]Mobilization(nil), ps.Mobilize.Placed...)
		c.Mobilize = &m
	}
	if ps.Income != nil {
		c.Income = &IncomeState{}
	}
	return c
}

func (ms *MoveState) clone() *MoveState {
	c := &MoveState{}
	for _, m := range ms.Moves {
		c.Moves = append(c.Moves, PlannedMove{Unit: m.Unit, Path: append([]RegionID(nil), m.Path...)})
	}
	return c
}

// lastMove returns the index of the most recent planned move of a unit.
func (ms *MoveState) lastMove(id UnitID) int {
	for i := len(ms.Moves) - 1; i >= 0; i-- {
		if ms.Moves[i].Unit == id {
			return i
		}
	}
	return -1
}
