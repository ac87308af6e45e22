package campaign

// ActionKind names a player action.
type ActionKind string

const (
	// Purchase phase
	ActionPurchaseUnit     ActionKind = "purchase_unit"
	ActionRemovePurchase   ActionKind = "remove_purchase"
	ActionRepairFacility   ActionKind = "repair_facility"
	ActionConfirmPurchases ActionKind = "confirm_purchases"

	// Combat movement
	ActionMoveUnit              ActionKind = "move_unit"
	ActionUndoMove              ActionKind = "undo_move"
	ActionLoadUnit              ActionKind = "load_unit"
	ActionUnloadUnit            ActionKind = "unload_unit"
	ActionConfirmCombatMovement ActionKind = "confirm_combat_movement"

	// Combat
	ActionSelectBattle     ActionKind = "select_battle"
	ActionRollAttack       ActionKind = "roll_attack"
	ActionRollDefense      ActionKind = "roll_defense"
	ActionSelectCasualties ActionKind = "select_casualties"
	ActionRetreat          ActionKind = "retreat"
	ActionSubmerge         ActionKind = "submerge"
	ActionContinueCombat   ActionKind = "continue_combat"
	ActionConfirmPhase     ActionKind = "confirm_phase"

	// Non-combat movement
	ActionMoveUnitNonCombat        ActionKind = "move_unit_noncombat"
	ActionLandAirUnit              ActionKind = "land_air_unit"
	ActionConfirmNonCombatMovement ActionKind = "confirm_noncombat_movement"

	// Mobilization
	ActionPlaceUnit           ActionKind = "place_unit"
	ActionRemovePlacement     ActionKind = "remove_placement"
	ActionConfirmMobilization ActionKind = "confirm_mobilization"

	// Income
	ActionConfirmIncome ActionKind = "confirm_income"

	// Any time
	ActionDeclareWar ActionKind = "declare_war"
	ActionUndo       ActionKind = "undo"
)

// Action is a single player instruction. Kind selects which of the
// payload fields are meaningful.
type Action struct {
	Kind ActionKind `json:"kind"`
	// Faction is the acting faction. Empty means the faction whose turn it is.
	Faction    Faction      `json:"faction,omitempty"`
	UnitType   UnitType     `json:"unitType,omitempty"`
	Count      int          `json:"count,omitempty"`
	Theater    Theater      `json:"theater,omitempty"`
	Unit       UnitID       `json:"unit,omitempty"`
	Transport  UnitID       `json:"transport,omitempty"`
	Path       []RegionID   `json:"path,omitempty"`
	Region     RegionID     `json:"region,omitempty"`
	Facility   FacilityType `json:"facility,omitempty"`
	Casualties []UnitID     `json:"casualties,omitempty"`
	Target     Faction      `json:"target,omitempty"`
}

func (a Action) clone() Action {
	c := a
	if a.Path != nil {
		c.Path = append([]RegionID(nil), a.Path...)
	}
	if a.Casualties != nil {
		c.Casualties = append([]UnitID(nil), a.Casualties...)
	}
	return c
}

// phaseOf returns the phase an action kind belongs to. The second result
// is false for kinds that are not tied to one phase.
func (k ActionKind) phaseOf() (Phase, bool) {
	switch k {
	case ActionPurchaseUnit, ActionRemovePurchase, ActionRepairFacility, ActionConfirmPurchases:
		return PhasePurchase, true
	case ActionMoveUnit, ActionUndoMove, ActionConfirmCombatMovement:
		return PhaseCombatMove, true
	case ActionSelectBattle, ActionRollAttack, ActionRollDefense, ActionSelectCasualties,
		ActionRetreat, ActionSubmerge, ActionContinueCombat, ActionConfirmPhase:
		return PhaseCombat, true
	case ActionMoveUnitNonCombat, ActionLandAirUnit, ActionConfirmNonCombatMovement:
		return PhaseNonCombatMove, true
	case ActionPlaceUnit, ActionRemovePlacement, ActionConfirmMobilization:
		return PhaseMobilize, true
	case ActionConfirmIncome:
		return PhaseIncome, true
	}
	return "", false
}

// Known reports whether k is a recognized action kind.
func (k ActionKind) Known() bool {
	if _, ok := k.phaseOf(); ok {
		return true
	}
	switch k {
	case ActionLoadUnit, ActionUnloadUnit, ActionDeclareWar, ActionUndo:
		return true
	}
	return false
}

// IsConfirm reports whether the action closes a phase.
func (k ActionKind) IsConfirm() bool {
	switch k {
	case ActionConfirmPurchases, ActionConfirmCombatMovement, ActionConfirmPhase,
		ActionConfirmNonCombatMovement, ActionConfirmMobilization, ActionConfirmIncome:
		return true
	}
	return false
}

// LegalAction pairs a currently valid action with a description for
// menus and logs.
type LegalAction struct {
	Action      Action `json:"action"`
	Description string `json:"description"`
}
