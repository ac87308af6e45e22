package campaign

// Validate reports whether an action is legal in the given state. It never
// modifies the state.
func Validate(gs *GameState, g Graph, a Action) error {
	if gs.Winner != "" {
		return reject(KindGameOver, "the game is over, %s won", gs.Winner)
	}
	if err := checkShape(a); err != nil {
		return err
	}
	if err := checkActor(gs, a); err != nil {
		return err
	}
	if a.Kind == ActionUndo {
		return validateUndo(gs)
	}
	if err := checkPhase(gs, a); err != nil {
		return err
	}

	switch a.Kind {
	case ActionPurchaseUnit:
		return validatePurchase(gs, a)
	case ActionRemovePurchase:
		return validateRemovePurchase(gs, a)
	case ActionRepairFacility:
		return validateRepair(gs, g, a)
	case ActionMoveUnit, ActionMoveUnitNonCombat, ActionLandAirUnit:
		return validateMove(gs, g, a)
	case ActionUndoMove:
		return validateUndoMove(gs, a)
	case ActionLoadUnit:
		return validateLoad(gs, g, a)
	case ActionUnloadUnit:
		return validateUnload(gs, g, a)
	case ActionConfirmCombatMovement:
		return validateConfirmCombatMove(gs, g)
	case ActionSelectBattle, ActionRollAttack, ActionRollDefense, ActionSelectCasualties,
		ActionRetreat, ActionSubmerge, ActionContinueCombat, ActionConfirmPhase:
		return validateBattleAction(gs, g, a)
	case ActionPlaceUnit:
		return validatePlace(gs, g, a)
	case ActionRemovePlacement:
		return validateRemovePlacement(gs, a)
	case ActionConfirmMobilization:
		return validateConfirmMobilization(gs, g)
	case ActionDeclareWar:
		return validateDeclareWar(gs, a.Target)
	}
	return nil
}

// MaxCount bounds the count of a single purchase or repair.
const MaxCount = 1000

// checkShape rejects actions missing a field their kind requires.
func checkShape(a Action) error {
	if !a.Kind.Known() {
		return reject(KindInvalidActionShape, "unknown action kind %q", a.Kind)
	}
	if a.Faction != NoFaction && !a.Faction.Valid() {
		return reject(KindInvalidActionShape, "unknown faction %q", a.Faction)
	}
	switch a.Kind {
	case ActionPurchaseUnit, ActionRemovePurchase:
		if !a.UnitType.Valid() {
			return reject(KindInvalidActionShape, "unknown unit type %q", a.UnitType)
		}
		if a.Count < 1 || a.Count > MaxCount {
			return reject(KindInvalidActionShape, "count must be between 1 and %d", MaxCount)
		}
	case ActionRepairFacility:
		if a.Region == "" || !a.Facility.Valid() {
			return reject(KindInvalidActionShape, "repair needs a region and a facility")
		}
		if a.Count < 1 || a.Count > MaxCount {
			return reject(KindInvalidActionShape, "repair amount must be between 1 and %d", MaxCount)
		}
	case ActionMoveUnit, ActionMoveUnitNonCombat, ActionLandAirUnit:
		if a.Unit == 0 {
			return reject(KindInvalidActionShape, "move needs a unit")
		}
		if len(a.Path) < 2 {
			return reject(KindInvalidActionShape, "path needs at least two regions")
		}
	case ActionUndoMove, ActionSubmerge, ActionRemovePlacement:
		if a.Unit == 0 {
			return reject(KindInvalidActionShape, "%s needs a unit", a.Kind)
		}
	case ActionLoadUnit:
		if a.Unit == 0 || a.Transport == 0 {
			return reject(KindInvalidActionShape, "load needs a unit and a transport")
		}
	case ActionUnloadUnit:
		if a.Unit == 0 || a.Region == "" {
			return reject(KindInvalidActionShape, "unload needs a unit and a region")
		}
	case ActionSelectBattle, ActionRetreat:
		if a.Region == "" {
			return reject(KindInvalidActionShape, "%s needs a region", a.Kind)
		}
	case ActionSelectCasualties:
		if len(a.Casualties) == 0 {
			return reject(KindInvalidActionShape, "no casualties listed")
		}
	case ActionPlaceUnit:
		if !a.UnitType.Valid() || a.Region == "" {
			return reject(KindInvalidActionShape, "placement needs a unit type and a region")
		}
	case ActionDeclareWar:
		if !a.Target.Valid() {
			return reject(KindInvalidActionShape, "unknown faction %q", a.Target)
		}
	}
	return nil
}

func checkPhase(gs *GameState, a Action) error {
	switch a.Kind {
	case ActionLoadUnit, ActionUnloadUnit:
		if !gs.inMovementPhase() {
			return reject(KindWrongPhase, "%s is only allowed while moving, phase is %s", a.Kind, gs.Phase)
		}
		return nil
	case ActionDeclareWar:
		if gs.Phase != PhasePurchase && gs.Phase != PhaseCombatMove {
			return reject(KindWrongPhase, "war may only be declared before combat, phase is %s", gs.Phase)
		}
		return nil
	}
	want, _ := a.Kind.phaseOf()
	if want != gs.Phase {
		return reject(KindWrongPhase, "%s belongs to %s, phase is %s", a.Kind, want, gs.Phase)
	}
	return nil
}

// checkActor allows the current faction, and a defending faction for its
// own rolls and casualty choices. Only the current faction may undo.
func checkActor(gs *GameState, a Action) error {
	if a.Faction == NoFaction || a.Faction == gs.Current {
		return nil
	}
	if (a.Kind == ActionRollDefense || a.Kind == ActionSelectCasualties) && gs.isDefender(a.Faction) {
		return nil
	}
	return reject(KindNotCurrentActor, "it is %s's turn, not %s's", gs.Current, a.Faction)
}
