package campaign

import "fmt"

// applied is what applying one validated action produced.
type applied struct {
	events     []Event
	inverse    Inverse
	checkpoint bool
}

// apply carries out an action that has passed Validate. It mutates gs, so
// callers hand it a copy and keep the original on error.
func apply(gs *GameState, g Graph, a Action) (applied, error) {
	var r applied
	r.inverse = irreversible()
	switch a.Kind {
	case ActionPurchaseUnit:
		r.events, r.inverse = applyPurchase(gs, a)
	case ActionRemovePurchase:
		r.inverse = applyRemovePurchase(gs, a)
	case ActionRepairFacility:
		r.inverse = applyRepair(gs, g, a)
	case ActionConfirmPurchases:
		applyConfirmPurchases(gs)
		r.events = advancePhase(gs)
		r.checkpoint = true

	case ActionMoveUnit, ActionMoveUnitNonCombat, ActionLandAirUnit:
		r.events, r.inverse = applyMove(gs, g, a)
	case ActionUndoMove:
		r.inverse = applyUndoMove(gs, a)
	case ActionLoadUnit:
		r.inverse = applyLoad(gs, a)
	case ActionUnloadUnit:
		r.events, r.inverse = applyUnload(gs, g, a)
	case ActionConfirmCombatMovement:
		pending := pendingBattles(gs, g)
		r.events = advancePhase(gs)
		gs.PhaseState.Combat.Pending = pending
		r.checkpoint = true

	case ActionSelectBattle:
		r.events = gs.startBattle(g, a.Region)
	case ActionRollAttack:
		r.events = applyRollAttack(gs, g)
	case ActionRollDefense:
		r.events = applyRollDefense(gs, g)
	case ActionSelectCasualties:
		r.events = applySelectCasualties(gs, g, a)
	case ActionRetreat:
		r.events = applyRetreat(gs, g, a.Region)
	case ActionSubmerge:
		r.events = applySubmerge(gs, g, a.Unit)
	case ActionContinueCombat:
		r.events = applyContinue(gs, g)
	case ActionConfirmPhase:
		r.events = advancePhase(gs)
		r.checkpoint = true

	case ActionConfirmNonCombatMovement:
		r.events = scrapStrandedAir(gs, g)
		r.events = append(r.events, advancePhase(gs)...)
		r.checkpoint = true

	case ActionPlaceUnit:
		r.events, r.inverse = applyPlace(gs, g, a)
	case ActionRemovePlacement:
		r.inverse = applyRemovePlacement(gs, a)
	case ActionConfirmMobilization:
		r.events = forfeitUnplaced(gs)
		r.events = append(r.events, advancePhase(gs)...)
		r.checkpoint = true

	case ActionConfirmIncome:
		r.events = collectIncome(gs, g)
		r.events = append(r.events, checkVictory(gs, g)...)
		if gs.Winner == "" {
			r.events = append(r.events, endTurn(gs, g)...)
		}
		r.checkpoint = true

	case ActionDeclareWar:
		r.events = applyDeclareWar(gs, a.Target)

	default:
		return applied{}, fmt.Errorf("campaign: no applier for %q", a.Kind)
	}
	return r, nil
}

// applyInverse reverses the effect of a record on gs.
func applyInverse(gs *GameState, g Graph, inv Inverse) error {
	switch inv.Kind {
	case InverseSimple:
		if inv.Action == nil {
			return fmt.Errorf("campaign: simple inverse without an action")
		}
		_, err := apply(gs, g, *inv.Action)
		return err
	case InverseSnapshot:
		if inv.Snapshot == nil {
			return fmt.Errorf("campaign: snapshot inverse without a snapshot")
		}
		inv.Snapshot.restore(gs)
		return nil
	}
	return reject(KindCannotUndo, "Last action cannot be undone")
}
