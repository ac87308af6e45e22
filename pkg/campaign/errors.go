package campaign

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an action was rejected.
type ErrorKind string

const (
	KindWrongPhase            ErrorKind = "wrong_phase"
	KindNotCurrentActor       ErrorKind = "not_current_actor"
	KindInsufficientResources ErrorKind = "insufficient_resources"
	KindIllegalPath           ErrorKind = "illegal_path"
	KindRegionNotEligible     ErrorKind = "region_not_eligible"
	KindNoSuchBattle          ErrorKind = "no_such_battle"
	KindBattleStepMismatch    ErrorKind = "battle_step_mismatch"
	KindInvalidCasualties     ErrorKind = "invalid_casualties"
	KindIllegalDeclaration    ErrorKind = "illegal_declaration"
	KindCannotUndo            ErrorKind = "cannot_undo"
	KindInvalidActionShape    ErrorKind = "invalid_action_shape"
	KindGameOver              ErrorKind = "game_over"
)

// RuleError is the rejection returned for an action the rules do not
// allow. A rejected action never changes the game state.
type RuleError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuleError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any RuleError of the same kind, so callers can test with the
// sentinels below.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrWrongPhase            = &RuleError{Kind: KindWrongPhase}
	ErrNotCurrentActor       = &RuleError{Kind: KindNotCurrentActor}
	ErrInsufficientResources = &RuleError{Kind: KindInsufficientResources}
	ErrIllegalPath           = &RuleError{Kind: KindIllegalPath}
	ErrRegionNotEligible     = &RuleError{Kind: KindRegionNotEligible}
	ErrNoSuchBattle          = &RuleError{Kind: KindNoSuchBattle}
	ErrBattleStepMismatch    = &RuleError{Kind: KindBattleStepMismatch}
	ErrInvalidCasualties     = &RuleError{Kind: KindInvalidCasualties}
	ErrIllegalDeclaration    = &RuleError{Kind: KindIllegalDeclaration}
	ErrCannotUndo            = &RuleError{Kind: KindCannotUndo}
	ErrInvalidActionShape    = &RuleError{Kind: KindInvalidActionShape}
	ErrGameOver              = &RuleError{Kind: KindGameOver}
)

// ErrPartialReset is returned by ResetPhase when an irreversible action
// sits between the current position and the phase checkpoint.
var ErrPartialReset = errors.New("reset stopped at an irreversible action")

// KindOf returns the rejection kind of err, or "" if err is not a
// RuleError.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func reject(kind ErrorKind, format string, args ...any) error {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
