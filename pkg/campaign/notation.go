package campaign

import (
	"fmt"
	"strconv"
	"strings"
)

// Action notation is a one-line text form of an action, used in logs, the
// external engine protocol and command-line tools:
//
//	buy infantry 2            unbuy tank 1 pacific
//	repair berlin major_ic 3  move 17 berlin,poland
//	ncm 17 poland,berlin      land 40 poland,berlin
//	unmove 17                 load 17 52
//	unload 17 normandy        battle poland
//	roll  defend  continue    hits 3,4
//	retreat germany           submerge 9
//	place tank berlin         unplace 120
//	war soviet_union          undo
//	confirm combat_move
//
// A leading "@faction" names the acting faction.

var notationVerbs = map[ActionKind]string{
	ActionPurchaseUnit:      "buy",
	ActionRemovePurchase:    "unbuy",
	ActionRepairFacility:    "repair",
	ActionMoveUnit:          "move",
	ActionMoveUnitNonCombat: "ncm",
	ActionLandAirUnit:       "land",
	ActionUndoMove:          "unmove",
	ActionLoadUnit:          "load",
	ActionUnloadUnit:        "unload",
	ActionSelectBattle:      "battle",
	ActionRollAttack:        "roll",
	ActionRollDefense:       "defend",
	ActionSelectCasualties:  "hits",
	ActionRetreat:           "retreat",
	ActionSubmerge:          "submerge",
	ActionContinueCombat:    "continue",
	ActionPlaceUnit:         "place",
	ActionRemovePlacement:   "unplace",
	ActionDeclareWar:        "war",
	ActionUndo:              "undo",
}

var verbKinds = func() map[string]ActionKind {
	m := make(map[string]ActionKind, len(notationVerbs))
	for k, v := range notationVerbs {
		m[v] = k
	}
	return m
}()

// FormatAction renders an action in notation.
func FormatAction(a Action) string {
	var b strings.Builder
	b.Grow(32)
	if a.Faction != NoFaction {
		b.WriteString("@")
		b.WriteString(string(a.Faction))
		b.WriteString(" ")
	}
	if a.Kind.IsConfirm() {
		p, _ := a.Kind.phaseOf()
		b.WriteString("confirm ")
		b.WriteString(string(p))
		return b.String()
	}
	verb, ok := notationVerbs[a.Kind]
	if !ok {
		b.WriteString(string(a.Kind))
		return b.String()
	}
	b.WriteString(verb)

	var args []string
	switch a.Kind {
	case ActionPurchaseUnit, ActionRemovePurchase:
		args = []string{string(a.UnitType), strconv.Itoa(a.Count)}
		if a.Theater != "" {
			args = append(args, string(a.Theater))
		}
	case ActionRepairFacility:
		args = []string{string(a.Region), string(a.Facility), strconv.Itoa(a.Count)}
	case ActionMoveUnit, ActionMoveUnitNonCombat, ActionLandAirUnit:
		args = []string{formatID(a.Unit), strings.Join(regionStrings(a.Path), ",")}
	case ActionUndoMove, ActionSubmerge, ActionRemovePlacement:
		args = []string{formatID(a.Unit)}
	case ActionLoadUnit:
		args = []string{formatID(a.Unit), formatID(a.Transport)}
	case ActionUnloadUnit:
		args = []string{formatID(a.Unit), string(a.Region)}
	case ActionSelectBattle, ActionRetreat:
		args = []string{string(a.Region)}
	case ActionSelectCasualties:
		ids := make([]string, len(a.Casualties))
		for i, id := range a.Casualties {
			ids[i] = formatID(id)
		}
		args = []string{strings.Join(ids, ",")}
	case ActionPlaceUnit:
		args = []string{string(a.UnitType), string(a.Region)}
	case ActionDeclareWar:
		args = []string{string(a.Target)}
	}
	for _, arg := range args {
		b.WriteString(" ")
		b.WriteString(arg)
	}
	return b.String()
}

func formatID(id UnitID) string { return strconv.FormatUint(uint64(id), 10) }

// ParseAction reads an action from notation. It checks syntax only; the
// result still has to pass Validate.
func ParseAction(s string) (Action, error) {
	a, err := parseAction(strings.Fields(s))
	if err != nil {
		return Action{}, fmt.Errorf("notation: parsing %q: %w", s, err)
	}
	return a, nil
}

func parseAction(tokens []string) (Action, error) {
	var a Action
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], "@") {
		f := Faction(tokens[0][1:])
		if !f.Valid() {
			return Action{}, fmt.Errorf("unknown faction %q", f)
		}
		a.Faction = f
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Action{}, fmt.Errorf("empty action")
	}
	verb, args := tokens[0], tokens[1:]

	if verb == "confirm" {
		if len(args) != 1 {
			return Action{}, fmt.Errorf("confirm takes a phase")
		}
		p := Phase(args[0])
		if _, ok := p.Next(); !ok && p != PhaseIncome {
			return Action{}, fmt.Errorf("unknown phase %q", p)
		}
		a.Kind = p.confirmKind()
		return a, nil
	}
	kind, ok := verbKinds[verb]
	if !ok {
		return Action{}, fmt.Errorf("unknown verb %q", verb)
	}
	a.Kind = kind

	want := map[ActionKind]int{
		ActionRepairFacility: 3,
		ActionMoveUnit:       2, ActionMoveUnitNonCombat: 2, ActionLandAirUnit: 2,
		ActionUndoMove: 1, ActionSubmerge: 1, ActionRemovePlacement: 1,
		ActionLoadUnit: 2, ActionUnloadUnit: 2,
		ActionSelectBattle: 1, ActionRetreat: 1, ActionSelectCasualties: 1,
		ActionPlaceUnit: 2, ActionDeclareWar: 1,
	}[kind]
	switch kind {
	case ActionPurchaseUnit, ActionRemovePurchase:
		if len(args) != 2 && len(args) != 3 {
			return Action{}, fmt.Errorf("%s takes a unit type, a count and an optional theater", verb)
		}
	default:
		if len(args) != want {
			return Action{}, fmt.Errorf("%s takes %d arguments, got %d", verb, want, len(args))
		}
	}

	var err error
	switch kind {
	case ActionPurchaseUnit, ActionRemovePurchase:
		a.UnitType = UnitType(args[0])
		if a.Count, err = strconv.Atoi(args[1]); err != nil {
			return Action{}, fmt.Errorf("count: %w", err)
		}
		if len(args) == 3 {
			a.Theater = Theater(args[2])
		}
	case ActionRepairFacility:
		a.Region, a.Facility = RegionID(args[0]), FacilityType(args[1])
		if a.Count, err = strconv.Atoi(args[2]); err != nil {
			return Action{}, fmt.Errorf("amount: %w", err)
		}
	case ActionMoveUnit, ActionMoveUnitNonCombat, ActionLandAirUnit:
		if a.Unit, err = parseID(args[0]); err != nil {
			return Action{}, err
		}
		for _, r := range strings.Split(args[1], ",") {
			if r == "" {
				return Action{}, fmt.Errorf("empty region in path %q", args[1])
			}
			a.Path = append(a.Path, RegionID(r))
		}
	case ActionUndoMove, ActionSubmerge, ActionRemovePlacement:
		a.Unit, err = parseID(args[0])
	case ActionLoadUnit:
		if a.Unit, err = parseID(args[0]); err == nil {
			a.Transport, err = parseID(args[1])
		}
	case ActionUnloadUnit:
		a.Unit, err = parseID(args[0])
		a.Region = RegionID(args[1])
	case ActionSelectBattle, ActionRetreat:
		a.Region = RegionID(args[0])
	case ActionSelectCasualties:
		for _, s := range strings.Split(args[0], ",") {
			id, perr := parseID(s)
			if perr != nil {
				return Action{}, perr
			}
			a.Casualties = append(a.Casualties, id)
		}
	case ActionPlaceUnit:
		a.UnitType, a.Region = UnitType(args[0]), RegionID(args[1])
	case ActionDeclareWar:
		a.Target = Faction(args[0])
	}
	if err != nil {
		return Action{}, err
	}
	return a, nil
}

func parseID(s string) (UnitID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid unit id %q", s)
	}
	return UnitID(n), nil
}
