package campaign

import (
	"bytes"
	"encoding/json"
	"testing"
)

// skirmishYAML is a four-region map used by the scripted tests.
//
//	alpha (germany, major_ic) -- beta (france)
//	  |        \                 /
//	gamma       +---- channel ---+
//
// Unit ids: 1,2 german infantry and 3 german artillery in alpha, 4 french
// infantry in beta, 5 german transport in channel, 6 german fighter in
// gamma.
const skirmishYAML = `
name: skirmish
victory:
  axis:
    europe: 0
    pacific: 0
regions:
  - id: alpha
    kind: land
    theater: europe
    ipc: 4
    owner: germany
    facilities: [major_ic]
    adjacent: [beta, gamma, channel]
  - id: beta
    kind: land
    theater: europe
    ipc: 2
    owner: france
    adjacent: [alpha, channel]
  - id: gamma
    kind: land
    theater: europe
    ipc: 3
    owner: germany
    adjacent: [alpha]
  - id: channel
    kind: sea
    theater: europe
    adjacent: [alpha, beta]
objectives:
  - id: hold_beta
    faction: germany
    theater: europe
    bonus: 5
    when: Controls("beta") && AtWar("france")
setup:
  - region: alpha
    owner: germany
    units: ["2 infantry", "1 artillery"]
  - region: beta
    owner: france
    units: ["1 infantry"]
  - region: channel
    owner: germany
    units: ["1 transport"]
  - region: gamma
    owner: germany
    units: ["1 fighter"]
`

func skirmishMap(t testing.TB) *TheaterMap {
	t.Helper()
	m, err := LoadMap([]byte(skirmishYAML))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	return m
}

func newSkirmish(t testing.TB, rolls ...int) *Engine {
	t.Helper()
	return New(skirmishMap(t), 42, WithForcedRolls(rolls...))
}

func mustSubmit(t testing.TB, e *Engine, a Action) Outcome {
	t.Helper()
	out, err := e.Submit(a)
	if err != nil {
		t.Fatalf("Submit(%s): %v", FormatAction(a), err)
	}
	return out
}

func mustParse(t testing.TB, s string) Action {
	t.Helper()
	a, err := ParseAction(s)
	if err != nil {
		t.Fatalf("ParseAction(%q): %v", s, err)
	}
	return a
}

// play submits actions written in notation.
func play(t testing.TB, e *Engine, lines ...string) {
	t.Helper()
	for _, l := range lines {
		mustSubmit(t, e, mustParse(t, l))
	}
}

func stateJSON(t testing.TB, gs *GameState) []byte {
	t.Helper()
	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return data
}

func sameState(t testing.TB, a, b *GameState) bool {
	t.Helper()
	return bytes.Equal(stateJSON(t, a), stateJSON(t, b))
}

func regionOf(t testing.TB, gs *GameState, id UnitID) RegionID {
	t.Helper()
	_, rid, ok := gs.Unit(id)
	if !ok {
		t.Fatalf("unit %d not found", id)
	}
	return rid
}

func hasEvent(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

// advanceTo confirms phases until the engine reaches phase p for the
// current faction.
func advanceTo(t testing.TB, e *Engine, p Phase) {
	t.Helper()
	for e.State().Phase != p {
		mustSubmit(t, e, Action{Kind: e.State().Phase.confirmKind()})
	}
}
