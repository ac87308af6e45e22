package bot

import (
	"strings"
	"testing"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// frontYAML is a four-region map. Germany holds alpha (capital) and gamma,
// France holds beta and delta, a victory city. Taking delta wins the game
// for the Axis.
//
//	alpha -- beta
//	  |       |
//	gamma -- delta
//
// Unit ids: 1 german infantry in alpha, 2,3 german infantry and 4 german
// artillery in gamma, 5 french infantry in beta, then the delta garrison.
const frontYAML = `
name: front
victory:
  axis:
    europe: 1
    pacific: 0
regions:
  - id: alpha
    kind: land
    theater: europe
    ipc: 10
    owner: germany
    capital: germany
    facilities: [major_ic]
    adjacent: [beta, gamma]
  - id: beta
    kind: land
    theater: europe
    ipc: 2
    owner: france
    adjacent: [alpha, delta]
  - id: gamma
    kind: land
    theater: europe
    ipc: 3
    owner: germany
    adjacent: [alpha, delta]
  - id: delta
    kind: land
    theater: europe
    ipc: 2
    owner: france
    victory_city: Paris
    adjacent: [beta, gamma]
setup:
  - region: alpha
    owner: germany
    units: ["1 infantry"]
  - region: gamma
    owner: germany
    units: ["2 infantry", "1 artillery"]
  - region: beta
    owner: france
    units: ["1 infantry"]
  - region: delta
    owner: france
    units: [DELTA]
`

// frontMap loads frontYAML with the given French garrison in delta.
func frontMap(t testing.TB, delta string) *campaign.TheaterMap {
	t.Helper()
	m, err := campaign.LoadMap([]byte(strings.Replace(frontYAML, "DELTA", delta, 1)))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	return m
}

func mustSubmit(t testing.TB, e *campaign.Engine, a campaign.Action) {
	t.Helper()
	if _, err := e.Submit(a); err != nil {
		t.Fatalf("Submit(%s): %v", campaign.FormatAction(a), err)
	}
}

// playPhase lets s act until the phase changes.
func playPhase(t testing.TB, e *campaign.Engine, s Strategy) []Step {
	t.Helper()
	p := e.State().Phase
	steps, err := PlayWhile(e, s, 500, func(gs *campaign.GameState) bool { return gs.Phase == p })
	if err != nil {
		t.Fatalf("playing %s: %v", p, err)
	}
	return steps
}

func germansIn(gs *campaign.GameState, rid campaign.RegionID) []campaign.Unit {
	var out []campaign.Unit
	for _, u := range gs.Region(rid).Units {
		if u.Owner == campaign.Germany {
			out = append(out, u)
		}
	}
	return out
}
