package service

import (
	"context"
	"testing"
	"time"

	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// borderYAML is a four-region map. Germany holds alpha (capital) and gamma,
// France holds beta and delta, a victory city held by four infantry. The
// easy bot does not attack delta with the German starting army.
const borderYAML = `
name: border
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
    units: ["4 infantry"]
`

type testEnv struct {
	games   *mockGameRepo
	users   *mockUserRepo
	actions *mockActionRepo
	saves   *mockSaveRepo
	cache   *mockCache
	events  *recordingBroadcaster
	play    *PlayService
	svc     *GameService
}

// newTestEnv wires the services to in-memory repositories. Bot play runs
// synchronously so tests see its effects as soon as a call returns.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	g, err := campaign.LoadMap([]byte(borderYAML))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	e := &testEnv{
		games:   newMockGameRepo(),
		users:   newMockUserRepo(),
		actions: newMockActionRepo(),
		saves:   newMockSaveRepo(),
		cache:   newMockCache(),
		events:  &recordingBroadcaster{},
	}
	e.play = NewPlayService(g, e.games, e.actions, e.saves, e.cache, e.events)
	e.play.spawn = func(f func()) { f() }
	e.svc = NewGameService(e.games, e.users, e.play, time.Hour)
	return e
}

// startGame creates a game owned by user-1, seats user-1 as Germany and
// starts it. Every other faction goes to the bot.
func startGame(t *testing.T, e *testEnv) *model.Game {
	t.Helper()
	ctx := context.Background()
	game, err := e.svc.CreateGame(ctx, "Test", "user-1", 0)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := e.svc.JoinGame(ctx, game.ID, "user-1", []string{"germany"}); err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	started, err := e.svc.StartGame(ctx, game.ID, "user-1")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return started
}

func mustState(t *testing.T, e *testEnv, gameID string) *campaign.GameState {
	t.Helper()
	gs, err := e.play.State(context.Background(), gameID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return gs
}

// pending returns the purchases made so far in the current purchase phase.
// They move to GameState.Purchased only when the phase is confirmed.
func pending(gs *campaign.GameState) []campaign.Purchase {
	if gs.PhaseState.Purchase == nil {
		return nil
	}
	return gs.PhaseState.Purchase.Purchases
}

func buyInfantry(n int) campaign.Action {
	return campaign.Action{Kind: campaign.ActionPurchaseUnit, UnitType: campaign.Infantry, Count: n}
}

// confirmPhases submits the confirm action of each phase as user-1 until
// the German turn is over.
func confirmPhases(t *testing.T, e *testEnv, gameID string) {
	t.Helper()
	ctx := context.Background()
	turn := mustState(t, e, gameID).Turn
	for range 20 {
		gs := mustState(t, e, gameID)
		if gs.Turn != turn || gs.Current != campaign.Germany || gs.Winner != "" {
			return
		}
		legal, err := e.play.Legal(ctx, gameID)
		if err != nil {
			t.Fatalf("Legal: %v", err)
		}
		var confirm *campaign.Action
		for _, la := range legal {
			if la.Action.Kind.IsConfirm() {
				confirm = &la.Action
				break
			}
		}
		if confirm == nil {
			t.Fatalf("no confirm action in %s", gs.Phase)
		}
		if _, err := e.play.Submit(ctx, gameID, "user-1", *confirm); err != nil {
			t.Fatalf("Submit(%s): %v", campaign.FormatAction(*confirm), err)
		}
	}
	t.Fatal("German turn did not end")
}
