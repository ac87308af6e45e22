package eap

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// firstLegal searches by taking the first legal action on the default map.
func firstLegal(_ context.Context, gs *campaign.GameState, _ GoParams) (campaign.Action, error) {
	e, err := campaign.NewFromState(campaign.DefaultMap(), gs)
	if err != nil {
		return campaign.Action{}, err
	}
	return e.LegalActions()[0].Action, nil
}

// serve runs s in-process and returns an engine client attached to it.
func serve(t *testing.T, s *Server) *Engine {
	t.Helper()
	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Serve(ctx, serverIn, serverOut)
		serverOut.Close()
	}()
	t.Cleanup(func() {
		cancel()
		clientOut.Close()
		<-done
	})
	return Attach(clientIn, clientOut)
}

func initEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { e.Close() })
}

func TestEngineHandshake(t *testing.T) {
	e := serve(t, &Server{Name: "test-engine", Author: "test-author", Search: firstLegal})
	initEngine(t, e)

	if e.ID.Name != "test-engine" {
		t.Errorf("ID.Name = %q, want %q", e.ID.Name, "test-engine")
	}
	if e.ID.Author != "test-author" {
		t.Errorf("ID.Author = %q, want %q", e.ID.Author, "test-author")
	}
	if e.ID.ProtocolVersion != ProtocolVersion {
		t.Errorf("ProtocolVersion = %d, want %d", e.ID.ProtocolVersion, ProtocolVersion)
	}
}

func TestBestAction(t *testing.T) {
	e := serve(t, &Server{Name: "first-legal", Search: firstLegal})
	initEngine(t, e)

	game := campaign.New(campaign.DefaultMap(), 1)
	want := game.LegalActions()[0].Action
	if err := e.NewGame(); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if err := e.SetPosition(game.State()); err != nil {
			t.Fatalf("query %d: SetPosition: %v", i, err)
		}
		res, err := e.BestAction(context.Background())
		if err != nil {
			t.Fatalf("query %d: BestAction: %v", i, err)
		}
		if !reflect.DeepEqual(res.Action, want) {
			t.Errorf("query %d: got %+v, want %+v", i, res.Action, want)
		}
		if res.Notation != campaign.FormatAction(want) {
			t.Errorf("query %d: notation %q", i, res.Notation)
		}
		if len(res.Infos) != 1 || res.Infos[0].Depth != 1 {
			t.Errorf("query %d: infos %+v", i, res.Infos)
		}
	}
}

func TestBestActionWithoutPosition(t *testing.T) {
	e := serve(t, &Server{Name: "first-legal", Search: firstLegal})
	initEngine(t, e)

	res, err := e.BestAction(context.Background())
	if err != nil {
		t.Fatalf("BestAction: %v", err)
	}
	if res.Action.Kind != campaign.ActionUndo {
		t.Errorf("got %+v, want an undo", res.Action)
	}
}

func TestMoveTimeBoundsSearch(t *testing.T) {
	slow := func(ctx context.Context, _ *campaign.GameState, p GoParams) (campaign.Action, error) {
		if p.MoveTime != 50 {
			return campaign.Action{}, errors.New("movetime not passed through")
		}
		<-ctx.Done()
		return campaign.Action{Kind: campaign.ActionConfirmPurchases}, nil
	}
	e := serve(t, &Server{Name: "slow", Search: slow})
	e.MoveTime = 50
	initEngine(t, e)

	if err := e.SetPosition(campaign.NewGameState(campaign.DefaultMap(), 1)); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	res, err := e.BestAction(context.Background())
	if err != nil {
		t.Fatalf("BestAction: %v", err)
	}
	if res.Action.Kind != campaign.ActionConfirmPurchases {
		t.Errorf("got %+v", res.Action)
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Errorf("search took %v", d)
	}
}

func TestClosedEngine(t *testing.T) {
	e := serve(t, &Server{Name: "first-legal", Search: firstLegal})
	initEngine(t, e)

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := e.SetPosition(campaign.NewGameState(campaign.DefaultMap(), 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("SetPosition after Close = %v, want ErrClosed", err)
	}
	if _, err := e.BestAction(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("BestAction after Close = %v, want ErrClosed", err)
	}
}

type discard struct{ io.Writer }

func (discard) Close() error { return nil }

func TestBadHandshake(t *testing.T) {
	e := Attach(strings.NewReader("id name broken-engine\n"), discard{io.Discard})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Init(ctx); err == nil {
		t.Fatal("expected an error from an engine that never sends eapok")
	}
}

func TestInvalidPath(t *testing.T) {
	e := NewEngine("/nonexistent/engine/binary")
	if err := e.Init(context.Background()); err == nil {
		e.Close()
		t.Fatal("expected an error for a missing binary")
	}
}

func TestPositionRoundTrip(t *testing.T) {
	game := campaign.New(campaign.DefaultMap(), 9)
	if _, err := game.Submit(campaign.Action{Kind: campaign.ActionPurchaseUnit, UnitType: campaign.Infantry, Count: 1}); err != nil {
		t.Fatal(err)
	}
	arg, err := EncodePosition(game.State())
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(arg, " \n") {
		t.Fatal("position argument must be a single token")
	}
	gs, err := DecodePosition(arg)
	if err != nil {
		t.Fatal(err)
	}
	if len(gs.Log) != 0 {
		t.Errorf("log has %d records, want none", len(gs.Log))
	}
	if len(game.State().Log) != 1 {
		t.Error("encoding modified the source state")
	}
	if gs.Current != campaign.Germany || gs.Phase != campaign.PhasePurchase {
		t.Errorf("decoded %s %s", gs.Current, gs.Phase)
	}
	if got, want := gs.FactionState(campaign.Germany).IPCs, game.State().FactionState(campaign.Germany).IPCs; got != want {
		t.Errorf("IPCs = %d, want %d", got, want)
	}
	if _, err := campaign.NewFromState(campaign.DefaultMap(), gs); err != nil {
		t.Errorf("decoded position does not resume: %v", err)
	}

	if _, err := DecodePosition("not base64!"); err == nil {
		t.Error("expected an error for bad base64")
	}
}
