package bot

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
	"github.com/freeeve/iron-alliance/api/pkg/eap"
)

// serveEngine runs s in-process and returns an external strategy talking
// to it over pipes.
func serveEngine(t *testing.T, s *eap.Server, opts ...ExternalOption) *ExternalStrategy {
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

	initCtx, initCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer initCancel()
	ext, err := newExternal(initCtx, eap.Attach(clientIn, clientOut), opts...)
	if err != nil {
		cancel()
		t.Fatalf("newExternal: %v", err)
	}
	t.Cleanup(func() {
		ext.Close()
		cancel()
		clientOut.Close()
		<-done
	})
	return ext
}

func TestExternalStrategyMatchesServedStrategy(t *testing.T) {
	g := frontMap(t, `"1 infantry"`)
	ext := serveEngine(t, EngineServer(EasyStrategy{}, g), WithMoveTime(500))
	if got, want := ext.EngineName(), "iron-alliance-easy"; got != want {
		t.Errorf("EngineName = %q, want %q", got, want)
	}

	e := campaign.New(g, 1)
	for range 12 {
		legal := e.LegalActions()
		got := ext.ChooseAction(e.State(), g, legal)
		want := EasyStrategy{}.ChooseAction(e.State(), g, legal)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("external chose %s, easy chose %s", campaign.FormatAction(got), campaign.FormatAction(want))
		}
		mustSubmit(t, e, got)
	}
}

func TestExternalStrategyFallsBack(t *testing.T) {
	g := frontMap(t, `"1 infantry"`)
	tests := []struct {
		name   string
		search eap.SearchFunc
	}{
		{"illegal answer", func(context.Context, *campaign.GameState, eap.GoParams) (campaign.Action, error) {
			return campaign.Action{Kind: campaign.ActionPlaceUnit, UnitType: campaign.Tank, Region: "beta"}, nil
		}},
		{"gives up", func(context.Context, *campaign.GameState, eap.GoParams) (campaign.Action, error) {
			return campaign.Action{}, io.ErrUnexpectedEOF
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := serveEngine(t, &eap.Server{Name: "broken", Search: tt.search}, WithTimeout(2*time.Second))
			e := campaign.New(g, 1)
			legal := e.LegalActions()
			got := ext.ChooseAction(e.State(), g, legal)
			want := EasyStrategy{}.ChooseAction(e.State(), g, legal)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %s, want the easy fallback %s", campaign.FormatAction(got), campaign.FormatAction(want))
			}
		})
	}
}

func TestNewExternalStrategyMissingBinary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s, err := NewExternalStrategy(ctx, "/nonexistent/engine"); err == nil {
		s.Close()
		t.Fatal("expected an error for a missing engine binary")
	}
}
