package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// fakeServer serves one in-memory game under the routes the bot client
// uses.
type fakeServer struct {
	mu      sync.Mutex
	engine  *campaign.Engine
	actions int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /auth/dev", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"access_token": "tok-" + r.URL.Query().Get("name"), "expires_in": 900})
	})
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-Bot1" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, model.User{ID: "u1", DisplayName: "Bot1"})
	})
	mux.HandleFunc("GET /api/v1/games/g1/state", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.engine.State())
	})
	mux.HandleFunc("GET /api/v1/games/g1/legal", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]any{"actions": f.engine.LegalActions()})
	})
	mux.HandleFunc("POST /api/v1/games/g1/actions", func(w http.ResponseWriter, r *http.Request) {
		var a campaign.Action
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, `{"error":"bad action"}`, http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, err := f.engine.Submit(a); err != nil {
			w.WriteHeader(http.StatusConflict)
			writeJSON(w, map[string]string{"error": err.Error()})
			return
		}
		f.actions++
		writeJSON(w, map[string]string{"status": "ok"})
	})
	return mux
}

func TestClientLogin(t *testing.T) {
	srv := httptest.NewServer((&fakeServer{}).handler())
	defer srv.Close()

	c := NewClient("Bot1", srv.URL+"/")
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.UserID() != "u1" {
		t.Errorf("UserID = %q, want u1", c.UserID())
	}

	other := NewClient("Bot2", srv.URL)
	err := other.Login(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login error = %v, want an APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.Status)
	}
}

func TestClientSubmitRejected(t *testing.T) {
	f := &fakeServer{engine: campaign.New(frontMap(t, `"1 infantry"`), 1)}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := NewClient("Bot1", srv.URL)
	err := c.Submit(context.Background(), "g1", campaign.Action{Kind: campaign.ActionConfirmMobilization})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("Submit error = %v, want a 409", err)
	}

	legal, err := c.Legal(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Legal: %v", err)
	}
	if len(legal) == 0 {
		t.Fatal("no legal actions")
	}
	if err := c.Submit(context.Background(), "g1", legal[0].Action); err != nil {
		t.Fatalf("Submit(%s): %v", campaign.FormatAction(legal[0].Action), err)
	}
	if f.actions != 1 {
		t.Errorf("server applied %d actions, want 1", f.actions)
	}
}

func TestPlayerPlaysToVictory(t *testing.T) {
	g := frontMap(t, `"1 infantry"`)
	// Every attacker hits and the defender misses, so the first attack on
	// delta takes the victory city.
	f := &fakeServer{engine: campaign.New(g, 1, campaign.WithForcedRolls(1, 1, 1, 6))}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	p := &Player{
		Client:   NewClient("Bot1", srv.URL),
		Factions: campaign.AllFactions(),
		Strategy: EasyStrategy{},
		Graph:    g,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	winner, err := p.Play(ctx, "g1")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if winner != campaign.Axis {
		t.Errorf("winner = %q, want axis", winner)
	}
	if owner := f.engine.State().Region("delta").Owner; owner != campaign.Germany {
		t.Errorf("delta owned by %s", owner)
	}
}

func TestTeamSeats(t *testing.T) {
	seats := TeamSeats()
	if len(seats) != 2 {
		t.Fatalf("got %d seats, want 2", len(seats))
	}
	total := 0
	for i, seat := range seats {
		team := seat[0].Team()
		for _, f := range seat {
			if f.Team() != team {
				t.Errorf("seat %d mixes %s and %s", i, team, f.Team())
			}
		}
		total += len(seat)
	}
	if total != len(campaign.AllFactions()) {
		t.Errorf("seats cover %d factions, want %d", total, len(campaign.AllFactions()))
	}
}

func TestClientCountsMissedEvents(t *testing.T) {
	c := NewClient("Bot1", "http://unused")
	for _, ev := range []WSEvent{
		{Type: "connected"},
		{GameID: "g1", Seq: 4},
		{GameID: "g1", Seq: 5},
		{GameID: "g1", Seq: 8},
		{GameID: "g2", Seq: 1},
		{GameID: "g1", Seq: 1}, // counter restarted
		{GameID: "g1", Seq: 2},
	} {
		c.track(ev)
	}
	if got := c.Missed(); got != 2 {
		t.Errorf("Missed() = %d, want 2", got)
	}
}
