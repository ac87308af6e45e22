//go:build integration

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/iron-alliance/api/internal/repository/redis"
	"github.com/freeeve/iron-alliance/api/internal/testutil"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// liveEnv holds shared test infrastructure.
type liveEnv struct {
	db       *sql.DB
	rdb      *goredis.Client
	userRepo *postgres.UserRepo
	play     *PlayService
	svc      *GameService
	cache    *redisrepo.Client
}

func setupLive(t *testing.T) *liveEnv {
	t.Helper()
	db := testutil.DB(t, postgres.Migrate)
	rdb := testutil.Redis(t)

	g, err := campaign.LoadMap([]byte(borderYAML))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	gameRepo := postgres.NewGameRepo(db)
	userRepo := postgres.NewUserRepo(db)
	cache := redisrepo.NewClientFromPool(rdb)
	play := NewPlayService(g, gameRepo, postgres.NewActionRepo(db), postgres.NewSaveRepo(db), cache, nil)
	play.spawn = func(f func()) { f() }
	return &liveEnv{
		db:       db,
		rdb:      rdb,
		userRepo: userRepo,
		play:     play,
		svc:      NewGameService(gameRepo, userRepo, play, time.Hour),
		cache:    cache,
	}
}

// TestFullGameLifecycle tests: create -> join -> start -> play a turn ->
// bots move -> save -> load -> replay.
func TestFullGameLifecycle(t *testing.T) {
	e := setupLive(t)
	ctx := context.Background()

	user, err := e.userRepo.Upsert(ctx, "test", "test-germany", "Player germany", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	game, err := e.svc.CreateGame(ctx, "Integration Test", user.ID, 0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := e.svc.JoinGame(ctx, game.ID, user.ID, []string{"germany"}); err != nil {
		t.Fatalf("join game: %v", err)
	}
	game, err = e.svc.StartGame(ctx, game.ID, user.ID)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if game.Status != model.StatusActive {
		t.Fatalf("expected active, got %s", game.Status)
	}
	ttl, err := e.cache.TimerTTL(ctx, game.ID)
	if err != nil || ttl <= 0 {
		t.Fatalf("expected a running turn timer, got %v (%v)", ttl, err)
	}

	if _, err := e.play.Submit(ctx, game.ID, user.ID, campaign.Action{Kind: campaign.ActionPurchaseUnit, UnitType: campaign.Infantry, Count: 2}); err != nil {
		t.Fatalf("submit purchase: %v", err)
	}
	save, err := e.play.Save(ctx, game.ID, user.ID, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	for {
		gs, err := e.play.State(ctx, game.ID)
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if gs.Turn > 1 {
			break
		}
		legal, err := e.play.Legal(ctx, game.ID)
		if err != nil {
			t.Fatalf("legal: %v", err)
		}
		var next *campaign.Action
		for _, la := range legal {
			if la.Action.Kind.IsConfirm() || la.Action.Kind == campaign.ActionPlaceUnit {
				next = &la.Action
				break
			}
		}
		if next == nil {
			t.Fatalf("nothing to submit in %s", gs.Phase)
		}
		if _, err := e.play.Submit(ctx, game.ID, user.ID, *next); err != nil {
			t.Fatalf("submit %s: %v", campaign.FormatAction(*next), err)
		}
	}

	report, err := e.play.VerifyReplay(ctx, game.ID)
	if err != nil {
		t.Fatalf("verify replay: %v", err)
	}
	if !report.Match {
		t.Errorf("replay of %d actions does not match", report.Actions)
	}

	loaded, err := e.svc.LoadSave(ctx, save.ID, user.ID)
	if err != nil {
		t.Fatalf("load save: %v", err)
	}
	gs, err := e.play.State(ctx, loaded.ID)
	if err != nil {
		t.Fatalf("state of loaded game: %v", err)
	}
	if gs.Turn != 1 || len(pending(gs)) != 1 {
		t.Errorf("expected the saved position, got turn %d purchases %+v", gs.Turn, pending(gs))
	}
}

// TestRestartRebuildsState drops the Redis state and checks that the game
// is rebuilt from the Postgres log.
func TestRestartRebuildsState(t *testing.T) {
	e := setupLive(t)
	ctx := context.Background()

	user, _ := e.userRepo.Upsert(ctx, "test", "test-1", "Player 1", "")
	game, _ := e.svc.CreateGame(ctx, "Restart", user.ID, 0)
	e.svc.JoinGame(ctx, game.ID, user.ID, []string{"germany"})
	if _, err := e.svc.StartGame(ctx, game.ID, user.ID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if _, err := e.play.Submit(ctx, game.ID, user.ID, campaign.Action{Kind: campaign.ActionPurchaseUnit, UnitType: campaign.Tank, Count: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	testutil.FlushRedis(t, e.rdb)
	if err := e.play.RecoverActiveGames(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
	state, err := e.cache.GetState(ctx, game.ID)
	if err != nil || state == nil {
		t.Fatalf("expected rebuilt state in redis, got %v", err)
	}
	gs, _ := e.play.State(ctx, game.ID)
	if got := pending(gs); len(got) != 1 || got[0].Type != campaign.Tank {
		t.Errorf("expected the tank purchase to survive, got %+v", got)
	}
}
