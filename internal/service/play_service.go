package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/internal/logger"
	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/internal/repository"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// PlayService runs games in progress: it loads the engine for a game,
// applies actions on behalf of players, bots and expired turn timers, and
// keeps the action log, the cached state and the timers in step.
type PlayService struct {
	graph       campaign.Graph
	gameRepo    repository.GameRepository
	actionRepo  repository.ActionRepository
	saveRepo    repository.SaveRepository
	cache       repository.GameCache
	broadcaster Broadcaster
	strategy    bot.Strategy
	botTurnCap  int

	// spawn runs bot turns after the request that triggered them returns.
	spawn func(func())
	now   func() time.Time

	// gameLocks serializes everything that advances a game. Player
	// requests, bot turns, the keyspace listener and the poller can all
	// race on the same game.
	gameLocks sync.Map
	// seqs caches the next action sequence number per game. Guarded by
	// the game lock.
	seqs sync.Map
}

// NewPlayService creates a PlayService. Bot seats and timed-out turns are
// played by the easy strategy.
func NewPlayService(
	graph campaign.Graph,
	gameRepo repository.GameRepository,
	actionRepo repository.ActionRepository,
	saveRepo repository.SaveRepository,
	cache repository.GameCache,
	broadcaster Broadcaster,
) *PlayService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &PlayService{
		graph:       graph,
		gameRepo:    gameRepo,
		actionRepo:  actionRepo,
		saveRepo:    saveRepo,
		cache:       cache,
		broadcaster: broadcaster,
		strategy:    bot.EasyStrategy{},
		botTurnCap:  defaultBotTurnCap,
		spawn:       func(f func()) { go f() },
		now:         time.Now,
	}
}

// ActionResult describes an accepted action and where the game stands
// afterwards.
type ActionResult struct {
	Seq      int              `json:"seq"`
	Notation string           `json:"notation"`
	Outcome  campaign.Outcome `json:"outcome"`
	Turn     int              `json:"turn"`
	Current  campaign.Faction `json:"current"`
	Phase    campaign.Phase   `json:"phase"`
	Winner   campaign.Team    `json:"winner,omitempty"`
	Undone   int              `json:"undone,omitempty"`
	Partial  bool             `json:"partial,omitempty"`
	Events   []campaign.Event `json:"events,omitempty"`
}

// session is a game loaded for one operation.
type session struct {
	game   *model.Game
	engine *campaign.Engine
}

func (s *PlayService) gameLock(gameID string) *sync.Mutex {
	v, _ := s.gameLocks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// InitializeGame creates the opening position of a started game, or
// resumes from base when the game continues a save, and hands the first
// turn to its owner.
func (s *PlayService) InitializeGame(ctx context.Context, game *model.Game, base *campaign.GameState) error {
	bots, err := s.initialize(ctx, game, base)
	if err != nil {
		return err
	}
	if bots {
		s.kickBots(game.ID)
	}
	return nil
}

func (s *PlayService) initialize(ctx context.Context, game *model.Game, base *campaign.GameState) (bool, error) {
	mu := s.gameLock(game.ID)
	mu.Lock()
	defer mu.Unlock()

	e := campaign.New(s.graph, game.Seed)
	if base != nil {
		data, err := json.Marshal(base)
		if err != nil {
			return false, fmt.Errorf("marshal base state: %w", err)
		}
		if err := s.gameRepo.SetBaseState(ctx, game.ID, data); err != nil {
			return false, err
		}
		if e, err = campaign.NewFromState(s.graph, base); err != nil {
			return false, fmt.Errorf("resume base state: %w", err)
		}
	}
	s.seqs.Store(game.ID, 0)
	if err := s.storeState(ctx, game.ID, e.State()); err != nil {
		return false, err
	}

	sess := &session{game: game, engine: e}
	gs := e.State()
	s.broadcaster.BroadcastGameEvent(game.ID, EventGameStarted, map[string]any{
		"turn":    gs.Turn,
		"current": gs.Current,
		"phase":   gs.Phase,
	})
	s.resetTimer(ctx, sess)
	return s.botsToMove(sess), nil
}

// Submit applies an action for a player. The acting faction is the
// action's Faction, or the faction on move when it is empty or the action
// is an undo, and the user must control it. Bot factions that come up afterwards are played in the
// background.
func (s *PlayService) Submit(ctx context.Context, gameID, userID string, a campaign.Action) (*ActionResult, error) {
	res, bots, err := s.submit(ctx, gameID, userID, a)
	if bots {
		s.kickBots(gameID)
	}
	return res, err
}

func (s *PlayService) submit(ctx context.Context, gameID, userID string, a campaign.Action) (*ActionResult, bool, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, true)
	if err != nil {
		return nil, false, err
	}
	acting := a.Faction
	if acting == campaign.NoFaction || a.Kind == campaign.ActionUndo {
		acting = sess.engine.State().Current
	}
	if err := authorize(sess.game, userID, acting); err != nil {
		return nil, false, err
	}
	res, err := s.apply(ctx, sess, a)
	if err != nil {
		return nil, false, err
	}
	l := logger.ForGame(ctx, gameID)
	l.Debug().Str("faction", string(acting)).Str("action", res.Notation).Msg("Action applied")
	return res, s.botsToMove(sess), nil
}

// Undo reverses the most recent action of the faction on move.
func (s *PlayService) Undo(ctx context.Context, gameID, userID string) (*ActionResult, error) {
	return s.Submit(ctx, gameID, userID, campaign.Action{Kind: campaign.ActionUndo})
}

// ResetPhase undoes back to the start of the current phase. When an
// irreversible action is in the way the reset stops there and the result
// is marked partial; if nothing could be undone the error is returned.
func (s *PlayService) ResetPhase(ctx context.Context, gameID, userID string) (*ActionResult, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, true)
	if err != nil {
		return nil, err
	}
	gs := sess.engine.State()
	if err := authorize(sess.game, userID, gs.Current); err != nil {
		return nil, err
	}
	n, resetErr := sess.engine.ResetPhase()
	if n == 0 {
		if resetErr != nil {
			return nil, resetErr
		}
		return s.result(sess, -1, "", campaign.Outcome{}), nil
	}
	// Each undo goes into the log so a replay makes the same reset.
	undo := campaign.Action{Kind: campaign.ActionUndo}
	seq := 0
	for range n {
		if seq, err = s.appendAction(ctx, gameID, undo); err != nil {
			s.dropState(ctx, gameID)
			return nil, err
		}
	}
	if err := s.storeState(ctx, gameID, sess.engine.State()); err != nil {
		s.dropState(ctx, gameID)
		return nil, err
	}
	res := s.result(sess, seq, campaign.FormatAction(undo), campaign.Outcome{Undone: true})
	res.Undone = n
	res.Partial = resetErr != nil
	s.broadcaster.BroadcastGameEvent(gameID, EventActionApplied, res)
	return res, nil
}

// State returns the current position of a game, finished or not.
func (s *PlayService) State(ctx context.Context, gameID string) (*campaign.GameState, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, false)
	if err != nil {
		return nil, err
	}
	return sess.engine.State(), nil
}

// Legal lists the actions available to the faction on move.
func (s *PlayService) Legal(ctx context.Context, gameID string) ([]campaign.LegalAction, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, false)
	if err != nil {
		return nil, err
	}
	return sess.engine.LegalActions(), nil
}

// apply submits one action to a loaded game and records everything that
// follows from it. Callers hold the game lock.
func (s *PlayService) apply(ctx context.Context, sess *session, a campaign.Action) (*ActionResult, error) {
	e := sess.engine
	before := e.State()
	out, err := e.Submit(a)
	if err != nil {
		return nil, err
	}
	gameID := sess.game.ID
	seq, err := s.appendAction(ctx, gameID, a)
	if err != nil {
		// The engine is discarded with the session; the cache still holds
		// the last recorded state.
		return nil, err
	}
	if err := s.storeState(ctx, gameID, e.State()); err != nil {
		s.dropState(ctx, gameID)
		return nil, err
	}

	res := s.result(sess, seq, campaign.FormatAction(a), out)
	s.broadcaster.BroadcastGameEvent(gameID, EventActionApplied, res)

	gs := e.State()
	switch {
	case gs.Winner != "":
		s.finish(ctx, sess, string(gs.Winner))
	case gs.Current != before.Current || gs.Turn != before.Turn:
		s.broadcaster.BroadcastGameEvent(gameID, EventTurnChanged, map[string]any{
			"turn":    gs.Turn,
			"current": gs.Current,
		})
		s.resetTimer(ctx, sess)
	}
	return res, nil
}

func (s *PlayService) result(sess *session, seq int, notation string, out campaign.Outcome) *ActionResult {
	gs := sess.engine.State()
	return &ActionResult{
		Seq:      seq,
		Notation: notation,
		Outcome:  out,
		Turn:     gs.Turn,
		Current:  gs.Current,
		Phase:    gs.Phase,
		Winner:   gs.Winner,
		Events:   out.Events,
	}
}

// finish ends the game. An empty winner records a game stopped without a
// result.
func (s *PlayService) finish(ctx context.Context, sess *session, winner string) {
	gameID := sess.game.ID
	if err := s.gameRepo.SetFinished(ctx, gameID, winner); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to mark game finished")
	}
	if err := s.cache.ClearTimer(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear timer")
	}
	sess.game.Status = model.StatusFinished
	sess.game.Winner = winner
	if winner == "" {
		winner = "draw"
	}
	s.broadcaster.BroadcastGameEvent(gameID, EventGameEnded, map[string]any{"winner": winner})
	log.Info().Str("gameId", gameID).Str("winner", winner).Msg("Game ended")
}

// resetTimer starts the turn clock when a human faction is on move and
// stops it otherwise.
func (s *PlayService) resetTimer(ctx context.Context, sess *session) {
	gameID := sess.game.ID
	current := sess.engine.State().Current
	if sess.game.TurnTimeout <= 0 || isBotFaction(sess.game, current) {
		if err := s.cache.ClearTimer(ctx, gameID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear timer")
		}
		if err := s.gameRepo.SetDeadline(ctx, gameID, nil); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear deadline")
		}
		return
	}
	deadline := s.now().Add(sess.game.TurnTimeout)
	if err := s.cache.SetTimer(ctx, gameID, deadline); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to set turn timer")
	}
	if err := s.gameRepo.SetDeadline(ctx, gameID, &deadline); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to store turn deadline")
	}
}

// open loads a game and its engine. The cached state is used when present;
// otherwise the engine is rebuilt from the action log and cached again.
func (s *PlayService) open(ctx context.Context, gameID string, requireActive bool) (*session, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.Status == model.StatusWaiting || (requireActive && game.Status != model.StatusActive) {
		return nil, ErrGameNotActive
	}

	data, err := s.cache.GetState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var gs campaign.GameState
		if err := json.Unmarshal(data, &gs); err != nil {
			return nil, fmt.Errorf("unmarshal cached state: %w", err)
		}
		e, err := campaign.NewFromState(s.graph, &gs)
		if err != nil {
			return nil, fmt.Errorf("resume cached state: %w", err)
		}
		return &session{game: game, engine: e}, nil
	}

	e, _, err := s.rebuild(ctx, game)
	if err != nil {
		return nil, err
	}
	if err := s.storeState(ctx, gameID, e.State()); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to cache rebuilt state")
	}
	return &session{game: game, engine: e}, nil
}

// rebuild replays a game's action log from its starting position and
// returns the engine and the number of actions replayed.
func (s *PlayService) rebuild(ctx context.Context, game *model.Game) (*campaign.Engine, int, error) {
	base, err := s.gameRepo.BaseState(ctx, game.ID)
	if err != nil {
		return nil, 0, err
	}
	var e *campaign.Engine
	if base != nil {
		var gs campaign.GameState
		if err := json.Unmarshal(base, &gs); err != nil {
			return nil, 0, fmt.Errorf("unmarshal base state: %w", err)
		}
		if e, err = campaign.NewFromState(s.graph, &gs); err != nil {
			return nil, 0, fmt.Errorf("resume base state: %w", err)
		}
	} else {
		e = campaign.New(s.graph, game.Seed)
	}

	actions, err := s.actionRepo.List(ctx, game.ID)
	if err != nil {
		return nil, 0, err
	}
	for _, ga := range actions {
		var a campaign.Action
		if err := json.Unmarshal(ga.Payload, &a); err != nil {
			return nil, 0, fmt.Errorf("unmarshal action %d: %w", ga.Seq, err)
		}
		if _, err := e.Submit(a); err != nil {
			return nil, 0, fmt.Errorf("replay action %d (%s): %w", ga.Seq, ga.Notation, err)
		}
	}
	s.seqs.Store(game.ID, len(actions))
	return e, len(actions), nil
}

// appendAction writes a to the action log and returns its sequence number.
func (s *PlayService) appendAction(ctx context.Context, gameID string, a campaign.Action) (int, error) {
	seq, err := s.nextSeq(ctx, gameID)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("marshal action: %w", err)
	}
	if err := s.actionRepo.Append(ctx, gameID, seq, campaign.FormatAction(a), payload); err != nil {
		s.seqs.Delete(gameID)
		return 0, err
	}
	s.seqs.Store(gameID, seq+1)
	return seq, nil
}

func (s *PlayService) nextSeq(ctx context.Context, gameID string) (int, error) {
	if v, ok := s.seqs.Load(gameID); ok {
		return v.(int), nil
	}
	actions, err := s.actionRepo.List(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

func (s *PlayService) storeState(ctx context.Context, gameID string, gs *campaign.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.cache.SetState(ctx, gameID, data); err != nil {
		return fmt.Errorf("cache state: %w", err)
	}
	return nil
}

// dropState evicts a cached state that may no longer match the action log,
// so the next load replays the log.
func (s *PlayService) dropState(ctx context.Context, gameID string) {
	if err := s.cache.DeleteGame(ctx, gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to evict cached state")
	}
}

// forget drops everything held for a deleted game.
func (s *PlayService) forget(ctx context.Context, gameID string) {
	s.dropState(ctx, gameID)
	s.seqs.Delete(gameID)
	s.gameLocks.Delete(gameID)
}

// authorize checks that userID holds a seat controlling f.
func authorize(game *model.Game, userID string, f campaign.Faction) error {
	for _, p := range game.Players {
		if p.UserID != userID {
			continue
		}
		if !p.Controls(string(f)) {
			return fmt.Errorf("%w: %s", ErrNotYourFaction, f)
		}
		return nil
	}
	return ErrNotPlayer
}

func isBotFaction(game *model.Game, f campaign.Faction) bool {
	for _, p := range game.Players {
		if p.IsBot && p.Controls(string(f)) {
			return true
		}
	}
	return false
}

func hasHumans(game *model.Game) bool {
	for _, p := range game.Players {
		if !p.IsBot {
			return true
		}
	}
	return false
}
