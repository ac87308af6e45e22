package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/logger"
	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// Save stores a named snapshot of a game. Any seated player may save.
func (s *PlayService) Save(ctx context.Context, gameID, userID, name string) (*model.GameSave, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, false)
	if err != nil {
		return nil, err
	}
	if !seated(sess.game, userID) {
		return nil, ErrNotPlayer
	}
	gs := sess.engine.State()
	name = strings.TrimSpace(name)
	if name == "" {
		name = campaign.Summarize(gs)
	}
	payload, err := campaign.EncodeSave(name, gs, s.now())
	if err != nil {
		return nil, err
	}
	save, err := s.saveRepo.Create(ctx, gameID, name, campaign.Summarize(gs), len(gs.Log), payload)
	if err != nil {
		return nil, err
	}
	l := logger.ForGame(ctx, gameID)
	l.Info().Str("saveId", save.ID).Str("name", name).Msg("Game saved")
	return save, nil
}

// ListSaves returns a game's saves, newest first, without their payloads.
func (s *PlayService) ListSaves(ctx context.Context, gameID string) ([]model.GameSave, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	saves, err := s.saveRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for i := range saves {
		saves[i].Payload = nil
	}
	return saves, nil
}

// ReplayReport compares a game's live state with a replay of its log.
type ReplayReport struct {
	Actions int  `json:"actions"`
	Match   bool `json:"match"`
}

// VerifyReplay rebuilds a game from its starting position and action log
// and checks that the result matches the live state.
func (s *PlayService) VerifyReplay(ctx context.Context, gameID string) (*ReplayReport, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, false)
	if err != nil {
		return nil, err
	}
	live, err := json.Marshal(sess.engine.State())
	if err != nil {
		return nil, err
	}
	e, n, err := s.rebuild(ctx, sess.game)
	if err != nil {
		return nil, err
	}
	replayed, err := json.Marshal(e.State())
	if err != nil {
		return nil, err
	}
	report := &ReplayReport{Actions: n, Match: bytes.Equal(live, replayed)}
	if !report.Match {
		log.Warn().Str("gameId", gameID).Int("actions", n).Msg("Replay does not match live state")
	}
	return report, nil
}

// LoadSave starts a new game from a save. The seats of the saved game
// carry over and play resumes exactly where the save was made. Players
// and the creator of the saved game may load it.
func (s *GameService) LoadSave(ctx context.Context, saveID, userID string) (*model.Game, error) {
	save, err := s.play.saveRepo.FindByID(ctx, saveID)
	if err != nil {
		return nil, err
	}
	if save == nil {
		return nil, ErrSaveNotFound
	}
	sf, err := campaign.DecodeSave(save.Payload)
	if err != nil {
		return nil, err
	}
	if sf.State.Winner != "" {
		return nil, fmt.Errorf("%w: save is of a finished game", ErrGameNotActive)
	}
	source, err := s.GetGame(ctx, save.GameID)
	if err != nil {
		return nil, err
	}
	if source.CreatorID != userID && !seated(source, userID) {
		return nil, ErrNotPlayer
	}

	game, err := s.gameRepo.Create(ctx, sf.Metadata.Name, userID, source.Seed, source.TurnTimeout)
	if err != nil {
		return nil, err
	}
	for _, p := range source.Players {
		join := s.gameRepo.JoinGame
		if p.IsBot {
			join = s.gameRepo.JoinGameAsBot
		}
		if err := join(ctx, game.ID, p.UserID, p.Factions); err != nil {
			return nil, fmt.Errorf("copy seat: %w", err)
		}
	}
	if err := s.gameRepo.SetStarted(ctx, game.ID); err != nil {
		return nil, err
	}
	started, err := s.gameRepo.FindByID(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if err := s.play.InitializeGame(ctx, started, sf.State); err != nil {
		return nil, err
	}
	s.play.broadcaster.BroadcastGameEvent(source.ID, EventGameLoaded, map[string]any{
		"save_id": save.ID,
		"game_id": started.ID,
	})
	log.Info().Str("saveId", saveID).Str("from", source.ID).Str("gameId", started.ID).Msg("Save loaded into new game")
	return started, nil
}

func seated(game *model.Game, userID string) bool {
	for _, p := range game.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
