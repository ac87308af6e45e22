package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

const (
	// maxBotActions bounds one run of bot play.
	maxBotActions = 5000
	// defaultBotTurnCap ends games without human seats that no team wins.
	defaultBotTurnCap = 30
	// botRunTimeout bounds a background bot run.
	botRunTimeout = 2 * time.Minute
)

// botsToMove reports whether a bot seat holds the faction on move.
func (s *PlayService) botsToMove(sess *session) bool {
	gs := sess.engine.State()
	return sess.game.Status == model.StatusActive && gs.Winner == "" && isBotFaction(sess.game, gs.Current)
}

// kickBots plays bot factions in the background.
func (s *PlayService) kickBots(gameID string) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), botRunTimeout)
		defer cancel()
		if err := s.RunBots(ctx, gameID); err != nil {
			log.Error().Err(err).Str("gameId", gameID).Msg("Bot play failed")
		}
	})
}

// RunBots plays the game while bot seats are on move, stopping when a
// human faction comes up or the game ends.
func (s *PlayService) RunBots(ctx context.Context, gameID string) error {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, true)
	if errors.Is(err, ErrGameNotActive) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.playBots(ctx, sess, func(gs *campaign.GameState) bool {
		return isBotFaction(sess.game, gs.Current)
	})
}

// HandleTimeout plays out the turn of a faction whose turn timer expired
// with the bot strategy, then lets bot seats move as usual.
func (s *PlayService) HandleTimeout(ctx context.Context, gameID string) error {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, true)
	if errors.Is(err, ErrGameNotActive) || errors.Is(err, ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if ttl, err := s.cache.TimerTTL(ctx, gameID); err == nil && ttl > 0 {
		log.Debug().Str("gameId", gameID).Dur("ttl", ttl).Msg("Turn timer still running, skipping")
		return nil
	}

	gs := sess.engine.State()
	timedOut := gs.Current
	log.Info().Str("gameId", gameID).Str("faction", string(timedOut)).Int("turn", gs.Turn).Msg("Turn timed out, playing it out")
	err = s.playBots(ctx, sess, func(gs *campaign.GameState) bool { return gs.Current == timedOut })
	if err != nil {
		return fmt.Errorf("play timed-out turn: %w", err)
	}
	return s.playBots(ctx, sess, func(gs *campaign.GameState) bool {
		return isBotFaction(sess.game, gs.Current)
	})
}

// playBots submits actions chosen by the bot strategy while more reports
// true. Callers hold the game lock.
func (s *PlayService) playBots(ctx context.Context, sess *session, more func(*campaign.GameState) bool) error {
	humans := hasHumans(sess.game)
	for n := 0; ; n++ {
		gs := sess.engine.State()
		if gs.Winner != "" || sess.game.Status != model.StatusActive || !more(gs) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !humans && gs.Turn > s.botTurnCap {
			s.finish(ctx, sess, "")
			return nil
		}
		if n >= maxBotActions {
			return bot.ErrActionLimit
		}
		legal := sess.engine.LegalActions()
		if len(legal) == 0 {
			return fmt.Errorf("no legal actions for %s in %s", gs.Current, gs.Phase)
		}
		a := s.strategy.ChooseAction(gs, s.graph, legal)
		if _, err := s.apply(ctx, sess, a); err != nil {
			return fmt.Errorf("bot action %q: %w", campaign.FormatAction(a), err)
		}
	}
}

// RecoverActiveGames restores cached state and timers for games in
// progress after a restart, and resumes bot play where a bot is on move.
func (s *PlayService) RecoverActiveGames(ctx context.Context) error {
	games, err := s.gameRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active games: %w", err)
	}
	if len(games) == 0 {
		log.Info().Msg("No active games to recover")
		return nil
	}
	log.Info().Int("count", len(games)).Msg("Recovering active games after restart")

	for _, game := range games {
		bots, err := s.recover(ctx, game.ID)
		if err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to recover game")
			continue
		}
		if bots {
			s.kickBots(game.ID)
		}
	}
	return nil
}

func (s *PlayService) recover(ctx context.Context, gameID string) (bool, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.open(ctx, gameID, true)
	if err != nil {
		return false, err
	}
	ttl, err := s.cache.TimerTTL(ctx, gameID)
	if err != nil {
		return false, err
	}
	if ttl == 0 {
		s.resetTimer(ctx, sess)
	}
	gs := sess.engine.State()
	log.Info().Str("gameId", gameID).Int("turn", gs.Turn).Str("faction", string(gs.Current)).
		Str("phase", string(gs.Phase)).Msg("Recovered game state")
	return s.botsToMove(sess), nil
}
