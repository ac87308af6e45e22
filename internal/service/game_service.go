package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/internal/repository"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrGameNotWaiting = errors.New("game is not in waiting status")
	ErrGameNotActive  = errors.New("game is not active")
	ErrNotCreator     = errors.New("only the creator can do this")
	ErrNotPlayer      = errors.New("you are not in this game")
	ErrNotYourFaction = errors.New("you do not control that faction")
	ErrFactionTaken   = errors.New("faction already claimed by another player")
	ErrInvalidFaction = errors.New("invalid faction")
	ErrNoFactions     = errors.New("choose at least one faction")
	ErrInvalidTimeout = errors.New("turn timeout must be at least one minute")
	ErrSaveNotFound   = errors.New("save not found")
)

// botProvider and botProviderID identify the shared bot user that takes
// every unclaimed faction.
const (
	botProvider   = "bot"
	botProviderID = "easy"
	botName       = "Easy Bot"
)

// GameService handles game lifecycle operations.
type GameService struct {
	gameRepo       repository.GameRepository
	userRepo       repository.UserRepository
	play           *PlayService
	defaultTimeout time.Duration
}

// NewGameService creates a GameService. Games created without a turn
// timeout use defaultTimeout.
func NewGameService(gameRepo repository.GameRepository, userRepo repository.UserRepository, play *PlayService, defaultTimeout time.Duration) *GameService {
	return &GameService{gameRepo: gameRepo, userRepo: userRepo, play: play, defaultTimeout: defaultTimeout}
}

// CreateGame creates a new game in "waiting" status with a fresh dice
// seed. The creator still has to join to claim factions.
func (s *GameService) CreateGame(ctx context.Context, name, creatorID string, turnTimeout time.Duration) (*model.Game, error) {
	if turnTimeout == 0 {
		turnTimeout = s.defaultTimeout
	}
	if turnTimeout < 0 || (turnTimeout > 0 && turnTimeout < time.Minute) {
		return nil, ErrInvalidTimeout
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled campaign"
	}
	game, err := s.gameRepo.Create(ctx, name, creatorID, rand.Uint64(), turnTimeout)
	if err != nil {
		return nil, err
	}
	log.Info().Str("gameId", game.ID).Str("creator", creatorID).Msg("Game created")
	return s.gameRepo.FindByID(ctx, game.ID)
}

// JoinGame claims factions in a waiting game. Joining again replaces the
// user's previous claim.
func (s *GameService) JoinGame(ctx context.Context, gameID, userID string, factions []string) error {
	if len(factions) == 0 {
		return ErrNoFactions
	}
	for _, f := range factions {
		if !campaign.Faction(f).Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidFaction, f)
		}
	}
	game, err := s.waitingGame(ctx, gameID)
	if err != nil {
		return err
	}
	for _, p := range game.Players {
		if p.UserID == userID {
			continue
		}
		for _, f := range factions {
			if p.Controls(f) {
				return fmt.Errorf("%w: %s", ErrFactionTaken, f)
			}
		}
	}
	return s.gameRepo.JoinGame(ctx, gameID, userID, dedupe(factions))
}

// StartGame gives every unclaimed faction to the bot, creates the opening
// position from the game seed and starts the first turn.
func (s *GameService) StartGame(ctx context.Context, gameID, userID string) (*model.Game, error) {
	game, err := s.waitingGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.CreatorID != userID {
		return nil, ErrNotCreator
	}

	claimed := make(map[string]bool)
	for _, p := range game.Players {
		for _, f := range p.Factions {
			claimed[f] = true
		}
	}
	var open []string
	for _, f := range campaign.AllFactions() {
		if !claimed[string(f)] {
			open = append(open, string(f))
		}
	}
	if len(open) > 0 {
		botUser, err := s.userRepo.Upsert(ctx, botProvider, botProviderID, botName, "")
		if err != nil {
			return nil, fmt.Errorf("create bot user: %w", err)
		}
		if err := s.gameRepo.JoinGameAsBot(ctx, gameID, botUser.ID, open); err != nil {
			return nil, fmt.Errorf("seat bot: %w", err)
		}
	}

	if err := s.gameRepo.SetStarted(ctx, gameID); err != nil {
		return nil, err
	}
	started, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := s.play.InitializeGame(ctx, started, nil); err != nil {
		return nil, err
	}
	log.Info().Str("gameId", gameID).Strs("botFactions", open).Msg("Game started")
	return started, nil
}

// GetGame returns a game by ID.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// ListGames returns open games, or the user's games when filter is "my".
func (s *GameService) ListGames(ctx context.Context, userID, filter string) ([]model.Game, error) {
	if filter == "my" {
		return s.gameRepo.ListByUser(ctx, userID)
	}
	return s.gameRepo.ListOpen(ctx)
}

// DeleteGame removes a game that is not in progress. Only the game creator
// can delete a game.
func (s *GameService) DeleteGame(ctx context.Context, gameID, userID string) error {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.CreatorID != userID {
		return ErrNotCreator
	}
	if game.Status == model.StatusActive {
		return fmt.Errorf("%w: active games cannot be deleted", ErrGameNotWaiting)
	}
	if err := s.gameRepo.Delete(ctx, gameID); err != nil {
		return err
	}
	s.play.forget(ctx, gameID)
	return nil
}

func (s *GameService) waitingGame(ctx context.Context, gameID string) (*model.Game, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.StatusWaiting {
		return nil, ErrGameNotWaiting
	}
	return game, nil
}

func dedupe(xs []string) []string {
	out := slices.Clone(xs)
	slices.Sort(out)
	return slices.Compact(out)
}
