package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

// Lookups return (nil, nil) when the row does not exist.

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameRepository defines game and seat data operations.
type GameRepository interface {
	Create(ctx context.Context, name, creatorID string, seed uint64, turnTimeout time.Duration) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListOpen(ctx context.Context) ([]model.Game, error)
	ListByUser(ctx context.Context, userID string) ([]model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	JoinGame(ctx context.Context, gameID, userID string, factions []string) error
	JoinGameAsBot(ctx context.Context, gameID, userID string, factions []string) error
	SetBaseState(ctx context.Context, gameID string, state json.RawMessage) error
	BaseState(ctx context.Context, gameID string) (json.RawMessage, error)
	SetStarted(ctx context.Context, gameID string) error
	SetFinished(ctx context.Context, gameID, winner string) error
	SetDeadline(ctx context.Context, gameID string, deadline *time.Time) error
	ListExpired(ctx context.Context) ([]model.Game, error)
	Delete(ctx context.Context, gameID string) error
}

// ActionRepository stores each game's submitted actions in order.
type ActionRepository interface {
	Append(ctx context.Context, gameID string, seq int, notation string, payload json.RawMessage) error
	List(ctx context.Context, gameID string) ([]model.GameAction, error)
}

// SaveRepository defines named snapshot operations.
type SaveRepository interface {
	Create(ctx context.Context, gameID, name, summary string, actionCount int, payload json.RawMessage) (*model.GameSave, error)
	FindByID(ctx context.Context, id string) (*model.GameSave, error)
	ListByGame(ctx context.Context, gameID string) ([]model.GameSave, error)
	Delete(ctx context.Context, id string) error
}

// GameCache defines live game state operations (Redis).
type GameCache interface {
	SetState(ctx context.Context, gameID string, state json.RawMessage) error
	GetState(ctx context.Context, gameID string) (json.RawMessage, error)
	SetTimer(ctx context.Context, gameID string, deadline time.Time) error
	ClearTimer(ctx context.Context, gameID string) error
	TimerTTL(ctx context.Context, gameID string) (time.Duration, error)
	DeleteGame(ctx context.Context, gameID string) error
}
