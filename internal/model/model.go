package model

import (
	"encoding/json"
	"time"
)

// Game statuses.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Game is a campaign lobby entry and its outcome.
type Game struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CreatorID   string        `json:"creator_id"`
	Status      string        `json:"status"` // waiting, active, finished
	Seed        uint64        `json:"seed"`
	TurnTimeout time.Duration `json:"turn_timeout"`
	Winner      string        `json:"winner,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	Players     []GamePlayer  `json:"players,omitempty"`
}

// GamePlayer is a seat in a game. One user may hold several factions.
type GamePlayer struct {
	GameID   string    `json:"game_id"`
	UserID   string    `json:"user_id"`
	Factions []string  `json:"factions"`
	IsBot    bool      `json:"is_bot"`
	JoinedAt time.Time `json:"joined_at"`
}

// Controls reports whether the seat plays faction f.
func (p GamePlayer) Controls(f string) bool {
	for _, x := range p.Factions {
		if x == f {
			return true
		}
	}
	return false
}

// GameAction is one entry of a game's append-only action log.
type GameAction struct {
	GameID    string          `json:"game_id"`
	Seq       int             `json:"seq"`
	Notation  string          `json:"notation"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// GameSave is a named snapshot of a game.
type GameSave struct {
	ID          string          `json:"id"`
	GameID      string          `json:"game_id"`
	Name        string          `json:"name"`
	Summary     string          `json:"summary"`
	ActionCount int             `json:"action_count"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
