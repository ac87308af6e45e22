package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

// memStore is an in-memory stand-in for Postgres and Redis. It implements
// every repository interface the services use.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	games   map[string]*model.Game
	players map[string][]model.GamePlayer
	base    map[string]json.RawMessage
	actions map[string][]model.GameAction
	saves   map[string]*model.GameSave
	states  map[string]json.RawMessage
	timers  map[string]time.Time
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*model.User),
		games:   make(map[string]*model.Game),
		players: make(map[string][]model.GamePlayer),
		base:    make(map[string]json.RawMessage),
		actions: make(map[string][]model.GameAction),
		saves:   make(map[string]*model.GameSave),
		states:  make(map[string]json.RawMessage),
		timers:  make(map[string]time.Time),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// memUsers implements repository.UserRepository.
type memUsers struct{ *memStore }

func (m memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByProviderID(_ context.Context, provider, providerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memUsers) Upsert(_ context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			u.DisplayName = displayName
			cp := *u
			return &cp, nil
		}
	}
	u := &model.User{
		ID:          m.nextID("user"),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m memUsers) UpdateDisplayName(_ context.Context, id, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.DisplayName = displayName
	return nil
}

// memGames implements repository.GameRepository.
type memGames struct{ *memStore }

func (m memGames) Create(_ context.Context, name, creatorID string, seed uint64, turnTimeout time.Duration) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Game{
		ID:          m.nextID("game"),
		Name:        name,
		CreatorID:   creatorID,
		Status:      model.StatusWaiting,
		Seed:        seed,
		TurnTimeout: turnTimeout,
		CreatedAt:   time.Now(),
	}
	m.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m memGames) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Players = slices.Clone(m.players[id])
	return &cp, nil
}

func (m memGames) filter(keep func(*model.Game) bool) []model.Game {
	var out []model.Game
	for _, g := range m.games {
		if keep(g) {
			cp := *g
			cp.Players = slices.Clone(m.players[g.ID])
			out = append(out, cp)
		}
	}
	return out
}

func (m memGames) ListOpen(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(g *model.Game) bool { return g.Status == model.StatusWaiting }), nil
}

func (m memGames) ListByUser(_ context.Context, userID string) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(g *model.Game) bool {
		if g.CreatorID == userID {
			return true
		}
		return slices.ContainsFunc(m.players[g.ID], func(p model.GamePlayer) bool { return p.UserID == userID })
	}), nil
}

func (m memGames) ListActive(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(g *model.Game) bool { return g.Status == model.StatusActive }), nil
}

func (m memGames) seat(gameID, userID string, factions []string, bot bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats := m.players[gameID]
	for i, p := range seats {
		if p.UserID == userID {
			seats[i].Factions = slices.Clone(factions)
			return nil
		}
	}
	m.players[gameID] = append(seats, model.GamePlayer{GameID: gameID, UserID: userID, Factions: slices.Clone(factions), IsBot: bot, JoinedAt: time.Now()})
	return nil
}

func (m memGames) JoinGame(_ context.Context, gameID, userID string, factions []string) error {
	return m.seat(gameID, userID, factions, false)
}

func (m memGames) JoinGameAsBot(_ context.Context, gameID, userID string, factions []string) error {
	return m.seat(gameID, userID, factions, true)
}

func (m memGames) SetBaseState(_ context.Context, gameID string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base[gameID] = state
	return nil
}

func (m memGames) BaseState(_ context.Context, gameID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base[gameID], nil
}

func (m memGames) setStatus(gameID, status, winner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		now := time.Now()
		g.Status = status
		g.Winner = winner
		if status == model.StatusActive {
			g.StartedAt = &now
		} else {
			g.FinishedAt = &now
		}
	}
}

func (m memGames) SetStarted(_ context.Context, gameID string) error {
	m.setStatus(gameID, model.StatusActive, "")
	return nil
}

func (m memGames) SetFinished(_ context.Context, gameID, winner string) error {
	m.setStatus(gameID, model.StatusFinished, winner)
	return nil
}

func (m memGames) SetDeadline(_ context.Context, _ string, _ *time.Time) error { return nil }

func (m memGames) ListExpired(_ context.Context) ([]model.Game, error) { return nil, nil }

func (m memGames) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	delete(m.players, gameID)
	return nil
}

// memActions implements repository.ActionRepository.
type memActions struct{ *memStore }

func (m memActions) Append(_ context.Context, gameID string, seq int, notation string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != len(m.actions[gameID]) {
		return fmt.Errorf("seq %d out of order", seq)
	}
	m.actions[gameID] = append(m.actions[gameID], model.GameAction{GameID: gameID, Seq: seq, Notation: notation, Payload: payload, CreatedAt: time.Now()})
	return nil
}

func (m memActions) List(_ context.Context, gameID string) ([]model.GameAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.actions[gameID]), nil
}

// memSaves implements repository.SaveRepository.
type memSaves struct{ *memStore }

func (m memSaves) Create(_ context.Context, gameID, name, summary string, actionCount int, payload json.RawMessage) (*model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.GameSave{ID: m.nextID("save"), GameID: gameID, Name: name, Summary: summary, ActionCount: actionCount, Payload: payload, CreatedAt: time.Now()}
	m.saves[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m memSaves) FindByID(_ context.Context, id string) (*model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saves[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m memSaves) ListByGame(_ context.Context, gameID string) ([]model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GameSave
	for _, s := range m.saves {
		if s.GameID == gameID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m memSaves) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, id)
	return nil
}

// memCache implements repository.GameCache.
type memCache struct{ *memStore }

func (m memCache) SetState(_ context.Context, gameID string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[gameID] = state
	return nil
}

func (m memCache) GetState(_ context.Context, gameID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[gameID], nil
}

func (m memCache) SetTimer(_ context.Context, gameID string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[gameID] = deadline
	return nil
}

func (m memCache) ClearTimer(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, gameID)
	return nil
}

func (m memCache) TimerTTL(_ context.Context, gameID string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.timers[gameID]
	if !ok {
		return 0, nil
	}
	return max(time.Until(d), 0), nil
}

func (m memCache) DeleteGame(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, gameID)
	delete(m.timers, gameID)
	return nil
}
