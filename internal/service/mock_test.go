package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

type mockGameRepo struct {
	mu        sync.Mutex
	games     map[string]*model.Game
	players   map[string][]model.GamePlayer
	base      map[string]json.RawMessage
	deadlines map[string]time.Time
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{
		games:     make(map[string]*model.Game),
		players:   make(map[string][]model.GamePlayer),
		base:      make(map[string]json.RawMessage),
		deadlines: make(map[string]time.Time),
	}
}

func (m *mockGameRepo) Create(_ context.Context, name, creatorID string, seed uint64, turnTimeout time.Duration) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Game{
		ID:          fmt.Sprintf("game-%d", len(m.games)+1),
		Name:        name,
		CreatorID:   creatorID,
		Status:      model.StatusWaiting,
		Seed:        seed,
		TurnTimeout: turnTimeout,
		CreatedAt:   time.Now(),
	}
	m.games[g.ID] = g
	return g, nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
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

func (m *mockGameRepo) list(keep func(*model.Game) bool) []model.Game {
	var result []model.Game
	for _, g := range m.games {
		if keep(g) {
			cp := *g
			cp.Players = slices.Clone(m.players[g.ID])
			result = append(result, cp)
		}
	}
	slices.SortFunc(result, func(a, b model.Game) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

func (m *mockGameRepo) ListOpen(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(g *model.Game) bool { return g.Status == model.StatusWaiting }), nil
}

func (m *mockGameRepo) ListByUser(_ context.Context, userID string) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(g *model.Game) bool {
		if g.CreatorID == userID {
			return true
		}
		for _, p := range m.players[g.ID] {
			if p.UserID == userID {
				return true
			}
		}
		return false
	}), nil
}

func (m *mockGameRepo) ListActive(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(g *model.Game) bool { return g.Status == model.StatusActive }), nil
}

func (m *mockGameRepo) join(gameID, userID string, factions []string, bot bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return fmt.Errorf("no game %s", gameID)
	}
	seats := m.players[gameID]
	for i, p := range seats {
		if p.UserID == userID {
			seats[i].Factions = slices.Clone(factions)
			return nil
		}
	}
	m.players[gameID] = append(seats, model.GamePlayer{
		GameID:   gameID,
		UserID:   userID,
		Factions: slices.Clone(factions),
		IsBot:    bot,
		JoinedAt: time.Now(),
	})
	return nil
}

func (m *mockGameRepo) JoinGame(_ context.Context, gameID, userID string, factions []string) error {
	return m.join(gameID, userID, factions, false)
}

func (m *mockGameRepo) JoinGameAsBot(_ context.Context, gameID, userID string, factions []string) error {
	return m.join(gameID, userID, factions, true)
}

func (m *mockGameRepo) SetBaseState(_ context.Context, gameID string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base[gameID] = state
	return nil
}

func (m *mockGameRepo) BaseState(_ context.Context, gameID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base[gameID], nil
}

func (m *mockGameRepo) SetStarted(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		now := time.Now()
		g.Status = model.StatusActive
		g.StartedAt = &now
	}
	return nil
}

func (m *mockGameRepo) SetFinished(_ context.Context, gameID, winner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		now := time.Now()
		g.Status = model.StatusFinished
		g.Winner = winner
		g.FinishedAt = &now
	}
	delete(m.deadlines, gameID)
	return nil
}

func (m *mockGameRepo) SetDeadline(_ context.Context, gameID string, deadline *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deadline == nil {
		delete(m.deadlines, gameID)
		return nil
	}
	m.deadlines[gameID] = *deadline
	return nil
}

func (m *mockGameRepo) ListExpired(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	return m.list(func(g *model.Game) bool {
		d, ok := m.deadlines[g.ID]
		return ok && g.Status == model.StatusActive && !d.After(now)
	}), nil
}

func (m *mockGameRepo) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	delete(m.players, gameID)
	delete(m.base, gameID)
	delete(m.deadlines, gameID)
	return nil
}

// mockUserRepo implements repository.UserRepository for testing.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUserRepo) FindByProviderID(_ context.Context, provider, providerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			u.DisplayName = displayName
			return u, nil
		}
	}
	m.seq++
	u := &model.User{
		ID:          fmt.Sprintf("%s-user-%d", provider, m.seq),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) UpdateDisplayName(_ context.Context, id, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.DisplayName = displayName
	}
	return nil
}

// mockActionRepo enforces the (game, seq) uniqueness of the real log.
type mockActionRepo struct {
	mu      sync.Mutex
	actions map[string][]model.GameAction
	failErr error
}

func newMockActionRepo() *mockActionRepo {
	return &mockActionRepo{actions: make(map[string][]model.GameAction)}
}

func (m *mockActionRepo) Append(_ context.Context, gameID string, seq int, notation string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if seq != len(m.actions[gameID]) {
		return fmt.Errorf("duplicate or out of order seq %d for %s", seq, gameID)
	}
	m.actions[gameID] = append(m.actions[gameID], model.GameAction{
		GameID:    gameID,
		Seq:       seq,
		Notation:  notation,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockActionRepo) List(_ context.Context, gameID string) ([]model.GameAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.actions[gameID]), nil
}

func (m *mockActionRepo) notations(gameID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.actions[gameID] {
		out = append(out, a.Notation)
	}
	return out
}

type mockSaveRepo struct {
	mu    sync.Mutex
	saves map[string]*model.GameSave
	seq   int
}

func newMockSaveRepo() *mockSaveRepo {
	return &mockSaveRepo{saves: make(map[string]*model.GameSave)}
}

func (m *mockSaveRepo) Create(_ context.Context, gameID, name, summary string, actionCount int, payload json.RawMessage) (*model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := &model.GameSave{
		ID:          fmt.Sprintf("save-%d", m.seq),
		GameID:      gameID,
		Name:        name,
		Summary:     summary,
		ActionCount: actionCount,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	m.saves[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *mockSaveRepo) FindByID(_ context.Context, id string) (*model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saves[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSaveRepo) ListByGame(_ context.Context, gameID string) ([]model.GameSave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GameSave
	for _, s := range m.saves {
		if s.GameID == gameID {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b model.GameSave) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (m *mockSaveRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, id)
	return nil
}

// mockCache implements repository.GameCache for testing.
type mockCache struct {
	mu          sync.Mutex
	states      map[string]json.RawMessage
	timers      map[string]time.Time
	setStateErr error
}

func newMockCache() *mockCache {
	return &mockCache{
		states: make(map[string]json.RawMessage),
		timers: make(map[string]time.Time),
	}
}

func (c *mockCache) SetState(_ context.Context, gameID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setStateErr != nil {
		return c.setStateErr
	}
	c.states[gameID] = state
	return nil
}

func (c *mockCache) GetState(_ context.Context, gameID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[gameID], nil
}

func (c *mockCache) SetTimer(_ context.Context, gameID string, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[gameID] = deadline
	return nil
}

func (c *mockCache) ClearTimer(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, gameID)
	return nil
}

func (c *mockCache) TimerTTL(_ context.Context, gameID string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.timers[gameID]
	if !ok {
		return 0, nil
	}
	if ttl := time.Until(d); ttl > 0 {
		return ttl, nil
	}
	return 0, nil
}

func (c *mockCache) DeleteGame(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	delete(c.timers, gameID)
	return nil
}

func (c *mockCache) hasTimer(gameID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[gameID]
	return ok
}

type recordedEvent struct {
	GameID string
	Type   string
	Data   any
}

// recordingBroadcaster keeps every event it is asked to send.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{GameID: gameID, Type: eventType, Data: data})
}

func (b *recordingBroadcaster) count(gameID, eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.GameID == gameID && e.Type == eventType {
			n++
		}
	}
	return n
}
