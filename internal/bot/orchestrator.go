package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// pollInterval bounds how long a player waits for a websocket event before
// checking the game again.
const pollInterval = 5 * time.Second

// maxSubmitFailures is how many rejected submissions in a row end a
// player's loop.
const maxSubmitFailures = 5

// Player plays a set of factions in one game through a Client.
type Player struct {
	Client   *Client
	Factions []campaign.Faction
	Strategy Strategy
	Graph    campaign.Graph
}

func (p *Player) controls(f campaign.Faction) bool { return slices.Contains(p.Factions, f) }

// Play acts whenever one of the player's factions is on move and
// otherwise sleeps until a game event arrives. It returns the winning team
// once the game is over.
func (p *Player) Play(ctx context.Context, gameID string) (campaign.Team, error) {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		gs, err := p.Client.State(ctx, gameID)
		if err != nil {
			return "", fmt.Errorf("get state: %w", err)
		}
		if gs.Winner != "" {
			return gs.Winner, nil
		}
		if !p.controls(gs.Current) {
			if err := p.wait(ctx, gameID); err != nil {
				return "", err
			}
			continue
		}

		legal, err := p.Client.Legal(ctx, gameID)
		if err != nil {
			return "", fmt.Errorf("get legal actions: %w", err)
		}
		if len(legal) == 0 {
			if err := p.wait(ctx, gameID); err != nil {
				return "", err
			}
			continue
		}
		a := p.Strategy.ChooseAction(gs, p.Graph, legal)
		if err := p.Client.Submit(ctx, gameID, a); err != nil {
			// The state may have moved on underneath us, for instance when
			// the turn timer handed the faction to the server's bot.
			failures++
			log.Warn().Err(err).Str("bot", p.Client.Name()).Str("action", campaign.FormatAction(a)).Msg("Action rejected")
			if failures >= maxSubmitFailures {
				return "", fmt.Errorf("%d submissions in a row rejected: %w", failures, err)
			}
			continue
		}
		failures = 0
	}
}

// wait blocks until an event for the game arrives or pollInterval passes.
func (p *Player) wait(ctx context.Context, gameID string) error {
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-p.Client.Events():
			if !ok {
				return errors.New("ws connection closed")
			}
			if ev.GameID == gameID {
				return nil
			}
		}
	}
}

// Orchestrator runs a full game between bot users over the HTTP and
// websocket API: one bot per seat, all driven by the same strategy.
type Orchestrator struct {
	baseURL     string
	strategy    Strategy
	turnTimeout time.Duration
	seats       [][]campaign.Faction
	players     []*Player
}

// TeamSeats gives one seat to each team.
func TeamSeats() [][]campaign.Faction {
	var axis, allies []campaign.Faction
	for _, f := range campaign.AllFactions() {
		if f.Team() == campaign.Axis {
			axis = append(axis, f)
		} else {
			allies = append(allies, f)
		}
	}
	return [][]campaign.Faction{axis, allies}
}

// NewOrchestrator creates an Orchestrator. Nil seats means TeamSeats.
func NewOrchestrator(baseURL string, strategy Strategy, turnTimeout time.Duration, seats [][]campaign.Faction) *Orchestrator {
	if seats == nil {
		seats = TeamSeats()
	}
	return &Orchestrator{
		baseURL:     baseURL,
		strategy:    strategy,
		turnTimeout: turnTimeout,
		seats:       seats,
	}
}

// Run logs the bots in, creates and starts the game, and plays it to the
// end. It returns the winning team.
func (o *Orchestrator) Run(ctx context.Context) (campaign.Team, error) {
	log.Info().Str("strategy", o.strategy.Name()).Int("seats", len(o.seats)).Msg("Starting bot game")

	g := campaign.DefaultMap()
	for i, factions := range o.seats {
		c := NewClient(fmt.Sprintf("Bot%d", i+1), o.baseURL)
		if err := c.Login(ctx); err != nil {
			return "", fmt.Errorf("login %s: %w", c.Name(), err)
		}
		o.players = append(o.players, &Player{Client: c, Factions: factions, Strategy: o.strategy, Graph: g})
	}

	game, err := o.players[0].Client.CreateGame(ctx, "Bot Test Game", o.turnTimeout)
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	log.Info().Str("gameId", game.ID).Msg("Game created")

	for _, p := range o.players {
		if err := p.Client.JoinGame(ctx, game.ID, p.Factions); err != nil {
			return "", fmt.Errorf("join %s: %w", p.Client.Name(), err)
		}
		if err := p.Client.ConnectWS(ctx); err != nil {
			return "", fmt.Errorf("ws connect %s: %w", p.Client.Name(), err)
		}
		if err := p.Client.SubscribeGame(game.ID); err != nil {
			return "", fmt.Errorf("ws subscribe %s: %w", p.Client.Name(), err)
		}
	}
	defer func() {
		for _, p := range o.players {
			p.Client.CloseWS()
		}
	}()

	if err := o.players[0].Client.StartGame(ctx, game.ID); err != nil {
		return "", fmt.Errorf("start game: %w", err)
	}
	log.Info().Str("gameId", game.ID).Msg("Game started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		wg       sync.WaitGroup
		once     sync.Once
		winner   campaign.Team
		firstErr error
	)
	for _, p := range o.players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := p.Play(ctx, game.ID)
			once.Do(func() {
				winner, firstErr = w, err
				cancel()
			})
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return "", firstErr
	}
	for _, p := range o.players {
		if n := p.Client.Missed(); n > 0 {
			log.Info().Str("bot", p.Client.Name()).Int64("events", n).Msg("Bot missed game events")
		}
	}
	log.Info().Str("gameId", game.ID).Str("winner", string(winner)).Msg("Game ended")
	return winner, nil
}
