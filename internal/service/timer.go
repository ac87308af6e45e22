package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/repository"
	cache "github.com/freeeve/iron-alliance/api/internal/repository/redis"
)

// pollInterval is how often the poller looks for turns past their deadline.
const pollInterval = 10 * time.Second

// ExpiredSubscriber delivers Redis expired-key events.
type ExpiredSubscriber interface {
	SubscribeExpired(ctx context.Context) *redis.PubSub
}

// TimerListener listens for Redis keyspace notifications on expired turn
// timer keys and plays out the timed-out turn. A poller over the stored
// deadlines catches expirations when notifications are unavailable.
type TimerListener struct {
	sub      ExpiredSubscriber
	play     *PlayService
	gameRepo repository.GameRepository
}

// NewTimerListener creates a TimerListener. A nil sub runs the poller only.
func NewTimerListener(sub ExpiredSubscriber, play *PlayService, gameRepo repository.GameRepository) *TimerListener {
	return &TimerListener{sub: sub, play: play, gameRepo: gameRepo}
}

// Start begins listening for expired key events and runs the poller until
// ctx is done.
func (t *TimerListener) Start(ctx context.Context) {
	if t.sub != nil {
		go t.listenKeyspace(ctx)
	}
	t.pollExpired(ctx)
}

func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.sub.SubscribeExpired(ctx)
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

func (t *TimerListener) pollExpired(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", pollInterval).Msg("Turn deadline poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Turn deadline poller stopped")
			return
		case <-ticker.C:
			t.checkExpired(ctx)
		}
	}
}

// checkExpired plays out every active game whose turn deadline has passed.
func (t *TimerListener) checkExpired(ctx context.Context) {
	games, err := t.gameRepo.ListExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired turns")
		return
	}
	if len(games) > 0 {
		log.Info().Int("count", len(games)).Msg("Poller found expired turns")
	}
	for _, g := range games {
		if err := t.play.HandleTimeout(ctx, g.ID); err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("Timeout handling failed from poller")
		}
	}
}

// handleExpiry acts on expired turn timer keys and ignores everything else.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	gameID, ok := cache.TimerGameID(key)
	if !ok {
		return
	}
	log.Info().Str("gameId", gameID).Msg("Turn timer expired")
	if err := t.play.HandleTimeout(ctx, gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Timeout handling failed after timer expiry")
	}
}
