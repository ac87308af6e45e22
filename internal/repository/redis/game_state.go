package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis game state.
func stateKey(gameID string) string { return "game:" + gameID + ":state" }
func timerKey(gameID string) string { return "game:" + gameID + ":timer" }

// TimerGameID extracts the game id from an expired timer key. The second
// result is false for other keys.
func TimerGameID(key string) (string, bool) {
	const prefix, suffix = "game:", ":timer"
	if len(key) <= len(prefix)+len(suffix) || key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[len(prefix) : len(key)-len(suffix)], true
}

// SetState stores the live game state JSON.
func (c *Client) SetState(ctx context.Context, gameID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(gameID), []byte(state), 0).Err()
}

// GetState retrieves the live game state JSON, or nil when it is not
// cached.
func (c *Client) GetState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return json.RawMessage(data), nil
}

// turnGracePeriod is added to the key TTL so the key expires slightly
// after the deadline shown to players.
const turnGracePeriod = 5 * time.Second

// SetTimer creates a timer key with a TTL. Its expiry is delivered through
// keyspace notifications.
func (c *Client) SetTimer(ctx context.Context, gameID string, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(gameID), deadline.Unix(), ttl).Err()
}

// ClearTimer removes the timer for a game.
func (c *Client) ClearTimer(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, timerKey(gameID)).Err()
}

// TimerTTL returns how long the game's timer has left, or 0 when none is
// set.
func (c *Client) TimerTTL(ctx context.Context, gameID string) (time.Duration, error) {
	ttl, err := c.rdb.TTL(ctx, timerKey(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("timer ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// DeleteGame removes all Redis data for a game.
func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), timerKey(gameID)).Err()
}
