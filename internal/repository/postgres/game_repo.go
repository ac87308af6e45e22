package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

const gameColumns = `g.id, g.name, g.creator_id, g.status, g.seed, g.turn_timeout, g.winner,
	g.created_at, g.started_at, g.finished_at`

// GameRepo handles game and game_player database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*model.Game, error) {
	var g model.Game
	var seed, timeout int64
	var winner sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.CreatorID, &g.Status, &seed, &timeout, &winner,
		&g.CreatedAt, &g.StartedAt, &g.FinishedAt); err != nil {
		return nil, err
	}
	g.Seed = uint64(seed)
	g.TurnTimeout = time.Duration(timeout)
	g.Winner = winner.String
	return &g, nil
}

func (r *GameRepo) queryGames(ctx context.Context, what, query string, args ...any) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// Create inserts a new game in the waiting state. Seeds are stored as
// their two's complement bit pattern.
func (r *GameRepo) Create(ctx context.Context, name, creatorID string, seed uint64, turnTimeout time.Duration) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`INSERT INTO games AS g (name, creator_id, seed, turn_timeout)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+gameColumns,
		name, creatorID, int64(seed), int64(turnTimeout),
	))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

// FindByID returns a game by ID with its players.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games g WHERE g.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Players = players
	return g, nil
}

// ListOpen returns games in "waiting" status.
func (r *GameRepo) ListOpen(ctx context.Context) ([]model.Game, error) {
	return r.queryGames(ctx, "list open games",
		`SELECT `+gameColumns+` FROM games g WHERE g.status = 'waiting' ORDER BY g.created_at DESC LIMIT 50`)
}

// ListByUser returns all games a user is part of (as player or creator).
func (r *GameRepo) ListByUser(ctx context.Context, userID string) ([]model.Game, error) {
	return r.queryGames(ctx, "list user games",
		`SELECT DISTINCT `+gameColumns+`
		 FROM games g LEFT JOIN game_players gp ON g.id = gp.game_id AND gp.user_id = $1
		 WHERE gp.user_id = $1 OR g.creator_id = $1
		 ORDER BY g.created_at DESC LIMIT 50`, userID)
}

// ListActive returns all games in progress.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	return r.queryGames(ctx, "list active games",
		`SELECT `+gameColumns+` FROM games g WHERE g.status = 'active' ORDER BY g.started_at`)
}

// ListExpired returns active games whose turn deadline has passed.
func (r *GameRepo) ListExpired(ctx context.Context) ([]model.Game, error) {
	return r.queryGames(ctx, "list expired games",
		`SELECT `+gameColumns+` FROM games g
		 WHERE g.status = 'active' AND g.turn_deadline IS NOT NULL AND g.turn_deadline < now()`)
}

// JoinGame seats a human player with the given factions. Joining again
// replaces the player's factions.
func (r *GameRepo) JoinGame(ctx context.Context, gameID, userID string, factions []string) error {
	return r.join(ctx, gameID, userID, factions, false)
}

// JoinGameAsBot seats a bot with the given factions.
func (r *GameRepo) JoinGameAsBot(ctx context.Context, gameID, userID string, factions []string) error {
	return r.join(ctx, gameID, userID, factions, true)
}

func (r *GameRepo) join(ctx context.Context, gameID, userID string, factions []string, bot bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_players (game_id, user_id, factions, is_bot) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (game_id, user_id) DO UPDATE SET factions = EXCLUDED.factions`,
		gameID, userID, pq.Array(factions), bot,
	)
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	return nil
}

// ListPlayers returns all players in a game.
func (r *GameRepo) ListPlayers(ctx context.Context, gameID string) ([]model.GamePlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, user_id, factions, is_bot, joined_at FROM game_players WHERE game_id = $1 ORDER BY joined_at`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.GamePlayer
	for rows.Next() {
		var p model.GamePlayer
		if err := rows.Scan(&p.GameID, &p.UserID, pq.Array(&p.Factions), &p.IsBot, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// SetBaseState records the position a game started from when it did not
// start from the scenario setup.
func (r *GameRepo) SetBaseState(ctx context.Context, gameID string, state json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `UPDATE games SET base_state = $1 WHERE id = $2`, []byte(state), gameID)
	if err != nil {
		return fmt.Errorf("set base state: %w", err)
	}
	return nil
}

// BaseState returns the recorded starting position, or nil.
func (r *GameRepo) BaseState(ctx context.Context, gameID string) (json.RawMessage, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT base_state FROM games WHERE id = $1`, gameID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get base state: %w", err)
	}
	return data, nil
}

// SetStarted marks a game active.
func (r *GameRepo) SetStarted(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'active', started_at = now() WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("set started: %w", err)
	}
	return nil
}

// SetFinished marks a game finished with the winning team.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'finished', winner = $1, finished_at = now(), turn_deadline = NULL WHERE id = $2`,
		winner, gameID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// SetDeadline stores or clears the current turn deadline.
func (r *GameRepo) SetDeadline(ctx context.Context, gameID string, deadline *time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE games SET turn_deadline = $1 WHERE id = $2`, deadline, gameID)
	if err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	return nil
}

// Delete removes a game; players, actions and saves cascade.
func (r *GameRepo) Delete(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}
