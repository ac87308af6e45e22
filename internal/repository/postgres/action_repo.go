package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

// ActionRepo stores the per-game action log.
type ActionRepo struct {
	db *sql.DB
}

// NewActionRepo creates an ActionRepo.
func NewActionRepo(db *sql.DB) *ActionRepo {
	return &ActionRepo{db: db}
}

// Append writes action seq of a game. Sequence numbers start at 0 and a
// duplicate seq is an error.
func (r *ActionRepo) Append(ctx context.Context, gameID string, seq int, notation string, payload json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_actions (game_id, seq, notation, payload) VALUES ($1, $2, $3, $4)`,
		gameID, seq, notation, []byte(payload),
	)
	if err != nil {
		return fmt.Errorf("append action %d: %w", seq, err)
	}
	return nil
}

// List returns a game's actions in sequence order.
func (r *ActionRepo) List(ctx context.Context, gameID string) ([]model.GameAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, seq, notation, payload, created_at FROM game_actions WHERE game_id = $1 ORDER BY seq`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []model.GameAction
	for rows.Next() {
		var a model.GameAction
		var payload []byte
		if err := rows.Scan(&a.GameID, &a.Seq, &a.Notation, &payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Payload = payload
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
