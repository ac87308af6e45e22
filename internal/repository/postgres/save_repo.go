package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/freeeve/iron-alliance/api/internal/model"
)

// SaveRepo handles named game snapshots.
type SaveRepo struct {
	db *sql.DB
}

// NewSaveRepo creates a SaveRepo.
func NewSaveRepo(db *sql.DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// Create stores a snapshot under a fresh id.
func (r *SaveRepo) Create(ctx context.Context, gameID, name, summary string, actionCount int, payload json.RawMessage) (*model.GameSave, error) {
	s := model.GameSave{ID: uuid.NewString(), GameID: gameID, Name: name, Summary: summary, ActionCount: actionCount}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO game_saves (id, game_id, name, summary, action_count, payload)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		s.ID, gameID, name, summary, actionCount, []byte(payload),
	).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create save: %w", err)
	}
	return &s, nil
}

// FindByID returns a save with its payload.
func (r *SaveRepo) FindByID(ctx context.Context, id string) (*model.GameSave, error) {
	var s model.GameSave
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, game_id, name, summary, action_count, payload, created_at FROM game_saves WHERE id = $1`, id,
	).Scan(&s.ID, &s.GameID, &s.Name, &s.Summary, &s.ActionCount, &payload, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find save: %w", err)
	}
	s.Payload = payload
	return &s, nil
}

// ListByGame returns a game's saves, oldest first, without payloads.
func (r *SaveRepo) ListByGame(ctx context.Context, gameID string) ([]model.GameSave, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, name, summary, action_count, created_at FROM game_saves
		 WHERE game_id = $1 ORDER BY created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var saves []model.GameSave
	for rows.Next() {
		var s model.GameSave
		if err := rows.Scan(&s.ID, &s.GameID, &s.Name, &s.Summary, &s.ActionCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, s)
	}
	return saves, rows.Err()
}

// Delete removes a save.
func (r *SaveRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM game_saves WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}
