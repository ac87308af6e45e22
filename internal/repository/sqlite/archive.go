// Package sqlite archives selfplay games in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/freeeve/iron-alliance/api/internal/repository/sqlite/migrations"
)

// ArchivedGame is one finished selfplay game.
type ArchivedGame struct {
	ID         string
	Seed       uint64
	Strategy   string
	Winner     string
	Turns      int
	Actions    []string // notation, in submission order
	FinalState []byte
	CreatedAt  time.Time
}

// Archive persists selfplay games.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) an archive file and applies migrations.
// The path ":memory:" opens a private in-memory archive.
func Open(path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Archive{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		var found int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		up := string(content)
		if i := strings.Index(up, "-- +migrate Down"); i >= 0 {
			up = up[:i]
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Record stores a game and its actions in one transaction.
func (a *Archive) Record(ctx context.Context, g ArchivedGame) error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if g.FinalState == nil {
		g.FinalState = []byte("null")
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (id, seed, strategy, winner, turns, actions, final_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, int64(g.Seed), g.Strategy, g.Winner, g.Turns, len(g.Actions), g.FinalState, g.CreatedAt.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO actions (game_id, seq, notation) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare actions: %w", err)
	}
	defer stmt.Close()
	for i, n := range g.Actions {
		if _, err := stmt.ExecContext(ctx, g.ID, i, n); err != nil {
			return fmt.Errorf("insert action %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Get loads a game with its actions. It returns (nil, nil) for an unknown
// id.
func (a *Archive) Get(ctx context.Context, id string) (*ArchivedGame, error) {
	g := ArchivedGame{ID: id}
	var seed, created int64
	err := a.db.QueryRowContext(ctx,
		`SELECT seed, strategy, winner, turns, final_state, created_at FROM games WHERE id = ?`, id,
	).Scan(&seed, &g.Strategy, &g.Winner, &g.Turns, &g.FinalState, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	g.Seed = uint64(seed)
	g.CreatedAt = time.UnixMilli(created).UTC()

	rows, err := a.db.QueryContext(ctx, `SELECT notation FROM actions WHERE game_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list actions %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		g.Actions = append(g.Actions, n)
	}
	return &g, rows.Err()
}

// IDs lists archived game ids, oldest first.
func (a *Archive) IDs(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id FROM games ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WinCounts tallies archived games by winner; unfinished games count
// under "".
func (a *Archive) WinCounts(ctx context.Context) (map[string]int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT winner, COUNT(*) FROM games GROUP BY winner`)
	if err != nil {
		return nil, fmt.Errorf("count winners: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var w string
		var n int
		if err := rows.Scan(&w, &n); err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		out[w] = n
	}
	return out, rows.Err()
}
