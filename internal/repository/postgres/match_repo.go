package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/galcon/internal/model"
)

// MatchRepo handles match and match_player database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a running match and its players.
func (r *MatchRepo) Create(ctx context.Context, m *model.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO matches (id, name, scenario, scenario_hash, seed, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		m.ID, m.Name, m.Scenario, m.ScenarioHash, m.Seed, m.Status,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	for _, p := range m.Players {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_players (match_id, player_id, name, profile) VALUES ($1, $2, $3, $4)`,
			m.ID, p.PlayerID, p.Name, p.Profile,
		)
		if err != nil {
			return fmt.Errorf("create match player: %w", err)
		}
	}
	return tx.Commit()
}

// Finish records the outcome of a match, the final planet counts and the
// compressed capture timeline.
func (r *MatchRepo) Finish(ctx context.Context, m *model.Match, timeline []model.MatchEvent) error {
	data, err := encodeTimeline(timeline)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE matches
		 SET status = $2, winner = $3, duration_ms = $4, ticks = $5, captures = $6, timeline = $7, finished_at = $8
		 WHERE id = $1`,
		m.ID, m.Status, m.Winner, m.DurationMs, m.Ticks, m.Captures, data, m.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish match: %s not found", m.ID)
	}

	for _, p := range m.Players {
		_, err := tx.ExecContext(ctx,
			`UPDATE match_players SET planets = $3 WHERE match_id = $1 AND player_id = $2`,
			m.ID, p.PlayerID, p.Planets,
		)
		if err != nil {
			return fmt.Errorf("update match player: %w", err)
		}
	}
	return tx.Commit()
}

// SetAborted marks an interrupted match.
func (r *MatchRepo) SetAborted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'aborted', finished_at = now() WHERE id = $1 AND status = 'running'`, id)
	if err != nil {
		return fmt.Errorf("abort match: %w", err)
	}
	return nil
}

// AbortRunning marks every match still recorded as running as aborted. It is
// used at startup, when no match can still be running.
func (r *MatchRepo) AbortRunning(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'aborted', finished_at = now() WHERE status = 'running'`)
	if err != nil {
		return 0, fmt.Errorf("abort running matches: %w", err)
	}
	return res.RowsAffected()
}

// FindByID returns a match by ID with its players.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, scenario, scenario_hash, seed, status, winner, duration_ms, ticks, captures,
		        created_at, finished_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Scenario, &m.ScenarioHash, &m.Seed, &m.Status, &m.Winner, &m.DurationMs,
		&m.Ticks, &m.Captures, &m.CreatedAt, &m.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}

	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Players = players
	return &m, nil
}

// ListRecent returns the most recently created matches without players.
func (r *MatchRepo) ListRecent(ctx context.Context, limit int) ([]model.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, scenario, scenario_hash, seed, status, winner, duration_ms, ticks, captures,
		        created_at, finished_at
		 FROM matches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.Name, &m.Scenario, &m.ScenarioHash, &m.Seed, &m.Status, &m.Winner,
			&m.DurationMs, &m.Ticks, &m.Captures, &m.CreatedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListPlayers returns the players of a match in seat order.
func (r *MatchRepo) ListPlayers(ctx context.Context, matchID string) ([]model.MatchPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, player_id, name, profile, planets FROM match_players WHERE match_id = $1 ORDER BY player_id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list match players: %w", err)
	}
	defer rows.Close()

	var players []model.MatchPlayer
	for rows.Next() {
		var p model.MatchPlayer
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.Name, &p.Profile, &p.Planets); err != nil {
			return nil, fmt.Errorf("scan match player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Timeline returns the capture timeline of a finished match. A missing
// match or one still running has no timeline.
func (r *MatchRepo) Timeline(ctx context.Context, id string) ([]model.MatchEvent, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT timeline FROM matches WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	return decodeTimeline(data)
}
