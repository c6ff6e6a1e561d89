package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gallery/internal/models"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)

// rankingCTE selects each identity's best result and orders those globally
// by the same three-key comparator: most hits, then highest precision, then
// earliest achievement. Rows without a user_key rank as their own singleton
// identities.
const rankingCTE = `
WITH per_identity AS (
    SELECT id, user_key, nickname, hits_made, target, avg_precision, outcome, duration_ms, created_at,
           ROW_NUMBER() OVER (
               PARTITION BY COALESCE(user_key, 'row:' || id)
               ORDER BY hits_made DESC, avg_precision DESC, created_at ASC
           ) AS pos
    FROM game_results
),
ranked AS (
    SELECT id, user_key, nickname, hits_made, target, avg_precision, outcome, duration_ms, created_at,
           ROW_NUMBER() OVER (
               ORDER BY hits_made DESC, avg_precision DESC, created_at ASC
           ) AS rank
    FROM per_identity
    WHERE pos = 1
)
`

// ScoreRepository is the append-only ledger of game results and the ranking
// queries over it.
type ScoreRepository struct {
	db *DB
}

func NewScoreRepository(db *DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Append inserts one result row. Validation is the caller's job.
func (r *ScoreRepository) Append(ctx context.Context, result *models.GameResult) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO game_results (user_key, nickname, email, hits_made, target, avg_precision, outcome, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(result.UserKey),
		result.Nickname,
		nullIfEmpty(result.Email),
		result.HitsMade,
		result.Target,
		result.AvgPrecision,
		result.Outcome,
		result.DurationMs,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending game result: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		result.ID = id
	}
	return nil
}

// TopByIdentity returns up to limit per-identity-best rows in global order.
// The attached rank is the 1-based position within the returned page.
func (r *ScoreRepository) TopByIdentity(ctx context.Context, limit int) ([]models.RankedResult, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	rows, err := r.db.QueryContext(ctx, rankingCTE+
		`SELECT id, user_key, nickname, hits_made, target, avg_precision, outcome, duration_ms, created_at
         FROM ranked ORDER BY rank LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var results []models.RankedResult
	for rows.Next() {
		entry, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		entry.Rank = len(results) + 1
		results = append(results, *entry)
	}

	return results, rows.Err()
}

// BestFor returns the identity's best result with its true global rank, or
// ErrNotFound if the identity has no rows.
func (r *ScoreRepository) BestFor(ctx context.Context, userKey string) (*models.RankedResult, error) {
	row := r.db.QueryRowContext(ctx, rankingCTE+
		`SELECT id, user_key, nickname, hits_made, target, avg_precision, outcome, duration_ms, created_at, rank
         FROM ranked WHERE user_key = ?`, userKey)

	var entry models.RankedResult
	var key, outcome sql.NullString
	var durationMs sql.NullInt64
	err := row.Scan(
		&entry.ID, &key, &entry.Nickname,
		&entry.HitsMade, &entry.Target, &entry.AvgPrecision,
		&outcome, &durationMs, &entry.CreatedAt, &entry.Rank,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying best result: %w", err)
	}

	entry.UserKey = key.String
	entry.Outcome = outcome.String
	if durationMs.Valid {
		entry.DurationMs = &durationMs.Int64
	}
	return &entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.RankedResult, error) {
	var entry models.RankedResult
	var key, outcome sql.NullString
	var durationMs sql.NullInt64

	err := row.Scan(
		&entry.ID, &key, &entry.Nickname,
		&entry.HitsMade, &entry.Target, &entry.AvgPrecision,
		&outcome, &durationMs, &entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning game result: %w", err)
	}

	entry.UserKey = key.String
	entry.Outcome = outcome.String
	if durationMs.Valid {
		entry.DurationMs = &durationMs.Int64
	}
	return &entry, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
