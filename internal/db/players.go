package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gallery/internal/identity"
	"gallery/internal/models"
)

var (
	// ErrEmailTaken means the email is already bound to a different client.
	ErrEmailTaken = errors.New("email bound to another client")
	// ErrUnregistered means no account exists for the email.
	ErrUnregistered = errors.New("email not registered")
	// ErrNotOwned means the account exists but belongs to a different client.
	ErrNotOwned = errors.New("email owned by another client")
)

// PlayerRepository enforces the one-account-per-email invariant: the first
// client to claim an email owns it permanently.
type PlayerRepository struct {
	db *DB
}

func NewPlayerRepository(db *DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// ClaimOrVerify binds email to clientID if the email is unclaimed (or was
// created before binding existed), refreshes last_seen if clientID already
// owns it, and returns ErrEmailTaken if another client does.
func (r *PlayerRepository) ClaimOrVerify(ctx context.Context, email, clientID string) error {
	email = identity.NormalizeEmail(email)

	stored, err := r.storedClientID(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return r.create(ctx, email, clientID)
	}
	if err != nil {
		return fmt.Errorf("looking up player: %w", err)
	}

	now := time.Now().UTC()
	switch stored {
	case "":
		// Pre-binding row: first caller claims it.
		_, err = r.db.ExecContext(ctx,
			`UPDATE players SET client_id = ?, last_seen = ? WHERE email = ? AND (client_id IS NULL OR client_id = '')`,
			clientID, now, email,
		)
		if err != nil {
			return fmt.Errorf("binding player: %w", err)
		}
		return nil
	case clientID:
		_, err = r.db.ExecContext(ctx,
			`UPDATE players SET last_seen = ? WHERE email = ?`,
			now, email,
		)
		if err != nil {
			return fmt.Errorf("refreshing player: %w", err)
		}
		return nil
	default:
		return ErrEmailTaken
	}
}

// VerifyOwnership checks that clientID may submit results for email and, on
// success, refreshes the nickname and last_seen.
func (r *PlayerRepository) VerifyOwnership(ctx context.Context, email, clientID, nickname string) error {
	email = identity.NormalizeEmail(email)

	stored, err := r.storedClientID(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnregistered
	}
	if err != nil {
		return fmt.Errorf("looking up player: %w", err)
	}

	if stored != "" && stored != clientID {
		return ErrNotOwned
	}

	now := time.Now().UTC()
	if nickname != "" {
		_, err = r.db.ExecContext(ctx,
			`UPDATE players SET nickname = ?, last_seen = ? WHERE email = ?`,
			nickname, now, email,
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE players SET last_seen = ? WHERE email = ?`,
			now, email,
		)
	}
	if err != nil {
		return fmt.Errorf("refreshing player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) create(ctx context.Context, email, clientID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (email, user_key, client_id, created_at, last_seen) VALUES (?, ?, ?, ?, ?)`,
		email, identity.EmailHash(email), clientID, now, now,
	)
	if err == nil {
		return nil
	}
	if !IsUniqueConstraintError(err) {
		return fmt.Errorf("creating player: %w", err)
	}

	// Lost an insert race; whoever won owns the email now.
	stored, selErr := r.storedClientID(ctx, email)
	if selErr != nil {
		return fmt.Errorf("re-checking player after insert race: %w", selErr)
	}
	if stored != clientID {
		return ErrEmailTaken
	}
	return nil
}

// FindAll returns every registered player, most recently seen first.
func (r *PlayerRepository) FindAll(ctx context.Context) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, user_key, client_id, nickname, created_at, last_seen FROM players ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		var clientID, nickname sql.NullString
		var lastSeen time.Time

		if err := rows.Scan(&p.Email, &p.UserKey, &clientID, &nickname, &p.CreatedAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}

		p.ClientID = clientID.String
		p.Nickname = nickname.String
		p.LastSeen = &lastSeen
		players = append(players, &p)
	}

	return players, rows.Err()
}

func (r *PlayerRepository) storedClientID(ctx context.Context, email string) (string, error) {
	var clientID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT client_id FROM players WHERE email = ?`, email,
	).Scan(&clientID)
	if err != nil {
		return "", err
	}
	return clientID.String, nil
}
