package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNonceReplayed means the nonce was already redeemed once.
var ErrNonceReplayed = errors.New("nonce already used")

// NonceRepository is the replay guard for submission tokens. The check and
// the insert are a single statement so two concurrent submissions of the
// same token cannot both pass: the primary key decides the race.
type NonceRepository struct {
	db        *DB
	retention time.Duration
}

func NewNonceRepository(db *DB, retention time.Duration) *NonceRepository {
	return &NonceRepository{db: db, retention: retention}
}

// Consume marks nonce as used. It returns ErrNonceReplayed if the nonce was
// seen before (or is empty), any other error only on store failure.
func (r *NonceRepository) Consume(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrNonceReplayed
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO used_nonces (nonce, seen_at) VALUES (?, ?)`,
		nonce, time.Now().UnixMilli(),
	)
	if IsUniqueConstraintError(err) {
		return ErrNonceReplayed
	}
	if err != nil {
		return fmt.Errorf("recording nonce: %w", err)
	}

	r.prune(ctx)
	return nil
}

// prune drops nonces older than the retention window. Expired tokens are
// already rejected by the signer, so a failed prune costs disk, not safety.
func (r *NonceRepository) prune(ctx context.Context) {
	cutoff := time.Now().Add(-r.retention).UnixMilli()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM used_nonces WHERE seen_at < ?`, cutoff); err != nil {
		slog.Warn("pruning used nonces failed", "error", err)
	}
}
