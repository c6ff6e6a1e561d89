package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConsumeAcceptsOnceThenRejects(t *testing.T) {
	nonces := NewNonceRepository(openTestDB(t), 24*time.Hour)
	ctx := context.Background()

	if err := nonces.Consume(ctx, "00112233aabbccdd"); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	for range 3 {
		if err := nonces.Consume(ctx, "00112233aabbccdd"); !errors.Is(err, ErrNonceReplayed) {
			t.Fatalf("repeat Consume() error = %v, want ErrNonceReplayed", err)
		}
	}
}

func TestConsumeRejectsEmptyNonce(t *testing.T) {
	nonces := NewNonceRepository(openTestDB(t), 24*time.Hour)

	if err := nonces.Consume(context.Background(), ""); !errors.Is(err, ErrNonceReplayed) {
		t.Fatalf("Consume(\"\") error = %v, want ErrNonceReplayed", err)
	}
}

func TestConsumeDistinctNoncesAreIndependent(t *testing.T) {
	nonces := NewNonceRepository(openTestDB(t), 24*time.Hour)
	ctx := context.Background()

	if err := nonces.Consume(ctx, "aaaaaaaaaaaaaaaa"); err != nil {
		t.Fatalf("Consume(a) error = %v", err)
	}
	if err := nonces.Consume(ctx, "bbbbbbbbbbbbbbbb"); err != nil {
		t.Fatalf("Consume(b) error = %v", err)
	}
}

func TestConsumePrunesExpiredRecords(t *testing.T) {
	database := openTestDB(t)
	nonces := NewNonceRepository(database, 24*time.Hour)
	ctx := context.Background()

	stale := time.Now().Add(-25 * time.Hour).UnixMilli()
	if _, err := database.Exec(
		`INSERT INTO used_nonces (nonce, seen_at) VALUES (?, ?)`, "oldoldoldoldoldo", stale,
	); err != nil {
		t.Fatalf("seeding stale nonce: %v", err)
	}

	if err := nonces.Consume(ctx, "freshfreshfreshf"); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	var count int
	if err := database.QueryRow(
		`SELECT COUNT(*) FROM used_nonces WHERE nonce = ?`, "oldoldoldoldoldo",
	).Scan(&count); err != nil {
		t.Fatalf("counting stale nonces: %v", err)
	}
	if count != 0 {
		t.Fatalf("stale nonce survived prune, count = %d", count)
	}

	// Pruning must never reopen a consumed nonce within retention.
	if err := nonces.Consume(ctx, "freshfreshfreshf"); !errors.Is(err, ErrNonceReplayed) {
		t.Fatalf("Consume(fresh again) error = %v, want ErrNonceReplayed", err)
	}
}
