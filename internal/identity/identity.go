// Package identity derives the stable ranking keys used across the
// leaderboard: a hashed email for registered players, a prefixed hashed
// client id for everyone else. Raw emails never leave the players table.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const clientKeyPrefix = "cid:"

// NormalizeEmail lowercases and trims an email so that hashing is stable
// regardless of how the client typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailHash returns the hex sha256 of the normalized email, or "" for an
// empty email. This value doubles as the userKey for registered players.
func EmailHash(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	return hashHex(normalized)
}

// ClientKey returns the userKey for an unregistered player.
func ClientKey(clientID string) string {
	if clientID == "" {
		return ""
	}
	return clientKeyPrefix + hashHex(clientID)
}

func hashHex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
