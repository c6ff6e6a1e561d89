package models

import "time"

// Player is the per-email account row backing the one-account-per-email
// invariant. ClientID is empty until the email's first token issuance binds
// it; once bound it never changes.
type Player struct {
	Email     string     `json:"email"`
	UserKey   string     `json:"userKey"`
	ClientID  string     `json:"clientId,omitempty"`
	Nickname  string     `json:"nickname,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}
