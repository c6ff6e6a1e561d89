package models

const (
	// RequiredTarget is the only target count the game client ships with.
	// Submissions claiming anything else are rejected.
	RequiredTarget = 50

	OutcomeWin  = "win"
	OutcomeMiss = "miss"
)

// GameResult is one immutable row in the append-only results ledger.
// UserKey is empty for anonymous submissions, which still rank as their own
// singleton identities.
type GameResult struct {
	ID           int64
	UserKey      string
	Nickname     string
	Email        string
	HitsMade     int
	Target       int
	AvgPrecision int
	Outcome      string
	DurationMs   *int64
	CreatedAt    int64 // epoch millis
}

// RankedResult is a game result with its 1-based leaderboard position.
type RankedResult struct {
	GameResult
	Rank int
}
