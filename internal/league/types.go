package league

import (
	"database/sql"
	"sync"
)

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// SeasonStatus is the lifecycle state of a season. The transition
// active -> finalized is one-way.
type SeasonStatus string

const (
	SeasonActive    SeasonStatus = "active"
	SeasonFinalized SeasonStatus = "finalized"
)

// TournamentState tracks whether a tournament's bracket results have been
// converted into ratings yet.
type TournamentState string

const (
	TournamentRegistered TournamentState = "registered"
	TournamentRated      TournamentState = "rated"
)

// User is an internal player profile. The id doubles as the 5-character
// public code embedded in provider display names.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Season groups tournaments into one rating period.
type Season struct {
	ID      string       `json:"id"`
	Status  SeasonStatus `json:"status"`
	StartAt string       `json:"start_at"`
	EndAt   *string      `json:"end_at"`
	// KFactor overrides the base rating sensitivity for the season.
	KFactor *int `json:"k_factor"`
}

// Tournament is one bracket event within a season.
type Tournament struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SeasonID      string          `json:"season_id"`
	ChallongeURL  string          `json:"challonge_url"`
	ChallongeSlug *string         `json:"challonge_slug"`
	State         TournamentState `json:"state"`
	CreatedAt     string          `json:"created_at"`
	PlayerCount   int             `json:"player_count"`
}

// Registration is a (tournament, user) pair. Provider participant metadata
// is populated after settlement maps external identities back to players.
type Registration struct {
	TournamentID           string  `json:"tournament_id"`
	UserID                 string  `json:"user_id"`
	ChallongeParticipantID *int    `json:"challonge_participant_id"`
	ChallongeDisplayName   *string `json:"challonge_display_name"`
}

// RatingState is the mutable per-(user, season) rating carried through a
// settlement replay. One row per pair is the single source of truth.
type RatingState struct {
	Rating  int `json:"rating_current"`
	Matches int `json:"matches_played"`
	// FirstReached is the timestamp at which the current rating value was
	// first reached; nil until the rating moves off its initial value.
	FirstReached *string `json:"first_reached_current_rating_at"`
}

// Match is the internal record derived from one completed provider match.
// Immutable once written; removed only by a rollback. WinnerPoints and
// LoserPoints hold the post-match rating snapshots of the winner and loser,
// matching the rating_after of the two rating events.
type Match struct {
	ID               string `json:"id"`
	TournamentID     string `json:"tournament_id"`
	ChallongeMatchID int    `json:"challonge_match_id"`
	P1UserID         string `json:"p1_user_id"`
	P2UserID         string `json:"p2_user_id"`
	WinnerUserID     string `json:"winner_user_id"`
	ScoresCSV        string `json:"scores_csv"`
	WinnerPoints     int    `json:"winner_points"`
	LoserPoints      int    `json:"loser_points"`
	ScoreDiff        int    `json:"score_diff"`
	CompletedAt      string `json:"completed_at"`
}

// RatingEvent is the append-only per-(match, player) rating change record.
// Exactly two exist per match.
type RatingEvent struct {
	ID           string `json:"id"`
	SeasonID     string `json:"season_id"`
	MatchID      string `json:"match_id"`
	UserID       string `json:"user_id"`
	RatingBefore int    `json:"rating_before"`
	RatingAfter  int    `json:"rating_after"`
	Delta        int    `json:"delta"`
	KFactor      int    `json:"k_factor"`
	CreatedAt    string `json:"created_at"`
}

// LeaderboardEntry is one ranked row of the season leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	RatingCurrent int    `json:"rating_current"`
	MatchesPlayed int    `json:"matches_played"`
}

// HistoryEntry is one rating event of a player, joined with match context.
type HistoryEntry struct {
	ID               string  `json:"id"`
	MatchID          string  `json:"match_id"`
	TournamentName   string  `json:"tournament_name"`
	OpponentUsername *string `json:"opponent_username"`
	Result           string  `json:"result"`
	RatingBefore     int     `json:"rating_before"`
	RatingAfter      int     `json:"rating_after"`
	Delta            int     `json:"delta"`
	CompletedAt      string  `json:"completed_at"`
}
