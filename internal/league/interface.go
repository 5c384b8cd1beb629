package league

// Store defines the interface for interacting with the league's data.
// Lookups for single rows return (nil, nil) when the row does not exist;
// callers decide whether absence is an error.
type Store interface {
	CreateUser(username string) (*User, error)
	GetUser(id string) (*User, error)

	GetSeason(id string) (*Season, error)
	GetActiveSeason() (*Season, error)
	CreateSeason(kFactor *int) (*Season, error)
	FinalizeActiveSeason() (*Season, error)

	CreateTournament(name, seasonID, challongeURL string) (*Tournament, error)
	GetTournament(id string) (*Tournament, error)
	ListSeasonTournaments(seasonID string) ([]Tournament, error)
	SetTournamentState(id string, state TournamentState) error

	RegisterPlayer(tournamentID, userID, displayName string) error
	GetRegistrations(tournamentID string) ([]Registration, error)
	UpsertRegistrations(regs []Registration) error

	LoadRatingStates(seasonID string, userIDs []string) (map[string]*RatingState, error)
	UpsertRatingStates(seasonID string, states map[string]*RatingState) error
	RollbackRatingState(seasonID, userID string, restoredRating, matchesToRemove int) error

	InsertMatches(matches []Match) error
	InsertRatingEvents(events []RatingEvent) error
	TournamentMatches(tournamentID string) ([]Match, error)
	RatingEventsForMatches(matchIDs []string) ([]RatingEvent, error)
	DeleteRatingEvents(matchIDs []string) error
	DeleteTournamentMatches(tournamentID string) error

	Leaderboard(seasonID string, limit int, stickyUserID string) ([]LeaderboardEntry, error)
	PlayerHistory(seasonID, userID string, limit int) ([]HistoryEntry, error)
}
