package settlement

import "github.com/boardtenz/bracketline/internal/league"

// Store defines the database operations required by the settler.
type Store interface {
	GetTournament(id string) (*league.Tournament, error)
	GetSeason(id string) (*league.Season, error)
	SetTournamentState(id string, state league.TournamentState) error

	GetRegistrations(tournamentID string) ([]league.Registration, error)
	UpsertRegistrations(regs []league.Registration) error

	LoadRatingStates(seasonID string, userIDs []string) (map[string]*league.RatingState, error)
	UpsertRatingStates(seasonID string, states map[string]*league.RatingState) error
	RollbackRatingState(seasonID, userID string, restoredRating, matchesToRemove int) error

	InsertMatches(matches []league.Match) error
	InsertRatingEvents(events []league.RatingEvent) error
	TournamentMatches(tournamentID string) ([]league.Match, error)
	RatingEventsForMatches(matchIDs []string) ([]league.RatingEvent, error)
	DeleteRatingEvents(matchIDs []string) error
	DeleteTournamentMatches(tournamentID string) error
}
