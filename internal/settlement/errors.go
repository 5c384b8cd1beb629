package settlement

import "errors"

// Fatal settlement errors. Handlers map these onto HTTP status classes;
// anything else surfacing from a settlement is a provider or persistence
// failure and is reported as-is.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrSeasonNotFound     = errors.New("season not found for tournament")
	ErrSlugMissing        = errors.New("tournament challonge slug missing")
	ErrAlreadyRated       = errors.New("tournament is already rated; rerun is required to settle again")
)
