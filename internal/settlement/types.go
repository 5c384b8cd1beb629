package settlement

import (
	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/metrics"
)

// Settler drives tournament settlements: it converts a completed bracket
// into persisted matches, rating events and updated season ratings.
type Settler struct {
	store    Store
	provider challonge.Client
	metrics  metrics.Metrics
}

// phase labels the stage a settlement run is in, for logging and error
// context. A run moves fetching -> mapping -> (rolling_back) -> replaying ->
// persisting -> done.
type phase string

const (
	phaseFetching    phase = "fetching"
	phaseMapping     phase = "mapping"
	phaseRollingBack phase = "rolling_back"
	phaseReplaying   phase = "replaying"
	phasePersisting  phase = "persisting"
	phaseDone        phase = "done"
)

// Outcome summarizes a finished settlement run.
type Outcome struct {
	ProcessedMatches int    `json:"processed_matches"`
	ProcessedPlayers int    `json:"processed_players"`
	SkippedMatches   int    `json:"skipped_matches"`
	NoOp             bool   `json:"no_op,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// MappedParticipant links a provider participant to an internal player.
type MappedParticipant struct {
	UserID      string
	DisplayName string
}
