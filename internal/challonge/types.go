package challonge

// Participant is a single entrant as reported by the bracket provider.
type Participant struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
	Active      bool    `json:"active"`
}

// Match is a raw bracket match. Only matches with State == "complete", both
// player ids and a winner id are eligible for rating.
type Match struct {
	ID          int     `json:"id"`
	Player1ID   *int    `json:"player1_id"`
	Player2ID   *int    `json:"player2_id"`
	WinnerID    *int    `json:"winner_id"`
	LoserID     *int    `json:"loser_id"`
	ScoresCSV   *string `json:"scores_csv"`
	CompletedAt *string `json:"completed_at"`
	UpdatedAt   *string `json:"updated_at"`
	StartedAt   *string `json:"started_at"`
	Round       *int    `json:"round"`
	State       string  `json:"state"`
}

// StateComplete is the provider-side state of a finished match.
const StateComplete = "complete"

// The v1 API wraps every record in a single-key envelope.
type participantEnvelope struct {
	Participant Participant `json:"participant"`
}

type matchEnvelope struct {
	Match Match `json:"match"`
}

// IsRateable reports whether the match can contribute to ratings.
func (m Match) IsRateable() bool {
	return m.State == StateComplete && m.Player1ID != nil && m.Player2ID != nil && m.WinnerID != nil
}

// CompletionKey returns the timestamp string used for deterministic
// ordering: completed_at, falling back to updated_at, then started_at, then
// the empty string which sorts first.
func (m Match) CompletionKey() string {
	for _, ts := range []*string{m.CompletedAt, m.UpdatedAt, m.StartedAt} {
		if ts != nil && *ts != "" {
			return *ts
		}
	}
	return ""
}
