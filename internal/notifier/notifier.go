package notifier

import (
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/settlement"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// Announces a finished tournament settlement to the league channel.
	SendSettlementSummary(tournament *league.Tournament, outcome *settlement.Outcome, dryRun bool) error
	// Posts the current season standings.
	SendLeaderboard(entries []league.LeaderboardEntry, dryRun bool) error
}
