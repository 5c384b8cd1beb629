package notifier

import (
	"sync"

	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/settlement"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendSettlementSummaryFunc func(tournament *league.Tournament, outcome *settlement.Outcome, dryRun bool) error
	SendLeaderboardFunc       func(entries []league.LeaderboardEntry, dryRun bool) error

	// Call records
	SendSettlementSummaryCalls []SettlementSummaryCall
	SendLeaderboardCalls       [][]league.LeaderboardEntry
}

// SettlementSummaryCall records one SendSettlementSummary invocation.
type SettlementSummaryCall struct {
	Tournament *league.Tournament
	Outcome    *settlement.Outcome
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendSettlementSummaryCalls = nil
	m.SendLeaderboardCalls = nil
}

func (m *Mock) SendSettlementSummary(tournament *league.Tournament, outcome *settlement.Outcome, dryRun bool) error {
	m.mu.Lock()
	m.SendSettlementSummaryCalls = append(m.SendSettlementSummaryCalls, SettlementSummaryCall{tournament, outcome})
	m.mu.Unlock()
	if m.SendSettlementSummaryFunc != nil {
		return m.SendSettlementSummaryFunc(tournament, outcome, dryRun)
	}
	return nil
}

func (m *Mock) SendLeaderboard(entries []league.LeaderboardEntry, dryRun bool) error {
	m.mu.Lock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, entries)
	m.mu.Unlock()
	if m.SendLeaderboardFunc != nil {
		return m.SendLeaderboardFunc(entries, dryRun)
	}
	return nil
}
