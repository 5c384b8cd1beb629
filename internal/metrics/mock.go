package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	settlementRuns      int
	rollbacks           int
	matchesSettled      int
	matchesSkipped      int
	settlementDurations []float64
	providerRequests    int
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		settlementDurations: make([]float64, 0),
	}
}

func (m *Mock) IncSettlementRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementRuns++
}

func (m *Mock) IncRollbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks++
}

func (m *Mock) AddMatchesSettled(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSettled += n
}

func (m *Mock) AddMatchesSkipped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSkipped += n
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementDurations = append(m.settlementDurations, duration)
}

func (m *Mock) IncProviderRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerRequests++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// SettlementRuns returns the number of times IncSettlementRuns was called.
func (m *Mock) SettlementRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settlementRuns
}

// Rollbacks returns the number of times IncRollbacks was called.
func (m *Mock) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

// MatchesSettled returns the accumulated settled match count.
func (m *Mock) MatchesSettled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSettled
}

// MatchesSkipped returns the accumulated skipped match count.
func (m *Mock) MatchesSkipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSkipped
}

// ProviderRequests returns the number of times IncProviderRequests was called.
func (m *Mock) ProviderRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.providerRequests
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
