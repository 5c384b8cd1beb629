package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncSettlementRuns()
	IncRollbacks()
	AddMatchesSettled(n int)
	AddMatchesSkipped(n int)
	ObserveSettlementDuration(duration float64)
	IncProviderRequests()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

// CounterStore persists named counters in the database so they survive
// restarts, unlike the in-process Prometheus state.
type CounterStore interface {
	Increment(key string)
	GetAll() (map[string]int, error)
}
