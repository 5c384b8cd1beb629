package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		SettlementRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_settlement_runs_total",
			Help: "The total number of tournament settlement runs started.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_rollbacks_total",
			Help: "The total number of tournament rollbacks performed.",
		}),
		MatchesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_matches_settled_total",
			Help: "The total number of bracket matches converted into rating events.",
		}),
		MatchesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_matches_skipped_total",
			Help: "The total number of bracket matches skipped during settlement.",
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bracketline_settlement_duration_seconds",
			Help:    "The duration of full tournament settlement runs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ProviderRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_provider_requests_total",
			Help: "The total number of HTTP requests made to the bracket provider.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracketline_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bracketline_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.SettlementRuns,
		s.Rollbacks,
		s.MatchesSettled,
		s.MatchesSkipped,
		s.SettlementDuration,
		s.ProviderRequests,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncSettlementRuns() {
	s.SettlementRuns.Inc()
}

func (s *Service) IncRollbacks() {
	s.Rollbacks.Inc()
}

func (s *Service) AddMatchesSettled(n int) {
	s.MatchesSettled.Add(float64(n))
}

func (s *Service) AddMatchesSkipped(n int) {
	s.MatchesSkipped.Add(float64(n))
}

func (s *Service) ObserveSettlementDuration(duration float64) {
	s.SettlementDuration.Observe(duration)
}

func (s *Service) IncProviderRequests() {
	s.ProviderRequests.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
