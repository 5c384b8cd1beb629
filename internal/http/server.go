package http

import (
	"net/http"

	"github.com/boardtenz/bracketline/internal/config"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
	"github.com/boardtenz/bracketline/internal/notifier"
	"github.com/boardtenz/bracketline/internal/pubsub"
	"github.com/boardtenz/bracketline/internal/settlement"
)

func NewServer(store league.Store, settler *settlement.Settler, metricsSvc metrics.Metrics, metricsHandler http.Handler, counters metrics.CounterStore, cfg config.Config, notifier notifier.Notifier, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Store:          store,
		Settler:        settler,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Counters:       counters,
		Cfg:            cfg,
		Notifier:       notifier,
		PubSub:         pubsub,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Mutating admin endpoints additionally carry the bearer-token check.
	admin := adminMiddleware(s.Cfg.AdminToken)

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /metrics/counters", Chain(s.CountersHandler(), paramsMiddleware))
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("POST /users", Chain(s.CreateUserHandler(), paramsMiddleware))
	s.Router.Handle("GET /users/{id}", Chain(s.GetUserHandler(), paramsMiddleware))

	s.Router.Handle("POST /seasons", Chain(s.CreateSeasonHandler(), paramsMiddleware, admin))
	s.Router.Handle("POST /seasons/finalize", Chain(s.FinalizeSeasonHandler(), paramsMiddleware, admin))

	s.Router.Handle("POST /tournaments", Chain(s.CreateTournamentHandler(), paramsMiddleware, admin))
	s.Router.Handle("GET /tournaments", Chain(s.ListTournamentsHandler(), paramsMiddleware))
	s.Router.Handle("GET /tournaments/{id}", Chain(s.GetTournamentHandler(), paramsMiddleware))
	s.Router.Handle("POST /tournaments/{id}/register", Chain(s.RegisterPlayerHandler(), paramsMiddleware))
	s.Router.Handle("POST /tournaments/{id}/rate", Chain(s.RateTournamentHandler(), paramsMiddleware, admin))

	s.Router.Handle("POST /pubsub/settle", Chain(s.PubSubSettleHandler(), paramsMiddleware))

	s.Router.Handle("GET /leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("GET /players/{id}/history", Chain(s.PlayerHistoryHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
