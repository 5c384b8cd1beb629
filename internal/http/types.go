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

type Server struct {
	Store          league.Store
	Settler        *settlement.Settler
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Counters       metrics.CounterStore
	Cfg            config.Config
	Notifier       notifier.Notifier
	PubSub         pubsub.PubSubClient
	Router         *http.ServeMux
}
