package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// Topics used by the service.
const (
	// TopicSettleTournament carries SettleEvent payloads for asynchronous
	// tournament settlement.
	TopicSettleTournament = "settle-tournament"
)

// SettleEvent asks the settlement worker to rate one tournament.
type SettleEvent struct {
	TournamentID string `msgpack:"tournament_id"`
	Rerun        bool   `msgpack:"rerun"`
}
