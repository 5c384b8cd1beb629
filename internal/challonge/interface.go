package challonge

import "context"

// Client defines the interface for talking to the bracket provider. Keeping
// it narrow lets tests inject a mock and leaves room to add retry/backoff
// behind the same surface without touching the settlement code.
type Client interface {
	FetchParticipants(ctx context.Context, slug string) ([]Participant, error)
	FetchMatches(ctx context.Context, slug string) ([]Match, error)
}
