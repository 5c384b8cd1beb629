package settlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/database"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
	"github.com/boardtenz/bracketline/internal/playercode"
)

// setupLeague builds a settler on a real in-memory store with a season, a
// tournament and two registered players whose codes appear in the bracket.
func setupLeague(t *testing.T) (*Settler, league.Store, *league.Season, *league.Tournament, []league.User, func()) {
	t.Helper()

	db, cleanup, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	store := league.New(db)

	season, err := store.CreateSeason(nil)
	require.NoError(t, err)

	tournament, err := store.CreateTournament("Spring Open", season.ID, "https://challonge.com/spring-open")
	require.NoError(t, err)

	alice, err := store.CreateUser("alice")
	require.NoError(t, err)
	bob, err := store.CreateUser("bob")
	require.NoError(t, err)

	users := []league.User{*alice, *bob}
	for _, u := range users {
		require.NoError(t, store.RegisterPlayer(tournament.ID, u.ID, playercode.DisplayLabel(u.ID, u.Username)))
	}

	provider := challonge.NewMockClient()
	provider.FetchParticipantsFunc = func(ctx context.Context, slug string) ([]challonge.Participant, error) {
		return []challonge.Participant{
			{ID: 101, Name: playercode.DisplayLabel(alice.ID, "alice")},
			{ID: 102, Name: playercode.DisplayLabel(bob.ID, "bob")},
		}, nil
	}
	provider.FetchMatchesFunc = func(ctx context.Context, slug string) ([]challonge.Match, error) {
		return []challonge.Match{
			completeMatch(1, 101, 102, 101, 1, "2-1", "2026-03-01T18:00:00Z"),
			completeMatch(2, 101, 102, 101, 2, "2-0", "2026-03-01T19:00:00Z"),
		}, nil
	}

	settler := New(store, provider, metrics.NewMock())
	return settler, store, season, tournament, users, cleanup
}

func TestRollbackRestoresPreTournamentRatings(t *testing.T) {
	settler, store, season, tournament, users, cleanup := setupLeague(t)
	defer cleanup()

	alice, bob := users[0], users[1]

	outcome, err := settler.Settle(context.Background(), tournament.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.ProcessedMatches)

	states, err := store.LoadRatingStates(season.ID, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Greater(t, states[alice.ID].Rating, 1000)
	assert.Equal(t, 2, states[alice.ID].Matches)

	settledAlice := states[alice.ID].Rating

	require.NoError(t, settler.Rollback(context.Background(), tournament.ID, season.ID))

	states, err = store.LoadRatingStates(season.ID, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 1000, states[alice.ID].Rating)
	assert.Equal(t, 0, states[alice.ID].Matches)
	assert.Equal(t, 1000, states[bob.ID].Rating)
	assert.Equal(t, 0, states[bob.ID].Matches)

	matches, err := store.TournamentMatches(tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	reloaded, err := store.GetTournament(tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, league.TournamentRegistered, reloaded.State)

	// A fresh settlement replays the same bracket to the same ratings.
	_, err = settler.Settle(context.Background(), tournament.ID, false)
	require.NoError(t, err)
	states, err = store.LoadRatingStates(season.ID, []string{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, settledAlice, states[alice.ID].Rating)
}

func TestRollbackWithoutSettlementIsNoOp(t *testing.T) {
	settler, store, season, tournament, users, cleanup := setupLeague(t)
	defer cleanup()

	require.NoError(t, settler.Rollback(context.Background(), tournament.ID, season.ID))

	states, err := store.LoadRatingStates(season.ID, []string{users[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1000, states[users[0].ID].Rating)
}

func TestRerunProducesIdenticalState(t *testing.T) {
	settler, store, season, tournament, users, cleanup := setupLeague(t)
	defer cleanup()

	_, err := settler.Settle(context.Background(), tournament.ID, false)
	require.NoError(t, err)

	first, err := store.LoadRatingStates(season.ID, []string{users[0].ID, users[1].ID})
	require.NoError(t, err)

	// Rerun rolls back and replays; the end state must not drift.
	_, err = settler.Settle(context.Background(), tournament.ID, true)
	require.NoError(t, err)

	second, err := store.LoadRatingStates(season.ID, []string{users[0].ID, users[1].ID})
	require.NoError(t, err)
	for id, st := range first {
		assert.Equal(t, st.Rating, second[id].Rating, "rating drifted for %s", id)
		assert.Equal(t, st.Matches, second[id].Matches)
	}
}
