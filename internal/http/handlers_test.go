package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/config"
	"github.com/boardtenz/bracketline/internal/database"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
	"github.com/boardtenz/bracketline/internal/notifier"
	"github.com/boardtenz/bracketline/internal/playercode"
	"github.com/boardtenz/bracketline/internal/pubsub"
	"github.com/boardtenz/bracketline/internal/settlement"
)

const testAdminToken = "test-admin-token"

type testEnv struct {
	server   *Server
	store    league.Store
	provider *challonge.MockClient
	notifier *notifier.Mock
	pubsub   *pubsub.MockPubSubClient
}

// setupTestServer initializes a new server with a test database and mock clients.
func setupTestServer(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	store := league.New(db)
	provider := challonge.NewMockClient()
	notifierMock := notifier.NewMock()
	pubsubMock := pubsub.NewMock()

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)
	counters := metrics.NewStore(db)

	settler := settlement.New(store, provider, metricsSvc)
	cfg := config.Config{AdminToken: testAdminToken}

	server := NewServer(store, settler, metricsSvc, metricsHandler, counters, cfg, notifierMock, pubsubMock)

	env := &testEnv{
		server:   server,
		store:    store,
		provider: provider,
		notifier: notifierMock,
		pubsub:   pubsubMock,
	}
	return env, dbTeardown
}

func doRequest(t *testing.T, server *Server, method, target string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	return rr
}

// seedTournament creates a season, a tournament and two registered users,
// and points the mock provider at a completed two-player bracket.
func seedTournament(t *testing.T, env *testEnv) (*league.Tournament, []league.User) {
	t.Helper()

	_, err := env.store.CreateSeason(nil)
	require.NoError(t, err)
	tournament, err := env.store.CreateTournament("Spring Open", mustActiveSeason(t, env).ID, "https://challonge.com/spring-open")
	require.NoError(t, err)

	alice, err := env.store.CreateUser("alice")
	require.NoError(t, err)
	bob, err := env.store.CreateUser("bob")
	require.NoError(t, err)

	for _, u := range []*league.User{alice, bob} {
		require.NoError(t, env.store.RegisterPlayer(tournament.ID, u.ID, playercode.DisplayLabel(u.ID, u.Username)))
	}

	env.provider.FetchParticipantsFunc = func(ctx context.Context, slug string) ([]challonge.Participant, error) {
		return []challonge.Participant{
			{ID: 101, Name: playercode.DisplayLabel(alice.ID, "alice")},
			{ID: 102, Name: playercode.DisplayLabel(bob.ID, "bob")},
		}, nil
	}
	env.provider.FetchMatchesFunc = func(ctx context.Context, slug string) ([]challonge.Match, error) {
		p1, p2, winner, round := 101, 102, 101, 1
		scores, completed := "2-1", "2026-03-01T18:00:00Z"
		return []challonge.Match{{
			ID: 1, Player1ID: &p1, Player2ID: &p2, WinnerID: &winner,
			ScoresCSV: &scores, CompletedAt: &completed, Round: &round,
			State: challonge.StateComplete,
		}}, nil
	}

	return tournament, []league.User{*alice, *bob}
}

func mustActiveSeason(t *testing.T, env *testEnv) *league.Season {
	t.Helper()
	season, err := env.store.GetActiveSeason()
	require.NoError(t, err)
	require.NotNil(t, season)
	return season
}

func TestHealthCheckHandler(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()

	rr := doRequest(t, env.server, "GET", "/health", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK!", rr.Body.String())
}

func TestCreateAndGetUser(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()

	rr := doRequest(t, env.server, "POST", "/users", map[string]string{"username": "alice"}, false)
	require.Equal(t, http.StatusCreated, rr.Code)

	var user league.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, user.ID, playercode.Length)

	rr = doRequest(t, env.server, "GET", "/users/"+user.ID, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, env.server, "GET", "/users/ZZZZZ", nil, false)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	t.Run("missing username rejected", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/users", map[string]string{}, false)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSeasonLifecycle(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()

	rr := doRequest(t, env.server, "POST", "/seasons", nil, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("second active season rejected", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/seasons", nil, true)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	rr = doRequest(t, env.server, "POST", "/seasons/finalize", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	var season league.Season
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &season))
	assert.Equal(t, league.SeasonFinalized, season.Status)
	assert.NotNil(t, season.EndAt)

	t.Run("finalize without active season", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/seasons/finalize", nil, true)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAdminAuth(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()

	t.Run("missing token", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/tournaments/t-1/rate", nil, false)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/tournaments/t-1/rate", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRegisterPlayerHandler(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()
	tournament, users := seedTournament(t, env)

	t.Run("registers and labels the player", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/register",
			map[string]string{"user_id": users[0].ID}, false)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), fmt.Sprintf("[%s]", users[0].ID))
	})

	t.Run("unknown tournament", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/tournaments/nope/register",
			map[string]string{"user_id": users[0].ID}, false)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/register",
			map[string]string{"user_id": "ZZZZZ"}, false)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("rejects once rated", func(t *testing.T) {
		require.NoError(t, env.store.SetTournamentState(tournament.ID, league.TournamentRated))
		defer func() {
			require.NoError(t, env.store.SetTournamentState(tournament.ID, league.TournamentRegistered))
		}()
		rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/register",
			map[string]string{"user_id": users[0].ID}, false)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestRateTournamentHandler(t *testing.T) {
	t.Run("synchronous settlement", func(t *testing.T) {
		env, teardown := setupTestServer(t)
		defer teardown()
		tournament, _ := seedTournament(t, env)

		rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate", nil, true)
		require.Equal(t, http.StatusOK, rr.Code)

		var outcome settlement.Outcome
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
		assert.Equal(t, 1, outcome.ProcessedMatches)
		assert.Equal(t, 2, outcome.ProcessedPlayers)

		require.Len(t, env.notifier.SendSettlementSummaryCalls, 1)
		assert.Equal(t, tournament.ID, env.notifier.SendSettlementSummaryCalls[0].Tournament.ID)

		t.Run("second run without rerun conflicts", func(t *testing.T) {
			rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate", nil, true)
			assert.Equal(t, http.StatusConflict, rr.Code)
		})

		t.Run("rerun succeeds", func(t *testing.T) {
			rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate?rerun=true", nil, true)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	})

	t.Run("unknown tournament", func(t *testing.T) {
		env, teardown := setupTestServer(t)
		defer teardown()

		rr := doRequest(t, env.server, "POST", "/tournaments/nope/rate", nil, true)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("async queues a settle event", func(t *testing.T) {
		env, teardown := setupTestServer(t)
		defer teardown()
		tournament, _ := seedTournament(t, env)

		rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate?async=true&rerun=true", nil, true)
		require.Equal(t, http.StatusAccepted, rr.Code)

		require.Len(t, env.pubsub.SendMessageCalls, 1)
		call := env.pubsub.SendMessageCalls[0]
		assert.Equal(t, pubsub.TopicSettleTournament, call.Topic)
		event, ok := call.Data.(pubsub.SettleEvent)
		require.True(t, ok)
		assert.Equal(t, tournament.ID, event.TournamentID)
		assert.True(t, event.Rerun)
	})
}

func TestPubSubSettleHandler(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()
	tournament, _ := seedTournament(t, env)

	payload, err := msgpack.Marshal(pubsub.SettleEvent{TournamentID: tournament.ID})
	require.NoError(t, err)
	wrapper := map[string]any{
		"subscription": "settle-sub",
		"message": map[string]any{
			"data": base64.StdEncoding.EncodeToString(payload),
		},
	}

	rr := doRequest(t, env.server, "POST", "/pubsub/settle", wrapper, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	reloaded, err := env.store.GetTournament(tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, league.TournamentRated, reloaded.State)

	t.Run("unsettleable message is acked", func(t *testing.T) {
		payload, err := msgpack.Marshal(pubsub.SettleEvent{TournamentID: "nope"})
		require.NoError(t, err)
		wrapper := map[string]any{
			"message": map[string]any{"data": base64.StdEncoding.EncodeToString(payload)},
		}
		rr := doRequest(t, env.server, "POST", "/pubsub/settle", wrapper, false)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("invalid wrapper rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/pubsub/settle", strings.NewReader("not json"))
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLeaderboardHandler(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()
	tournament, users := seedTournament(t, env)

	rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, env.server, "GET", "/leaderboard", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []league.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, users[0].ID, entries[0].UserID, "winner leads the board")
	assert.Equal(t, 1, entries[0].Rank)

	t.Run("notify posts to slack", func(t *testing.T) {
		rr := doRequest(t, env.server, "GET", "/leaderboard?notify=true", nil, false)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, env.notifier.SendLeaderboardCalls, 1)
	})
}

func TestPlayerHistoryHandler(t *testing.T) {
	env, teardown := setupTestServer(t)
	defer teardown()
	tournament, users := seedTournament(t, env)

	rr := doRequest(t, env.server, "POST", "/tournaments/"+tournament.ID+"/rate", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, env.server, "GET", "/players/"+users[0].ID+"/history", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []league.HistoryEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "win", entries[0].Result)
	assert.Equal(t, 11, entries[0].Delta)
}
