package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/playercode"
	"github.com/boardtenz/bracketline/internal/pubsub"
	"github.com/boardtenz/bracketline/internal/settlement"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) CountersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := s.Counters.GetAll()
		if err != nil {
			http.Error(w, "Failed to get counters", http.StatusInternalServerError)
			log.Error("Failed to get counters from store", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	}
}

func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Username == "" {
			http.Error(w, "username is required", http.StatusBadRequest)
			return
		}

		user, err := s.Store.CreateUser(req.Username)
		if err != nil {
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			log.Error("Failed to create user", "error", err, "username", req.Username)
			return
		}
		log.Info("Created user", "id", user.ID, "username", user.Username)
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.Store.GetUser(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			log.Error("Failed to get user", "error", err)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) CreateSeasonHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			KFactor *int `json:"k_factor"`
		}
		// The body is optional; an empty season uses the default k-factor.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		active, err := s.Store.GetActiveSeason()
		if err != nil {
			http.Error(w, "Failed to check active season", http.StatusInternalServerError)
			log.Error("Failed to check active season", "error", err)
			return
		}
		if active != nil {
			http.Error(w, "An active season already exists", http.StatusConflict)
			return
		}

		season, err := s.Store.CreateSeason(req.KFactor)
		if err != nil {
			http.Error(w, "Failed to create season", http.StatusInternalServerError)
			log.Error("Failed to create season", "error", err)
			return
		}
		log.Info("Created season", "id", season.ID)
		writeJSON(w, http.StatusCreated, season)
	}
}

func (s *Server) FinalizeSeasonHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := s.Store.FinalizeActiveSeason()
		if err != nil {
			http.Error(w, "Failed to finalize season", http.StatusInternalServerError)
			log.Error("Failed to finalize season", "error", err)
			return
		}
		if season == nil {
			http.Error(w, "No active season", http.StatusNotFound)
			return
		}
		log.Info("Finalized season", "id", season.ID)
		writeJSON(w, http.StatusOK, season)
	}
}

func (s *Server) CreateTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name         string `json:"name"`
			ChallongeURL string `json:"challonge_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.ChallongeURL == "" {
			http.Error(w, "name and challonge_url are required", http.StatusBadRequest)
			return
		}

		season, err := s.Store.GetActiveSeason()
		if err != nil {
			http.Error(w, "Failed to get active season", http.StatusInternalServerError)
			log.Error("Failed to get active season", "error", err)
			return
		}
		if season == nil {
			http.Error(w, "No active season", http.StatusConflict)
			return
		}

		tournament, err := s.Store.CreateTournament(req.Name, season.ID, req.ChallongeURL)
		if err != nil {
			http.Error(w, "Failed to create tournament", http.StatusInternalServerError)
			log.Error("Failed to create tournament", "error", err)
			return
		}
		log.Info("Created tournament", "id", tournament.ID, "name", tournament.Name)
		writeJSON(w, http.StatusCreated, tournament)
	}
}

func (s *Server) ListTournamentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seasonID := r.URL.Query().Get("season")
		if seasonID == "" {
			season, err := s.Store.GetActiveSeason()
			if err != nil {
				http.Error(w, "Failed to get active season", http.StatusInternalServerError)
				log.Error("Failed to get active season", "error", err)
				return
			}
			if season == nil {
				writeJSON(w, http.StatusOK, []league.Tournament{})
				return
			}
			seasonID = season.ID
		}

		tournaments, err := s.Store.ListSeasonTournaments(seasonID)
		if err != nil {
			http.Error(w, "Failed to list tournaments", http.StatusInternalServerError)
			log.Error("Failed to list tournaments", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, tournaments)
	}
}

func (s *Server) GetTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournament, err := s.Store.GetTournament(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Failed to get tournament", http.StatusInternalServerError)
			log.Error("Failed to get tournament", "error", err)
			return
		}
		if tournament == nil {
			http.Error(w, "Tournament not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, tournament)
	}
}

func (s *Server) RegisterPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID := r.PathValue("id")
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		tournament, err := s.Store.GetTournament(tournamentID)
		if err != nil {
			http.Error(w, "Failed to get tournament", http.StatusInternalServerError)
			log.Error("Failed to get tournament", "error", err)
			return
		}
		if tournament == nil {
			http.Error(w, "Tournament not found", http.StatusNotFound)
			return
		}
		if tournament.State != league.TournamentRegistered {
			http.Error(w, "Registration is closed; tournament is already rated", http.StatusConflict)
			return
		}

		user, err := s.Store.GetUser(req.UserID)
		if err != nil {
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			log.Error("Failed to get user", "error", err)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}

		displayName := playercode.DisplayLabel(user.ID, user.Username)
		if err := s.Store.RegisterPlayer(tournamentID, user.ID, displayName); err != nil {
			http.Error(w, "Failed to register player", http.StatusInternalServerError)
			log.Error("Failed to register player", "error", err, "tournament_id", tournamentID, "user_id", user.ID)
			return
		}
		log.Info("Registered player", "tournament_id", tournamentID, "user_id", user.ID, "display_name", displayName)
		writeJSON(w, http.StatusCreated, map[string]string{
			"tournament_id": tournamentID,
			"user_id":       user.ID,
			"display_name":  displayName,
		})
	}
}

func (s *Server) RateTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID := r.PathValue("id")
		rerun := r.URL.Query().Get("rerun") == "true"

		if r.URL.Query().Get("async") == "true" {
			event := pubsub.SettleEvent{TournamentID: tournamentID, Rerun: rerun}
			if err := s.PubSub.SendMessage(pubsub.TopicSettleTournament, event); err != nil {
				http.Error(w, "Failed to queue settlement", http.StatusInternalServerError)
				log.Error("Failed to publish settle event", "error", err, "tournament_id", tournamentID)
				return
			}
			log.Info("Queued settlement", "tournament_id", tournamentID, "rerun", rerun)
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
			return
		}

		s.settleAndRespond(w, r, tournamentID, rerun)
	}
}

// PubSubSettleHandler is the push endpoint for the settle topic. Fatal
// settlement errors are acked so the broker does not redeliver a message
// that can never succeed; everything else returns 500 for a retry.
func (s *Server) PubSubSettleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received settle message", "body", string(bodyBytes))
		// Define a small struct to decode the incoming JSON's `data` field
		var pubsubMsg struct {
			Subscription string `json:"subscription"`
			Message      struct {
				Data string `json:"data"` // base64-encoded message payload
			} `json:"message"`
		}

		// Parse the outer JSON to get `data`
		if err := json.Unmarshal(bodyBytes, &pubsubMsg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		// Decode base64 to raw MessagePack bytes
		rawData, err := base64.StdEncoding.DecodeString(pubsubMsg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		event := pubsub.SettleEvent{}
		if err := s.PubSub.ProcessMessage(rawData, &event); err != nil {
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}

		outcome, err := s.Settler.Settle(r.Context(), event.TournamentID, event.Rerun)
		if err != nil {
			if isFatalSettleError(err) {
				log.Warn("Dropping unsettleable message", "error", err, "tournament_id", event.TournamentID)
				w.Write([]byte("OK"))
				return
			}
			log.Error("Settlement failed, requesting redelivery", "error", err, "tournament_id", event.TournamentID)
			http.Error(w, "Settlement failed", http.StatusInternalServerError)
			return
		}

		s.afterSettlement(r, event.TournamentID, outcome)
		w.Write([]byte("OK"))
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := s.Store.GetActiveSeason()
		if err != nil {
			http.Error(w, "Failed to get active season", http.StatusInternalServerError)
			log.Error("Failed to get active season", "error", err)
			return
		}
		if season == nil {
			http.Error(w, "No active season", http.StatusNotFound)
			return
		}

		limit := queryInt(r, "limit", 50)
		stickyUserID := r.URL.Query().Get("user_id")

		entries, err := s.Store.Leaderboard(season.ID, limit, stickyUserID)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard", "error", err)
			return
		}

		if r.URL.Query().Get("notify") == "true" {
			if err := s.Notifier.SendLeaderboard(entries, isDryRunFromContext(r)); err != nil {
				log.Error("Failed to send leaderboard notification", "error", err)
			}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) PlayerHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := s.Store.GetActiveSeason()
		if err != nil {
			http.Error(w, "Failed to get active season", http.StatusInternalServerError)
			log.Error("Failed to get active season", "error", err)
			return
		}
		if season == nil {
			http.Error(w, "No active season", http.StatusNotFound)
			return
		}

		limit := queryInt(r, "limit", 20)
		entries, err := s.Store.PlayerHistory(season.ID, r.PathValue("id"), limit)
		if err != nil {
			http.Error(w, "Failed to get player history", http.StatusInternalServerError)
			log.Error("Failed to get player history", "error", err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// settleAndRespond runs a synchronous settlement and writes the outcome or
// the mapped error.
func (s *Server) settleAndRespond(w http.ResponseWriter, r *http.Request, tournamentID string, rerun bool) {
	outcome, err := s.Settler.Settle(r.Context(), tournamentID, rerun)
	if err != nil {
		writeSettleError(w, err)
		return
	}

	s.afterSettlement(r, tournamentID, outcome)
	writeJSON(w, http.StatusOK, outcome)
}

// afterSettlement handles the shared post-settlement bookkeeping.
func (s *Server) afterSettlement(r *http.Request, tournamentID string, outcome *settlement.Outcome) {
	s.Counters.Increment("settlements")
	if outcome.NoOp {
		return
	}

	tournament, err := s.Store.GetTournament(tournamentID)
	if err != nil || tournament == nil {
		log.Error("Failed to reload tournament for notification", "error", err, "tournament_id", tournamentID)
		return
	}
	if err := s.Notifier.SendSettlementSummary(tournament, outcome, isDryRunFromContext(r)); err != nil {
		log.Error("Failed to send settlement summary", "error", err, "tournament_id", tournamentID)
	}
}

// writeSettleError maps settlement errors onto HTTP status classes.
func writeSettleError(w http.ResponseWriter, err error) {
	var apiErr *challonge.APIError
	switch {
	case errors.Is(err, settlement.ErrTournamentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, settlement.ErrAlreadyRated):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrSeasonNotFound):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrSlugMissing):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &apiErr):
		log.Error("Provider error during settlement", "error", err)
		http.Error(w, "Bracket provider error", http.StatusBadGateway)
	default:
		log.Error("Settlement failed", "error", err)
		http.Error(w, "Settlement failed", http.StatusInternalServerError)
	}
}

func isFatalSettleError(err error) bool {
	return errors.Is(err, settlement.ErrTournamentNotFound) ||
		errors.Is(err, settlement.ErrSeasonNotFound) ||
		errors.Is(err, settlement.ErrSlugMissing) ||
		errors.Is(err, settlement.ErrAlreadyRated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
