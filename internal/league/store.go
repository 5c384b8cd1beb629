package league

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boardtenz/bracketline/internal/playercode"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a new league Store backed by the given database.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateUser creates a player profile. The generated id is the public
// 5-character code players embed in their provider display names, so it
// retries on the (unlikely) collision with an existing code.
func (s *store) CreateUser(username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 5; attempt++ {
		code, err := playercode.Generate()
		if err != nil {
			return nil, err
		}
		user := &User{ID: code, Username: username, CreatedAt: now()}
		_, err = s.db.Exec("INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)", user.ID, user.Username, user.CreatedAt)
		if err == nil {
			log.Info("Created user", "userID", user.ID, "username", username)
			return user, nil
		}
		// "UNIQUE constraint failed: users.id" means the generated code is
		// taken; any other error (including a username conflict) is final.
		if strings.Contains(err.Error(), "users.id") {
			log.Warn("Player code collision, regenerating", "code", code)
			continue
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return nil, errors.New("could not allocate a unique player code")
}

func (s *store) GetUser(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	err := s.db.QueryRow("SELECT id, username, created_at FROM users WHERE id = ?", strings.ToUpper(id)).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func (s *store) GetSeason(id string) (*Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanSeason(s.db.QueryRow(
		"SELECT id, status, start_at, end_at, k_factor FROM seasons WHERE id = ?", id))
}

// GetActiveSeason returns the most recently started active season, or nil
// when no season is active.
func (s *store) GetActiveSeason() (*Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanSeason(s.db.QueryRow(
		"SELECT id, status, start_at, end_at, k_factor FROM seasons WHERE status = ? ORDER BY start_at DESC LIMIT 1",
		SeasonActive))
}

func (s *store) scanSeason(row *sql.Row) (*Season, error) {
	var season Season
	err := row.Scan(&season.ID, &season.Status, &season.StartAt, &season.EndAt, &season.KFactor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load season: %w", err)
	}
	return &season, nil
}

func (s *store) CreateSeason(kFactor *int) (*Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	season := &Season{ID: uuid.NewString(), Status: SeasonActive, StartAt: now(), KFactor: kFactor}
	_, err := s.db.Exec("INSERT INTO seasons (id, status, start_at, k_factor) VALUES (?, ?, ?, ?)",
		season.ID, season.Status, season.StartAt, season.KFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}
	log.Info("Created season", "seasonID", season.ID)
	return season, nil
}

// FinalizeActiveSeason closes the active season. The transition is one-way;
// returns (nil, nil) when no season is active.
func (s *store) FinalizeActiveSeason() (*Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	season, err := s.scanSeason(s.db.QueryRow(
		"SELECT id, status, start_at, end_at, k_factor FROM seasons WHERE status = ? ORDER BY start_at DESC LIMIT 1",
		SeasonActive))
	if err != nil || season == nil {
		return nil, err
	}

	endAt := now()
	_, err = s.db.Exec("UPDATE seasons SET status = ?, end_at = ? WHERE id = ?", SeasonFinalized, endAt, season.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize season: %w", err)
	}
	season.Status = SeasonFinalized
	season.EndAt = &endAt
	log.Info("Finalized season", "seasonID", season.ID)
	return season, nil
}

func (s *store) CreateTournament(name, seasonID, challongeURL string) (*Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Tournament{
		ID:           uuid.NewString(),
		Name:         name,
		SeasonID:     seasonID,
		ChallongeURL: challongeURL,
		State:        TournamentRegistered,
		CreatedAt:    now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO tournaments (id, name, season_id, challonge_url, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.SeasonID, t.ChallongeURL, t.State, t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	log.Info("Created tournament", "tournamentID", t.ID, "name", name)
	return t, nil
}

func (s *store) GetTournament(id string) (*Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Tournament
	err := s.db.QueryRow(`
		SELECT t.id, t.name, t.season_id, t.challonge_url, t.challonge_slug, t.state, t.created_at,
			(SELECT COUNT(*) FROM tournament_players tp WHERE tp.tournament_id = t.id)
		FROM tournaments t WHERE t.id = ?`, id).
		Scan(&t.ID, &t.Name, &t.SeasonID, &t.ChallongeURL, &t.ChallongeSlug, &t.State, &t.CreatedAt, &t.PlayerCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return &t, nil
}

func (s *store) ListSeasonTournaments(seasonID string) ([]Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.season_id, t.challonge_url, t.challonge_slug, t.state, t.created_at,
			(SELECT COUNT(*) FROM tournament_players tp WHERE tp.tournament_id = t.id)
		FROM tournaments t WHERE t.season_id = ? ORDER BY t.created_at DESC LIMIT 50`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []Tournament
	for rows.Next() {
		var t Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.SeasonID, &t.ChallongeURL, &t.ChallongeSlug, &t.State, &t.CreatedAt, &t.PlayerCount); err != nil {
			log.Error("Failed to scan tournament row", "error", err)
			continue
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (s *store) SetTournamentState(id string, state TournamentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE tournaments SET state = ? WHERE id = ?", state, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tournament %s not found", id)
	}
	return nil
}

// RegisterPlayer records a (tournament, user) registration. Re-registering
// only refreshes the display name.
func (s *store) RegisterPlayer(tournamentID, userID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO tournament_players (tournament_id, user_id, challonge_display_name)
		VALUES (?, ?, ?)
		ON CONFLICT(tournament_id, user_id) DO UPDATE SET
			challonge_display_name = excluded.challonge_display_name`,
		tournamentID, userID, displayName)
	if err != nil {
		return fmt.Errorf("failed to register player: %w", err)
	}
	return nil
}

func (s *store) GetRegistrations(tournamentID string) ([]Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT tournament_id, user_id, challonge_participant_id, challonge_display_name
		FROM tournament_players WHERE tournament_id = ?`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament registrations: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.TournamentID, &r.UserID, &r.ChallongeParticipantID, &r.ChallongeDisplayName); err != nil {
			log.Error("Failed to scan registration row", "error", err)
			continue
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// UpsertRegistrations persists provider participant metadata onto existing
// registrations, keyed on (tournament, user).
func (s *store) UpsertRegistrations(regs []Registration) error {
	if len(regs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO tournament_players (tournament_id, user_id, challonge_participant_id, challonge_display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tournament_id, user_id) DO UPDATE SET
			challonge_participant_id = excluded.challonge_participant_id,
			challonge_display_name = excluded.challonge_display_name`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range regs {
		if _, err := stmt.Exec(r.TournamentID, r.UserID, r.ChallongeParticipantID, r.ChallongeDisplayName); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert registration for %s: %w", r.UserID, err)
		}
	}
	return tx.Commit()
}

// LoadRatingStates loads the per-season rating rows for the given users,
// lazily creating missing rows at the rating floor.
func (s *store) LoadRatingStates(seasonID string, userIDs []string) (map[string]*RatingState, error) {
	states := make(map[string]*RatingState)
	if len(userIDs) == 0 {
		return states, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`
		SELECT user_id, rating_current, matches_played, first_reached_current_rating_at
		FROM player_season_ratings
		WHERE season_id = ? AND user_id IN (%s)`, placeholders(len(userIDs)))
	args := append([]any{seasonID}, toAnySlice(userIDs)...)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load player ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var st RatingState
		if err := rows.Scan(&userID, &st.Rating, &st.Matches, &st.FirstReached); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		states[userID] = &st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, userID := range userIDs {
		if _, ok := states[userID]; ok {
			continue
		}
		_, err := s.db.Exec(`
			INSERT INTO player_season_ratings (user_id, season_id, rating_current, matches_played)
			VALUES (?, ?, 1000, 0)
			ON CONFLICT(user_id, season_id) DO NOTHING`, userID, seasonID)
		if err != nil {
			return nil, fmt.Errorf("failed to seed player rating for %s: %w", userID, err)
		}
		states[userID] = &RatingState{Rating: 1000, Matches: 0}
	}
	return states, nil
}

func (s *store) UpsertRatingStates(seasonID string, states map[string]*RatingState) error {
	if len(states) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO player_season_ratings (user_id, season_id, rating_current, matches_played, first_reached_current_rating_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, season_id) DO UPDATE SET
			rating_current = excluded.rating_current,
			matches_played = excluded.matches_played,
			first_reached_current_rating_at = excluded.first_reached_current_rating_at,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	ts := now()
	for userID, st := range states {
		if _, err := stmt.Exec(userID, seasonID, st.Rating, st.Matches, st.FirstReached, ts); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to persist player rating for %s: %w", userID, err)
		}
	}
	return tx.Commit()
}

// RollbackRatingState restores a player's rating to the given value and
// removes the rolled-back matches from the played count, floored at zero.
func (s *store) RollbackRatingState(seasonID, userID string, restoredRating, matchesToRemove int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE player_season_ratings
		SET rating_current = ?, matches_played = MAX(matches_played - ?, 0), updated_at = ?
		WHERE season_id = ? AND user_id = ?`,
		restoredRating, matchesToRemove, now(), seasonID, userID)
	if err != nil {
		return fmt.Errorf("failed to rollback rating for %s: %w", userID, err)
	}
	return nil
}

func (s *store) InsertMatches(matches []Match) error {
	if len(matches) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO matches (id, tournament_id, challonge_match_id, p1_user_id, p2_user_id, winner_user_id, scores_csv, winner_points, loser_points, score_diff, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err := stmt.Exec(m.ID, m.TournamentID, m.ChallongeMatchID, m.P1UserID, m.P2UserID, m.WinnerUserID,
			m.ScoresCSV, m.WinnerPoints, m.LoserPoints, m.ScoreDiff, m.CompletedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func (s *store) InsertRatingEvents(events []RatingEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO rating_events (id, season_id, match_id, user_id, rating_before, rating_after, delta, k_factor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(e.ID, e.SeasonID, e.MatchID, e.UserID, e.RatingBefore, e.RatingAfter, e.Delta, e.KFactor, e.CreatedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert rating event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func (s *store) TournamentMatches(tournamentID string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, tournament_id, challonge_match_id, p1_user_id, p2_user_id, winner_user_id, scores_csv, winner_points, loser_points, score_diff, completed_at
		FROM matches WHERE tournament_id = ? ORDER BY completed_at ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.TournamentID, &m.ChallongeMatchID, &m.P1UserID, &m.P2UserID, &m.WinnerUserID,
			&m.ScoresCSV, &m.WinnerPoints, &m.LoserPoints, &m.ScoreDiff, &m.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// RatingEventsForMatches loads all events referencing the given matches,
// ordered by creation time ascending (insertion order breaks ties).
func (s *store) RatingEventsForMatches(matchIDs []string) ([]RatingEvent, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT id, season_id, match_id, user_id, rating_before, rating_after, delta, k_factor, created_at
		FROM rating_events WHERE match_id IN (%s)
		ORDER BY created_at ASC, rowid ASC`, placeholders(len(matchIDs)))

	rows, err := s.db.Query(query, toAnySlice(matchIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing rating events: %w", err)
	}
	defer rows.Close()

	var events []RatingEvent
	for rows.Next() {
		var e RatingEvent
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.MatchID, &e.UserID, &e.RatingBefore, &e.RatingAfter, &e.Delta, &e.KFactor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *store) DeleteRatingEvents(matchIDs []string) error {
	if len(matchIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM rating_events WHERE match_id IN (%s)", placeholders(len(matchIDs)))
	if _, err := s.db.Exec(query, toAnySlice(matchIDs)...); err != nil {
		return fmt.Errorf("failed to delete old rating events: %w", err)
	}
	return nil
}

func (s *store) DeleteTournamentMatches(tournamentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM matches WHERE tournament_id = ?", tournamentID); err != nil {
		return fmt.Errorf("failed to delete old matches: %w", err)
	}
	return nil
}

// Leaderboard returns the ranked season standings. When stickyUserID is set
// and that player falls outside the limit, their row is appended so a player
// always sees themselves.
func (s *store) Leaderboard(seasonID string, limit int, stickyUserID string) ([]LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT r.user_id, COALESCE(u.username, 'Unknown Player'), r.rating_current, r.matches_played
		FROM player_season_ratings r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.season_id = ?
		ORDER BY r.rating_current DESC, r.matches_played DESC, r.first_reached_current_rating_at ASC`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var all []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.RatingCurrent, &e.MatchesPlayed); err != nil {
			log.Error("Failed to scan leaderboard row", "error", err)
			continue
		}
		e.Rank = len(all) + 1
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(all) <= limit {
		return all, nil
	}
	top := all[:limit]
	if stickyUserID == "" {
		return top, nil
	}
	for _, e := range top {
		if e.UserID == stickyUserID {
			return top, nil
		}
	}
	for _, e := range all[limit:] {
		if e.UserID == stickyUserID {
			return append(top, e), nil
		}
	}
	return top, nil
}

func (s *store) PlayerHistory(seasonID, userID string, limit int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT e.id, e.match_id, t.name,
			ou.username,
			CASE WHEN m.winner_user_id = e.user_id THEN 'win' ELSE 'loss' END,
			e.rating_before, e.rating_after, e.delta,
			COALESCE(m.completed_at, e.created_at)
		FROM rating_events e
		JOIN matches m ON m.id = e.match_id
		JOIN tournaments t ON t.id = m.tournament_id
		LEFT JOIN users ou ON ou.id = CASE WHEN m.p1_user_id = e.user_id THEN m.p2_user_id ELSE m.p1_user_id END
		WHERE e.season_id = ? AND e.user_id = ?
		ORDER BY e.created_at DESC, e.rowid DESC
		LIMIT ?`, seasonID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load player history: %w", err)
	}
	defer rows.Close()

	var history []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.MatchID, &h.TournamentName, &h.OpponentUsername,
			&h.Result, &h.RatingBefore, &h.RatingAfter, &h.Delta, &h.CompletedAt); err != nil {
			log.Error("Failed to scan history row", "error", err)
			continue
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
