package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/elo"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
)

// New creates a Settler backed by the given store and bracket provider.
func New(store Store, provider challonge.Client, m metrics.Metrics) *Settler {
	return &Settler{
		store:    store,
		provider: provider,
		metrics:  m,
	}
}

// Settle converts a finished tournament bracket into matches, rating events
// and updated season ratings. The replay is deterministic: given the same
// bracket it always produces the same events in the same order, which is
// what makes reruns safe. When rerun is true an already rated tournament is
// rolled back first; without it ErrAlreadyRated is returned.
func (s *Settler) Settle(ctx context.Context, tournamentID string, rerun bool) (*Outcome, error) {
	s.metrics.IncSettlementRuns()
	start := time.Now()
	defer func() {
		s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	}()

	tournament, err := s.store.GetTournament(tournamentID)
	if err != nil {
		return nil, fmt.Errorf("loading tournament: %w", err)
	}
	if tournament == nil {
		return nil, ErrTournamentNotFound
	}

	season, err := s.store.GetSeason(tournament.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("loading season: %w", err)
	}
	if season == nil {
		return nil, ErrSeasonNotFound
	}

	if tournament.State == league.TournamentRated && !rerun {
		return nil, ErrAlreadyRated
	}

	slug := ""
	if tournament.ChallongeSlug != nil && *tournament.ChallongeSlug != "" {
		slug = *tournament.ChallongeSlug
	} else {
		slug = challonge.ExtractSlug(tournament.ChallongeURL)
	}
	if slug == "" {
		return nil, ErrSlugMissing
	}

	log.Info("Fetching bracket from provider", "tournament_id", tournamentID, "slug", slug, "phase", phaseFetching)
	participants, err := s.provider.FetchParticipants(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("fetching participants: %w", err)
	}
	bracketMatches, err := s.provider.FetchMatches(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("fetching matches: %w", err)
	}

	regs, err := s.store.GetRegistrations(tournamentID)
	if err != nil {
		return nil, fmt.Errorf("loading registrations: %w", err)
	}
	mapped := BuildParticipantMap(participants, regs)
	log.Info("Mapped bracket participants", "tournament_id", tournamentID,
		"participants", len(participants), "registered", len(regs), "mapped", len(mapped), "phase", phaseMapping)

	if len(mapped) == 0 {
		return &Outcome{NoOp: true, Reason: "no registered players found in bracket"}, nil
	}

	if err := s.recordParticipantIdentities(tournamentID, regs, mapped); err != nil {
		return nil, fmt.Errorf("recording participant identities: %w", err)
	}

	rateable := make([]challonge.Match, 0, len(bracketMatches))
	for _, m := range bracketMatches {
		if m.IsRateable() {
			rateable = append(rateable, m)
		}
	}
	if len(rateable) == 0 {
		return &Outcome{NoOp: true, Reason: "no completed matches in bracket"}, nil
	}
	sortByCompletion(rateable)

	// Only players who actually appear in a completed match get a rating
	// state. A registered player absent from the bracket must not gain a
	// season row or influence the top-rating damping.
	userSet := make(map[string]struct{})
	for _, bm := range rateable {
		if p, ok := mapped[*bm.Player1ID]; ok {
			userSet[p.UserID] = struct{}{}
		}
		if p, ok := mapped[*bm.Player2ID]; ok {
			userSet[p.UserID] = struct{}{}
		}
	}
	if len(userSet) == 0 {
		return &Outcome{
			SkippedMatches: len(rateable),
			NoOp:           true,
			Reason:         "no matches between registered players",
		}, nil
	}
	userIDs := make([]string, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	// Roll back only once the bracket has been fetched and mapped, so a
	// failed rerun cannot destroy the previous settlement.
	if tournament.State == league.TournamentRated {
		log.Info("Tournament already rated, rolling back before rerun", "tournament_id", tournamentID, "phase", phaseRollingBack)
		if err := s.Rollback(ctx, tournamentID, season.ID); err != nil {
			return nil, fmt.Errorf("rolling back previous settlement: %w", err)
		}
	}

	states, err := s.store.LoadRatingStates(season.ID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("loading rating states: %w", err)
	}

	entrants := len(states)
	if len(mapped) > entrants {
		entrants = len(mapped)
	}
	if len(regs) > entrants {
		entrants = len(regs)
	}
	if entrants < 1 {
		entrants = 1
	}

	baseK := 0.0
	if season.KFactor != nil {
		baseK = float64(*season.KFactor)
	}

	doubleElim := IsDoubleElimination(rateable)
	log.Info("Replaying bracket matches", "tournament_id", tournamentID,
		"matches", len(rateable), "entrants", entrants, "double_elimination", doubleElim, "phase", phaseReplaying)

	var (
		matches []league.Match
		events  []league.RatingEvent
		skipped int
	)

	for _, bm := range rateable {
		p1, ok1 := mapped[*bm.Player1ID]
		p2, ok2 := mapped[*bm.Player2ID]
		if !ok1 || !ok2 {
			skipped++
			log.Debug("Skipping match with unmapped participant", "challonge_match_id", bm.ID,
				"p1_mapped", ok1, "p2_mapped", ok2)
			continue
		}

		stateA := states[p1.UserID]
		stateB := states[p2.UserID]

		scoreA := 0
		winnerUserID := ""
		switch *bm.WinnerID {
		case *bm.Player1ID:
			scoreA = 1
			winnerUserID = p1.UserID
		case *bm.Player2ID:
			winnerUserID = p2.UserID
		default:
			skipped++
			log.Debug("Skipping match with unknown winner", "challonge_match_id", bm.ID, "winner_id", *bm.WinnerID)
			continue
		}

		gap := ScoreGap(bm.ScoresCSV)
		result := elo.Apply(stateA.Rating, stateB.Rating, scoreA, elo.Context{
			EntrantsCount: entrants,
			Stage:         DeriveStage(bm.Round, doubleElim),
			ScoreGap:      float64(gap),
			TopRating:     topRating(states),
			BaseK:         baseK,
		})

		completedAt := completionTimestamp(bm)
		winnerRatingAfter, loserRatingAfter := result.NewRatingB, result.NewRatingA
		if scoreA == 1 {
			winnerRatingAfter, loserRatingAfter = result.NewRatingA, result.NewRatingB
		}
		match := buildMatch(tournamentID, bm, p1.UserID, p2.UserID, winnerUserID, gap, winnerRatingAfter, loserRatingAfter, completedAt)
		matches = append(matches, match)
		events = append(events,
			buildEvent(season.ID, match.ID, p1.UserID, stateA.Rating, result.NewRatingA, result.DeltaA, baseK, completedAt),
			buildEvent(season.ID, match.ID, p2.UserID, stateB.Rating, result.NewRatingB, result.DeltaB, baseK, completedAt),
		)

		advanceState(stateA, result.NewRatingA, completedAt)
		advanceState(stateB, result.NewRatingB, completedAt)
	}

	if len(matches) == 0 {
		return &Outcome{
			SkippedMatches: skipped,
			NoOp:           true,
			Reason:         "no matches between registered players",
		}, nil
	}

	log.Info("Persisting settlement", "tournament_id", tournamentID,
		"matches", len(matches), "events", len(events), "phase", phasePersisting)
	if err := s.store.InsertMatches(matches); err != nil {
		return nil, fmt.Errorf("persisting matches: %w", err)
	}
	if err := s.store.InsertRatingEvents(events); err != nil {
		return nil, fmt.Errorf("persisting rating events: %w", err)
	}
	if err := s.store.UpsertRatingStates(season.ID, states); err != nil {
		return nil, fmt.Errorf("persisting rating states: %w", err)
	}
	if err := s.store.SetTournamentState(tournamentID, league.TournamentRated); err != nil {
		return nil, fmt.Errorf("marking tournament rated: %w", err)
	}

	s.metrics.AddMatchesSettled(len(matches))
	s.metrics.AddMatchesSkipped(skipped)

	touched := touchedPlayers(events)
	log.Info("Settlement complete", "tournament_id", tournamentID,
		"processed_matches", len(matches), "processed_players", touched, "skipped_matches", skipped, "phase", phaseDone)

	return &Outcome{
		ProcessedMatches: len(matches),
		ProcessedPlayers: touched,
		SkippedMatches:   skipped,
	}, nil
}

// recordParticipantIdentities writes the provider participant id and display
// name back onto each mapped registration.
func (s *Settler) recordParticipantIdentities(tournamentID string, regs []league.Registration, mapped map[int]MappedParticipant) error {
	byUser := make(map[string]league.Registration, len(regs))
	for _, reg := range regs {
		byUser[reg.UserID] = reg
	}

	updated := make([]league.Registration, 0, len(mapped))
	for participantID, mp := range mapped {
		reg, ok := byUser[mp.UserID]
		if !ok {
			continue
		}
		pid := participantID
		name := mp.DisplayName
		reg.TournamentID = tournamentID
		reg.ChallongeParticipantID = &pid
		reg.ChallongeDisplayName = &name
		updated = append(updated, reg)
	}
	if len(updated) == 0 {
		return nil
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].UserID < updated[j].UserID })
	return s.store.UpsertRegistrations(updated)
}

// sortByCompletion orders matches by completion timestamp, then provider
// match id. The ordering is total, so a shuffled bracket replays to the
// exact same ratings.
func sortByCompletion(matches []challonge.Match) {
	sort.Slice(matches, func(i, j int) bool {
		ti := parseTimestamp(matches[i].CompletionKey())
		tj := parseTimestamp(matches[j].CompletionKey())
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return matches[i].ID < matches[j].ID
	})
}

// parseTimestamp is lenient: unparseable or missing timestamps become the
// zero time, which sorts before everything else.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// completionTimestamp picks the timestamp stored on the internal match and
// its rating events: completed_at, falling back to updated_at, then now.
// Unlike the sort key it never falls back to started_at, so a match carrying
// only started_at replays in its slot but is stamped with now(). Rollback
// reads events back in created_at order and assumes that order matches the
// replay, which holds whenever the provider reports completed_at or
// updated_at on every match.
func completionTimestamp(m challonge.Match) string {
	if m.CompletedAt != nil && *m.CompletedAt != "" {
		return *m.CompletedAt
	}
	if m.UpdatedAt != nil && *m.UpdatedAt != "" {
		return *m.UpdatedAt
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// buildMatch assembles the internal match row. WinnerPoints and LoserPoints
// carry the post-match rating snapshots, mirroring the two rating events.
func buildMatch(tournamentID string, bm challonge.Match, p1, p2, winner string, gap, winnerRatingAfter, loserRatingAfter int, completedAt string) league.Match {
	scores := ""
	if bm.ScoresCSV != nil {
		scores = *bm.ScoresCSV
	}

	return league.Match{
		ID:               uuid.NewString(),
		TournamentID:     tournamentID,
		ChallongeMatchID: bm.ID,
		P1UserID:         p1,
		P2UserID:         p2,
		WinnerUserID:     winner,
		ScoresCSV:        scores,
		WinnerPoints:     winnerRatingAfter,
		LoserPoints:      loserRatingAfter,
		ScoreDiff:        gap,
		CompletedAt:      completedAt,
	}
}

func buildEvent(seasonID, matchID, userID string, before, after, delta int, baseK float64, createdAt string) league.RatingEvent {
	k := int(baseK)
	if k <= 0 {
		k = elo.DefaultBaseK
	}
	return league.RatingEvent{
		ID:           uuid.NewString(),
		SeasonID:     seasonID,
		MatchID:      matchID,
		UserID:       userID,
		RatingBefore: before,
		RatingAfter:  after,
		Delta:        delta,
		KFactor:      k,
		CreatedAt:    createdAt,
	}
}

// advanceState mutates a rating state after one replayed match.
func advanceState(state *league.RatingState, newRating int, completedAt string) {
	if newRating != state.Rating {
		ts := completedAt
		state.FirstReached = &ts
	}
	state.Rating = newRating
	state.Matches++
}

// topRating returns the highest current rating among the loaded states. It
// is recomputed per match so the damping bands track the replay.
func topRating(states map[string]*league.RatingState) int {
	top := 0
	for _, st := range states {
		if st.Rating > top {
			top = st.Rating
		}
	}
	return top
}

func touchedPlayers(events []league.RatingEvent) int {
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		seen[ev.UserID] = struct{}{}
	}
	return len(seen)
}
