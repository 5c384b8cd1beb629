package settlement

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/boardtenz/bracketline/internal/league"
)

// Rollback undoes a previous settlement of the tournament: every player's
// rating is restored to the rating_before of their earliest event from this
// tournament, matches_played is reduced by their event count, and the
// tournament's matches and events are deleted. The tournament returns to
// the registered state so it can be settled again.
func (s *Settler) Rollback(ctx context.Context, tournamentID, seasonID string) error {
	matches, err := s.store.TournamentMatches(tournamentID)
	if err != nil {
		return fmt.Errorf("loading tournament matches: %w", err)
	}
	if len(matches) == 0 {
		log.Info("Nothing to roll back", "tournament_id", tournamentID)
		return nil
	}

	matchIDs := make([]string, len(matches))
	for i, m := range matches {
		matchIDs[i] = m.ID
	}

	events, err := s.store.RatingEventsForMatches(matchIDs)
	if err != nil {
		return fmt.Errorf("loading rating events: %w", err)
	}

	// Events arrive in creation order, so the first event seen per player
	// carries the rating they held before this tournament touched them.
	restored := make(map[string]int)
	removed := make(map[string]int)
	for _, ev := range events {
		if _, ok := restored[ev.UserID]; !ok {
			restored[ev.UserID] = ev.RatingBefore
		}
		removed[ev.UserID]++
	}

	for userID, rating := range restored {
		if err := s.store.RollbackRatingState(seasonID, userID, rating, removed[userID]); err != nil {
			return fmt.Errorf("restoring rating state for %s: %w", userID, err)
		}
	}

	if err := s.store.DeleteRatingEvents(matchIDs); err != nil {
		return fmt.Errorf("deleting rating events: %w", err)
	}
	if err := s.store.DeleteTournamentMatches(tournamentID); err != nil {
		return fmt.Errorf("deleting matches: %w", err)
	}
	if err := s.store.SetTournamentState(tournamentID, league.TournamentRegistered); err != nil {
		return fmt.Errorf("resetting tournament state: %w", err)
	}

	s.metrics.IncRollbacks()
	log.Info("Rolled back tournament settlement", "tournament_id", tournamentID,
		"matches_removed", len(matches), "players_restored", len(restored))
	return nil
}
