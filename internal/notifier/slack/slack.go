package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"

	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
	"github.com/boardtenz/bracketline/internal/notifier"
	"github.com/boardtenz/bracketline/internal/settlement"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// SendSettlementSummary announces the result of a settlement run.
func (s *Notifier) SendSettlementSummary(tournament *league.Tournament, outcome *settlement.Outcome, dryRun bool) error {
	msg := s.formatSettlementSummary(tournament, outcome)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// SendLeaderboard posts the season standings.
func (s *Notifier) SendLeaderboard(entries []league.LeaderboardEntry, dryRun bool) error {
	msg := s.formatLeaderboard(entries)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// formatSettlementSummary creates a Slack message summarizing a settlement.
func (s *Notifier) formatSettlementSummary(tournament *league.Tournament, outcome *settlement.Outcome) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("🏁 %s has been rated!", tournament.Name), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if outcome.NoOp {
		body := fmt.Sprintf("Nothing to rate: %s.", outcome.Reason)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", body, true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	body := fmt.Sprintf("%d matches rated across %d players.", outcome.ProcessedMatches, outcome.ProcessedPlayers)
	if outcome.SkippedMatches > 0 {
		body += fmt.Sprintf(" %d matches skipped (unregistered players).", outcome.SkippedMatches)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", body, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message displaying the season standings.
func (s *Notifier) formatLeaderboard(entries []league.LeaderboardEntry) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Season Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(entries) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No rated matches yet. Go play some brackets!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for _, entry := range entries {
		var medal string
		switch entry.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s\n> Rating: %d | Matches: %d",
			entry.Rank,
			medal,
			entry.Username,
			entry.RatingCurrent,
			entry.MatchesPlayed,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", playerText, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}
