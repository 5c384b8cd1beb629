package slack

import (
	"context"
	"errors"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/metrics"
	"github.com/boardtenz/bracketline/internal/settlement"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, true)
	require.NoError(t, err)
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

func TestSendSettlementSummary_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	tournament := &league.Tournament{ID: "t-1", Name: "Spring Open"}
	outcome := &settlement.Outcome{ProcessedMatches: 7, ProcessedPlayers: 8, SkippedMatches: 1}
	err := notifier.SendSettlementSummary(tournament, outcome, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
}

func TestFormatSettlementSummary(t *testing.T) {
	notifier := NewNotifierWithAPI(nil, "C123", metrics.NewMock())
	tournament := &league.Tournament{ID: "t-1", Name: "Spring Open"}

	t.Run("regular summary includes skip count", func(t *testing.T) {
		msg := notifier.formatSettlementSummary(tournament, &settlement.Outcome{
			ProcessedMatches: 7, ProcessedPlayers: 8, SkippedMatches: 1,
		})
		require.NotEmpty(t, msg.Blocks.BlockSet)
		assert.Len(t, msg.Blocks.BlockSet, 2)
	})

	t.Run("noop summary explains the reason", func(t *testing.T) {
		msg := notifier.formatSettlementSummary(tournament, &settlement.Outcome{
			NoOp: true, Reason: "no completed matches in bracket",
		})
		assert.Len(t, msg.Blocks.BlockSet, 2)
	})
}

func TestFormatLeaderboard(t *testing.T) {
	notifier := NewNotifierWithAPI(nil, "C123", metrics.NewMock())

	t.Run("empty leaderboard shows placeholder", func(t *testing.T) {
		msg := notifier.formatLeaderboard(nil)
		assert.Len(t, msg.Blocks.BlockSet, 2)
	})

	t.Run("one block per entry plus header", func(t *testing.T) {
		entries := []league.LeaderboardEntry{
			{Rank: 1, Username: "alice", RatingCurrent: 1210, MatchesPlayed: 12},
			{Rank: 2, Username: "bob", RatingCurrent: 1105, MatchesPlayed: 10},
		}
		msg := notifier.formatLeaderboard(entries)
		assert.Len(t, msg.Blocks.BlockSet, 3)
	})
}
