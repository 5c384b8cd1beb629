package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/league"
)

func TestBuildParticipantMap(t *testing.T) {
	regs := []league.Registration{
		{UserID: "AB2CD", ChallongeDisplayName: strPtr("[AB2CD] alice")},
		{UserID: "XY9ZW", ChallongeDisplayName: strPtr("[XY9ZW] bob")},
	}

	t.Run("maps coded participants to registered users", func(t *testing.T) {
		participants := []challonge.Participant{
			{ID: 1, Name: "[AB2CD] alice"},
			{ID: 2, Name: "[XY9ZW] bob"},
		}
		mapped := BuildParticipantMap(participants, regs)
		assert.Len(t, mapped, 2)
		assert.Equal(t, "AB2CD", mapped[1].UserID)
		assert.Equal(t, "[XY9ZW] bob", mapped[2].DisplayName)
	})

	t.Run("display name wins over name", func(t *testing.T) {
		participants := []challonge.Participant{
			{ID: 7, Name: "no code here", DisplayName: strPtr("[AB2CD] alice")},
		}
		mapped := BuildParticipantMap(participants, regs)
		assert.Equal(t, "AB2CD", mapped[7].UserID)
	})

	t.Run("lowercase code still matches", func(t *testing.T) {
		participants := []challonge.Participant{
			{ID: 3, Name: "[ab2cd] alice"},
		}
		mapped := BuildParticipantMap(participants, regs)
		assert.Equal(t, "AB2CD", mapped[3].UserID)
	})

	t.Run("uncoded and unregistered participants are dropped", func(t *testing.T) {
		participants := []challonge.Participant{
			{ID: 4, Name: "walk-in player"},
			{ID: 5, Name: "[QQ7QQ] stranger"},
		}
		mapped := BuildParticipantMap(participants, regs)
		assert.Empty(t, mapped)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, BuildParticipantMap(nil, regs))
		assert.Empty(t, BuildParticipantMap([]challonge.Participant{{ID: 1, Name: "[AB2CD] alice"}}, nil))
	})
}
