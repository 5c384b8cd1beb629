package settlement

import (
	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/league"
	"github.com/boardtenz/bracketline/internal/playercode"
)

// BuildParticipantMap reconciles bracket participants against the players
// registered for the tournament. A participant is mapped when its display
// name carries a player code that matches a registered user; anything else
// stays unmapped and its matches are skipped during replay.
func BuildParticipantMap(participants []challonge.Participant, regs []league.Registration) map[int]MappedParticipant {
	byCode := make(map[string]league.Registration, len(regs))
	for _, reg := range regs {
		byCode[reg.UserID] = reg
	}

	mapped := make(map[int]MappedParticipant)
	for _, p := range participants {
		name := p.Name
		if p.DisplayName != nil && *p.DisplayName != "" {
			name = *p.DisplayName
		}
		code := playercode.Extract(name)
		if code == "" {
			continue
		}
		reg, ok := byCode[code]
		if !ok {
			continue
		}
		mapped[p.ID] = MappedParticipant{
			UserID:      reg.UserID,
			DisplayName: name,
		}
	}
	return mapped
}
