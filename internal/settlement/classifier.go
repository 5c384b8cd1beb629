package settlement

import (
	"strconv"
	"strings"

	"github.com/boardtenz/bracketline/internal/challonge"
	"github.com/boardtenz/bracketline/internal/elo"
)

// IsDoubleElimination reports whether the completed match set came from a
// double-elimination bracket. The provider encodes lower-bracket rounds as
// negative round numbers, so a single negative round anywhere is the signal;
// without one every match is treated as round robin.
func IsDoubleElimination(matches []challonge.Match) bool {
	for _, m := range matches {
		if m.Round != nil && *m.Round < 0 {
			return true
		}
	}
	return false
}

// DeriveStage maps a provider round number onto the bracket stage used by
// the rating calculation. Round 0 is the grand final in double elimination.
func DeriveStage(round *int, doubleElimination bool) elo.Stage {
	if !doubleElimination || round == nil {
		return elo.StageRoundRobin
	}
	switch {
	case *round == 0:
		return elo.StageGrandFinal
	case *round < 0:
		return elo.StageLowerBracket
	default:
		return elo.StageUpperBracket
	}
}

// ScoreGap computes the margin of victory from a provider score string of
// the form "a-b,a-b,...": per-game scores are summed per side and the gap is
// the absolute difference, floored at 1. Malformed or absent scores yield
// the neutral gap of 1.
func ScoreGap(scoresCSV *string) int {
	totalA, totalB := scoreTotals(scoresCSV)
	gap := totalA - totalB
	if gap < 0 {
		gap = -gap
	}
	if gap < 1 {
		return 1
	}
	return gap
}

// scoreTotals sums the per-game scores of each side.
func scoreTotals(scoresCSV *string) (int, int) {
	if scoresCSV == nil || *scoresCSV == "" {
		return 0, 0
	}

	var totalA, totalB int
	for _, segment := range strings.Split(*scoresCSV, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		a, b, ok := parseGameScore(segment)
		if !ok {
			continue
		}
		totalA += a
		totalB += b
	}
	return totalA, totalB
}

// parseGameScore splits one "a-b" pair. Negative scores ("-1--1" forfeit
// markers) still parse: the split is on the first '-' that separates two
// valid integers.
func parseGameScore(segment string) (int, int, bool) {
	for i := 1; i < len(segment); i++ {
		if segment[i] != '-' {
			continue
		}
		a, errA := strconv.Atoi(segment[:i])
		b, errB := strconv.Atoi(segment[i+1:])
		if errA == nil && errB == nil {
			return a, b, true
		}
	}
	return 0, 0, false
}
