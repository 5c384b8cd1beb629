// Package elo implements the seasonal rating calculation. Apply is a pure
// function of its inputs so it can be replayed deterministically when a
// tournament is re-settled.
package elo

import "math"

// Stage identifies the bracket phase a match was played in.
type Stage string

const (
	StageRoundRobin   Stage = "RR"
	StageUpperBracket Stage = "DE_UB"
	StageLowerBracket Stage = "DE_LB"
	StageGrandFinal   Stage = "GF"
)

const (
	// RatingFloor is the hard minimum rating; new players start here.
	RatingFloor = 1000
	// DefaultBaseK is used when a season carries no k-factor override.
	DefaultBaseK = 28
	// MaxDelta caps the absolute rating swing of a single match.
	MaxDelta = 1000
)

// Context carries the match circumstances that scale the base k-factor.
type Context struct {
	// EntrantsCount is the tournament field size. Values <= 0 leave the
	// entrants factor neutral.
	EntrantsCount int
	Stage         Stage
	// ScoreGap is the margin of victory summed across games, >= 0.
	ScoreGap float64
	// TopRating is the current maximum rating among season participants.
	TopRating int
	BaseK     float64
}

// Result holds the signed deltas and post-match ratings for both sides.
// Deltas are intentionally not zero-sum: each side's effective k-factor and
// gain/loss damping are computed independently.
type Result struct {
	DeltaA     int
	DeltaB     int
	NewRatingA int
	NewRatingB int
}

// Apply computes the rating change for a single match. scoreA is 1 when side
// A won, 0 otherwise. Ratings are assumed to already respect the floor.
func Apply(ratingA, ratingB, scoreA int, ctx Context) Result {
	baseK := ctx.BaseK
	if baseK <= 0 {
		baseK = DefaultBaseK
	}

	expectedA := 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
	expectedB := 1 - expectedA

	entrants := entrantsFactor(ctx.EntrantsCount)
	margin := marginFactor(ctx.ScoreGap)

	rawA := baseK * entrants * stageFactor(ctx.Stage, ratingA) * margin * (float64(scoreA) - expectedA)
	rawB := baseK * entrants * stageFactor(ctx.Stage, ratingB) * margin * (float64(1-scoreA) - expectedB)

	deltaA := finalizeDelta(rawA, ratingA, ctx.TopRating)
	deltaB := finalizeDelta(rawB, ratingB, ctx.TopRating)

	return Result{
		DeltaA:     deltaA,
		DeltaB:     deltaB,
		NewRatingA: flooredRating(ratingA, deltaA),
		NewRatingB: flooredRating(ratingB, deltaB),
	}
}

// entrantsFactor scales swings up for larger fields, capped at 1.5x.
func entrantsFactor(entrants int) float64 {
	if entrants <= 0 {
		return 1
	}
	return clamp(math.Sqrt(float64(entrants))/4, 1, 1.5)
}

// stageFactor applies the bracket-stage bonus, tapered for players whose own
// rating approaches 2000: high bracket stakes matter less once you are near
// the top of the ladder.
func stageFactor(stage Stage, rating int) float64 {
	var base float64
	switch stage {
	case StageUpperBracket:
		base = 1.05
	case StageLowerBracket:
		base = 1.10
	case StageGrandFinal:
		base = 1.15
	default:
		base = 1.0
	}
	taper := 1 - 0.7*clamp(float64(rating-1000)/1000, 0, 1)
	return 1 + (base-1)*taper
}

// marginFactor amplifies lopsided results, capped at 2x. A gap of 1 (or a
// missing score) is neutral.
func marginFactor(gap float64) float64 {
	return clamp(1+0.25*math.Max(0, gap-1), 1, 2)
}

// gainLossFactors returns the sign-dependent damping for a player at the
// given rating. The curve has three segments split at 1200 and the midpoint
// between 1200 and the effective top (topRating floored at 1500):
// below 1200 gains and losses are softened, the middle band is neutral, and
// approaching the top gains taper while losses ramp up.
func gainLossFactors(rating, topRating int) (gain, loss float64) {
	effTop := topRating
	if effTop < 1500 {
		effTop = 1500
	}
	mid := float64(1200+effTop) / 2

	r := float64(rating)
	switch {
	case r < 1200:
		t := clamp((r-1000)/200, 0, 1)
		return 0.8 + 0.2*t, 0.3 + 0.7*t
	case r <= mid:
		return 1, 1
	case r <= float64(effTop):
		t := (r - mid) / (float64(effTop) - mid)
		return 1 - 0.7*t, 1 + 0.2*t
	default:
		return 0.2, 1.2
	}
}

// finalizeDelta applies the damping curve for the delta's own sign, rounds,
// and clamps to the single-match maximum.
func finalizeDelta(raw float64, rating, topRating int) int {
	gain, loss := gainLossFactors(rating, topRating)
	if raw > 0 {
		raw *= gain
	} else if raw < 0 {
		raw *= loss
	}
	delta := int(math.Round(raw))
	if delta > MaxDelta {
		delta = MaxDelta
	}
	if delta < -MaxDelta {
		delta = -MaxDelta
	}
	return delta
}

func flooredRating(rating, delta int) int {
	next := rating + delta
	if next < RatingFloor {
		return RatingFloor
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
