// Package rating computes per-match rating deltas and initial rating seeds.
package rating

const (
	winBase  = 15
	lossBase = -18

	// Wins and losses are clamped so every completed match moves a rating by
	// at least 5 and at most 30 points.
	winMin, winMax   = 5, 25
	lossMin, lossMax = -30, -5

	lowCushionFloor    = 1200
	highCorrectionCeil = 1800

	// DefaultRating is assigned to unranked players.
	DefaultRating = 1000
)

// Delta returns the signed rating change for one player after a completed
// match. Losses slightly outweigh wins to dampen inflation; facing a stronger
// opposing team increases win reward and softens loss penalty symmetrically.
// The result is always nonzero and in the direction of won.
func Delta(playerRating, opponentAvg int, won bool) int {
	base := lossBase
	if won {
		base = winBase
	}

	// Opponent-strength adjustment.
	d := base + 6*(opponentAvg-playerRating)/100

	// Low-rating cushion to accelerate new-player progression, smaller for
	// losses so it cannot run away.
	if playerRating < lowCushionFloor {
		if won {
			d += (lowCushionFloor - playerRating) / 50
		} else {
			d += (lowCushionFloor - playerRating) / 100
		}
	}

	// High-rating correction to slow top-end inflation, applied to both
	// outcomes.
	if playerRating > highCorrectionCeil {
		d -= (playerRating - highCorrectionCeil) / 50
	}

	if won {
		return clamp(d, winMin, winMax)
	}
	return clamp(d, lossMin, lossMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Record is the append-only outcome of one player's completed match.
type Record struct {
	PlayerID string `json:"playerId"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Delta    int    `json:"delta"`
	Won      bool   `json:"won"`
}

// NewRecord computes the record for one player given the opposing team's
// average rating.
func NewRecord(playerID string, playerRating, opponentAvg int, won bool) Record {
	d := Delta(playerRating, opponentAvg, won)
	return Record{
		PlayerID: playerID,
		Before:   playerRating,
		After:    playerRating + d,
		Delta:    d,
		Won:      won,
	}
}

var tierBase = map[string]int{
	"IRON":        400,
	"BRONZE":      600,
	"SILVER":      800,
	"GOLD":        1100,
	"PLATINUM":    1400,
	"EMERALD":     1700,
	"DIAMOND":     2000,
	"MASTER":      2400,
	"GRANDMASTER": 2700,
	"CHALLENGER":  3000,
}

var divisionBonus = map[string]int{
	"IV":  0,
	"III": 50,
	"II":  100,
	"I":   150,
}

// Seed derives an initial rating from a ranked entry: tier base plus division
// bonus plus 0.4 points per LP. Unknown tiers fall back to DefaultRating.
func Seed(tier, division string, leaguePoints int) int {
	base, ok := tierBase[tier]
	if !ok {
		return DefaultRating
	}
	return base + divisionBonus[division] + leaguePoints*4/10
}
