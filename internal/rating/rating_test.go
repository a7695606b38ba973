package rating

import "testing"

func TestDeltaSignMatchesOutcome(t *testing.T) {
	// Over the whole plausible range, equal-strength wins gain and losses
	// lose, and both stay inside the documented clamp bounds.
	for r := 0; r <= 3200; r += 25 {
		win := Delta(r, r, true)
		loss := Delta(r, r, false)

		if win <= 0 {
			t.Errorf("Delta(%d, %d, true) = %d, want > 0", r, r, win)
		}
		if loss >= 0 {
			t.Errorf("Delta(%d, %d, false) = %d, want < 0", r, r, loss)
		}
		if win < 5 || win > 25 {
			t.Errorf("win delta %d at rating %d outside [5,25]", win, r)
		}
		if loss < -30 || loss > -5 {
			t.Errorf("loss delta %d at rating %d outside [-30,-5]", loss, r)
		}
	}
}

func TestDeltaClampAcrossMismatches(t *testing.T) {
	for r := 0; r <= 3000; r += 250 {
		for opp := 0; opp <= 3000; opp += 250 {
			if d := Delta(r, opp, true); d < 5 || d > 25 {
				t.Errorf("Delta(%d, %d, true) = %d outside clamp", r, opp, d)
			}
			if d := Delta(r, opp, false); d < -30 || d > -5 {
				t.Errorf("Delta(%d, %d, false) = %d outside clamp", r, opp, d)
			}
		}
	}
}

func TestDeltaOpponentStrength(t *testing.T) {
	cases := []struct {
		name      string
		rating    int
		oppAvg    int
		won       bool
		wantAbove int
		wantBelow int
	}{
		// Upset win against a stronger team pays more than the base.
		{"upset win pays extra", 1500, 1700, true, 15, 26},
		// Losing to a stronger team costs less than the base.
		{"expected loss softened", 1500, 1700, false, -18, 0},
		// Beating a weaker team pays less than the base.
		{"expected win pays less", 1700, 1500, true, 4, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Delta(tc.rating, tc.oppAvg, tc.won)
			if d <= tc.wantAbove || d >= tc.wantBelow {
				t.Fatalf("Delta(%d, %d, %v) = %d, want in (%d, %d)",
					tc.rating, tc.oppAvg, tc.won, d, tc.wantAbove, tc.wantBelow)
			}
		})
	}
}

func TestNewPlayerUpsetWin(t *testing.T) {
	// A rating-0 player beating a team averaging 200 gains more than the
	// base 15 from the strength adjustment and cushion, capped at 25.
	d := Delta(0, 200, true)
	if d <= 15 {
		t.Fatalf("Delta(0, 200, true) = %d, want > 15", d)
	}
	if d > 25 {
		t.Fatalf("Delta(0, 200, true) = %d, want <= 25", d)
	}
}

func TestLowRatingCushionSmallerForLosses(t *testing.T) {
	// The cushion softens losses less than it boosts wins.
	winBoost := Delta(800, 800, true) - Delta(1200, 1200, true)
	lossSoftening := Delta(800, 800, false) - Delta(1200, 1200, false)
	if winBoost <= lossSoftening {
		t.Fatalf("win cushion %d not larger than loss cushion %d", winBoost, lossSoftening)
	}
}

func TestHighRatingCorrection(t *testing.T) {
	// Above 1800 both outcomes trend downward: smaller wins, bigger losses.
	if Delta(2400, 2400, true) >= Delta(1800, 1800, true) {
		t.Error("high-rating win not reduced")
	}
	if Delta(2400, 2400, false) >= Delta(1800, 1800, false) {
		t.Error("high-rating loss not deepened")
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("p1", 1000, 1100, true)
	if rec.PlayerID != "p1" || !rec.Won {
		t.Fatalf("record = %+v", rec)
	}
	if rec.After != rec.Before+rec.Delta {
		t.Fatalf("after %d != before %d + delta %d", rec.After, rec.Before, rec.Delta)
	}
	if rec.Delta <= 0 {
		t.Fatalf("winning delta %d not positive", rec.Delta)
	}
}

func TestSeed(t *testing.T) {
	cases := []struct {
		tier     string
		division string
		lp       int
		want     int
	}{
		{"GOLD", "IV", 0, 1100},
		{"GOLD", "I", 50, 1270},
		{"IRON", "IV", 10, 404},
		{"CHALLENGER", "I", 1000, 3550},
		{"UNRANKED", "", 0, DefaultRating},
		{"", "", 0, DefaultRating},
	}

	for _, tc := range cases {
		if got := Seed(tc.tier, tc.division, tc.lp); got != tc.want {
			t.Errorf("Seed(%q, %q, %d) = %d, want %d", tc.tier, tc.division, tc.lp, got, tc.want)
		}
	}
}
