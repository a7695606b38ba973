package matchmaking

import (
	"fmt"
	"testing"
	"time"
)

func makeCandidates(ratings []int) []Candidate {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Candidate, len(ratings))
	for i, r := range ratings {
		out[i] = Candidate{
			ID:            fmt.Sprintf("p%d", i+1),
			Name:          fmt.Sprintf("Player %d", i+1),
			Rating:        r,
			PrimaryLane:   LaneFill,
			SecondaryLane: LaneFill,
			JoinedAt:      base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestBuildRequiresTenCandidates(t *testing.T) {
	_, err := Build(makeCandidates([]int{1000, 1000, 1000}), StrategyFIFO, time.Now())
	if err != ErrInsufficientCandidates {
		t.Fatalf("expected ErrInsufficientCandidates, got %v", err)
	}
}

func TestBuildEqualRatingsAllFill(t *testing.T) {
	// Ten identical candidates with fill preferences: both teams must end at
	// aggregate 5000 and every slot is an autofill with a distinct lane.
	ratings := []int{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000}
	p, err := Build(makeCandidates(ratings), StrategyFIFO, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if p.BlueRating != 5000 || p.RedRating != 5000 {
		t.Fatalf("aggregate ratings = %d/%d, want 5000/5000", p.BlueRating, p.RedRating)
	}

	for _, team := range [][TeamSize]TeamSlot{p.Blue, p.Red} {
		seen := map[Lane]bool{}
		for _, s := range team {
			if !s.Autofill {
				t.Errorf("slot %d: fill-preference candidate not marked autofill", s.Index)
			}
			if seen[s.Lane] {
				t.Errorf("lane %s assigned twice", s.Lane)
			}
			seen[s.Lane] = true
		}
		if len(seen) != TeamSize {
			t.Errorf("team covers %d lanes, want %d", len(seen), TeamSize)
		}
	}
}

func TestBuildSlotIndicesPartition(t *testing.T) {
	ratings := []int{1400, 900, 1200, 1150, 1000, 1320, 880, 1010, 1500, 700}
	p, err := Build(makeCandidates(ratings), StrategyFIFO, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	seen := map[int]bool{}
	var total int
	for _, s := range p.Slots() {
		if seen[s.Index] {
			t.Fatalf("slot index %d repeated", s.Index)
		}
		seen[s.Index] = true
		total += s.Candidate.Rating
	}
	for i := 0; i < MatchSize; i++ {
		if !seen[i] {
			t.Fatalf("slot index %d missing", i)
		}
	}

	var want int
	for _, r := range ratings {
		want += r
	}
	if p.BlueRating+p.RedRating != want || total != want {
		t.Fatalf("rating sums inconsistent: %d + %d != %d", p.BlueRating, p.RedRating, want)
	}
}

func TestLaneAssignmentPreferences(t *testing.T) {
	cases := []struct {
		name       string
		primary    []Lane
		secondary  []Lane
		wantLane   []Lane
		wantedFill []bool
	}{
		{
			name:       "all distinct primaries",
			primary:    []Lane{LaneTop, LaneJungle, LaneMid, LaneBottom, LaneSupport},
			secondary:  []Lane{LaneFill, LaneFill, LaneFill, LaneFill, LaneFill},
			wantLane:   []Lane{LaneTop, LaneJungle, LaneMid, LaneBottom, LaneSupport},
			wantedFill: []bool{false, false, false, false, false},
		},
		{
			name:      "conflict falls back to secondary",
			primary:   []Lane{LaneMid, LaneMid, LaneTop, LaneBottom, LaneSupport},
			secondary: []Lane{LaneFill, LaneJungle, LaneFill, LaneFill, LaneFill},
			// Second candidate loses mid to the higher-rated first and takes
			// the secondary jungle.
			wantLane:   []Lane{LaneMid, LaneJungle, LaneTop, LaneBottom, LaneSupport},
			wantedFill: []bool{false, false, false, false, false},
		},
		{
			name:      "no preference available means autofill",
			primary:   []Lane{LaneMid, LaneMid, LaneMid, LaneMid, LaneMid},
			secondary: []Lane{LaneTop, LaneTop, LaneTop, LaneTop, LaneTop},
			// First takes mid, second takes top, the rest autofill in lane
			// order: jungle, bottom, support.
			wantLane:   []Lane{LaneMid, LaneTop, LaneJungle, LaneBottom, LaneSupport},
			wantedFill: []bool{false, false, true, true, true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			team := make([]Candidate, TeamSize)
			for i := range team {
				team[i] = Candidate{
					ID:            fmt.Sprintf("c%d", i),
					Rating:        1500 - i*100, // rating-descending order
					PrimaryLane:   tc.primary[i],
					SecondaryLane: tc.secondary[i],
				}
			}

			slots := assignLanes(team, 0)
			got := map[string]TeamSlot{}
			for _, s := range slots {
				got[s.Candidate.ID] = s
			}
			for i := range team {
				s := got[fmt.Sprintf("c%d", i)]
				if s.Lane != tc.wantLane[i] {
					t.Errorf("candidate %d lane = %s, want %s", i, s.Lane, tc.wantLane[i])
				}
				if s.Autofill != tc.wantedFill[i] {
					t.Errorf("candidate %d autofill = %v, want %v", i, s.Autofill, tc.wantedFill[i])
				}
			}
		})
	}
}

func TestSnakeTieBreakPreservesQueueOrder(t *testing.T) {
	// All equal ratings: the snake must deal candidates in queue order,
	// so queue position 1 lands on blue, 2 and 3 on red, and so on.
	p, err := Build(makeCandidates([]int{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000}), StrategyFIFO, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	blue := map[string]bool{}
	for _, s := range p.Blue {
		blue[s.Candidate.ID] = true
	}
	for _, id := range []string{"p1", "p4", "p5", "p8", "p9"} {
		if !blue[id] {
			t.Errorf("expected %s on blue team, got %v", id, blue)
		}
	}
}

// TestSnakeSplitMatchesBruteForce checks that for fixtures where an optimal
// 5/5 partition is reachable, the snake split's rating gap equals the best
// gap found by exhaustive search.
func TestSnakeSplitMatchesBruteForce(t *testing.T) {
	fixtures := [][]int{
		{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000},
		{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000},
		{1000, 1100, 1200, 1300, 1400, 1500, 1600, 1700, 1800, 1900},
		{500, 500, 600, 600, 700, 700, 800, 800, 900, 900},
	}

	for _, ratings := range fixtures {
		blue, red := snakeSplit(makeCandidates(ratings))
		gap := abs(sumRatings(blue) - sumRatings(red))
		if best := bruteForceBestGap(ratings); gap != best {
			t.Errorf("ratings %v: snake gap %d, brute-force best %d", ratings, gap, best)
		}
	}
}

func sumRatings(cs []Candidate) int {
	var sum int
	for _, c := range cs {
		sum += c.Rating
	}
	return sum
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// bruteForceBestGap tries every size-5 subset of the ten ratings.
func bruteForceBestGap(ratings []int) int {
	var total int
	for _, r := range ratings {
		total += r
	}

	best := total
	for mask := 0; mask < 1<<len(ratings); mask++ {
		if popcount(mask) != TeamSize {
			continue
		}
		var side int
		for i, r := range ratings {
			if mask&(1<<i) != 0 {
				side += r
			}
		}
		if gap := abs(total - 2*side); gap < best {
			best = gap
		}
	}
	return best
}

func popcount(n int) int {
	count := 0
	for ; n != 0; n &= n - 1 {
		count++
	}
	return count
}

func TestClusterStrategyPicksTightestWindow(t *testing.T) {
	// Two outliers and a tight cluster of ten: the cluster strategy must skip
	// the outliers while FIFO would take the first ten joiners.
	ratings := []int{3000, 1010, 1020, 990, 1000, 1030, 980, 1040, 970, 1050, 100, 1000}
	snapshot := makeCandidates(ratings)

	p, err := Build(snapshot, StrategyCluster, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range p.Slots() {
		if s.Candidate.Rating == 3000 || s.Candidate.Rating == 100 {
			t.Errorf("outlier rating %d selected by cluster strategy", s.Candidate.Rating)
		}
	}
}
