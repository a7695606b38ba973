package matchmaking

import (
	"errors"
	"sort"
	"time"
)

// ErrInsufficientCandidates is returned by Build when the snapshot holds
// fewer than MatchSize candidates. Callers treat it as a no-op, not a failure.
var ErrInsufficientCandidates = errors.New("not enough candidates in queue")

// Strategy selects which 10 candidates are taken from the snapshot.
type Strategy int

const (
	// StrategyFIFO takes the ten longest-waiting candidates.
	StrategyFIFO Strategy = iota
	// StrategyCluster takes the contiguous rating window of ten candidates
	// with the lowest rating variance.
	StrategyCluster
)

// Build produces a balanced proposal from a queue snapshot, or
// ErrInsufficientCandidates when fewer than ten candidates are available.
// The snapshot is not mutated; removing the chosen candidates from the queue
// is the caller's responsibility.
func Build(snapshot []Candidate, strategy Strategy, now time.Time) (*Proposal, error) {
	if len(snapshot) < MatchSize {
		return nil, ErrInsufficientCandidates
	}

	chosen := selectCandidates(snapshot, strategy)
	blue, red := snakeSplit(chosen)

	p := &Proposal{CreatedAt: now}
	copy(p.Blue[:], assignLanes(blue, 0))
	copy(p.Red[:], assignLanes(red, TeamSize))
	for _, s := range p.Blue {
		p.BlueRating += s.Candidate.Rating
	}
	for _, s := range p.Red {
		p.RedRating += s.Candidate.Rating
	}
	return p, nil
}

// selectCandidates picks the ten candidates to match. The result preserves
// the snapshot's queue order so later tie-breaks stay stable.
func selectCandidates(snapshot []Candidate, strategy Strategy) []Candidate {
	if strategy == StrategyFIFO {
		chosen := make([]Candidate, MatchSize)
		copy(chosen, snapshot[:MatchSize])
		return chosen
	}

	// Cluster strategy: sort by rating and slide a window of ten, keeping the
	// window with the lowest rating variance. Ties keep the earliest window.
	byRating := make([]Candidate, len(snapshot))
	copy(byRating, snapshot)
	sort.SliceStable(byRating, func(i, j int) bool {
		return byRating[i].Rating < byRating[j].Rating
	})

	best := 0
	bestVar := windowVariance(byRating[:MatchSize])
	for i := 1; i+MatchSize <= len(byRating); i++ {
		if v := windowVariance(byRating[i : i+MatchSize]); v < bestVar {
			best, bestVar = i, v
		}
	}

	inWindow := make(map[string]bool, MatchSize)
	for _, c := range byRating[best : best+MatchSize] {
		inWindow[c.ID] = true
	}

	chosen := make([]Candidate, 0, MatchSize)
	for _, c := range snapshot {
		if inWindow[c.ID] {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

// windowVariance computes the rating variance of a window, scaled by the
// window size squared to stay in integer arithmetic.
func windowVariance(window []Candidate) int64 {
	var sum int64
	for _, c := range window {
		sum += int64(c.Rating)
	}
	n := int64(len(window))
	var acc int64
	for _, c := range window {
		d := int64(c.Rating)*n - sum
		acc += d * d
	}
	return acc
}

// snakeSplit sorts the ten candidates by rating descending (stable, so equal
// ratings keep queue order) and deals them out in A B B A A B B A A B order.
// For already-sorted input this minimizes the worst-case rating gap between
// the two teams.
func snakeSplit(chosen []Candidate) (blue, red []Candidate) {
	sorted := make([]Candidate, len(chosen))
	copy(sorted, chosen)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})

	for i, c := range sorted {
		if snakeToBlue(i) {
			blue = append(blue, c)
		} else {
			red = append(red, c)
		}
	}
	return blue, red
}

// snakeToBlue reports whether position i in the rating-descending order goes
// to the blue team: A B B A A B B A ...
func snakeToBlue(i int) bool {
	return i%4 == 0 || i%4 == 3
}

// assignLanes assigns a lane to each of the five team members. Candidates are
// considered in rating order (they already arrive rating-descending from the
// snake split): primary preference first, then secondary, then the first
// still-open lane with the autofill flag set. Slot indices follow LaneOrder,
// offset by base (0 for blue, 5 for red).
func assignLanes(team []Candidate, base int) []TeamSlot {
	taken := make(map[Lane]bool, TeamSize)
	byLane := make(map[Lane]TeamSlot, TeamSize)

	for _, c := range team {
		lane, autofill := pickLane(c, taken)
		taken[lane] = true
		byLane[lane] = TeamSlot{Candidate: c, Lane: lane, Autofill: autofill}
	}

	slots := make([]TeamSlot, 0, TeamSize)
	for i, lane := range LaneOrder {
		s := byLane[lane]
		s.Index = base + i
		slots = append(slots, s)
	}
	return slots
}

func pickLane(c Candidate, taken map[Lane]bool) (Lane, bool) {
	if isRole(c.PrimaryLane) && !taken[c.PrimaryLane] {
		return c.PrimaryLane, false
	}
	if isRole(c.SecondaryLane) && !taken[c.SecondaryLane] {
		return c.SecondaryLane, false
	}
	for _, lane := range LaneOrder {
		if !taken[lane] {
			return lane, true
		}
	}
	// Unreachable: five candidates, five lanes.
	return LaneFill, true
}

func isRole(l Lane) bool {
	return l != LaneFill && ValidLanes[l] != ""
}
