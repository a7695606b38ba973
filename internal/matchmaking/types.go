package matchmaking

import "time"

// Lane is one of the five team roles, or "fill" when the player has no
// preference.
type Lane string

const (
	LaneTop     Lane = "top"
	LaneJungle  Lane = "jungle"
	LaneMid     Lane = "mid"
	LaneBottom  Lane = "bottom"
	LaneSupport Lane = "support"
	LaneFill    Lane = "fill"
)

// LaneOrder is the canonical lane ordering. Slot indices within a team follow
// this order: slot 0 = top, slot 4 = support.
var LaneOrder = [5]Lane{LaneTop, LaneJungle, LaneMid, LaneBottom, LaneSupport}

// ValidLanes maps every assignable lane (and fill) to its display name.
var ValidLanes = map[Lane]string{
	LaneTop:     "Top",
	LaneJungle:  "Jungle",
	LaneMid:     "Mid",
	LaneBottom:  "Bottom",
	LaneSupport: "Support",
	LaneFill:    "Fill",
}

const (
	TeamSize  = 5
	MatchSize = 2 * TeamSize
)

// Candidate is a player waiting in the queue.
type Candidate struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Rating        int       `json:"rating"`
	PrimaryLane   Lane      `json:"primaryLane"`
	SecondaryLane Lane      `json:"secondaryLane"`
	IsBot         bool      `json:"isBot"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// TeamSlot is one of the ten fixed positions in a proposal. Indices 0-4 are
// team blue, 5-9 team red. Autofill is set when the assigned lane matches
// neither of the candidate's preferences.
type TeamSlot struct {
	Candidate Candidate `json:"candidate"`
	Lane      Lane      `json:"lane"`
	Index     int       `json:"index"`
	Autofill  bool      `json:"autofill"`
}

// Proposal is a tentative 10-player match produced by the builder. It holds
// both teams with lanes assigned and the aggregate rating per team.
type Proposal struct {
	Blue       [TeamSize]TeamSlot `json:"blue"`
	Red        [TeamSize]TeamSlot `json:"red"`
	BlueRating int                `json:"blueRating"`
	RedRating  int                `json:"redRating"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Slots returns all ten slots in index order.
func (p *Proposal) Slots() []TeamSlot {
	out := make([]TeamSlot, 0, MatchSize)
	out = append(out, p.Blue[:]...)
	out = append(out, p.Red[:]...)
	return out
}

// Slot returns the slot with the given index (0-9).
func (p *Proposal) Slot(index int) TeamSlot {
	if index < TeamSize {
		return p.Blue[index]
	}
	return p.Red[index-TeamSize]
}

// SlotOf returns the slot index occupied by the given candidate, or -1.
func (p *Proposal) SlotOf(candidateID string) int {
	for _, s := range p.Slots() {
		if s.Candidate.ID == candidateID {
			return s.Index
		}
	}
	return -1
}

// Candidates returns the ten candidates in slot order.
func (p *Proposal) Candidates() []Candidate {
	out := make([]Candidate, 0, MatchSize)
	for _, s := range p.Slots() {
		out = append(out, s.Candidate)
	}
	return out
}
