package coordinator

import (
	"time"

	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
)

// Status is the lifecycle state of a match.
type Status int

const (
	StatusProposed   Status = iota // waiting for all ten to accept
	StatusAccepted                 // everyone accepted, draft about to start
	StatusDrafting                 // pick/ban in progress
	StatusInProgress               // game running
	StatusCompleted                // result reported, ratings computed
	StatusCancelled                // declined, timed out, or aborted
)

func (s Status) String() string {
	switch s {
	case StatusProposed:
		return "proposed"
	case StatusAccepted:
		return "accepted"
	case StatusDrafting:
		return "drafting"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Decision is one candidate's acceptance answer.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
	DecisionTimedOut Decision = "timed_out"
)

// Winner values for a completed match.
const (
	TeamBlue = "blue"
	TeamRed  = "red"
)

// Match is a proposal and everything that grows out of it.
type Match struct {
	ID             string
	Status         Status
	Proposal       *matchmaking.Proposal
	Decisions      map[string]Decision
	AcceptDeadline time.Time
	Draft          *draft.Session
	DraftDeadline  time.Time
	Winner         string
	CreatedAt      time.Time
	CompletedAt    time.Time
}

func (m *Match) terminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusCancelled
}

func (m *Match) allAccepted() bool {
	if len(m.Decisions) != matchmaking.MatchSize {
		return false
	}
	for _, d := range m.Decisions {
		if d != DecisionAccepted {
			return false
		}
	}
	return true
}

// State is all mutable coordinator state. Only the coordinator goroutine
// touches it.
type State struct {
	Queue     []matchmaking.Candidate
	Matches   map[string]*Match
	Cooldowns map[string]time.Time // decliners barred from builds until
}

func NewState() *State {
	return &State{
		Queue:     []matchmaking.Candidate{},
		Matches:   make(map[string]*Match),
		Cooldowns: make(map[string]time.Time),
	}
}

func (s *State) IsQueued(id string) bool {
	for _, c := range s.Queue {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *State) IsInMatch(id string) bool {
	return s.PlayerMatch(id) != nil
}

// PlayerMatch returns the active match the player belongs to, or nil.
func (s *State) PlayerMatch(id string) *Match {
	for _, m := range s.Matches {
		if m.terminal() {
			continue
		}
		if m.Proposal.SlotOf(id) >= 0 {
			return m
		}
	}
	return nil
}

func (s *State) GetMatch(id string) *Match {
	return s.Matches[id]
}

func (s *State) RemoveFromQueue(id string) bool {
	for i, c := range s.Queue {
		if c.ID == id {
			s.Queue = append(s.Queue[:i], s.Queue[i+1:]...)
			return true
		}
	}
	return false
}
