package coordinator

import (
	"time"

	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
)

// Event is broadcast to subscribers after state changes. Slow
// subscribers are skipped, never waited on.
type Event interface {
	event()
}

type QueueUpdatedEvent struct {
	Size    int                     `json:"size"`
	Players []matchmaking.Candidate `json:"players"`
}

type MatchProposedEvent struct {
	MatchID  string                `json:"matchId"`
	Proposal *matchmaking.Proposal `json:"proposal"`
	Deadline time.Time             `json:"deadline"`
}

type AcceptanceUpdatedEvent struct {
	MatchID   string              `json:"matchId"`
	Decisions map[string]Decision `json:"decisions"`
	Accepted  int                 `json:"accepted"`
}

type AcceptanceTickEvent struct {
	MatchID   string        `json:"matchId"`
	Remaining time.Duration `json:"remaining"`
}

// ProposalCancelledEvent fires when a proposal dies before the draft.
// Removed lists who was dropped; everyone else went back to the queue.
type ProposalCancelledEvent struct {
	MatchID string   `json:"matchId"`
	Reason  string   `json:"reason"`
	Removed []string `json:"removed"`
}

type DraftStartedEvent struct {
	MatchID  string                `json:"matchId"`
	Proposal *matchmaking.Proposal `json:"proposal"`
}

type DraftTurnStartedEvent struct {
	MatchID     string                `json:"matchId"`
	Position    int                   `json:"position"`
	Slot        int                   `json:"slot"`
	Kind        draft.ActionKind      `json:"kind"`
	Candidate   matchmaking.Candidate `json:"candidate"`
	Deadline    time.Time             `json:"deadline"`
	Unavailable []int                 `json:"unavailable"`
}

type DraftActionAppliedEvent struct {
	MatchID string       `json:"matchId"`
	Action  draft.Action `json:"action"`
}

type DraftCompletedEvent struct {
	MatchID string         `json:"matchId"`
	Actions []draft.Action `json:"actions"`
}

type DraftAbortedEvent struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

type MatchStartedEvent struct {
	MatchID string `json:"matchId"`
}

type MatchCompletedEvent struct {
	MatchID string          `json:"matchId"`
	Winner  string          `json:"winner"`
	Records []rating.Record `json:"records"`
}

type MatchCancelledEvent struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

func (QueueUpdatedEvent) event()       {}
func (MatchProposedEvent) event()      {}
func (AcceptanceUpdatedEvent) event()  {}
func (AcceptanceTickEvent) event()     {}
func (ProposalCancelledEvent) event()  {}
func (DraftStartedEvent) event()       {}
func (DraftTurnStartedEvent) event()   {}
func (DraftActionAppliedEvent) event() {}
func (DraftCompletedEvent) event()     {}
func (DraftAbortedEvent) event()       {}
func (MatchStartedEvent) event()       {}
func (MatchCompletedEvent) event()     {}
func (MatchCancelledEvent) event()     {}
