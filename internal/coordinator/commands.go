package coordinator

import (
	"errors"

	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
)

var (
	ErrAlreadyQueued  = errors.New("player already in queue")
	ErrInActiveMatch  = errors.New("player is in an active match")
	ErrNotInQueue     = errors.New("player not in queue")
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("player is not part of this match")
	ErrWrongStatus    = errors.New("match is not in the required state")
	ErrBadWinner      = errors.New("winner must be blue or red")
)

// Command is a request processed by the coordinator goroutine. Every
// command carries a Response channel the caller blocks on.
type Command interface {
	command()
}

type JoinQueueCommand struct {
	Candidate matchmaking.Candidate
	Position  chan int // join position on success
	Response  chan error
}

type LeaveQueueCommand struct {
	PlayerID string
	Response chan error
}

type KickFromQueueCommand struct {
	PlayerID string
	Response chan error
}

type AcceptCommand struct {
	MatchID  string
	PlayerID string
	Response chan error
}

type DeclineCommand struct {
	MatchID  string
	PlayerID string
	Response chan error
}

type SubmitDraftActionCommand struct {
	MatchID    string
	PlayerID   string
	ChampionID int
	Kind       draft.ActionKind
	Response   chan error
}

type ReportResultCommand struct {
	MatchID  string
	Winner   string
	Response chan error
}

type AbortDraftCommand struct {
	MatchID  string
	Response chan error
}

// ForceBuildCommand runs a build pass immediately, ignoring decline
// cooldowns but not the ten-candidate minimum.
type ForceBuildCommand struct {
	Response chan error
}

type CancelMatchCommand struct {
	MatchID  string
	Response chan error
}

// internal timer commands

type acceptTimeoutCommand struct {
	MatchID  string
	Response chan error
}

type acceptTickCommand struct {
	MatchID  string
	Response chan error
}

type draftTimeoutCommand struct {
	MatchID    string
	PickNumber int // cursor at arm time; stale if the session moved on
	Response   chan error
}

func (JoinQueueCommand) command()         {}
func (LeaveQueueCommand) command()        {}
func (KickFromQueueCommand) command()     {}
func (AcceptCommand) command()            {}
func (DeclineCommand) command()           {}
func (SubmitDraftActionCommand) command() {}
func (ReportResultCommand) command()      {}
func (AbortDraftCommand) command()        {}
func (ForceBuildCommand) command()        {}
func (CancelMatchCommand) command()       {}
func (acceptTimeoutCommand) command()     {}
func (acceptTickCommand) command()        {}
func (draftTimeoutCommand) command()      {}
