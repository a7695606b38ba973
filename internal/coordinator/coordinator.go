package coordinator

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
)

// Config tunes coordinator timing and matchmaking behavior.
type Config struct {
	AcceptTimeout      time.Duration
	AcceptTickInterval time.Duration
	DraftActionTimeout time.Duration
	DeclineCooldown    time.Duration
	Strategy           matchmaking.Strategy
	Draft              draft.Config
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		AcceptTimeout:      30 * time.Second,
		AcceptTickInterval: 1 * time.Second,
		DraftActionTimeout: 30 * time.Second,
		DeclineCooldown:    2 * time.Minute,
		Strategy:           matchmaking.StrategyFIFO,
		Draft:              draft.Config{Pool: draft.DefaultPool()},
	}
}

// Coordinator owns all mutable state and processes commands sequentially.
type Coordinator struct {
	commands    chan Command
	events      chan Event
	subscribers []chan Event
	state       *State
	cfg         Config
	clock       clockwork.Clock
}

// New creates a coordinator with the real clock.
func New(cfg Config) *Coordinator {
	return NewWithClock(cfg, clockwork.NewRealClock())
}

// NewWithClock creates a coordinator with an injected clock for tests.
func NewWithClock(cfg Config, clock clockwork.Clock) *Coordinator {
	return &Coordinator{
		commands:    make(chan Command, 100),
		events:      make(chan Event, 100),
		subscribers: make([]chan Event, 0),
		state:       NewState(),
		cfg:         cfg,
		clock:       clock,
	}
}

// Send submits a command to the coordinator.
func (c *Coordinator) Send(cmd Command) {
	c.commands <- cmd
}

// Events returns the main event channel for consumers.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Subscribe creates a new event channel for a consumer. Call before Run.
func (c *Coordinator) Subscribe() <-chan Event {
	ch := make(chan Event, 100)
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Run starts the coordinator loop. It blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	log.Println("Coordinator started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Coordinator shutting down")
			return
		case cmd := <-c.commands:
			c.handleCommand(cmd)
		}
	}
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.events <- e:
	default:
		log.Println("Warning: main event channel full, dropping event")
	}

	for _, ch := range c.subscribers {
		select {
		case ch <- e:
		default:
			log.Println("Warning: subscriber event channel full, dropping event")
		}
	}
}

func (c *Coordinator) handleCommand(cmd Command) {
	switch cmd := cmd.(type) {
	case JoinQueueCommand:
		pos, err := c.handleJoinQueue(cmd)
		if cmd.Position != nil {
			cmd.Position <- pos
		}
		if cmd.Response != nil {
			cmd.Response <- err
		}
	case LeaveQueueCommand:
		err := c.handleLeaveQueue(cmd)
		if cmd.Response != nil {
			cmd.Response <- err
		}
	case KickFromQueueCommand:
		cmd.Response <- c.handleKickFromQueue(cmd)
	case AcceptCommand:
		err := c.handleAccept(cmd)
		if cmd.Response != nil {
			cmd.Response <- err
		}
	case DeclineCommand:
		err := c.handleDecline(cmd)
		if cmd.Response != nil {
			cmd.Response <- err
		}
	case SubmitDraftActionCommand:
		err := c.handleSubmitDraftAction(cmd)
		if cmd.Response != nil {
			cmd.Response <- err
		}
	case ReportResultCommand:
		cmd.Response <- c.handleReportResult(cmd)
	case AbortDraftCommand:
		cmd.Response <- c.handleAbortDraft(cmd)
	case ForceBuildCommand:
		cmd.Response <- c.handleForceBuild(cmd)
	case CancelMatchCommand:
		cmd.Response <- c.handleCancelMatch(cmd)
	case acceptTimeoutCommand:
		c.handleAcceptTimeout(cmd)
		if cmd.Response != nil {
			cmd.Response <- nil
		}
	case acceptTickCommand:
		c.handleAcceptTick(cmd)
		if cmd.Response != nil {
			cmd.Response <- nil
		}
	case draftTimeoutCommand:
		c.handleDraftTimeout(cmd)
		if cmd.Response != nil {
			cmd.Response <- nil
		}
	case getStateCmd:
		cmd.Response <- c.snapshot()
	case getPlayerMatchCmd:
		cmd.Response <- c.viewOf(c.state.PlayerMatch(cmd.PlayerID))
	case getMatchCmd:
		cmd.Response <- c.viewOf(c.state.GetMatch(cmd.MatchID))
	}
}

func (c *Coordinator) handleJoinQueue(cmd JoinQueueCommand) (int, error) {
	id := cmd.Candidate.ID
	if c.state.IsQueued(id) {
		return 0, ErrAlreadyQueued
	}
	if c.state.IsInMatch(id) {
		return 0, ErrInActiveMatch
	}

	cand := cmd.Candidate
	cand.JoinedAt = c.clock.Now()
	c.state.Queue = append(c.state.Queue, cand)
	pos := len(c.state.Queue)

	log.Printf("Player %s joined queue (%d waiting)", cand.Name, pos)
	c.emitQueueUpdated()
	c.tryBuild(false)

	return pos, nil
}

// handleLeaveQueue is idempotent: leaving while not queued succeeds.
func (c *Coordinator) handleLeaveQueue(cmd LeaveQueueCommand) error {
	if c.state.IsInMatch(cmd.PlayerID) {
		return ErrInActiveMatch
	}
	if c.state.RemoveFromQueue(cmd.PlayerID) {
		log.Printf("Player %s left queue (%d waiting)", cmd.PlayerID, len(c.state.Queue))
		c.emitQueueUpdated()
	}
	return nil
}

func (c *Coordinator) handleKickFromQueue(cmd KickFromQueueCommand) error {
	if !c.state.RemoveFromQueue(cmd.PlayerID) {
		return ErrNotInQueue
	}
	log.Printf("Admin kicked player %s from queue", cmd.PlayerID)
	c.emitQueueUpdated()
	return nil
}

// tryBuild runs one matchmaking pass. ignoreCooldowns is set for admin
// force builds.
func (c *Coordinator) tryBuild(ignoreCooldowns bool) bool {
	now := c.clock.Now()
	c.pruneCooldowns(now)

	eligible := make([]matchmaking.Candidate, 0, len(c.state.Queue))
	for _, cand := range c.state.Queue {
		if !ignoreCooldowns {
			if until, ok := c.state.Cooldowns[cand.ID]; ok && now.Before(until) {
				continue
			}
		}
		eligible = append(eligible, cand)
	}

	proposal, err := matchmaking.Build(eligible, c.cfg.Strategy, now)
	if err != nil {
		return false
	}

	for _, cand := range proposal.Candidates() {
		c.state.RemoveFromQueue(cand.ID)
	}

	matchID := uuid.New().String()
	deadline := now.Add(c.cfg.AcceptTimeout)
	match := &Match{
		ID:             matchID,
		Status:         StatusProposed,
		Proposal:       proposal,
		Decisions:      make(map[string]Decision, matchmaking.MatchSize),
		AcceptDeadline: deadline,
		CreatedAt:      now,
	}
	for _, cand := range proposal.Candidates() {
		if cand.IsBot {
			match.Decisions[cand.ID] = DecisionAccepted
		} else {
			match.Decisions[cand.ID] = DecisionPending
		}
	}
	c.state.Matches[matchID] = match

	log.Printf("Match %s proposed (blue %d vs red %d)", matchID, proposal.BlueRating, proposal.RedRating)

	c.emitQueueUpdated()
	c.emit(MatchProposedEvent{MatchID: matchID, Proposal: proposal, Deadline: deadline})
	c.emitAcceptance(match)

	if match.allAccepted() {
		c.startDraft(match)
		return true
	}

	c.scheduleAcceptTimeout(matchID)
	c.scheduleAcceptTick(matchID)
	return true
}

func (c *Coordinator) pruneCooldowns(now time.Time) {
	for id, until := range c.state.Cooldowns {
		if !now.Before(until) {
			delete(c.state.Cooldowns, id)
		}
	}
}

func (c *Coordinator) scheduleAcceptTimeout(matchID string) {
	go func() {
		<-c.clock.After(c.cfg.AcceptTimeout)
		c.Send(acceptTimeoutCommand{MatchID: matchID})
	}()
}

func (c *Coordinator) scheduleAcceptTick(matchID string) {
	if c.cfg.AcceptTickInterval <= 0 {
		return
	}
	go func() {
		<-c.clock.After(c.cfg.AcceptTickInterval)
		c.Send(acceptTickCommand{MatchID: matchID})
	}()
}

func (c *Coordinator) handleAcceptTick(cmd acceptTickCommand) {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil || match.Status != StatusProposed {
		return
	}
	remaining := match.AcceptDeadline.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	c.emit(AcceptanceTickEvent{MatchID: match.ID, Remaining: remaining})
	c.scheduleAcceptTick(match.ID)
}

func (c *Coordinator) handleAccept(cmd AcceptCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != StatusProposed {
		// Late answers to a resolved proposal are a silent no-op.
		return nil
	}
	if _, ok := match.Decisions[cmd.PlayerID]; !ok {
		return ErrNotParticipant
	}

	match.Decisions[cmd.PlayerID] = DecisionAccepted
	log.Printf("Player %s accepted match %s (%d/%d)", cmd.PlayerID, cmd.MatchID, acceptedCount(match), matchmaking.MatchSize)
	c.emitAcceptance(match)

	if match.allAccepted() {
		c.startDraft(match)
	}
	return nil
}

func (c *Coordinator) handleDecline(cmd DeclineCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != StatusProposed {
		return nil
	}
	if _, ok := match.Decisions[cmd.PlayerID]; !ok {
		return ErrNotParticipant
	}

	match.Decisions[cmd.PlayerID] = DecisionDeclined
	log.Printf("Player %s declined match %s", cmd.PlayerID, cmd.MatchID)
	c.cancelProposal(match, "declined", []string{cmd.PlayerID})
	return nil
}

func (c *Coordinator) handleAcceptTimeout(cmd acceptTimeoutCommand) {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil || match.Status != StatusProposed {
		return
	}

	var removed []string
	for id, d := range match.Decisions {
		if d == DecisionPending {
			match.Decisions[id] = DecisionTimedOut
			removed = append(removed, id)
		}
	}
	log.Printf("Match %s accept timeout (%d did not answer)", cmd.MatchID, len(removed))
	c.cancelProposal(match, "accept_timeout", removed)
}

// cancelProposal tears down an unaccepted proposal. Removed players go on
// decline cooldown; everyone else rejoins the queue at their original
// position.
func (c *Coordinator) cancelProposal(match *Match, reason string, removed []string) {
	now := c.clock.Now()
	match.Status = StatusCancelled
	match.CompletedAt = now

	dropped := make(map[string]bool, len(removed))
	for _, id := range removed {
		dropped[id] = true
		c.state.Cooldowns[id] = now.Add(c.cfg.DeclineCooldown)
	}

	for _, cand := range match.Proposal.Candidates() {
		if dropped[cand.ID] || cand.IsBot {
			continue
		}
		c.state.Queue = append(c.state.Queue, cand)
	}
	sort.SliceStable(c.state.Queue, func(i, j int) bool {
		return c.state.Queue[i].JoinedAt.Before(c.state.Queue[j].JoinedAt)
	})

	c.emit(ProposalCancelledEvent{MatchID: match.ID, Reason: reason, Removed: removed})
	c.emitQueueUpdated()
	c.tryBuild(false)
}

func (c *Coordinator) startDraft(match *Match) {
	if match.Status != StatusProposed {
		return
	}
	match.Status = StatusDrafting
	match.Draft = draft.NewSession(c.cfg.Draft, c.clock.Now().UnixNano())

	log.Printf("Match %s: all accepted, draft started", match.ID)
	c.emit(DraftStartedEvent{MatchID: match.ID, Proposal: match.Proposal})
	c.emitTurn(match)
}

// emitTurn announces the current draft turn and arms its deadline timer.
func (c *Coordinator) emitTurn(match *Match) {
	step, ok := match.Draft.Current()
	if !ok {
		return
	}
	deadline := c.clock.Now().Add(c.cfg.DraftActionTimeout)
	match.DraftDeadline = deadline

	c.emit(DraftTurnStartedEvent{
		MatchID:     match.ID,
		Position:    match.Draft.Cursor(),
		Slot:        step.Slot,
		Kind:        step.Kind,
		Candidate:   match.Proposal.Slot(step.Slot).Candidate,
		Deadline:    deadline,
		Unavailable: match.Draft.Unavailable(),
	})

	matchID := match.ID
	position := match.Draft.Cursor()
	go func() {
		<-c.clock.After(c.cfg.DraftActionTimeout)
		c.Send(draftTimeoutCommand{MatchID: matchID, PickNumber: position})
	}()
}

func (c *Coordinator) handleSubmitDraftAction(cmd SubmitDraftActionCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != StatusDrafting {
		return ErrWrongStatus
	}

	slot := match.Proposal.SlotOf(cmd.PlayerID)
	if slot < 0 {
		return ErrNotParticipant
	}

	action, err := match.Draft.Submit(slot, cmd.ChampionID, cmd.Kind, c.clock.Now())
	if err != nil {
		return err
	}

	c.emit(DraftActionAppliedEvent{MatchID: match.ID, Action: action})
	c.advanceDraft(match)
	return nil
}

func (c *Coordinator) handleDraftTimeout(cmd draftTimeoutCommand) {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil || match.Status != StatusDrafting {
		return
	}
	if match.Draft.Cursor() != cmd.PickNumber {
		return // action already taken, timeout is stale
	}

	action, err := match.Draft.AutoSubmit(c.clock.Now())
	if err != nil {
		return
	}
	log.Printf("Match %s: turn %d timed out, auto-resolved", match.ID, action.Position)

	c.emit(DraftActionAppliedEvent{MatchID: match.ID, Action: action})
	c.advanceDraft(match)
}

func (c *Coordinator) advanceDraft(match *Match) {
	if !match.Draft.Complete() {
		c.emitTurn(match)
		return
	}

	match.Status = StatusInProgress
	log.Printf("Match %s: draft complete, game in progress", match.ID)

	c.emit(DraftCompletedEvent{MatchID: match.ID, Actions: match.Draft.Actions()})
	c.emit(MatchStartedEvent{MatchID: match.ID})
}

func (c *Coordinator) handleAbortDraft(cmd AbortDraftCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != StatusDrafting {
		return ErrWrongStatus
	}

	match.Draft.Abort()
	match.Status = StatusCancelled
	match.CompletedAt = c.clock.Now()
	log.Printf("Match %s: draft aborted", match.ID)

	for _, cand := range match.Proposal.Candidates() {
		if cand.IsBot || c.state.IsQueued(cand.ID) {
			continue
		}
		c.state.Queue = append(c.state.Queue, cand)
	}
	sort.SliceStable(c.state.Queue, func(i, j int) bool {
		return c.state.Queue[i].JoinedAt.Before(c.state.Queue[j].JoinedAt)
	})

	c.emit(DraftAbortedEvent{MatchID: match.ID, Reason: "aborted"})
	c.emitQueueUpdated()
	c.tryBuild(false)
	return nil
}

func (c *Coordinator) handleReportResult(cmd ReportResultCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != StatusInProgress {
		return ErrWrongStatus
	}
	if cmd.Winner != TeamBlue && cmd.Winner != TeamRed {
		return ErrBadWinner
	}

	match.Status = StatusCompleted
	match.Winner = cmd.Winner
	match.CompletedAt = c.clock.Now()

	records := ratingRecords(match.Proposal, cmd.Winner)
	log.Printf("Match %s completed: %s wins (%d rating updates)", match.ID, cmd.Winner, len(records))

	c.emit(MatchCompletedEvent{MatchID: match.ID, Winner: cmd.Winner, Records: records})
	c.tryBuild(false)
	return nil
}

// ratingRecords computes one rating update per human player. The opponent
// strength is the other team's average rating.
func ratingRecords(p *matchmaking.Proposal, winner string) []rating.Record {
	blueAvg := p.BlueRating / matchmaking.TeamSize
	redAvg := p.RedRating / matchmaking.TeamSize

	records := make([]rating.Record, 0, matchmaking.MatchSize)
	for _, s := range p.Blue {
		if s.Candidate.IsBot {
			continue
		}
		records = append(records, rating.NewRecord(s.Candidate.ID, s.Candidate.Rating, redAvg, winner == TeamBlue))
	}
	for _, s := range p.Red {
		if s.Candidate.IsBot {
			continue
		}
		records = append(records, rating.NewRecord(s.Candidate.ID, s.Candidate.Rating, blueAvg, winner == TeamRed))
	}
	return records
}

func (c *Coordinator) handleForceBuild(cmd ForceBuildCommand) error {
	if !c.tryBuild(true) {
		return matchmaking.ErrInsufficientCandidates
	}
	return nil
}

func (c *Coordinator) handleCancelMatch(cmd CancelMatchCommand) error {
	match := c.state.GetMatch(cmd.MatchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.terminal() {
		return ErrWrongStatus
	}

	if match.Draft != nil && !match.Draft.Complete() {
		match.Draft.Abort()
	}
	match.Status = StatusCancelled
	match.CompletedAt = c.clock.Now()
	log.Printf("Admin cancelled match %s", match.ID)

	for _, cand := range match.Proposal.Candidates() {
		if cand.IsBot || c.state.IsQueued(cand.ID) {
			continue
		}
		c.state.Queue = append(c.state.Queue, cand)
	}
	sort.SliceStable(c.state.Queue, func(i, j int) bool {
		return c.state.Queue[i].JoinedAt.Before(c.state.Queue[j].JoinedAt)
	})

	c.emit(MatchCancelledEvent{MatchID: match.ID, Reason: "admin"})
	c.emitQueueUpdated()
	c.tryBuild(false)
	return nil
}

func (c *Coordinator) emitQueueUpdated() {
	players := make([]matchmaking.Candidate, len(c.state.Queue))
	copy(players, c.state.Queue)
	c.emit(QueueUpdatedEvent{Size: len(players), Players: players})
}

func (c *Coordinator) emitAcceptance(match *Match) {
	decisions := make(map[string]Decision, len(match.Decisions))
	for id, d := range match.Decisions {
		decisions[id] = d
	}
	c.emit(AcceptanceUpdatedEvent{MatchID: match.ID, Decisions: decisions, Accepted: acceptedCount(match)})
}

func acceptedCount(match *Match) int {
	n := 0
	for _, d := range match.Decisions {
		if d == DecisionAccepted {
			n++
		}
	}
	return n
}

// StateSnapshot is a copy of coordinator state safe to read outside the
// loop.
type StateSnapshot struct {
	Queue   []matchmaking.Candidate
	Matches []*MatchView
}

// MatchView is a read-only copy of one match.
type MatchView struct {
	ID             string                `json:"id"`
	Status         string                `json:"status"`
	Proposal       *matchmaking.Proposal `json:"proposal"`
	Decisions      map[string]Decision   `json:"decisions"`
	AcceptDeadline time.Time             `json:"acceptDeadline"`
	DraftDeadline  time.Time             `json:"draftDeadline,omitzero"`
	Draft          *DraftView            `json:"draft,omitempty"`
	Winner         string                `json:"winner,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	CompletedAt    time.Time             `json:"completedAt,omitzero"`
}

// DraftView is a read-only copy of draft progress.
type DraftView struct {
	Position    int            `json:"position"`
	Complete    bool           `json:"complete"`
	CurrentSlot int            `json:"currentSlot"`
	CurrentKind string         `json:"currentKind"`
	Actions     []draft.Action `json:"actions"`
	Unavailable []int          `json:"unavailable"`
}

func (c *Coordinator) snapshot() StateSnapshot {
	queue := make([]matchmaking.Candidate, len(c.state.Queue))
	copy(queue, c.state.Queue)

	matches := make([]*MatchView, 0, len(c.state.Matches))
	for _, m := range c.state.Matches {
		matches = append(matches, c.viewOf(m))
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return StateSnapshot{Queue: queue, Matches: matches}
}

func (c *Coordinator) viewOf(m *Match) *MatchView {
	if m == nil {
		return nil
	}
	decisions := make(map[string]Decision, len(m.Decisions))
	for id, d := range m.Decisions {
		decisions[id] = d
	}
	v := &MatchView{
		ID:             m.ID,
		Status:         m.Status.String(),
		Proposal:       m.Proposal,
		Decisions:      decisions,
		AcceptDeadline: m.AcceptDeadline,
		DraftDeadline:  m.DraftDeadline,
		Winner:         m.Winner,
		CreatedAt:      m.CreatedAt,
		CompletedAt:    m.CompletedAt,
	}
	if m.Draft != nil {
		dv := &DraftView{
			Position:    m.Draft.Cursor(),
			Complete:    m.Draft.Complete(),
			CurrentSlot: -1,
			Actions:     m.Draft.Actions(),
			Unavailable: m.Draft.Unavailable(),
		}
		if step, ok := m.Draft.Current(); ok {
			dv.CurrentSlot = step.Slot
			dv.CurrentKind = string(step.Kind)
		}
		v.Draft = dv
	}
	return v
}

// GetState returns a snapshot of the current state.
func (c *Coordinator) GetState() StateSnapshot {
	respCh := make(chan StateSnapshot, 1)
	c.commands <- getStateCmd{Response: respCh}
	return <-respCh
}

// GetPlayerMatch returns the active match a player is in, or nil.
func (c *Coordinator) GetPlayerMatch(playerID string) *MatchView {
	respCh := make(chan *MatchView, 1)
	c.commands <- getPlayerMatchCmd{PlayerID: playerID, Response: respCh}
	return <-respCh
}

// GetMatch returns the match with the given ID, or nil.
func (c *Coordinator) GetMatch(matchID string) *MatchView {
	respCh := make(chan *MatchView, 1)
	c.commands <- getMatchCmd{MatchID: matchID, Response: respCh}
	return <-respCh
}

// getStateCmd is an internal command to safely get a state snapshot.
type getStateCmd struct {
	Response chan StateSnapshot
}

func (getStateCmd) command() {}

// getPlayerMatchCmd is an internal command to get a player's match.
type getPlayerMatchCmd struct {
	PlayerID string
	Response chan *MatchView
}

func (getPlayerMatchCmd) command() {}

// getMatchCmd is an internal command to get a match by ID.
type getMatchCmd struct {
	MatchID  string
	Response chan *MatchView
}

func (getMatchCmd) command() {}
