package draft

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrOutOfTurn           = errors.New("not this slot's turn")
	ErrChampionUnavailable = errors.New("champion already picked or banned")
	ErrWrongActionKind     = errors.New("wrong action kind for this turn")
	ErrSessionComplete     = errors.New("draft session already complete")
	ErrSessionAborted      = errors.New("draft session aborted")
)

// ChampionNone marks a skipped ban. It never enters the unavailability set.
const ChampionNone = 0

// Action is one recorded ban or pick. Immutable once appended.
type Action struct {
	Position   int        `json:"position"`
	Slot       int        `json:"slot"`
	ChampionID int        `json:"championId"`
	Kind       ActionKind `json:"kind"`
	Auto       bool       `json:"auto"`
	At         time.Time  `json:"at"`
}

// Config tunes per-session behavior.
type Config struct {
	// Pool is the set of pickable champion IDs.
	Pool []int
	// RandomBanOnTimeout makes a timed-out ban take a random legal champion
	// instead of being skipped.
	RandomBanOnTimeout bool
}

// Session is the turn-based ban/pick state machine for one match. It is not
// safe for concurrent use; the owning coordinator serializes access.
type Session struct {
	cfg     Config
	actions []Action
	used    map[int]bool
	cursor  int
	aborted bool
	rng     *rand.Rand
}

// NewSession creates a session at the first template position.
func NewSession(cfg Config, seed int64) *Session {
	return &Session{
		cfg:  cfg,
		used: make(map[int]bool),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Cursor returns the current template position (also the staleness token for
// deadline timers).
func (s *Session) Cursor() int { return s.cursor }

// Complete reports whether every template step has been taken.
func (s *Session) Complete() bool { return s.cursor >= len(Template) }

// Aborted reports whether the session was halted early.
func (s *Session) Aborted() bool { return s.aborted }

// Actions returns the recorded actions so far.
func (s *Session) Actions() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// Current returns the step owning the current turn.
func (s *Session) Current() (Step, bool) {
	if s.aborted || s.Complete() {
		return Step{}, false
	}
	return Template[s.cursor], true
}

// Unavailable returns every champion ID that can no longer be picked or
// banned. Bans and picks share one exclusion set.
func (s *Session) Unavailable() []int {
	out := make([]int, 0, len(s.used))
	for id := range s.used {
		out = append(out, id)
	}
	return out
}

// Submit validates and records an action for the given slot, advancing the
// turn pointer. Validation failures leave the session unchanged.
func (s *Session) Submit(slot, championID int, kind ActionKind, now time.Time) (Action, error) {
	if s.aborted {
		return Action{}, ErrSessionAborted
	}
	if s.Complete() {
		return Action{}, ErrSessionComplete
	}

	step := Template[s.cursor]
	if step.Slot != slot {
		return Action{}, ErrOutOfTurn
	}
	if step.Kind != kind {
		return Action{}, ErrWrongActionKind
	}
	if championID == ChampionNone || s.used[championID] {
		return Action{}, ErrChampionUnavailable
	}

	return s.record(championID, false, now), nil
}

// AutoSubmit resolves a deadline expiry: a random legal champion for picks,
// and a skip (or random ban, per config) for bans. It always advances the
// turn so the sequence terminates.
func (s *Session) AutoSubmit(now time.Time) (Action, error) {
	if s.aborted {
		return Action{}, ErrSessionAborted
	}
	if s.Complete() {
		return Action{}, ErrSessionComplete
	}

	step := Template[s.cursor]
	if step.Kind == KindBan && !s.cfg.RandomBanOnTimeout {
		return s.record(ChampionNone, true, now), nil
	}
	return s.record(s.randomLegal(), true, now), nil
}

// Abort halts the session. Remaining steps are never taken.
func (s *Session) Abort() {
	s.aborted = true
}

func (s *Session) record(championID int, auto bool, now time.Time) Action {
	step := Template[s.cursor]
	a := Action{
		Position:   s.cursor,
		Slot:       step.Slot,
		ChampionID: championID,
		Kind:       step.Kind,
		Auto:       auto,
		At:         now,
	}
	s.actions = append(s.actions, a)
	if championID != ChampionNone {
		s.used[championID] = true
	}
	s.cursor++
	return a
}

func (s *Session) randomLegal() int {
	legal := make([]int, 0, len(s.cfg.Pool))
	for _, id := range s.cfg.Pool {
		if !s.used[id] {
			legal = append(legal, id)
		}
	}
	if len(legal) == 0 {
		return ChampionNone
	}
	return legal[s.rng.Intn(len(legal))]
}

// DefaultPool is a stand-in champion pool large enough for any full draft.
// Real deployments replace it with the live champion list.
func DefaultPool() []int {
	pool := make([]int, 0, 170)
	for id := 1; id <= 170; id++ {
		pool = append(pool, id)
	}
	return pool
}
