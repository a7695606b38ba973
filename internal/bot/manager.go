package bot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

// DefaultReactionDelay is how long a bot waits before acting on its
// draft turn, so drafts against bots feel paced rather than instant.
const DefaultReactionDelay = 2 * time.Second

// Manager drives draft actions for bot participants and optionally
// tops up a short queue with bots. Bots accept proposals inside the
// coordinator; this component plays their draft turns.
type Manager struct {
	commands      chan<- coordinator.Command
	store         store.Store
	log           *logrus.Logger
	reactionDelay time.Duration
	fillTo        int
	pool          []int

	mu      sync.Mutex
	filling bool
	matches map[string]matchTrack
	rng     *rand.Rand
}

// matchTrack holds the cancellation handle for one tracked draft.
type matchTrack struct {
	done   <-chan struct{}
	cancel context.CancelFunc
}

// Config holds bot manager configuration.
type Config struct {
	ReactionDelay time.Duration

	// FillTo tops the queue up to this size with bots whenever at least
	// one human is waiting. Zero disables queue fill.
	FillTo int

	// Pool is the champion pool bots draw from. Must match the pool the
	// coordinator drafts with; nil falls back to the default pool.
	Pool []int
}

// NewManager creates a bot manager sending draft commands to the
// coordinator. The store is needed for queue fill so bot accounts
// exist before the recorder persists them; pass nil when FillTo is 0.
func NewManager(cfg Config, commands chan<- coordinator.Command, st store.Store) *Manager {
	if cfg.ReactionDelay <= 0 {
		cfg.ReactionDelay = DefaultReactionDelay
	}
	if len(cfg.Pool) == 0 {
		cfg.Pool = draft.DefaultPool()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Manager{
		commands:      commands,
		store:         st,
		log:           logger,
		reactionDelay: cfg.ReactionDelay,
		fillTo:        cfg.FillTo,
		pool:          cfg.Pool,
		matches:       make(map[string]matchTrack),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run listens for coordinator events and schedules bot draft turns.
func (m *Manager) Run(ctx context.Context, events <-chan coordinator.Event) {
	m.log.Info("Bot manager started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Bot manager shutting down")
			m.cancelAll()
			return
		case event, ok := <-events:
			if !ok {
				m.cancelAll()
				return
			}
			switch e := event.(type) {
			case coordinator.QueueUpdatedEvent:
				if m.shouldFill(e) {
					go m.fillQueue(ctx, e)
				}
			case coordinator.DraftStartedEvent:
				m.trackMatch(ctx, e)
			case coordinator.DraftTurnStartedEvent:
				if e.Candidate.IsBot {
					go m.playTurn(e)
				}
			case coordinator.DraftCompletedEvent:
				m.releaseMatch(e.MatchID)
			case coordinator.DraftAbortedEvent:
				m.releaseMatch(e.MatchID)
			case coordinator.MatchCancelledEvent:
				m.releaseMatch(e.MatchID)
			}
		}
	}
}

func (m *Manager) trackMatch(ctx context.Context, e coordinator.DraftStartedEvent) {
	hasBot := false
	for _, c := range e.Proposal.Candidates() {
		if c.IsBot {
			hasBot = true
			break
		}
	}
	if !hasBot {
		return
	}

	matchCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.matches[e.MatchID] = matchTrack{done: matchCtx.Done(), cancel: cancel}
	m.mu.Unlock()

	m.log.WithField("match", e.MatchID).Info("Tracking draft with bot participants")
}

func (m *Manager) releaseMatch(matchID string) {
	m.mu.Lock()
	track, ok := m.matches[matchID]
	if ok {
		delete(m.matches, matchID)
	}
	m.mu.Unlock()

	if ok {
		track.cancel()
	}
}

func (m *Manager) cancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, track := range m.matches {
		track.cancel()
		delete(m.matches, id)
	}
}

func (m *Manager) playTurn(e coordinator.DraftTurnStartedEvent) {
	select {
	case <-m.done(e.MatchID):
		return
	case <-time.After(m.reactionDelay):
	}

	champion := m.chooseChampion(e.Unavailable)
	if champion == draft.ChampionNone {
		m.log.WithField("match", e.MatchID).Warn("No champion left for bot turn")
		return
	}

	cmd := coordinator.SubmitDraftActionCommand{
		MatchID:    e.MatchID,
		PlayerID:   e.Candidate.ID,
		ChampionID: champion,
		Kind:       e.Kind,
		Response:   make(chan error, 1),
	}
	m.commands <- cmd

	// The turn may have timed out and auto-resolved while the bot was
	// waiting. That race is fine, the submit just reports out-of-turn.
	if err := <-cmd.Response; err != nil {
		m.log.WithFields(logrus.Fields{
			"match": e.MatchID,
			"bot":   e.Candidate.ID,
			"error": err,
		}).Debug("Bot draft action rejected")
	}
}

// done returns a channel closed when the match's draft ends. An
// untracked match yields a nil channel, which never fires.
func (m *Manager) done(matchID string) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches[matchID].done
}

// shouldFill reports whether a queue update warrants adding bots:
// fill enabled, queue short, and at least one human waiting.
func (m *Manager) shouldFill(e coordinator.QueueUpdatedEvent) bool {
	if m.fillTo <= 0 || m.store == nil || e.Size == 0 || e.Size >= m.fillTo {
		return false
	}
	for _, c := range e.Players {
		if !c.IsBot {
			return true
		}
	}
	return false
}

func (m *Manager) fillQueue(ctx context.Context, e coordinator.QueueUpdatedEvent) {
	m.mu.Lock()
	if m.filling {
		m.mu.Unlock()
		return
	}
	m.filling = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.filling = false
		m.mu.Unlock()
	}()

	queued := make(map[string]bool, len(e.Players))
	for _, c := range e.Players {
		queued[c.ID] = true
	}

	missing := m.fillTo - e.Size
	added := 0
	now := time.Now()
	for i := 1; added < missing && i <= 4*m.fillTo; i++ {
		id := fmt.Sprintf("bot_%d", i)
		if queued[id] {
			continue
		}

		player := &store.Player{
			ID:            id,
			Name:          fmt.Sprintf("Bot %d", i),
			Rating:        rating.DefaultRating,
			PrimaryLane:   string(matchmaking.LaneFill),
			SecondaryLane: string(matchmaking.LaneFill),
			IsBot:         true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := m.store.UpsertPlayer(ctx, player); err != nil {
			m.log.WithError(err).Error("Failed to persist fill bot")
			return
		}

		cmd := coordinator.JoinQueueCommand{
			Candidate: matchmaking.Candidate{
				ID:            player.ID,
				Name:          player.Name,
				Rating:        player.Rating,
				PrimaryLane:   matchmaking.LaneFill,
				SecondaryLane: matchmaking.LaneFill,
				IsBot:         true,
			},
			Position: make(chan int, 1),
			Response: make(chan error, 1),
		}
		m.commands <- cmd
		if err := <-cmd.Response; err != nil {
			// bot_N already queued or mid-match, try the next slot
			continue
		}
		added++
	}

	if added > 0 {
		m.log.WithField("added", added).Info("Filled queue with bots")
	}
}

// chooseChampion picks a random pool champion not yet banned or picked.
func (m *Manager) chooseChampion(unavailable []int) int {
	used := make(map[int]bool, len(unavailable))
	for _, id := range unavailable {
		used[id] = true
	}

	var legal []int
	for _, id := range m.pool {
		if !used[id] {
			legal = append(legal, id)
		}
	}
	if len(legal) == 0 {
		return draft.ChampionNone
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return legal[m.rng.Intn(len(legal))]
}
