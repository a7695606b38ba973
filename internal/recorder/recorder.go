package recorder

import (
	"context"
	"log"
	"time"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

// Recorder persists coordinator events: match lifecycle, draft actions and
// rating updates.
type Recorder struct {
	store store.Store
}

// New creates a new recorder.
func New(s store.Store) *Recorder {
	return &Recorder{store: s}
}

// Run listens for coordinator events and records them. It blocks until ctx
// is cancelled or the event channel closes.
func (r *Recorder) Run(ctx context.Context, events <-chan coordinator.Event) {
	log.Println("Recorder started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Recorder shutting down")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.handleEvent(ctx, event)
		}
	}
}

func (r *Recorder) handleEvent(ctx context.Context, event coordinator.Event) {
	switch e := event.(type) {
	case coordinator.DraftStartedEvent:
		r.recordDraftStarted(ctx, e)
	case coordinator.DraftActionAppliedEvent:
		r.recordDraftAction(ctx, e)
	case coordinator.MatchStartedEvent:
		r.recordStatus(ctx, e.MatchID, "in_progress")
	case coordinator.DraftAbortedEvent:
		r.recordStatus(ctx, e.MatchID, "cancelled")
	case coordinator.MatchCancelledEvent:
		r.recordStatus(ctx, e.MatchID, "cancelled")
	case coordinator.MatchCompletedEvent:
		r.recordMatchCompleted(ctx, e)
	}
}

// recordDraftStarted is the first persistence point: proposals that die
// before the draft never reach the database.
func (r *Recorder) recordDraftStarted(ctx context.Context, e coordinator.DraftStartedEvent) {
	match := &store.Match{
		ID:        e.MatchID,
		Status:    "drafting",
		StartedAt: time.Now(),
	}
	if err := r.store.CreateMatch(ctx, match); err != nil {
		log.Printf("Recorder: failed to create match %s: %v", e.MatchID, err)
		return
	}

	for _, slot := range e.Proposal.Slots() {
		team := "blue"
		if slot.Index >= 5 {
			team = "red"
		}
		mp := &store.MatchPlayer{
			MatchID:  e.MatchID,
			PlayerID: slot.Candidate.ID,
			Team:     team,
			Slot:     slot.Index,
			Lane:     string(slot.Lane),
			Autofill: slot.Autofill,
		}
		if err := r.store.AddMatchPlayer(ctx, mp); err != nil {
			log.Printf("Recorder: failed to add player %s to match %s: %v", slot.Candidate.ID, shortID(e.MatchID), err)
		}
	}

	log.Printf("Recorder: recorded draft start %s", shortID(e.MatchID))
}

func (r *Recorder) recordDraftAction(ctx context.Context, e coordinator.DraftActionAppliedEvent) {
	action := &store.DraftAction{
		MatchID:    e.MatchID,
		Position:   e.Action.Position,
		Slot:       e.Action.Slot,
		Kind:       string(e.Action.Kind),
		ChampionID: e.Action.ChampionID,
		Auto:       e.Action.Auto,
		At:         e.Action.At,
	}
	if err := r.store.AddDraftAction(ctx, action); err != nil {
		log.Printf("Recorder: failed to add draft action %d for match %s: %v", e.Action.Position, shortID(e.MatchID), err)
	}
}

func (r *Recorder) recordStatus(ctx context.Context, matchID, status string) {
	existing, err := r.store.GetMatch(ctx, matchID)
	if err != nil || existing == nil {
		return // never persisted, nothing to update
	}
	if err := r.store.UpdateMatchStatus(ctx, matchID, status); err != nil {
		log.Printf("Recorder: failed to update match %s to %s: %v", shortID(matchID), status, err)
	}
}

func (r *Recorder) recordMatchCompleted(ctx context.Context, e coordinator.MatchCompletedEvent) {
	now := time.Now()

	existing, err := r.store.GetMatch(ctx, e.MatchID)
	if err != nil {
		log.Printf("Recorder: failed to get match %s: %v", e.MatchID, err)
		return
	}
	if existing == nil {
		// Server restarted mid-match; create the record now.
		if err := r.store.CreateMatch(ctx, &store.Match{
			ID: e.MatchID, Status: "in_progress", StartedAt: now,
		}); err != nil {
			log.Printf("Recorder: failed to create completed match %s: %v", e.MatchID, err)
			return
		}
	}

	if err := r.store.CompleteMatch(ctx, e.MatchID, e.Winner, now); err != nil {
		log.Printf("Recorder: failed to complete match %s: %v", shortID(e.MatchID), err)
		return
	}

	if err := r.applyRatings(ctx, e); err != nil {
		// The match is completed but ratings are not applied. Flag it so an
		// operator can reconcile.
		log.Printf("Recorder: failed to apply ratings for match %s: %v", shortID(e.MatchID), err)
		if err := r.store.UpdateMatchStatus(ctx, e.MatchID, "completed_unpersisted"); err != nil {
			log.Printf("Recorder: failed to flag match %s: %v", shortID(e.MatchID), err)
		}
		return
	}

	log.Printf("Recorder: recorded completed match %s (%s wins, %d rating updates)",
		shortID(e.MatchID), e.Winner, len(e.Records))
}

// applyRatings retries once; the whole batch commits or nothing does.
func (r *Recorder) applyRatings(ctx context.Context, e coordinator.MatchCompletedEvent) error {
	err := r.store.ApplyRatingRecords(ctx, e.MatchID, e.Records)
	if err == nil {
		return nil
	}
	log.Printf("Recorder: rating update for match %s failed, retrying: %v", shortID(e.MatchID), err)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}
	return r.store.ApplyRatingRecords(ctx, e.MatchID, e.Records)
}

// shortID trims a uuid down to its first group for log lines.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
