package push

import (
	"context"
	"fmt"
	"log"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
)

// queueAlertThreshold is the queue size at which everyone subscribed
// gets nudged that a match is close to forming.
const queueAlertThreshold = 8

// Notifier listens to coordinator events and sends push notifications.
type Notifier struct {
	service   *Service
	lastQueue int
}

func NewNotifier(service *Service) *Notifier {
	return &Notifier{service: service}
}

// Run starts listening to coordinator events.
func (n *Notifier) Run(ctx context.Context, events <-chan coordinator.Event) {
	log.Println("Push notifier started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Push notifier stopped")
			return

		case event := <-events:
			n.handleEvent(ctx, event)
		}
	}
}

func (n *Notifier) handleEvent(ctx context.Context, event coordinator.Event) {
	switch e := event.(type) {
	case coordinator.QueueUpdatedEvent:
		n.handleQueueUpdated(ctx, e)
	case coordinator.MatchProposedEvent:
		n.handleMatchProposed(ctx, e)
	case coordinator.DraftTurnStartedEvent:
		n.handleDraftTurnStarted(ctx, e)
	case coordinator.MatchCompletedEvent:
		n.handleMatchCompleted(ctx, e)
	}
}

// handleQueueUpdated broadcasts once per upward crossing of the alert
// threshold so idle players come back before the queue stalls at nine.
func (n *Notifier) handleQueueUpdated(ctx context.Context, event coordinator.QueueUpdatedEvent) {
	crossed := event.Size >= queueAlertThreshold && n.lastQueue < queueAlertThreshold
	n.lastQueue = event.Size
	if !crossed {
		return
	}

	n.service.SendToAll(ctx, NotificationPayload{
		Title: "Queue Filling Up",
		Body:  fmt.Sprintf("%d players waiting. Join now!", event.Size),
		Icon:  "/static/favicon.ico",
		Tag:   "queue-alert",
		Data:  map[string]any{"url": "/"},
	})
}

func (n *Notifier) handleMatchProposed(ctx context.Context, event coordinator.MatchProposedEvent) {
	payload := NotificationPayload{
		Title: "Match Found!",
		Body:  "Click to accept your match.",
		Icon:  "/static/favicon.ico",
		Badge: "/static/favicon.ico",
		Tag:   "match-found",
		Data: map[string]any{
			"matchID": event.MatchID,
			"url":     "/",
		},
	}

	n.service.SendToPlayers(ctx, humanIDs(event.Proposal.Candidates()), payload)
}

// handleDraftTurnStarted nudges only the player whose turn began.
func (n *Notifier) handleDraftTurnStarted(ctx context.Context, event coordinator.DraftTurnStartedEvent) {
	if event.Candidate.IsBot {
		return
	}

	payload := NotificationPayload{
		Title: "Your Turn!",
		Body:  "Submit your " + string(event.Kind) + " before the timer runs out.",
		Icon:  "/static/favicon.ico",
		Badge: "/static/favicon.ico",
		Tag:   "draft-turn",
		Data: map[string]any{
			"matchID": event.MatchID,
			"url":     "/",
		},
	}

	go func() {
		if err := n.service.SendToPlayer(ctx, event.Candidate.ID, payload); err != nil {
			log.Printf("Failed to send draft turn push to %s: %v", event.Candidate.ID, err)
		}
	}()
}

func (n *Notifier) handleMatchCompleted(ctx context.Context, event coordinator.MatchCompletedEvent) {
	payload := NotificationPayload{
		Title: "Match Complete",
		Body:  "Ratings have been updated.",
		Icon:  "/static/favicon.ico",
		Tag:   "match-complete",
		Data: map[string]any{
			"matchID": event.MatchID,
			"url":     "/",
		},
	}

	ids := make([]string, 0, len(event.Records))
	for _, rec := range event.Records {
		ids = append(ids, rec.PlayerID)
	}
	n.service.SendToPlayers(ctx, ids, payload)
}

func humanIDs(candidates []matchmaking.Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !c.IsBot {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
