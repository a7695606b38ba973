package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
)

// sseMessage is one named SSE event with a JSON payload.
type sseMessage struct {
	Event string
	Data  []byte
}

// SSEClient represents a connected SSE client.
type SSEClient struct {
	ID       string
	PlayerID string
	Channel  chan sseMessage
}

// SSEHub manages SSE connections and fans out coordinator events as JSON.
// Queue and completion events go to everyone; match-scoped events go only
// to that match's participants.
type SSEHub struct {
	clients     map[*SSEClient]bool
	mu          sync.RWMutex
	coordinator *coordinator.Coordinator
}

// NewSSEHub creates a new SSE hub.
func NewSSEHub(coord *coordinator.Coordinator) *SSEHub {
	return &SSEHub{
		clients:     make(map[*SSEClient]bool),
		coordinator: coord,
	}
}

// Run starts the SSE hub, processing events from the coordinator.
func (h *SSEHub) Run(events <-chan coordinator.Event) {
	log.Println("SSE hub started")
	for event := range events {
		h.broadcast(event)
	}
}

func (h *SSEHub) broadcast(event coordinator.Event) {
	name := eventName(event)
	if name == "" {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", name, err)
		return
	}
	msg := sseMessage{Event: name, Data: data}

	recipients, scoped := h.recipients(event)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if scoped && !recipients[client.PlayerID] {
			continue
		}
		select {
		case client.Channel <- msg:
		default:
			log.Printf("Dropping message for slow client %s", client.ID)
		}
	}
}

func eventName(event coordinator.Event) string {
	switch event.(type) {
	case coordinator.QueueUpdatedEvent:
		return "queue_updated"
	case coordinator.MatchProposedEvent:
		return "match_proposed"
	case coordinator.AcceptanceUpdatedEvent:
		return "acceptance_updated"
	case coordinator.AcceptanceTickEvent:
		return "acceptance_tick"
	case coordinator.ProposalCancelledEvent:
		return "proposal_cancelled"
	case coordinator.DraftStartedEvent:
		return "draft_started"
	case coordinator.DraftTurnStartedEvent:
		return "draft_turn_started"
	case coordinator.DraftActionAppliedEvent:
		return "draft_action_applied"
	case coordinator.DraftCompletedEvent:
		return "draft_completed"
	case coordinator.DraftAbortedEvent:
		return "draft_aborted"
	case coordinator.MatchStartedEvent:
		return "match_started"
	case coordinator.MatchCompletedEvent:
		return "match_completed"
	case coordinator.MatchCancelledEvent:
		return "match_cancelled"
	default:
		return ""
	}
}

// recipients returns the participant set for match-scoped events. The
// second return is false for events everyone should see.
func (h *SSEHub) recipients(event coordinator.Event) (map[string]bool, bool) {
	var matchID string
	switch e := event.(type) {
	case coordinator.MatchProposedEvent:
		return participantSet(e.Proposal.Candidates()), true
	case coordinator.AcceptanceUpdatedEvent:
		matchID = e.MatchID
	case coordinator.AcceptanceTickEvent:
		matchID = e.MatchID
	case coordinator.DraftTurnStartedEvent:
		matchID = e.MatchID
	case coordinator.DraftActionAppliedEvent:
		matchID = e.MatchID
	default:
		// Queue, lifecycle and cancellation events are public.
		return nil, false
	}

	match := h.coordinator.GetMatch(matchID)
	if match == nil {
		return map[string]bool{}, true
	}
	return participantSet(match.Proposal.Candidates()), true
}

func participantSet(candidates []matchmaking.Candidate) map[string]bool {
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c.ID] = true
	}
	return set
}

// HandleConnection handles a new SSE connection.
func (h *SSEHub) HandleConnection(w http.ResponseWriter, r *http.Request, playerID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &SSEClient{
		ID:       fmt.Sprintf("%p", r),
		PlayerID: playerID,
		Channel:  make(chan sseMessage, 10),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	log.Printf("SSE client connected: %s (player: %s)", client.ID, playerID)

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		close(client.Channel)
		log.Printf("SSE client disconnected: %s", client.ID)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.Channel:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
