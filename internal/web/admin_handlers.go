package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

func (s *Server) handleAdminState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.coordinator.GetState())
}

func (s *Server) handleAdminListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (s *Server) handleAdminForceBuild(w http.ResponseWriter, r *http.Request) {
	cmd := coordinator.ForceBuildCommand{Response: make(chan error, 1)}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminKickPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		http.Error(w, "Missing player ID", http.StatusBadRequest)
		return
	}

	cmd := coordinator.KickFromQueueCommand{PlayerID: playerID, Response: make(chan error, 1)}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminCancelMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	cmd := coordinator.CancelMatchCommand{MatchID: matchID, Response: make(chan error, 1)}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminAbortDraft(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	cmd := coordinator.AbortDraftCommand{MatchID: matchID, Response: make(chan error, 1)}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminSetResult(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	winner := chi.URLParam(r, "winner")
	if winner != coordinator.TeamBlue && winner != coordinator.TeamRed {
		http.Error(w, "Winner must be blue or red", http.StatusBadRequest)
		return
	}

	cmd := coordinator.ReportResultCommand{MatchID: matchID, Winner: winner, Response: make(chan error, 1)}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminAddBots fills the queue with bot accounts. Bots accept
// proposals automatically and draft on their own.
func (s *Server) handleAdminAddBots(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil || count < 1 || count > matchmaking.MatchSize {
		http.Error(w, "Count must be between 1 and 10", http.StatusBadRequest)
		return
	}

	added := 0
	now := time.Now()
	for i := 1; added < count && i <= 100; i++ {
		id := fmt.Sprintf("bot_%d", i)

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
		if err := s.store.UpsertPlayer(r.Context(), player); err != nil {
			respondError(w, err)
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
		s.coordinator.Send(cmd)
		if err := waitForResponse(cmd.Response); err != nil {
			// Already queued or mid-match, try the next bot slot.
			continue
		}
		added++
	}

	respondJSON(w, http.StatusOK, map[string]int{"added": added})
}
