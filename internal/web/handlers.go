package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlisboa/lol-inhouse/internal/auth"
	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
)

const handlerTimeout = 10 * time.Second

// waitForResponse waits for a command response with a timeout.
func waitForResponse(resp chan error) error {
	select {
	case err := <-resp:
		return err
	case <-time.After(handlerTimeout):
		return fmt.Errorf("command timed out")
	}
}

// errStatus maps coordinator errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, coordinator.ErrAlreadyQueued),
		errors.Is(err, coordinator.ErrInActiveMatch),
		errors.Is(err, coordinator.ErrNotInQueue),
		errors.Is(err, coordinator.ErrWrongStatus),
		errors.Is(err, matchmaking.ErrInsufficientCandidates):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrBadWinner),
		errors.Is(err, draft.ErrOutOfTurn),
		errors.Is(err, draft.ErrWrongActionKind),
		errors.Is(err, draft.ErrChampionUnavailable),
		errors.Is(err, draft.ErrSessionComplete),
		errors.Is(err, draft.ErrSessionAborted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	playerID := ""
	if p, err := s.sessions.GetPlayer(r.Context(), r); err == nil && p != nil {
		playerID = p.ID
	}
	s.sse.HandleConnection(w, r, playerID)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.GetState()
	respondJSON(w, http.StatusOK, map[string]any{
		"queue": snap.Queue,
		"size":  len(snap.Queue),
	})
}

func (s *Server) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cmd := coordinator.JoinQueueCommand{
		Candidate: matchmaking.Candidate{
			ID:            player.ID,
			Name:          player.Name,
			Rating:        player.Rating,
			PrimaryLane:   matchmaking.Lane(player.PrimaryLane),
			SecondaryLane: matchmaking.Lane(player.SecondaryLane),
		},
		Position: make(chan int, 1),
		Response: make(chan error, 1),
	}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"position": <-cmd.Position})
}

func (s *Server) handleLeaveQueue(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cmd := coordinator.LeaveQueueCommand{
		PlayerID: player.ID,
		Response: make(chan error, 1),
	}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentMatch(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view := s.coordinator.GetPlayerMatch(player.ID)
	if view == nil {
		respondJSON(w, http.StatusOK, map[string]any{"match": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"match": view})
}

func (s *Server) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	s.handleAcceptance(w, r, true)
}

func (s *Server) handleDeclineMatch(w http.ResponseWriter, r *http.Request) {
	s.handleAcceptance(w, r, false)
}

func (s *Server) handleAcceptance(w http.ResponseWriter, r *http.Request, accept bool) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	matchID := chi.URLParam(r, "matchID")

	resp := make(chan error, 1)
	if accept {
		s.coordinator.Send(coordinator.AcceptCommand{MatchID: matchID, PlayerID: player.ID, Response: resp})
	} else {
		s.coordinator.Send(coordinator.DeclineCommand{MatchID: matchID, PlayerID: player.ID, Response: resp})
	}

	if err := waitForResponse(resp); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitDraftAction(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	matchID := chi.URLParam(r, "matchID")

	var req struct {
		ChampionID int    `json:"championId"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	kind := draft.ActionKind(req.Kind)
	if kind != draft.KindBan && kind != draft.KindPick {
		http.Error(w, "Invalid action kind", http.StatusBadRequest)
		return
	}

	cmd := coordinator.SubmitDraftActionCommand{
		MatchID:    matchID,
		PlayerID:   player.ID,
		ChampionID: req.ChampionID,
		Kind:       kind,
		Response:   make(chan error, 1),
	}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportResult(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	matchID := chi.URLParam(r, "matchID")
	winner := chi.URLParam(r, "winner")

	// Only participants may report a result. Admins use the admin route.
	view := s.coordinator.GetMatch(matchID)
	if view == nil {
		respondError(w, coordinator.ErrMatchNotFound)
		return
	}
	if view.Proposal.SlotOf(player.ID) < 0 {
		respondError(w, coordinator.ErrNotParticipant)
		return
	}

	cmd := coordinator.ReportResultCommand{
		MatchID:  matchID,
		Winner:   winner,
		Response: make(chan error, 1),
	}
	s.coordinator.Send(cmd)

	if err := waitForResponse(cmd.Response); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateLanes(w http.ResponseWriter, r *http.Request) {
	player := auth.PlayerFromContext(r.Context())
	if player == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		PrimaryLane   string `json:"primaryLane"`
		SecondaryLane string `json:"secondaryLane"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	primary := matchmaking.Lane(req.PrimaryLane)
	secondary := matchmaking.Lane(req.SecondaryLane)
	if _, ok := matchmaking.ValidLanes[primary]; !ok {
		http.Error(w, "Invalid lane", http.StatusBadRequest)
		return
	}
	if _, ok := matchmaking.ValidLanes[secondary]; !ok {
		http.Error(w, "Invalid lane", http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateLanes(r.Context(), player.ID, string(primary), string(secondary)); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Leaderboard(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (s *Server) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	matches, err := s.store.ListMatchesWithPlayers(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleMatchDetails(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	// Live matches come from the coordinator, finished ones from the store.
	if view := s.coordinator.GetMatch(matchID); view != nil {
		respondJSON(w, http.StatusOK, map[string]any{"match": view})
		return
	}

	match, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		respondError(w, err)
		return
	}
	if match == nil {
		http.Error(w, "Match not found", http.StatusNotFound)
		return
	}
	players, err := s.store.GetMatchPlayers(r.Context(), matchID)
	if err != nil {
		respondError(w, err)
		return
	}
	actions, err := s.store.GetDraftActions(r.Context(), matchID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"match":   match,
		"players": players,
		"draft":   actions,
	})
}

func (s *Server) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	matches, err := s.store.PlayerMatchHistory(r.Context(), playerID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	ratings, err := s.store.RatingHistory(r.Context(), playerID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
		"ratings": ratings,
	})
}

func (s *Server) handleAddFakePlayers(w http.ResponseWriter, r *http.Request) {
	count := 9
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			count = n
		}
	}

	players, err := s.localAuth.CreateFakePlayers(r.Context(), count)
	if err != nil {
		respondError(w, err)
		return
	}

	for _, p := range players {
		cmd := coordinator.JoinQueueCommand{
			Candidate: matchmaking.Candidate{
				ID:            p.ID,
				Name:          p.Name,
				Rating:        p.Rating,
				PrimaryLane:   matchmaking.Lane(p.PrimaryLane),
				SecondaryLane: matchmaking.Lane(p.SecondaryLane),
			},
			Position: make(chan int, 1),
			Response: make(chan error, 1),
		}
		s.coordinator.Send(cmd)
		if err := waitForResponse(cmd.Response); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{"added": len(players)})
}

func (s *Server) handleDevAcceptAll(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.GetState()
	accepted := 0
	for _, m := range snap.Matches {
		if m.Status != coordinator.StatusProposed.String() {
			continue
		}
		for playerID, decision := range m.Decisions {
			if decision != coordinator.DecisionPending {
				continue
			}
			resp := make(chan error, 1)
			s.coordinator.Send(coordinator.AcceptCommand{MatchID: m.ID, PlayerID: playerID, Response: resp})
			if err := waitForResponse(resp); err != nil {
				respondError(w, err)
				return
			}
			accepted++
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}
