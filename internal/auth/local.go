package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
	"github.com/mlisboa/lol-inhouse/internal/riot"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

// LocalAuth handles account registration and login. Accounts are local to
// this server; a Riot ID is only used once, to seed the starting rating
// from the player's ranked standing.
type LocalAuth struct {
	store    store.Store
	sessions *SessionManager
	riot     *riot.Client // nil when no API key is configured
}

// NewLocalAuth creates a new auth handler.
func NewLocalAuth(s store.Store, sessions *SessionManager, riotClient *riot.Client) *LocalAuth {
	return &LocalAuth{store: s, sessions: sessions, riot: riotClient}
}

type registerRequest struct {
	Name          string `json:"name"`
	PrimaryLane   string `json:"primaryLane"`
	SecondaryLane string `json:"secondaryLane"`
	RiotID        string `json:"riotId,omitempty"` // "name#tag"
}

// RegisterHandler creates a player account and starts a session.
func (la *LocalAuth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	primary, secondary, err := normalizeLanes(req.PrimaryLane, req.SecondaryLane)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	player := &store.Player{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Rating:        la.seedRating(r.Context(), req.RiotID),
		PrimaryLane:   primary,
		SecondaryLane: secondary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := la.store.UpsertPlayer(r.Context(), player); err != nil {
		http.Error(w, "Failed to save player", http.StatusInternalServerError)
		return
	}

	if err := la.sessions.CreateSession(r.Context(), w, player.ID); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writePlayer(w, player)
}

// seedRating derives the starting rating from ranked standing when a Riot
// ID is supplied and the lookup succeeds; everyone else starts at the
// default.
func (la *LocalAuth) seedRating(ctx context.Context, riotID string) int {
	if la.riot == nil || riotID == "" {
		return rating.DefaultRating
	}

	gameName, tagLine, ok := strings.Cut(riotID, "#")
	if !ok || gameName == "" || tagLine == "" {
		return rating.DefaultRating
	}

	entry, err := la.riot.GetSoloQueueRank(ctx, gameName, tagLine)
	if err != nil {
		log.Printf("Auth: rank lookup for %s failed, using default rating: %v", riotID, err)
		return rating.DefaultRating
	}
	if entry == nil {
		return rating.DefaultRating // unranked
	}
	return rating.Seed(entry.Tier, entry.Rank, entry.LeaguePoints)
}

type loginRequest struct {
	PlayerID string `json:"playerId"`
}

// LoginHandler starts a session for an existing player by ID alone.
// Unauthenticated, so the server only mounts it in dev mode.
func (la *LocalAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	player, err := la.store.GetPlayer(r.Context(), req.PlayerID)
	if err != nil {
		http.Error(w, "Failed to get player", http.StatusInternalServerError)
		return
	}
	if player == nil {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	if err := la.sessions.CreateSession(r.Context(), w, player.ID); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writePlayer(w, player)
}

// LogoutHandler ends the current session.
func (la *LocalAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	la.sessions.DeleteSession(r.Context(), w, r)
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the current player's info.
func (la *LocalAuth) MeHandler(w http.ResponseWriter, r *http.Request) {
	player, err := la.sessions.GetPlayer(r.Context(), r)
	if err != nil {
		http.Error(w, "Failed to get player", http.StatusInternalServerError)
		return
	}
	if player == nil {
		http.Error(w, "Not logged in", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writePlayer(w, player)
}

func writePlayer(w http.ResponseWriter, p *store.Player) {
	json.NewEncoder(w).Encode(map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"rating":        p.Rating,
		"primaryLane":   p.PrimaryLane,
		"secondaryLane": p.SecondaryLane,
		"wins":          p.Wins,
		"losses":        p.Losses,
	})
}

func normalizeLanes(primary, secondary string) (string, string, error) {
	if primary == "" {
		primary = string(matchmaking.LaneFill)
	}
	if secondary == "" {
		secondary = string(matchmaking.LaneFill)
	}
	if _, ok := matchmaking.ValidLanes[matchmaking.Lane(primary)]; !ok {
		return "", "", fmt.Errorf("invalid primary lane %q", primary)
	}
	if _, ok := matchmaking.ValidLanes[matchmaking.Lane(secondary)]; !ok {
		return "", "", fmt.Errorf("invalid secondary lane %q", secondary)
	}
	return primary, secondary, nil
}

// RequireAuth middleware ensures the request has a valid session.
func RequireAuth(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			player, err := sessions.GetPlayer(r.Context(), r)
			if err != nil || player == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), playerContextKey, player)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type contextKey string

const playerContextKey contextKey = "player"

// PlayerFromContext retrieves the player from the request context.
func PlayerFromContext(ctx context.Context) *store.Player {
	player, _ := ctx.Value(playerContextKey).(*store.Player)
	return player
}

// CreateFakePlayers creates fake accounts for development.
func (la *LocalAuth) CreateFakePlayers(ctx context.Context, count int) ([]*store.Player, error) {
	now := time.Now()
	players := make([]*store.Player, 0, count)
	for i := 1; i <= count; i++ {
		player := &store.Player{
			ID:            fmt.Sprintf("fake_%d", i),
			Name:          fmt.Sprintf("Player %d", i),
			Rating:        rating.DefaultRating,
			PrimaryLane:   string(matchmaking.LaneFill),
			SecondaryLane: string(matchmaking.LaneFill),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := la.store.UpsertPlayer(ctx, player); err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, nil
}
