package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mlisboa/lol-inhouse/internal/auth"
	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/push"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	router      *chi.Mux
	coordinator *coordinator.Coordinator
	store       store.Store
	localAuth   *auth.LocalAuth
	sessions    *auth.SessionManager
	adminCfg    *auth.AdminConfig
	pushService *push.Service
	sse         *SSEHub
	devMode     bool
}

// Config holds server configuration.
type Config struct {
	DevMode bool
}

// NewServer creates a new HTTP server.
func NewServer(
	coord *coordinator.Coordinator,
	st store.Store,
	localAuth *auth.LocalAuth,
	sessions *auth.SessionManager,
	adminCfg *auth.AdminConfig,
	pushService *push.Service,
	cfg Config,
) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		coordinator: coord,
		store:       st,
		localAuth:   localAuth,
		sessions:    sessions,
		adminCfg:    adminCfg,
		pushService: pushService,
		sse:         NewSSEHub(coord),
		devMode:     cfg.DevMode,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Auth routes
	r.Post("/auth/register", s.localAuth.RegisterHandler)
	r.Post("/auth/logout", s.localAuth.LogoutHandler)
	r.Get("/me", s.localAuth.MeHandler)

	// Dev mode routes. Login by bare player ID is unauthenticated, so it
	// is only available here.
	if s.devMode {
		r.Post("/auth/login", s.localAuth.LoginHandler)
		r.Post("/dev/add-fake-players", s.handleAddFakePlayers)
		r.Post("/dev/accept-all", s.handleDevAcceptAll)
	}

	// SSE endpoint
	r.Get("/events", s.handleSSE)

	// Public read-only API
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/matches", s.handleMatchHistory)
	r.Get("/api/matches/{matchID}", s.handleMatchDetails)
	r.Get("/api/players/{playerID}/history", s.handlePlayerHistory)

	// Player routes (require auth)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.sessions))

		r.Put("/me/lanes", s.handleUpdateLanes)

		r.Get("/queue", s.handleGetQueue)
		r.Post("/queue/join", s.handleJoinQueue)
		r.Post("/queue/leave", s.handleLeaveQueue)

		r.Get("/match", s.handleCurrentMatch)
		r.Post("/match/{matchID}/accept", s.handleAcceptMatch)
		r.Post("/match/{matchID}/decline", s.handleDeclineMatch)
		r.Post("/match/{matchID}/draft", s.handleSubmitDraftAction)
		r.Post("/match/{matchID}/result/{winner}", s.handleReportResult)

		r.Get("/push/public-key", s.handlePushPublicKey)
		r.Post("/push/subscribe", s.handlePushSubscribe)
		r.Delete("/push/subscribe", s.handlePushUnsubscribe)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(s.adminCfg.Middleware(s.sessions))

		r.Get("/admin/state", s.handleAdminState)
		r.Get("/admin/players", s.handleAdminListPlayers)
		r.Post("/admin/queue/force-build", s.handleAdminForceBuild)
		r.Post("/admin/queue/kick/{playerID}", s.handleAdminKickPlayer)
		r.Post("/admin/queue/add-bots/{count}", s.handleAdminAddBots)
		r.Post("/admin/match/{matchID}/cancel", s.handleAdminCancelMatch)
		r.Post("/admin/match/{matchID}/abort-draft", s.handleAdminAbortDraft)
		r.Post("/admin/match/{matchID}/result/{winner}", s.handleAdminSetResult)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartSSE starts the SSE hub goroutine.
func (s *Server) StartSSE(events <-chan coordinator.Event) {
	go s.sse.Run(events)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
