package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mlisboa/lol-inhouse/internal/auth"
	"github.com/mlisboa/lol-inhouse/internal/bot"
	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/push"
	"github.com/mlisboa/lol-inhouse/internal/recorder"
	"github.com/mlisboa/lol-inhouse/internal/riot"
	"github.com/mlisboa/lol-inhouse/internal/store"
	"github.com/mlisboa/lol-inhouse/internal/web"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DATABASE_PATH", "./data/inhouse.db")
	devMode := getEnv("DEV_MODE", "") == "true"
	adminIDs := getEnv("ADMIN_PLAYER_IDS", "")
	riotAPIKey := getEnv("RIOT_API_KEY", "")

	vapidPublic := getEnv("VAPID_PUBLIC_KEY", "")
	vapidPrivate := getEnv("VAPID_PRIVATE_KEY", "")
	vapidSubject := getEnv("VAPID_SUBJECT", "mailto:admin@example.com")

	coordCfg := coordinator.DefaultConfig()
	if v := getEnvSeconds("ACCEPT_TIMEOUT_SECONDS"); v > 0 {
		coordCfg.AcceptTimeout = v
	}
	if v := getEnvSeconds("DRAFT_ACTION_TIMEOUT_SECONDS"); v > 0 {
		coordCfg.DraftActionTimeout = v
	}
	if v := getEnvSeconds("DECLINE_COOLDOWN_SECONDS"); v > 0 {
		coordCfg.DeclineCooldown = v
	}
	if getEnv("QUEUE_STRATEGY", "fifo") == "cluster" {
		coordCfg.Strategy = matchmaking.StrategyCluster
	}
	coordCfg.Draft.RandomBanOnTimeout = getEnv("RANDOM_BAN_ON_TIMEOUT", "") == "true"

	if riotAPIKey == "" {
		log.Println("Warning: RIOT_API_KEY not set. New players start at the default rating.")
	}
	if vapidPublic == "" || vapidPrivate == "" {
		log.Println("Warning: VAPID keys not set. Push notifications will not work.")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize store
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize coordinator
	coord := coordinator.New(coordCfg)

	// Initialize auth
	sessions := auth.NewSessionManager(db)
	var riotClient *riot.Client
	if riotAPIKey != "" {
		riotClient = riot.NewClient(riotAPIKey)
	}
	localAuth := auth.NewLocalAuth(db, sessions, riotClient)
	adminCfg := auth.NewAdminConfig(adminIDs)

	// Create fake players in dev mode
	if devMode {
		log.Println("Dev mode enabled")
		if _, err := localAuth.CreateFakePlayers(context.Background(), 15); err != nil {
			log.Printf("Failed to create fake players: %v", err)
		}
	}

	// Initialize push notifications
	pushService := push.NewService(db, push.Config{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		VAPIDSubject:    vapidSubject,
	})

	// Initialize web server
	server := web.NewServer(coord, db, localAuth, sessions, adminCfg, pushService, web.Config{
		DevMode: devMode,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start coordinator
	go coord.Run(ctx)

	// Expired-session sweeper
	go sessions.RunSweeper(ctx, time.Hour)

	// Start SSE hub
	server.StartSSE(coord.Events())

	// Start match recorder
	rec := recorder.New(db)
	go rec.Run(ctx, coord.Subscribe())

	// Start push notifier
	notifier := push.NewNotifier(pushService)
	go notifier.Run(ctx, coord.Subscribe())

	// Start bot manager with a command channel bridged to the coordinator
	botCommands := make(chan coordinator.Command, 100)
	go func() {
		for cmd := range botCommands {
			coord.Send(cmd)
		}
	}()
	botCfg := bot.Config{Pool: coordCfg.Draft.Pool}
	if v := getEnv("BOT_FILL", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= matchmaking.MatchSize {
			botCfg.FillTo = n
		} else {
			log.Printf("Warning: invalid BOT_FILL %q (must be 1-10)", v)
		}
	}
	botManager := bot.NewManager(botCfg, botCommands, db)
	go botManager.Run(ctx, coord.Subscribe())

	// Start HTTP server
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server,
	}

	// Handle shutdown signals
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", port)
	if devMode {
		fmt.Printf("Dev seed: curl -X POST http://localhost:%s/dev/add-fake-players\n", port)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s %q (must be a positive integer)", key, v)
		return 0
	}
	return time.Duration(n) * time.Second
}
