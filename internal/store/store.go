package store

import (
	"context"
	"time"

	"github.com/mlisboa/lol-inhouse/internal/rating"
)

type Player struct {
	ID            string
	Name          string
	Rating        int
	PrimaryLane   string
	SecondaryLane string
	Wins          int
	Losses        int
	IsBot         bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Session struct {
	ID        string
	PlayerID  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Match struct {
	ID        string
	Status    string
	Winner    *string
	StartedAt time.Time
	EndedAt   *time.Time
}

type MatchPlayer struct {
	MatchID  string
	PlayerID string
	Team     string
	Slot     int
	Lane     string
	Autofill bool
}

type MatchPlayerInfo struct {
	PlayerID string
	Name     string
	Team     string
	Slot     int
	Lane     string
	Autofill bool
	Delta    *int
}

type DraftAction struct {
	MatchID    string
	Position   int
	Slot       int
	Kind       string
	ChampionID int
	Auto       bool
	At         time.Time
}

type Store interface {
	GetPlayer(ctx context.Context, playerID string) (*Player, error)
	UpsertPlayer(ctx context.Context, player *Player) error
	ListPlayers(ctx context.Context) ([]Player, error)
	UpdateLanes(ctx context.Context, playerID, primary, secondary string) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) error

	CreateMatch(ctx context.Context, match *Match) error
	UpdateMatchStatus(ctx context.Context, matchID, status string) error
	CompleteMatch(ctx context.Context, matchID, winner string, endedAt time.Time) error
	GetMatch(ctx context.Context, matchID string) (*Match, error)

	AddMatchPlayer(ctx context.Context, mp *MatchPlayer) error
	GetMatchPlayers(ctx context.Context, matchID string) ([]MatchPlayer, error)

	AddDraftAction(ctx context.Context, action *DraftAction) error
	GetDraftActions(ctx context.Context, matchID string) ([]DraftAction, error)

	ListMatches(ctx context.Context, limit int) ([]Match, error)
	ListMatchesWithPlayers(ctx context.Context, limit int) ([]MatchWithPlayers, error)
	PlayerMatchHistory(ctx context.Context, playerID string, limit int) ([]MatchWithPlayers, error)

	// ApplyRatingRecords updates player ratings and win/loss tallies and
	// appends rating history in one transaction.
	ApplyRatingRecords(ctx context.Context, matchID string, records []rating.Record) error
	RatingHistory(ctx context.Context, playerID string, limit int) ([]RatingChange, error)

	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)

	SavePushSubscription(ctx context.Context, sub *PushSubscription) error
	GetPushSubscriptions(ctx context.Context, playerID string) ([]PushSubscription, error)
	GetAllPushSubscriptions(ctx context.Context) ([]PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Close() error
}

type MatchWithPlayers struct {
	Match
	Blue []MatchPlayerInfo
	Red  []MatchPlayerInfo
}

type RatingChange struct {
	MatchID   string
	PlayerID  string
	Before    int
	After     int
	Delta     int
	Won       bool
	CreatedAt time.Time
}

type LeaderboardEntry struct {
	PlayerID string
	Name     string
	Rating   int
	Wins     int
	Losses   int
	Total    int
	WinRate  float64
	Streak   int // positive = win streak, negative = loss streak
}

type PushSubscription struct {
	ID        int
	PlayerID  string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}
