package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa/lol-inhouse/internal/rating"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addPlayer(t *testing.T, s *SQLiteStore, id, name string, ratingValue int) {
	t.Helper()
	now := time.Now()
	require.NoError(t, s.UpsertPlayer(context.Background(), &Player{
		ID: id, Name: name, Rating: ratingValue,
		PrimaryLane: "mid", SecondaryLane: "top",
		CreatedAt: now, UpdatedAt: now,
	}))
}

func TestUpsertPlayerPreservesRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addPlayer(t, s, "p1", "Alice", 1200)

	// A second upsert must not reset the rating.
	now := time.Now()
	require.NoError(t, s.UpsertPlayer(ctx, &Player{
		ID: "p1", Name: "Alice Renamed", Rating: 1000,
		PrimaryLane: "top", SecondaryLane: "fill",
		CreatedAt: now, UpdatedAt: now,
	}))

	p, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice Renamed", p.Name)
	assert.Equal(t, 1200, p.Rating)
	assert.Equal(t, "top", p.PrimaryLane)
}

func TestGetPlayerMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	p, err := s.GetPlayer(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSessionExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)

	require.NoError(t, s.CreateSession(ctx, &Session{
		ID: "live", PlayerID: "p1",
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.CreateSession(ctx, &Session{
		ID: "stale", PlayerID: "p1",
		CreatedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour),
	}))

	live, err := s.GetSession(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "p1", live.PlayerID)

	stale, err := s.GetSession(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, s.DeleteExpiredSessions(ctx))
}

func TestMatchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)
	addPlayer(t, s, "p2", "Bob", 1100)

	started := time.Now()
	require.NoError(t, s.CreateMatch(ctx, &Match{ID: "m1", Status: "drafting", StartedAt: started}))
	require.NoError(t, s.AddMatchPlayer(ctx, &MatchPlayer{MatchID: "m1", PlayerID: "p1", Team: "blue", Slot: 0, Lane: "top"}))
	require.NoError(t, s.AddMatchPlayer(ctx, &MatchPlayer{MatchID: "m1", PlayerID: "p2", Team: "red", Slot: 5, Lane: "top", Autofill: true}))

	require.NoError(t, s.AddDraftAction(ctx, &DraftAction{
		MatchID: "m1", Position: 0, Slot: 0, Kind: "ban", ChampionID: 64, At: started,
	}))
	require.NoError(t, s.UpdateMatchStatus(ctx, "m1", "in_progress"))
	require.NoError(t, s.CompleteMatch(ctx, "m1", "blue", started.Add(30*time.Minute)))

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "completed", m.Status)
	require.NotNil(t, m.Winner)
	assert.Equal(t, "blue", *m.Winner)

	players, err := s.GetMatchPlayers(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "p1", players[0].PlayerID)
	assert.True(t, players[1].Autofill)

	actions, err := s.GetDraftActions(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, 64, actions[0].ChampionID)

	history, err := s.ListMatchesWithPlayers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Blue, 1)
	assert.Len(t, history[0].Red, 1)
}

func TestApplyRatingRecordsAndLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)
	addPlayer(t, s, "p2", "Bob", 1100)

	started := time.Now()
	require.NoError(t, s.CreateMatch(ctx, &Match{ID: "m1", Status: "completed", StartedAt: started}))

	records := []rating.Record{
		rating.NewRecord("p1", 1000, 1100, true),
		rating.NewRecord("p2", 1100, 1000, false),
	}
	require.NoError(t, s.ApplyRatingRecords(ctx, "m1", records))

	p1, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, records[0].After, p1.Rating)
	assert.Equal(t, 1, p1.Wins)
	assert.Equal(t, 0, p1.Losses)

	p2, err := s.GetPlayer(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, records[1].After, p2.Rating)
	assert.Equal(t, 1, p2.Losses)

	// Bob still sits above Alice after one swing.
	board, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "p2", board[0].PlayerID)
	assert.Greater(t, board[0].Rating, board[1].Rating)

	hist, err := s.RatingHistory(ctx, "p1", 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, records[0].Delta, hist[0].Delta)
	assert.True(t, hist[0].Won)
}

func TestApplyRatingRecordsStaleBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)

	require.NoError(t, s.CreateMatch(ctx, &Match{ID: "m1", Status: "completed", StartedAt: time.Now()}))
	require.NoError(t, s.CreateMatch(ctx, &Match{ID: "m2", Status: "completed", StartedAt: time.Now()}))

	// Both records were computed before either match persisted, so their
	// Before snapshots are equally stale. The deltas must still stack.
	first := rating.NewRecord("p1", 1000, 1000, true)
	second := rating.NewRecord("p1", 1000, 1000, true)
	require.NoError(t, s.ApplyRatingRecords(ctx, "m1", []rating.Record{first}))
	require.NoError(t, s.ApplyRatingRecords(ctx, "m2", []rating.Record{second}))

	p1, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1000+first.Delta+second.Delta, p1.Rating)

	// History reflects the transitions as applied, not as snapshotted.
	hist, err := s.RatingHistory(ctx, "p1", 5)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 1000+first.Delta, hist[0].Before)
	assert.Equal(t, p1.Rating, hist[0].After)
}

func TestLeaderboardStreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)

	results := []bool{false, true, true, true} // oldest to newest
	r := 1000
	for i, won := range results {
		matchID := string(rune('a' + i))
		require.NoError(t, s.CreateMatch(ctx, &Match{ID: matchID, Status: "completed", StartedAt: time.Now()}))
		rec := rating.NewRecord("p1", r, 1000, won)
		require.NoError(t, s.ApplyRatingRecords(ctx, matchID, []rating.Record{rec}))
		r = rec.After
	}

	board, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 3, board[0].Streak)
	assert.Equal(t, 3, board[0].Wins)
	assert.Equal(t, 1, board[0].Losses)
}

func TestPushSubscriptionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addPlayer(t, s, "p1", "Alice", 1000)

	sub := &PushSubscription{PlayerID: "p1", Endpoint: "https://push.example/abc", P256dh: "key", Auth: "secret"}
	require.NoError(t, s.SavePushSubscription(ctx, sub))
	// Saving the same endpoint again replaces, never duplicates.
	require.NoError(t, s.SavePushSubscription(ctx, sub))

	subs, err := s.GetPushSubscriptions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	all, err := s.GetAllPushSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeletePushSubscription(ctx, sub.Endpoint))
	subs, err = s.GetPushSubscriptions(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
