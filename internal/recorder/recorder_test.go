package recorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/rating"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

func setup(t *testing.T) (*Recorder, *store.SQLiteStore, *matchmaking.Proposal) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	now := time.Now()
	candidates := make([]matchmaking.Candidate, 0, 10)
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, s.UpsertPlayer(context.Background(), &store.Player{
			ID: id, Name: "Player " + id, Rating: 1000 + 10*i,
			PrimaryLane: "fill", SecondaryLane: "fill",
			CreatedAt: now, UpdatedAt: now,
		}))
		candidates = append(candidates, matchmaking.Candidate{
			ID: id, Name: "Player " + id, Rating: 1000 + 10*i,
			PrimaryLane: matchmaking.LaneFill, JoinedAt: now,
		})
	}

	proposal, err := matchmaking.Build(candidates, matchmaking.StrategyFIFO, now)
	require.NoError(t, err)
	return New(s), s, proposal
}

func TestDraftStartedPersistsMatchAndPlayers(t *testing.T) {
	r, s, proposal := setup(t)
	ctx := context.Background()

	r.handleEvent(ctx, coordinator.DraftStartedEvent{MatchID: "m1", Proposal: proposal})

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "drafting", m.Status)

	players, err := s.GetMatchPlayers(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, players, 10)
	assert.Equal(t, "blue", players[0].Team)
	assert.Equal(t, "red", players[9].Team)
}

func TestDraftActionsAccumulate(t *testing.T) {
	r, s, proposal := setup(t)
	ctx := context.Background()
	r.handleEvent(ctx, coordinator.DraftStartedEvent{MatchID: "m1", Proposal: proposal})

	r.handleEvent(ctx, coordinator.DraftActionAppliedEvent{
		MatchID: "m1",
		Action:  draft.Action{Position: 0, Slot: 0, ChampionID: 64, Kind: draft.KindBan, At: time.Now()},
	})
	r.handleEvent(ctx, coordinator.DraftActionAppliedEvent{
		MatchID: "m1",
		Action:  draft.Action{Position: 1, Slot: 5, ChampionID: draft.ChampionNone, Kind: draft.KindBan, Auto: true, At: time.Now()},
	})

	actions, err := s.GetDraftActions(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, 64, actions[0].ChampionID)
	assert.True(t, actions[1].Auto)
}

func TestMatchCompletedAppliesRatings(t *testing.T) {
	r, s, proposal := setup(t)
	ctx := context.Background()
	r.handleEvent(ctx, coordinator.DraftStartedEvent{MatchID: "m1", Proposal: proposal})
	r.handleEvent(ctx, coordinator.MatchStartedEvent{MatchID: "m1"})

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", m.Status)

	winner := proposal.Blue[0].Candidate
	records := []rating.Record{rating.NewRecord(winner.ID, winner.Rating, 1050, true)}
	r.handleEvent(ctx, coordinator.MatchCompletedEvent{MatchID: "m1", Winner: "blue", Records: records})

	m, err = s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "completed", m.Status)
	require.NotNil(t, m.Winner)
	assert.Equal(t, "blue", *m.Winner)

	p, err := s.GetPlayer(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].After, p.Rating)
	assert.Equal(t, 1, p.Wins)
}

func TestCancellationOfUnpersistedMatchIsIgnored(t *testing.T) {
	r, s, _ := setup(t)
	ctx := context.Background()

	// Proposals that die before the draft never reached the database.
	r.handleEvent(ctx, coordinator.MatchCancelledEvent{MatchID: "ghost", Reason: "admin"})

	m, err := s.GetMatch(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, m)
}
