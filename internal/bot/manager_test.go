package bot

import (
	"testing"

	"github.com/mlisboa/lol-inhouse/internal/coordinator"
	"github.com/mlisboa/lol-inhouse/internal/draft"
	"github.com/mlisboa/lol-inhouse/internal/matchmaking"
	"github.com/mlisboa/lol-inhouse/internal/store"
)

func newTestManager(t *testing.T, fillTo int) *Manager {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewManager(Config{FillTo: fillTo}, make(chan coordinator.Command, 10), s)
}

func TestChooseChampionAvoidsUnavailable(t *testing.T) {
	m := newTestManager(t, 0)
	pool := draft.DefaultPool()

	got := m.chooseChampion(pool[1:])
	if got != pool[0] {
		t.Fatalf("chooseChampion = %d, want %d", got, pool[0])
	}
}

func TestChooseChampionExhaustedPool(t *testing.T) {
	m := newTestManager(t, 0)

	if got := m.chooseChampion(draft.DefaultPool()); got != draft.ChampionNone {
		t.Fatalf("chooseChampion = %d, want none", got)
	}
}

func TestChooseChampionHonorsConfiguredPool(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	m := NewManager(Config{Pool: []int{7, 8, 9}}, make(chan coordinator.Command, 10), s)

	for i := 0; i < 20; i++ {
		got := m.chooseChampion([]int{8})
		if got != 7 && got != 9 {
			t.Fatalf("chooseChampion = %d, want a champion from the configured pool", got)
		}
	}
}

func TestShouldFill(t *testing.T) {
	human := matchmaking.Candidate{ID: "p1"}
	bot := matchmaking.Candidate{ID: "bot_1", IsBot: true}

	cases := []struct {
		name   string
		fillTo int
		queue  []matchmaking.Candidate
		want   bool
	}{
		{"disabled", 0, []matchmaking.Candidate{human}, false},
		{"empty queue", 10, nil, false},
		{"human waiting", 10, []matchmaking.Candidate{human}, true},
		{"bots only", 10, []matchmaking.Candidate{bot}, false},
		{"already full", 1, []matchmaking.Candidate{human}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t, tc.fillTo)
			e := coordinator.QueueUpdatedEvent{Size: len(tc.queue), Players: tc.queue}
			if got := m.shouldFill(e); got != tc.want {
				t.Fatalf("shouldFill = %v, want %v", got, tc.want)
			}
		})
	}
}
