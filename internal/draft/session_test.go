package draft

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(cfg Config) *Session {
	if cfg.Pool == nil {
		cfg.Pool = DefaultPool()
	}
	return NewSession(cfg, 1)
}

func TestTemplateShape(t *testing.T) {
	if len(Template) != 20 {
		t.Fatalf("template has %d steps, want 20", len(Template))
	}

	bans, picks := 0, 0
	perSlot := map[int]int{}
	for _, step := range Template {
		switch step.Kind {
		case KindBan:
			bans++
		case KindPick:
			picks++
		}
		perSlot[step.Slot]++
		if step.Slot < 0 || step.Slot > 9 {
			t.Fatalf("step slot %d out of range", step.Slot)
		}
	}
	if bans != 10 || picks != 10 {
		t.Fatalf("got %d bans and %d picks, want 10/10", bans, picks)
	}
	// Every slot owns exactly one ban and one pick.
	for slot := 0; slot <= 9; slot++ {
		if perSlot[slot] != 2 {
			t.Errorf("slot %d owns %d steps, want 2", slot, perSlot[slot])
		}
	}
}

func TestOutOfTurnRejected(t *testing.T) {
	s := newTestSession(Config{})

	// Slot 0 owns the first ban; slot 5 submitting must be rejected with no
	// state change.
	_, err := s.Submit(5, 64, KindBan, time.Now())
	if !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("err = %v, want ErrOutOfTurn", err)
	}
	if s.Cursor() != 0 || len(s.Actions()) != 0 {
		t.Fatal("state changed on rejected action")
	}
}

func TestWrongActionKindRejected(t *testing.T) {
	s := newTestSession(Config{})

	_, err := s.Submit(0, 64, KindPick, time.Now())
	if !errors.Is(err, ErrWrongActionKind) {
		t.Fatalf("err = %v, want ErrWrongActionKind", err)
	}
}

func TestBannedChampionCannotBePicked(t *testing.T) {
	s := newTestSession(Config{})
	now := time.Now()

	// Action 1: slot 0 bans champion 64.
	if _, err := s.Submit(0, 64, KindBan, now); err != nil {
		t.Fatal(err)
	}

	// Walk to the first pick turn with distinct bans.
	for _, c := range []struct {
		slot, champ int
	}{{5, 1}, {1, 2}, {6, 3}, {2, 4}, {7, 5}} {
		if _, err := s.Submit(c.slot, c.champ, KindBan, now); err != nil {
			t.Fatal(err)
		}
	}

	// Champion 64 is banned; picking it anywhere later must fail.
	_, err := s.Submit(0, 64, KindPick, now)
	if !errors.Is(err, ErrChampionUnavailable) {
		t.Fatalf("err = %v, want ErrChampionUnavailable", err)
	}

	// A legal pick still goes through afterwards.
	if _, err := s.Submit(0, 103, KindPick, now); err != nil {
		t.Fatalf("legal pick rejected: %v", err)
	}
}

func TestFullDraftFollowsTemplate(t *testing.T) {
	s := newTestSession(Config{})
	now := time.Now()

	champ := 1
	for i, step := range Template {
		a, err := s.Submit(step.Slot, champ, step.Kind, now)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if a.Position != i || a.Slot != step.Slot || a.Kind != step.Kind {
			t.Fatalf("step %d: recorded %+v, want slot %d kind %s", i, a, step.Slot, step.Kind)
		}
		champ++
	}

	if !s.Complete() {
		t.Fatal("session not complete after 20 actions")
	}

	// The action sequence matches the template exactly and no champion
	// appears twice.
	actions := s.Actions()
	seen := map[int]bool{}
	for i, a := range actions {
		if a.Kind != Template[i].Kind || a.Slot != Template[i].Slot {
			t.Errorf("action %d deviates from template", i)
		}
		if a.ChampionID != ChampionNone && seen[a.ChampionID] {
			t.Errorf("champion %d appears twice", a.ChampionID)
		}
		seen[a.ChampionID] = true
	}

	_, err := s.Submit(9, 150, KindPick, now)
	if !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("err = %v, want ErrSessionComplete", err)
	}
}

func TestAutoSubmitSkipsBanAndPicksRandom(t *testing.T) {
	s := newTestSession(Config{Pool: []int{10, 20, 30}})
	now := time.Now()

	// Timed-out ban is skipped: recorded with ChampionNone, turn advances,
	// and the skip does not poison the exclusion set.
	a, err := s.AutoSubmit(now)
	if err != nil {
		t.Fatal(err)
	}
	if a.ChampionID != ChampionNone || !a.Auto || a.Kind != KindBan {
		t.Fatalf("auto ban = %+v, want skipped auto ban", a)
	}
	if s.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", s.Cursor())
	}

	// Burn two champions on manual bans, skip the rest of the ban round.
	for _, c := range []struct {
		slot, champ int
	}{{5, 10}, {1, 20}} {
		if _, err := s.Submit(c.slot, c.champ, KindBan, now); err != nil {
			t.Fatal(err)
		}
	}
	for s.Cursor() < 6 {
		if _, err := s.AutoSubmit(now); err != nil {
			t.Fatal(err)
		}
	}

	// Timed-out pick takes the only remaining champion.
	a, err = s.AutoSubmit(now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != KindPick || a.ChampionID != 30 {
		t.Fatalf("auto pick = %+v, want champion 30", a)
	}
}

func TestAutoSubmitRandomBanConfig(t *testing.T) {
	s := newTestSession(Config{Pool: []int{10, 20, 30}, RandomBanOnTimeout: true})

	a, err := s.AutoSubmit(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if a.ChampionID == ChampionNone {
		t.Fatal("random-ban config still skipped the ban")
	}
}

func TestAbortHaltsSession(t *testing.T) {
	s := newTestSession(Config{})
	now := time.Now()

	if _, err := s.Submit(0, 64, KindBan, now); err != nil {
		t.Fatal(err)
	}

	s.Abort()

	if _, err := s.Submit(5, 12, KindBan, now); !errors.Is(err, ErrSessionAborted) {
		t.Fatalf("err = %v, want ErrSessionAborted", err)
	}
	if _, err := s.AutoSubmit(now); !errors.Is(err, ErrSessionAborted) {
		t.Fatalf("err = %v, want ErrSessionAborted", err)
	}
	if _, ok := s.Current(); ok {
		t.Fatal("aborted session still reports a current turn")
	}
}
