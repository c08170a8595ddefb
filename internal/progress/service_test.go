package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/progress"
	"github.com/moneynplay/engine/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newEnv(t *testing.T) (*progress.Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return progress.NewService(store.NewMemoryStore(), ownerlock.New(2*time.Second), rec), rec
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAwardXPSingleLevel(t *testing.T) {
	svc, rec := newEnv(t)
	ctx := context.Background()

	p, err := svc.AwardXP(ctx, "kid1", 150)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if p.XP != 150 {
		t.Errorf("xp = %d, want 150", p.XP)
	}
	if p.Level != 2 {
		t.Errorf("level = %d, want 2", p.Level)
	}
	if len(rec.events) != 1 || rec.events[0].Type != notify.TypeLevelUp {
		t.Errorf("events = %+v, want one level_up", rec.events)
	}
}

// One award crossing two thresholds raises the level by two and fires two
// level_up events, in order.
func TestAwardXPMultiLevelJump(t *testing.T) {
	svc, rec := newEnv(t)
	ctx := context.Background()

	p, err := svc.AwardXP(ctx, "kid1", 250)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if p.Level != 3 {
		t.Errorf("level = %d, want 3", p.Level)
	}
	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	first := rec.events[0].Payload.(notify.LevelUp)
	second := rec.events[1].Payload.(notify.LevelUp)
	if first.Level != 2 || second.Level != 3 {
		t.Errorf("level sequence = %d,%d, want 2,3", first.Level, second.Level)
	}
}

func TestAwardXPAccumulates(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	svc.AwardXP(ctx, "kid1", 90)
	p, _ := svc.AwardXP(ctx, "kid1", 20)
	if p.XP != 110 || p.Level != 2 {
		t.Errorf("xp/level = %d/%d, want 110/2", p.XP, p.Level)
	}
}

func TestStreakRules(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	// First ever activity starts at 1.
	p, err := svc.RecordActivity(ctx, "kid1", day("2026-09-01"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.Streak != 1 {
		t.Errorf("streak = %d, want 1", p.Streak)
	}

	// Next calendar day extends.
	p, _ = svc.RecordActivity(ctx, "kid1", day("2026-09-02"))
	if p.Streak != 2 {
		t.Errorf("streak = %d, want 2", p.Streak)
	}

	// Same day again is a no-op.
	p, _ = svc.RecordActivity(ctx, "kid1", day("2026-09-02"))
	if p.Streak != 2 {
		t.Errorf("streak = %d after repeat, want 2", p.Streak)
	}

	// A gap resets to 1.
	p, _ = svc.RecordActivity(ctx, "kid1", day("2026-09-05"))
	if p.Streak != 1 {
		t.Errorf("streak = %d after gap, want 1", p.Streak)
	}
}

func TestUnknownOwnerReadsAsFresh(t *testing.T) {
	svc, _ := newEnv(t)
	p, err := svc.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Level != 1 || p.XP != 0 || p.Streak != 0 {
		t.Errorf("fresh progression = %+v", p)
	}
}
