package mission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/mission"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
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

func (r *recorder) count(typ notify.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func newEnv(t *testing.T) (*mission.Service, *ledger.CoinService, *store.MemoryStore, *recorder) {
	t.Helper()
	ms := store.NewMemoryStore()
	locks := ownerlock.New(2 * time.Second)
	rec := &recorder{}
	return mission.NewService(ms, locks, rec), ledger.NewCoinService(ms, locks), ms, rec
}

func TestMissionLifecycle(t *testing.T) {
	svc, coins, _, _ := newEnv(t)
	ctx := context.Background()
	m, err := svc.CreateMission(ctx, "Save 5 dollars", "", 50, 30, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := svc.Progress(ctx, "kid1", m.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != model.MissionAvailable {
		t.Errorf("status = %q, want available", p.Status)
	}

	if _, err := svc.Start(ctx, "kid1", m.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "kid1", m.ID, 60); err != nil {
		t.Fatalf("update: %v", err)
	}

	p, err = svc.Complete(ctx, "kid1", m.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.Status != model.MissionCompleted || p.Progress != 100 || p.CompletedAt == nil {
		t.Errorf("completed record = %+v", p)
	}

	w, err := coins.Wallet(ctx, "kid1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Coins != 50 {
		t.Errorf("coins = %d, want 50", w.Coins)
	}
}

// Completing twice pays the reward only once.
func TestCompleteMissionIdempotent(t *testing.T) {
	svc, coins, _, _ := newEnv(t)
	ctx := context.Background()
	m, _ := svc.CreateMission(ctx, "m", "", 50, 30, nil)
	svc.Start(ctx, "kid1", m.ID)

	if _, err := svc.Complete(ctx, "kid1", m.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := svc.Complete(ctx, "kid1", m.ID); err != nil {
		t.Fatalf("second complete: %v", err)
	}

	w, _ := coins.Wallet(ctx, "kid1")
	if w.Coins != 50 {
		t.Errorf("coins = %d, want 50 after repeat complete", w.Coins)
	}
}

func TestStartRequiresAvailable(t *testing.T) {
	svc, _, _, _ := newEnv(t)
	ctx := context.Background()
	m, _ := svc.CreateMission(ctx, "m", "", 0, 10, nil)
	svc.Start(ctx, "kid1", m.ID)

	if _, err := svc.Start(ctx, "kid1", m.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("restart err = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteWithoutStart(t *testing.T) {
	svc, _, _, _ := newEnv(t)
	ctx := context.Background()
	m, _ := svc.CreateMission(ctx, "m", "", 0, 10, nil)

	if _, err := svc.Complete(ctx, "kid1", m.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, coins, _, rec := newEnv(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)
	m, _ := svc.CreateMission(ctx, "late", "", 50, 0, &past)
	svc.Start(ctx, "kid1", m.ID)

	if err := svc.ExpireOverdue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	p, _ := svc.Progress(ctx, "kid1", m.ID)
	if p.Status != model.MissionExpired {
		t.Errorf("status = %q, want expired", p.Status)
	}
	if rec.count(notify.TypeMissionExpired) != 1 {
		t.Errorf("mission_expired events = %d, want 1", rec.count(notify.TypeMissionExpired))
	}

	// Completing an expired mission must not pay.
	if _, err := svc.Complete(ctx, "kid1", m.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("complete expired err = %v, want ErrInvalidTransition", err)
	}
	if _, err := coins.Wallet(ctx, "kid1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expired mission paid a reward")
	}

	// Repeat sweep is a no-op.
	if err := svc.ExpireOverdue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if rec.count(notify.TypeMissionExpired) != 1 {
		t.Errorf("repeat sweep emitted more events")
	}
}

func TestCompleteContentIdempotent(t *testing.T) {
	svc, coins, _, _ := newEnv(t)
	ctx := context.Background()
	c, err := svc.CreateContent(ctx, "What is interest?", 20, 15)
	if err != nil {
		t.Fatalf("create content: %v", err)
	}

	if _, err := svc.CompleteContent(ctx, "kid1", c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.CompleteContent(ctx, "kid1", c.ID); err != nil {
		t.Fatalf("repeat complete: %v", err)
	}

	w, _ := coins.Wallet(ctx, "kid1")
	if w.Coins != 20 {
		t.Errorf("coins = %d, want 20", w.Coins)
	}
}

// Completing enough missions unlocks the matching achievement exactly once,
// with its own reward.
func TestAchievementUnlocksOnce(t *testing.T) {
	svc, coins, ms, rec := newEnv(t)
	ctx := context.Background()
	if _, err := svc.CreateAchievement(ctx, "First mission!", model.ReqMissionsCompleted, 1, 100, 0); err != nil {
		t.Fatalf("create achievement: %v", err)
	}

	m1, _ := svc.CreateMission(ctx, "m1", "", 10, 0, nil)
	m2, _ := svc.CreateMission(ctx, "m2", "", 10, 0, nil)
	svc.Start(ctx, "kid1", m1.ID)
	svc.Start(ctx, "kid1", m2.ID)

	if _, err := svc.Complete(ctx, "kid1", m1.ID); err != nil {
		t.Fatalf("complete m1: %v", err)
	}
	if _, err := svc.Complete(ctx, "kid1", m2.ID); err != nil {
		t.Fatalf("complete m2: %v", err)
	}

	if rec.count(notify.TypeAchievementUnlocked) != 1 {
		t.Errorf("achievement_unlocked events = %d, want 1", rec.count(notify.TypeAchievementUnlocked))
	}
	w, _ := coins.Wallet(ctx, "kid1")
	// 10 + 10 mission coins + 100 achievement coins.
	if w.Coins != 120 {
		t.Errorf("coins = %d, want 120", w.Coins)
	}

	n, err := ms.CountCompletedMissions(ctx, "kid1")
	if err != nil || n != 2 {
		t.Errorf("completed missions = %d (%v), want 2", n, err)
	}
}
