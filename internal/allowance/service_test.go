package allowance_test

import (
	"context"
	"testing"
	"time"

	"github.com/moneynplay/engine/internal/allowance"
	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

func newEnv(t *testing.T) (*allowance.Service, *ledger.MoneyService, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	locks := ownerlock.New(2 * time.Second)
	svc := allowance.NewService(ms, locks, nil)
	money := ledger.NewMoneyService(ms, locks)

	if _, err := money.CreateWallet(context.Background(), "kid1", ""); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return svc, money, ms
}

// backdate moves the next payment time into the past to simulate elapsed
// periods.
func backdate(t *testing.T, ms *store.MemoryStore, id string, d time.Duration) {
	t.Helper()
	ctx := context.Background()
	a, err := ms.GetAllowance(ctx, id)
	if err != nil {
		t.Fatalf("get allowance: %v", err)
	}
	a.NextPaymentAt = a.NextPaymentAt.Add(-d)
	if err := ms.UpdateAllowance(ctx, a); err != nil {
		t.Fatalf("update allowance: %v", err)
	}
}

func TestRunDuePaysOnce(t *testing.T) {
	svc, money, ms := newEnv(t)
	ctx := context.Background()

	a, err := svc.Configure(ctx, "kid1", 500, model.FreqWeekly)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	backdate(t, ms, a.ID, 8*24*time.Hour)

	if err := svc.RunDue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}
	w, _ := money.Wallet(ctx, "kid1")
	if w.BalanceCents != 500 {
		t.Errorf("balance = %d, want 500", w.BalanceCents)
	}

	// Immediately running again pays nothing.
	if err := svc.RunDue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	w, _ = money.Wallet(ctx, "kid1")
	if w.BalanceCents != 500 {
		t.Errorf("balance = %d after no-op run, want 500", w.BalanceCents)
	}
}

// Downtime spanning several periods is caught up with one payment per
// period, and the next payment lands in the future.
func TestRunDueCatchesUpMissedPeriods(t *testing.T) {
	svc, money, ms := newEnv(t)
	ctx := context.Background()

	a, _ := svc.Configure(ctx, "kid1", 200, model.FreqDaily)
	backdate(t, ms, a.ID, 4*24*time.Hour) // next payment 3 days in the past

	now := time.Now().UTC()
	if err := svc.RunDue(ctx, now); err != nil {
		t.Fatalf("run: %v", err)
	}

	w, _ := money.Wallet(ctx, "kid1")
	if w.BalanceCents != 800 {
		t.Errorf("balance = %d, want 800 (4 daily payments)", w.BalanceCents)
	}

	got, _ := ms.GetAllowance(ctx, a.ID)
	if !got.NextPaymentAt.After(now) {
		t.Errorf("next payment %v not in the future", got.NextPaymentAt)
	}

	txs, _ := money.History(ctx, mustWalletID(t, money))
	allowanceTxs := 0
	for _, tx := range txs {
		if tx.Type == model.TxAllowance {
			allowanceTxs++
		}
	}
	if allowanceTxs != 4 {
		t.Errorf("allowance transactions = %d, want 4", allowanceTxs)
	}
}

func mustWalletID(t *testing.T, money *ledger.MoneyService) string {
	t.Helper()
	w, err := money.Wallet(context.Background(), "kid1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	return w.ID
}

func TestPausedAllowanceSkipsAndResumeReschedules(t *testing.T) {
	svc, money, ms := newEnv(t)
	ctx := context.Background()

	a, _ := svc.Configure(ctx, "kid1", 300, model.FreqWeekly)
	if _, err := svc.SetActive(ctx, a.ID, false); err != nil {
		t.Fatalf("pause: %v", err)
	}
	backdate(t, ms, a.ID, 30*24*time.Hour)

	if err := svc.RunDue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("run: %v", err)
	}
	w, _ := money.Wallet(ctx, "kid1")
	if w.BalanceCents != 0 {
		t.Errorf("paused allowance paid: %d", w.BalanceCents)
	}

	resumed, err := svc.SetActive(ctx, a.ID, true)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	// Resume reschedules from now, so nothing accrued while paused.
	if !resumed.NextPaymentAt.After(time.Now().UTC()) {
		t.Errorf("resume did not reschedule: %v", resumed.NextPaymentAt)
	}
}

func TestConfigureValidation(t *testing.T) {
	svc, _, _ := newEnv(t)
	ctx := context.Background()

	if _, err := svc.Configure(ctx, "kid1", 0, model.FreqWeekly); err == nil {
		t.Error("zero amount accepted")
	}
	if _, err := svc.Configure(ctx, "kid1", 100, "fortnightly"); err == nil {
		t.Error("bad frequency accepted")
	}
}
