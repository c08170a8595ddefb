package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

func newMoneyEnv(t *testing.T) (*ledger.MoneyService, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	locks := ownerlock.New(2 * time.Second)
	return ledger.NewMoneyService(ms, locks), ms
}

func seedWallet(t *testing.T, svc *ledger.MoneyService, ownerID string, cents int64) *model.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := svc.CreateWallet(ctx, ownerID, "")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if cents > 0 {
		if err := svc.Deposit(ctx, w.ID, cents, "seed"); err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
	}
	return w
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	w := seedWallet(t, svc, "kid1", 1000)

	if err := svc.Debit(ctx, w.ID, 400, "toy"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	got, err := svc.Wallet(ctx, "kid1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if got.BalanceCents != 600 {
		t.Errorf("balance = %d, want 600", got.BalanceCents)
	}
	if got.Currency != "USD" {
		t.Errorf("currency = %q, want USD", got.Currency)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	w := seedWallet(t, svc, "kid1", 100)

	err := svc.Debit(ctx, w.ID, 101, "too much")
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	got, _ := svc.Wallet(ctx, "kid1")
	if got.BalanceCents != 100 {
		t.Errorf("failed debit changed balance: %d", got.BalanceCents)
	}
}

func TestDepositRejectsNonPositive(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	w := seedWallet(t, svc, "kid1", 0)

	for _, amount := range []int64{0, -5} {
		if err := svc.Deposit(context.Background(), w.ID, amount, ""); !errors.Is(err, model.ErrInvalidAmount) {
			t.Errorf("deposit(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

// Balance must always equal the sum of the transaction log.
func TestBalanceMatchesTransactionLog(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	w := seedWallet(t, svc, "kid1", 0)

	for _, amount := range []int64{500, 250, 1250} {
		if err := svc.Deposit(ctx, w.ID, amount, "pocket money"); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	if err := svc.Debit(ctx, w.ID, 300, "book"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	txs, err := svc.History(ctx, w.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var sum int64
	for _, tx := range txs {
		sum += tx.AmountCents
	}
	got, _ := svc.Wallet(ctx, "kid1")
	if got.BalanceCents != sum {
		t.Errorf("balance %d != transaction sum %d", got.BalanceCents, sum)
	}
	if len(txs) != 4 {
		t.Errorf("transaction count = %d, want 4", len(txs))
	}
}

func TestTransfer(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	from := seedWallet(t, svc, "kidA", 1000)
	to := seedWallet(t, svc, "kidB", 0)

	if err := svc.Transfer(ctx, from.ID, to.ID, 700); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	a, _ := svc.Wallet(ctx, "kidA")
	b, _ := svc.Wallet(ctx, "kidB")
	if a.BalanceCents != 300 || b.BalanceCents != 700 {
		t.Errorf("balances = %d/%d, want 300/700", a.BalanceCents, b.BalanceCents)
	}
}

func TestTransferInsufficientLeavesBothUntouched(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	from := seedWallet(t, svc, "kidA", 100)
	to := seedWallet(t, svc, "kidB", 50)

	err := svc.Transfer(ctx, from.ID, to.ID, 200)
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	a, _ := svc.Wallet(ctx, "kidA")
	b, _ := svc.Wallet(ctx, "kidB")
	if a.BalanceCents != 100 || b.BalanceCents != 50 {
		t.Errorf("balances changed on failed transfer: %d/%d", a.BalanceCents, b.BalanceCents)
	}
}

// Two concurrent debits against a 1000-cent wallet, 700 each: exactly one
// may win. The loser sees ErrInsufficientFunds, never a negative balance.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _ := newMoneyEnv(t)
	ctx := context.Background()
	w := seedWallet(t, svc, "kid1", 1000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Debit(ctx, w.ID, 700, "race")
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, model.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want exactly 1", failures)
	}

	got, _ := svc.Wallet(ctx, "kid1")
	if got.BalanceCents != 300 {
		t.Errorf("balance = %d, want 300", got.BalanceCents)
	}
}
