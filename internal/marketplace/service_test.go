package marketplace_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/marketplace"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

func newEnv(t *testing.T) (*marketplace.Service, *ledger.CoinService) {
	t.Helper()
	ms := store.NewMemoryStore()
	locks := ownerlock.New(2 * time.Second)
	return marketplace.NewService(ms, locks, nil), ledger.NewCoinService(ms, locks)
}

func seedCoins(t *testing.T, coins *ledger.CoinService, ownerID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := coins.CreateVirtualWallet(ctx, ownerID); err != nil {
		t.Fatalf("create virtual wallet: %v", err)
	}
	if amount > 0 {
		if err := coins.Earn(ctx, ownerID, amount, model.CoinTxMissionReward, "seed"); err != nil {
			t.Fatalf("seed coins: %v", err)
		}
	}
}

// A purchase moves coins, transfers the item, and closes the listing in one
// unit. Total coins across both kids are conserved.
func TestPurchaseTransfersItemAndCoins(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "seller", 100)
	seedCoins(t, coins, "buyer", 300)

	it, err := svc.GrantItem(ctx, "seller", "hat-red", 0)
	if err != nil {
		t.Fatalf("grant item: %v", err)
	}
	l, err := svc.List(ctx, "seller", it.ID, 250, "barely worn")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	sold, err := svc.Purchase(ctx, "buyer", l.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if sold.Status != model.ListingSold || sold.BuyerID != "buyer" || sold.SoldAt == nil {
		t.Errorf("listing after sale = %+v", sold)
	}

	sw, _ := coins.Wallet(ctx, "seller")
	bw, _ := coins.Wallet(ctx, "buyer")
	if sw.Coins != 350 || bw.Coins != 50 {
		t.Errorf("coins = seller %d / buyer %d, want 350/50", sw.Coins, bw.Coins)
	}
	if sw.Coins+bw.Coins != 400 {
		t.Errorf("coins not conserved: %d", sw.Coins+bw.Coins)
	}

	items, _ := svc.Inventory(ctx, "buyer")
	if len(items) != 1 || items[0].AcquiredFrom != "marketplace" {
		t.Errorf("buyer inventory = %+v", items)
	}
	if items2, _ := svc.Inventory(ctx, "seller"); len(items2) != 0 {
		t.Errorf("seller still holds the item")
	}
}

func TestPurchaseInsufficientCoinsLeavesEverything(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "seller", 0)
	seedCoins(t, coins, "buyer", 100)

	it, _ := svc.GrantItem(ctx, "seller", "hat", 0)
	l, _ := svc.List(ctx, "seller", it.ID, 250, "")

	_, err := svc.Purchase(ctx, "buyer", l.ID)
	if !errors.Is(err, model.ErrInsufficientCoins) {
		t.Fatalf("err = %v, want ErrInsufficientCoins", err)
	}

	got, _ := svc.Browse(ctx)
	if len(got) != 1 {
		t.Errorf("listing should still be active")
	}
	items, _ := svc.Inventory(ctx, "seller")
	if len(items) != 1 {
		t.Errorf("item left the seller on a failed purchase")
	}
}

func TestSelfPurchaseRejected(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "seller", 500)

	it, _ := svc.GrantItem(ctx, "seller", "hat", 0)
	l, _ := svc.List(ctx, "seller", it.ID, 100, "")

	if _, err := svc.Purchase(ctx, "seller", l.ID); !errors.Is(err, model.ErrSelfPurchase) {
		t.Fatalf("err = %v, want ErrSelfPurchase", err)
	}
}

func TestDoubleListingRejected(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "seller", 0)

	it, _ := svc.GrantItem(ctx, "seller", "hat", 0)
	if _, err := svc.List(ctx, "seller", it.ID, 100, ""); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := svc.List(ctx, "seller", it.ID, 200, ""); !errors.Is(err, model.ErrItemAlreadyListed) {
		t.Fatalf("err = %v, want ErrItemAlreadyListed", err)
	}
}

func TestListingSomeoneElsesItem(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "owner", 0)

	it, _ := svc.GrantItem(ctx, "owner", "hat", 0)
	if _, err := svc.List(ctx, "thief", it.ID, 100, ""); !errors.Is(err, model.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestCancelThenRelist(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "seller", 0)

	it, _ := svc.GrantItem(ctx, "seller", "hat", 0)
	l, _ := svc.List(ctx, "seller", it.ID, 100, "")

	cancelled, err := svc.Cancel(ctx, "seller", l.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.ListingCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if _, err := svc.Purchase(ctx, "buyer", l.ID); !errors.Is(err, model.ErrListingNotActive) {
		t.Errorf("purchase cancelled err = %v, want ErrListingNotActive", err)
	}

	// Cancelled listing no longer blocks a new one.
	if _, err := svc.List(ctx, "seller", it.ID, 150, ""); err != nil {
		t.Errorf("relist after cancel: %v", err)
	}
}

// Buying from the avatar shop spends coins in the same unit as the grant.
func TestGrantItemSpendsCoins(t *testing.T) {
	svc, coins := newEnv(t)
	ctx := context.Background()
	seedCoins(t, coins, "kid1", 100)

	if _, err := svc.GrantItem(ctx, "kid1", "cape", 60); err != nil {
		t.Fatalf("grant: %v", err)
	}
	w, _ := coins.Wallet(ctx, "kid1")
	if w.Coins != 40 {
		t.Errorf("coins = %d, want 40", w.Coins)
	}

	if _, err := svc.GrantItem(ctx, "kid1", "crown", 50); !errors.Is(err, model.ErrInsufficientCoins) {
		t.Fatalf("err = %v, want ErrInsufficientCoins", err)
	}
	items, _ := svc.Inventory(ctx, "kid1")
	if len(items) != 1 {
		t.Errorf("failed shop purchase granted an item")
	}
}
