package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// EarnCoins credits virtual coins to an owner and appends the matching coin
// transaction. Usable inside another engine's atomic unit. The virtual
// wallet is created on first earn.
func EarnCoins(ctx context.Context, st store.Store, ownerID string, amount int64, coinType, sourceRef string) error {
	if amount <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := st.GetVirtualWallet(ctx, ownerID)
	if errors.Is(err, model.ErrNotFound) {
		w = &model.VirtualWallet{OwnerID: ownerID}
		if err := st.CreateVirtualWallet(ctx, w); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	w.Coins += amount
	w.LifetimeEarned += amount
	w.UpdatedAt = time.Now().UTC()
	if err := st.UpdateVirtualWallet(ctx, w); err != nil {
		return err
	}
	return st.InsertCoinTransaction(ctx, &model.CoinTransaction{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Type:      coinType,
		Amount:    amount,
		SourceRef: sourceRef,
		CreatedAt: w.UpdatedAt,
	})
}

// SpendCoins debits virtual coins, failing with ErrInsufficientCoins rather
// than going negative.
func SpendCoins(ctx context.Context, st store.Store, ownerID string, amount int64, coinType, sourceRef string) error {
	if amount <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := st.GetVirtualWallet(ctx, ownerID)
	if err != nil {
		return err
	}
	if amount > w.Coins {
		return model.ErrInsufficientCoins
	}
	w.Coins -= amount
	w.LifetimeSpent += amount
	w.UpdatedAt = time.Now().UTC()
	if err := st.UpdateVirtualWallet(ctx, w); err != nil {
		return err
	}
	return st.InsertCoinTransaction(ctx, &model.CoinTransaction{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Type:      coinType,
		Amount:    -amount,
		SourceRef: sourceRef,
		CreatedAt: w.UpdatedAt,
	})
}

// CoinService exposes the coin-ledger operations, serialized per owner.
type CoinService struct {
	store store.Store
	locks *ownerlock.Keyed
}

// NewCoinService creates a coin ledger service.
func NewCoinService(st store.Store, locks *ownerlock.Keyed) *CoinService {
	return &CoinService{store: st, locks: locks}
}

// CreateVirtualWallet opens a coin wallet for an owner with zero coins.
func (s *CoinService) CreateVirtualWallet(ctx context.Context, ownerID string) (*model.VirtualWallet, error) {
	w := &model.VirtualWallet{
		OwnerID:   ownerID,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateVirtualWallet(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Earn credits coins to an owner.
func (s *CoinService) Earn(ctx context.Context, ownerID string, amount int64, coinType, sourceRef string) error {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return err
	}
	defer release()

	return s.store.Atomic(ctx, func(tx store.Store) error {
		return EarnCoins(ctx, tx, ownerID, amount, coinType, sourceRef)
	})
}

// Spend debits coins from an owner, e.g. for an avatar-shop purchase.
func (s *CoinService) Spend(ctx context.Context, ownerID string, amount int64, coinType, sourceRef string) error {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return err
	}
	defer release()

	return s.store.Atomic(ctx, func(tx store.Store) error {
		return SpendCoins(ctx, tx, ownerID, amount, coinType, sourceRef)
	})
}

// Wallet returns the owner's virtual wallet with lifetime totals.
func (s *CoinService) Wallet(ctx context.Context, ownerID string) (*model.VirtualWallet, error) {
	return s.store.GetVirtualWallet(ctx, ownerID)
}

// History returns the full coin transaction log for an owner, oldest first.
func (s *CoinService) History(ctx context.Context, ownerID string) ([]model.CoinTransaction, error) {
	return s.store.GetCoinTransactionsByOwner(ctx, ownerID)
}
