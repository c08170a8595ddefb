// Package ledger owns the append-only money and coin ledgers. Balances are
// derived state: a wallet's balance always equals the signed sum of its
// transactions, and every mutation appends an immutable entry in the same
// atomic unit that moves the balance.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// Credit raises a wallet balance and appends the matching positive
// transaction. st may be a transactional view, so other engines can fold a
// credit into their own atomic unit.
func Credit(ctx context.Context, st store.Store, walletID string, amountCents int64, txType, description string) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := st.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if err := st.SetWalletBalance(ctx, walletID, w.BalanceCents+amountCents); err != nil {
		return err
	}
	return st.InsertTransaction(ctx, &model.Transaction{
		ID:          uuid.New().String(),
		WalletID:    walletID,
		Type:        txType,
		AmountCents: amountCents,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
}

// Debit lowers a wallet balance and appends the matching negative
// transaction. Fails with ErrInsufficientFunds if the wallet cannot cover
// the amount; the balance never goes negative.
func Debit(ctx context.Context, st store.Store, walletID string, amountCents int64, txType, description string) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := st.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if amountCents > w.BalanceCents {
		return model.ErrInsufficientFunds
	}
	if err := st.SetWalletBalance(ctx, walletID, w.BalanceCents-amountCents); err != nil {
		return err
	}
	return st.InsertTransaction(ctx, &model.Transaction{
		ID:          uuid.New().String(),
		WalletID:    walletID,
		Type:        txType,
		AmountCents: -amountCents,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
}

// MoneyService exposes the money-ledger operations, serialized per owner.
type MoneyService struct {
	store store.Store
	locks *ownerlock.Keyed
}

// NewMoneyService creates a money ledger service.
func NewMoneyService(st store.Store, locks *ownerlock.Keyed) *MoneyService {
	return &MoneyService{store: st, locks: locks}
}

// CreateWallet opens a wallet for an owner with a zero balance.
func (s *MoneyService) CreateWallet(ctx context.Context, ownerID, currency string) (*model.Wallet, error) {
	if currency == "" {
		currency = "USD"
	}
	w := &model.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Deposit adds real money to a wallet. Never fails except on an invalid
// amount or unknown wallet.
func (s *MoneyService) Deposit(ctx context.Context, walletID string, amountCents int64, description string) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, w.OwnerID)
	if err != nil {
		return err
	}
	defer release()

	err = s.store.Atomic(ctx, func(tx store.Store) error {
		return Credit(ctx, tx, walletID, amountCents, model.TxDeposit, description)
	})
	if err != nil {
		return err
	}

	metrics.DepositsTotal.Inc()
	slog.Info("deposit applied", "wallet", walletID, "amount_cents", amountCents)
	return nil
}

// Debit removes real money from a wallet, failing with ErrInsufficientFunds
// rather than overdrawing.
func (s *MoneyService) Debit(ctx context.Context, walletID string, amountCents int64, description string) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	w, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, w.OwnerID)
	if err != nil {
		return err
	}
	defer release()

	return s.store.Atomic(ctx, func(tx store.Store) error {
		return Debit(ctx, tx, walletID, amountCents, model.TxWithdrawal, description)
	})
}

// Transfer moves money between two wallets: one debit plus one credit inside
// one atomic unit. If the debit fails, no credit happens.
func (s *MoneyService) Transfer(ctx context.Context, fromWalletID, toWalletID string, amountCents int64) error {
	if amountCents <= 0 {
		return model.ErrInvalidAmount
	}
	from, err := s.store.GetWallet(ctx, fromWalletID)
	if err != nil {
		return err
	}
	to, err := s.store.GetWallet(ctx, toWalletID)
	if err != nil {
		return err
	}

	// Lock both owners in a fixed order so concurrent opposite transfers
	// cannot deadlock.
	first, second := from.OwnerID, to.OwnerID
	if second < first {
		first, second = second, first
	}
	releaseFirst, err := s.locks.Acquire(ctx, first)
	if err != nil {
		return err
	}
	defer releaseFirst()
	if second != first {
		releaseSecond, err := s.locks.Acquire(ctx, second)
		if err != nil {
			return err
		}
		defer releaseSecond()
	}

	err = s.store.Atomic(ctx, func(tx store.Store) error {
		if err := Debit(ctx, tx, fromWalletID, amountCents, model.TxTransfer, "transfer out"); err != nil {
			return err
		}
		return Credit(ctx, tx, toWalletID, amountCents, model.TxTransfer, "transfer in")
	})
	if err != nil {
		return err
	}

	slog.Info("transfer executed", "from", fromWalletID, "to", toWalletID, "amount_cents", amountCents)
	return nil
}

// Wallet returns the wallet for an owner.
func (s *MoneyService) Wallet(ctx context.Context, ownerID string) (*model.Wallet, error) {
	return s.store.GetWalletByOwner(ctx, ownerID)
}

// History returns the full transaction log for a wallet, oldest first.
func (s *MoneyService) History(ctx context.Context, walletID string) ([]model.Transaction, error) {
	return s.store.GetTransactionsByWallet(ctx, walletID)
}
