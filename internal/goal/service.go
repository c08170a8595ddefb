// Package goal manages savings goals. Funds moved into a goal are debited
// from the owner's wallet in the same atomic unit, so goal totals and wallet
// balances never disagree; deleting a goal returns every reserved cent.
package goal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// Service exposes the savings goal operations.
type Service struct {
	store    store.Store
	locks    *ownerlock.Keyed
	notifier notify.Notifier
}

// NewService creates a savings goal service. Pass nil for notifier if
// notifications are not needed.
func NewService(st store.Store, locks *ownerlock.Keyed, notifier notify.Notifier) *Service {
	return &Service{store: st, locks: locks, notifier: notifier}
}

// Create opens a new goal with nothing saved yet.
func (s *Service) Create(ctx context.Context, ownerID, name string, targetAmountCents int64) (*model.SavingsGoal, error) {
	if targetAmountCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	g := &model.SavingsGoal{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Name:              name,
		TargetAmountCents: targetAmountCents,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddFunds moves money from the owner's wallet into the goal. Only the
// portion up to the target is taken; the wallet is debited by exactly the
// accepted amount. Reaching the target flips the goal to completed, once.
func (s *Service) AddFunds(ctx context.Context, ownerID, goalID string, amountCents int64) (*model.SavingsGoal, error) {
	if amountCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.SavingsGoal
	var reached bool
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		g, err := tx.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if g.OwnerID != ownerID {
			return model.ErrNotOwner
		}
		remaining := g.TargetAmountCents - g.CurrentAmountCents
		if remaining <= 0 {
			return model.ErrInvalidAmount
		}
		accepted := amountCents
		if accepted > remaining {
			accepted = remaining
		}

		w, err := tx.GetWalletByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := ledger.Debit(ctx, tx, w.ID, accepted, model.TxGoalFund, "saved toward "+g.Name); err != nil {
			return err
		}

		g.CurrentAmountCents += accepted
		if g.CurrentAmountCents == g.TargetAmountCents && !g.IsCompleted {
			g.IsCompleted = true
			now := time.Now().UTC()
			g.CompletedAt = &now
			reached = true
		}
		if err := tx.UpdateGoal(ctx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reached {
		slog.Info("goal reached", "goal", goalID, "owner", ownerID)
		if s.notifier != nil {
			s.notifier.Publish(notify.Event{
				Type:    notify.TypeGoalReached,
				OwnerID: ownerID,
				Payload: notify.GoalReached{
					GoalID:      out.ID,
					Name:        out.Name,
					TargetCents: out.TargetAmountCents,
				},
			})
		}
	}
	return out, nil
}

// Withdraw moves money back from the goal to the wallet. A goal that drops
// below its target is no longer completed.
func (s *Service) Withdraw(ctx context.Context, ownerID, goalID string, amountCents int64) (*model.SavingsGoal, error) {
	if amountCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.SavingsGoal
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		g, err := tx.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if g.OwnerID != ownerID {
			return model.ErrNotOwner
		}
		if amountCents > g.CurrentAmountCents {
			return model.ErrInsufficientGoalFunds
		}

		w, err := tx.GetWalletByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := ledger.Credit(ctx, tx, w.ID, amountCents, model.TxGoalWithdraw, "withdrawn from "+g.Name); err != nil {
			return err
		}

		g.CurrentAmountCents -= amountCents
		if g.CurrentAmountCents < g.TargetAmountCents {
			g.IsCompleted = false
			g.CompletedAt = nil
		}
		if err := tx.UpdateGoal(ctx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a goal, returning every reserved cent to the wallet first.
func (s *Service) Delete(ctx context.Context, ownerID, goalID string) error {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return err
	}
	defer release()

	return s.store.Atomic(ctx, func(tx store.Store) error {
		g, err := tx.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if g.OwnerID != ownerID {
			return model.ErrNotOwner
		}
		if g.CurrentAmountCents > 0 {
			w, err := tx.GetWalletByOwner(ctx, ownerID)
			if err != nil {
				return err
			}
			if err := ledger.Credit(ctx, tx, w.ID, g.CurrentAmountCents, model.TxGoalRefund, "goal deleted: "+g.Name); err != nil {
				return err
			}
		}
		return tx.DeleteGoal(ctx, goalID)
	})
}

// Get returns one goal, enforcing ownership.
func (s *Service) Get(ctx context.Context, ownerID, goalID string) (*model.SavingsGoal, error) {
	g, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != ownerID {
		return nil, model.ErrNotOwner
	}
	return g, nil
}

// List returns all goals for an owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.SavingsGoal, error) {
	return s.store.ListGoalsByOwner(ctx, ownerID)
}
