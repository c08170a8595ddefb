// Package allowance pays recurring deposits into kids' wallets. The runner
// is catch-up based: each due config is paid once per elapsed period and its
// next payment time advanced until it is in the future, so downtime never
// loses payments.
package allowance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// Service exposes allowance configuration and the due runner.
type Service struct {
	store    store.Store
	locks    *ownerlock.Keyed
	notifier notify.Notifier
}

func NewService(st store.Store, locks *ownerlock.Keyed, notifier notify.Notifier) *Service {
	return &Service{store: st, locks: locks, notifier: notifier}
}

// advance returns the payment time one period after t.
func advance(t time.Time, frequency string) time.Time {
	switch frequency {
	case model.FreqDaily:
		return t.AddDate(0, 0, 1)
	case model.FreqWeekly:
		return t.AddDate(0, 0, 7)
	case model.FreqBiweekly:
		return t.AddDate(0, 0, 14)
	default: // monthly
		return t.AddDate(0, 1, 0)
	}
}

func validFrequency(f string) bool {
	switch f {
	case model.FreqDaily, model.FreqWeekly, model.FreqBiweekly, model.FreqMonthly:
		return true
	}
	return false
}

// Configure creates a recurring allowance starting one period from now.
func (s *Service) Configure(ctx context.Context, ownerID string, amountCents int64, frequency string) (*model.AllowanceConfig, error) {
	if amountCents <= 0 || !validFrequency(frequency) {
		return nil, model.ErrInvalidAmount
	}
	a := &model.AllowanceConfig{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		AmountCents:   amountCents,
		Frequency:     frequency,
		NextPaymentAt: advance(time.Now().UTC(), frequency),
		IsActive:      true,
	}
	if err := s.store.CreateAllowance(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns the allowance configured for an owner.
func (s *Service) Get(ctx context.Context, ownerID string) (*model.AllowanceConfig, error) {
	return s.store.GetAllowanceByOwner(ctx, ownerID)
}

// SetActive pauses or resumes an allowance. A paused allowance accrues
// nothing: on resume the next payment is rescheduled from now.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*model.AllowanceConfig, error) {
	var out *model.AllowanceConfig
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		a, err := tx.GetAllowance(ctx, id)
		if err != nil {
			return err
		}
		if a.IsActive == active {
			out = a
			return nil
		}
		a.IsActive = active
		if active {
			a.NextPaymentAt = advance(time.Now().UTC(), a.Frequency)
		}
		if err := tx.UpdateAllowance(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunDue pays every active allowance whose next payment time has passed,
// once per elapsed period. Each config is its own atomic unit; one failing
// owner does not block the rest.
func (s *Service) RunDue(ctx context.Context, now time.Time) error {
	due, err := s.store.ListDueAllowances(ctx, now)
	if err != nil {
		return err
	}
	for _, a := range due {
		release, err := s.locks.Acquire(ctx, a.OwnerID)
		if err != nil {
			slog.Error("allowance payment skipped", "allowance", a.ID, "owner", a.OwnerID, "err", err)
			continue
		}
		err = s.payOne(ctx, a.ID, now)
		release()
		if err != nil {
			slog.Error("allowance payment failed", "allowance", a.ID, "owner", a.OwnerID, "err", err)
		}
	}
	return nil
}

func (s *Service) payOne(ctx context.Context, id string, now time.Time) error {
	var payments int
	var ownerID string
	var amount int64
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		a, err := tx.GetAllowance(ctx, id)
		if err != nil {
			return err
		}
		if !a.IsActive {
			return nil
		}
		w, err := tx.GetWalletByOwner(ctx, a.OwnerID)
		if err != nil {
			return err
		}
		for !a.NextPaymentAt.After(now) {
			if err := ledger.Credit(ctx, tx, w.ID, a.AmountCents, model.TxAllowance, "allowance"); err != nil {
				return err
			}
			a.NextPaymentAt = advance(a.NextPaymentAt, a.Frequency)
			payments++
		}
		ownerID = a.OwnerID
		amount = a.AmountCents
		return tx.UpdateAllowance(ctx, a)
	})
	if err != nil || payments == 0 {
		return err
	}

	metrics.AllowancePayouts.Add(float64(payments))
	slog.Info("allowance paid", "owner", ownerID, "payments", payments, "amount_cents", amount)
	if s.notifier != nil {
		for i := 0; i < payments; i++ {
			s.notifier.Publish(notify.Event{
				Type:    notify.TypeAllowanceReceived,
				OwnerID: ownerID,
				Payload: notify.AllowanceReceived{AmountCents: amount},
			})
		}
	}
	return nil
}
