// Package invest runs the simulated investing sandbox. Money enters and
// leaves through the wallet ledger in the same atomic unit as the position
// mutation; shares and average buy price are exact decimals so repeated
// fractional trades never drift.
package invest

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// sharesEpsilon: a residual holding below this is treated as zero and the
// position is removed.
var sharesEpsilon = decimal.New(1, -9)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,8}$`)

// SaleResult reports the outcome of a sell for caller display. GainLoss is
// measured against the position's average buy price at the time of sale.
type SaleResult struct {
	SaleValueCents int64 `json:"sale_value_cents"`
	GainLossCents  int64 `json:"gain_loss_cents"`
}

// PositionView is one position priced at the current market.
type PositionView struct {
	Position          model.InvestmentPosition `json:"position"`
	Symbol            string                   `json:"symbol"`
	CurrentPriceCents int64                    `json:"current_price_cents"`
	CurrentValueCents int64                    `json:"current_value_cents"`
	GainLossCents     int64                    `json:"gain_loss_cents"`
}

// PortfolioSummary aggregates an owner's holdings.
type PortfolioSummary struct {
	Positions            []PositionView `json:"positions"`
	TotalInvestedCents   int64          `json:"total_invested_cents"`
	TotalCurrentValue    int64          `json:"total_current_value_cents"`
	TotalGainLossCents   int64          `json:"total_gain_loss_cents"`
	TotalGainLossPercent float64        `json:"total_gain_loss_percent"`
}

// Service exposes the investment operations. maxInvestedCents caps the sum
// an owner may have invested across all positions; zero disables the cap.
type Service struct {
	store            store.Store
	locks            *ownerlock.Keyed
	strategy         Strategy
	maxInvestedCents int64
}

func NewService(st store.Store, locks *ownerlock.Keyed, strategy Strategy, maxInvestedCents int64) *Service {
	return &Service{store: st, locks: locks, strategy: strategy, maxInvestedCents: maxInvestedCents}
}

// CreateOption registers a new investable option at an initial price.
// Symbols are 1–8 uppercase letters.
func (s *Service) CreateOption(ctx context.Context, symbol, name string, priceCents int64, riskLevel string) (*model.InvestmentOption, error) {
	if !symbolPattern.MatchString(symbol) {
		return nil, model.ErrInvalidSymbol
	}
	if priceCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	switch riskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return nil, model.ErrInvalidRiskLevel
	}
	o := &model.InvestmentOption{
		ID:                uuid.New().String(),
		Symbol:            symbol,
		Name:              name,
		CurrentPriceCents: priceCents,
		RiskLevel:         riskLevel,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateOption(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOptions returns every option, active or not.
func (s *Service) ListOptions(ctx context.Context) ([]model.InvestmentOption, error) {
	return s.store.ListOptions(ctx)
}

// SetOptionActive retires or relists an option. Inactive options refuse new
// buys; existing positions can still be sold.
func (s *Service) SetOptionActive(ctx context.Context, optionID string, active bool) error {
	return s.store.SetOptionActive(ctx, optionID, active)
}

// PriceHistory returns the most recent points in ascending time order.
// limit <= 0 returns the full history.
func (s *Service) PriceHistory(ctx context.Context, optionID string, limit int) ([]model.PricePoint, error) {
	return s.store.GetPriceHistory(ctx, optionID, limit)
}

// Buy spends wallet money on shares at the option's current price. Share
// count is exact: amount / price as a decimal, no rounding on the way in.
func (s *Service) Buy(ctx context.Context, ownerID, optionID string, amountCents int64) (*model.InvestmentPosition, error) {
	if amountCents <= 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.InvestmentPosition
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		o, err := tx.GetOption(ctx, optionID)
		if err != nil {
			return err
		}
		if !o.IsActive {
			return model.ErrOptionInactive
		}

		if s.maxInvestedCents > 0 {
			invested, err := totalInvested(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			if invested+amountCents > s.maxInvestedCents {
				return model.ErrInvestedCapExceeded
			}
		}

		w, err := tx.GetWalletByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := ledger.Debit(ctx, tx, w.ID, amountCents, model.TxInvestmentBuy, "bought "+o.Symbol); err != nil {
			return err
		}

		price := decimal.NewFromInt(o.CurrentPriceCents)
		bought := decimal.NewFromInt(amountCents).Div(price)

		p, err := tx.GetPosition(ctx, ownerID, optionID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			p = &model.InvestmentPosition{OwnerID: ownerID, OptionID: optionID}
		case err != nil:
			return err
		}

		newShares := p.Shares.Add(bought)
		// Weighted average: (oldShares*oldAvg + bought*price) / newShares.
		p.AverageBuyPrice = p.Shares.Mul(p.AverageBuyPrice).Add(bought.Mul(price)).Div(newShares)
		p.Shares = newShares
		p.TotalInvestedCents += amountCents
		p.UpdatedAt = time.Now().UTC()
		if err := tx.UpsertPosition(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues("buy").Inc()
	slog.Info("bought shares", "owner", ownerID, "option", optionID, "amount_cents", amountCents)
	return out, nil
}

// Sell converts shares back to wallet money at the current price. The average
// buy price is unchanged; invested capital shrinks proportionally so the
// remaining position keeps its cost basis.
func (s *Service) Sell(ctx context.Context, ownerID, optionID string, shares decimal.Decimal) (*SaleResult, error) {
	if shares.Sign() <= 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *SaleResult
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		o, err := tx.GetOption(ctx, optionID)
		if err != nil {
			return err
		}
		p, err := tx.GetPosition(ctx, ownerID, optionID)
		if err != nil {
			return err
		}
		if shares.GreaterThan(p.Shares) {
			return model.ErrInsufficientShares
		}

		price := decimal.NewFromInt(o.CurrentPriceCents)
		saleValue := shares.Mul(price).Round(0).IntPart()
		costBasis := shares.Mul(p.AverageBuyPrice).Round(0).IntPart()

		w, err := tx.GetWalletByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := ledger.Credit(ctx, tx, w.ID, saleValue, model.TxInvestmentSell, "sold "+o.Symbol); err != nil {
			return err
		}

		remaining := p.Shares.Sub(shares)
		if remaining.LessThan(sharesEpsilon) {
			if err := tx.DeletePosition(ctx, ownerID, optionID); err != nil {
				return err
			}
		} else {
			// Invested capital shrinks by the sold fraction of the holding.
			ratio := remaining.Div(p.Shares)
			p.TotalInvestedCents = decimal.NewFromInt(p.TotalInvestedCents).Mul(ratio).Round(0).IntPart()
			p.Shares = remaining
			p.UpdatedAt = time.Now().UTC()
			if err := tx.UpsertPosition(ctx, p); err != nil {
				return err
			}
		}
		out = &SaleResult{SaleValueCents: saleValue, GainLossCents: saleValue - costBasis}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues("sell").Inc()
	slog.Info("sold shares", "owner", ownerID, "option", optionID,
		"sale_cents", out.SaleValueCents, "gain_loss_cents", out.GainLossCents)
	return out, nil
}

// Portfolio prices every position at current market and aggregates totals.
// An owner with nothing invested reads as a zero summary, never divide-by-zero.
func (s *Service) Portfolio(ctx context.Context, ownerID string) (*PortfolioSummary, error) {
	positions, err := s.store.ListPositionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sum := &PortfolioSummary{Positions: make([]PositionView, 0, len(positions))}
	for _, p := range positions {
		o, err := s.store.GetOption(ctx, p.OptionID)
		if err != nil {
			return nil, err
		}
		value := p.Shares.Mul(decimal.NewFromInt(o.CurrentPriceCents)).Round(0).IntPart()
		sum.Positions = append(sum.Positions, PositionView{
			Position:          p,
			Symbol:            o.Symbol,
			CurrentPriceCents: o.CurrentPriceCents,
			CurrentValueCents: value,
			GainLossCents:     value - p.TotalInvestedCents,
		})
		sum.TotalInvestedCents += p.TotalInvestedCents
		sum.TotalCurrentValue += value
	}
	sum.TotalGainLossCents = sum.TotalCurrentValue - sum.TotalInvestedCents
	if sum.TotalInvestedCents > 0 {
		sum.TotalGainLossPercent = float64(sum.TotalGainLossCents) / float64(sum.TotalInvestedCents) * 100
	}
	return sum, nil
}

// AdvancePrices runs one simulation step for every active option, appending
// to the price history. Called from the scheduler.
func (s *Service) AdvancePrices(ctx context.Context, now time.Time) error {
	options, err := s.store.ListOptions(ctx)
	if err != nil {
		return err
	}
	for i := range options {
		o := &options[i]
		if !o.IsActive {
			continue
		}
		next := s.strategy.Next(o)
		if err := s.store.SetOptionPrice(ctx, o.ID, next, now); err != nil {
			return err
		}
		metrics.PriceTicks.Inc()
	}
	return nil
}

func totalInvested(ctx context.Context, st store.Store, ownerID string) (int64, error) {
	positions, err := st.ListPositionsByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, p := range positions {
		sum += p.TotalInvestedCents
	}
	return sum, nil
}
