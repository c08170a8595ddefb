// Package marketplace lets kids resell avatar-shop items to each other for
// coins. A purchase is four effects in one atomic unit: buyer coins down,
// seller coins up, item re-owned, listing closed. Coins are conserved; items
// transfer, never copy.
package marketplace

import (
	"context"
	"errors"
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

// Service exposes marketplace operations.
type Service struct {
	store    store.Store
	locks    *ownerlock.Keyed
	notifier notify.Notifier
}

func NewService(st store.Store, locks *ownerlock.Keyed, notifier notify.Notifier) *Service {
	return &Service{store: st, locks: locks, notifier: notifier}
}

// GrantItem records shop-acquired ownership of an item. The coin spend for a
// shop purchase goes through the coin ledger in the same unit.
func (s *Service) GrantItem(ctx context.Context, ownerID, itemID string, priceCoins int64) (*model.InventoryItem, error) {
	if priceCoins < 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	it := &model.InventoryItem{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		ItemID:       itemID,
		AcquiredAt:   time.Now().UTC(),
		AcquiredFrom: "shop",
	}
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		if priceCoins > 0 {
			if err := ledger.SpendCoins(ctx, tx, ownerID, priceCoins, model.CoinTxPurchase, "item:"+itemID); err != nil {
				return err
			}
		}
		return tx.InsertInventoryItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Inventory returns everything an owner currently holds.
func (s *Service) Inventory(ctx context.Context, ownerID string) ([]model.InventoryItem, error) {
	return s.store.ListInventoryByOwner(ctx, ownerID)
}

// List puts an owned inventory item up for sale. An item can back at most
// one active listing at a time.
func (s *Service) List(ctx context.Context, sellerID, inventoryID string, coinPrice int64, description string) (*model.MarketplaceListing, error) {
	if coinPrice <= 0 {
		return nil, model.ErrInvalidAmount
	}
	release, err := s.locks.Acquire(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.MarketplaceListing
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		it, err := tx.GetInventoryItem(ctx, inventoryID)
		if err != nil {
			return err
		}
		if it.OwnerID != sellerID {
			return model.ErrNotOwner
		}
		if _, err := tx.GetActiveListingByInventory(ctx, inventoryID); err == nil {
			return model.ErrItemAlreadyListed
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		l := &model.MarketplaceListing{
			ID:          uuid.New().String(),
			SellerID:    sellerID,
			InventoryID: inventoryID,
			ItemID:      it.ItemID,
			CoinPrice:   coinPrice,
			Description: description,
			Status:      model.ListingActive,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.CreateListing(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ListingsTotal.WithLabelValues(model.ListingActive).Inc()
	return out, nil
}

// Cancel takes a seller's own active listing off the market. The item never
// left their inventory.
func (s *Service) Cancel(ctx context.Context, sellerID, listingID string) (*model.MarketplaceListing, error) {
	release, err := s.locks.Acquire(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.MarketplaceListing
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if l.SellerID != sellerID {
			return model.ErrNotOwner
		}
		if l.Status != model.ListingActive {
			return model.ErrListingNotActive
		}
		l.Status = model.ListingCancelled
		if err := tx.UpdateListing(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ListingsTotal.WithLabelValues(model.ListingCancelled).Inc()
	return out, nil
}

// Browse returns every active listing.
func (s *Service) Browse(ctx context.Context) ([]model.MarketplaceListing, error) {
	return s.store.ListActiveListings(ctx)
}

// Purchase buys an active listing. Buyer and seller are locked in a fixed
// order, then the coin movement, ownership transfer, and listing close commit
// together or not at all.
func (s *Service) Purchase(ctx context.Context, buyerID, listingID string) (*model.MarketplaceListing, error) {
	l, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.SellerID == buyerID {
		return nil, model.ErrSelfPurchase
	}

	first, second := buyerID, l.SellerID
	if second < first {
		first, second = second, first
	}
	releaseA, err := s.locks.Acquire(ctx, first)
	if err != nil {
		return nil, err
	}
	defer releaseA()
	releaseB, err := s.locks.Acquire(ctx, second)
	if err != nil {
		return nil, err
	}
	defer releaseB()

	var out *model.MarketplaceListing
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if l.Status != model.ListingActive {
			return model.ErrListingNotActive
		}
		if l.SellerID == buyerID {
			return model.ErrSelfPurchase
		}

		if err := ledger.SpendCoins(ctx, tx, buyerID, l.CoinPrice, model.CoinTxMarketplaceBuy, "listing:"+l.ID); err != nil {
			return err
		}
		if err := ledger.EarnCoins(ctx, tx, l.SellerID, l.CoinPrice, model.CoinTxMarketplaceSale, "listing:"+l.ID); err != nil {
			return err
		}
		if err := tx.SetInventoryOwner(ctx, l.InventoryID, buyerID, "marketplace"); err != nil {
			return err
		}

		now := time.Now().UTC()
		l.Status = model.ListingSold
		l.BuyerID = buyerID
		l.SoldAt = &now
		if err := tx.UpdateListing(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ListingsTotal.WithLabelValues(model.ListingSold).Inc()
	slog.Info("listing sold", "listing", listingID, "seller", out.SellerID, "buyer", buyerID, "coins", out.CoinPrice)
	if s.notifier != nil {
		s.notifier.Publish(notify.Event{
			Type:    notify.TypeMarketplaceSale,
			OwnerID: out.SellerID,
			Payload: notify.MarketplaceSale{ListingID: out.ID, BuyerID: buyerID, CoinPrice: out.CoinPrice},
		})
	}
	return out, nil
}
