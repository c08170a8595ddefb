package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moneynplay/engine/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache for
// investment options and their price history, the hottest read path (every
// portfolio view prices each position). Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back. Entries are
// TTL-bounded, so a write that bypasses this wrapper (inside Atomic) is
// stale for at most the TTL.
type CachedStore struct {
	Store // primary; uncached methods pass through
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: primary,
		rdb:   rdb,
		ttl:   ttl,
	}
}

// Atomic always runs against the primary store; transactional reads must
// never see cached state.
func (s *CachedStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return s.Store.Atomic(ctx, fn)
}

// --- Write-through (write to primary, refresh or invalidate cache) ---

func (s *CachedStore) CreateOption(ctx context.Context, o *model.InvestmentOption) error {
	if err := s.Store.CreateOption(ctx, o); err != nil {
		return err
	}
	s.cacheOption(ctx, o)
	return nil
}

func (s *CachedStore) SetOptionPrice(ctx context.Context, id string, priceCents int64, at time.Time) error {
	if err := s.Store.SetOptionPrice(ctx, id, priceCents, at); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, optionKey(id), historyKey(id))
	return nil
}

func (s *CachedStore) SetOptionActive(ctx context.Context, id string, active bool) error {
	if err := s.Store.SetOptionActive(ctx, id, active); err != nil {
		return err
	}
	s.rdb.Del(ctx, optionKey(id))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetOption(ctx context.Context, id string) (*model.InvestmentOption, error) {
	data, err := s.rdb.Get(ctx, optionKey(id)).Bytes()
	if err == nil {
		var o model.InvestmentOption
		if json.Unmarshal(data, &o) == nil {
			return &o, nil
		}
	}

	o, err := s.Store.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheOption(ctx, o)
	return o, nil
}

func (s *CachedStore) GetPriceHistory(ctx context.Context, optionID string, limit int) ([]model.PricePoint, error) {
	// Only the unlimited query is cached; bounded queries pass through.
	if limit > 0 {
		return s.Store.GetPriceHistory(ctx, optionID, limit)
	}

	data, err := s.rdb.Get(ctx, historyKey(optionID)).Bytes()
	if err == nil {
		var hist []model.PricePoint
		if json.Unmarshal(data, &hist) == nil {
			return hist, nil
		}
	}

	hist, err := s.Store.GetPriceHistory(ctx, optionID, 0)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(hist); err == nil {
		s.rdb.Set(ctx, historyKey(optionID), data, s.ttl)
	}
	return hist, nil
}

// --- Cache helpers ---

func (s *CachedStore) cacheOption(ctx context.Context, o *model.InvestmentOption) {
	if data, err := json.Marshal(o); err == nil {
		s.rdb.Set(ctx, optionKey(o.ID), data, s.ttl)
	}
}

func optionKey(id string) string  { return fmt.Sprintf("option:%s", id) }
func historyKey(id string) string { return fmt.Sprintf("history:%s", id) }
