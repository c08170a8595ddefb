// Package progress owns XP, level, and daily-streak state. XP only ever
// grows; the level is derived from total XP by repeatedly crossing the
// next threshold, so a single large award can jump several levels.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/store"
)

// xpThreshold is the total XP required to leave the given level.
func xpThreshold(level int) int64 {
	return int64(level) * 100
}

// load returns the owner's progression, initializing a fresh level-1 record
// the first time an owner is seen.
func load(ctx context.Context, st store.Store, ownerID string) (*model.Progression, error) {
	p, err := st.GetProgression(ctx, ownerID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.Progression{OwnerID: ownerID, Level: 1}, nil
	}
	return p, err
}

// AwardXP adds XP to an owner's progression inside the caller's atomic unit
// and returns each level reached, in order. Creates the progression record on
// first award.
func AwardXP(ctx context.Context, st store.Store, ownerID string, amount int64) ([]int, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	p, err := load(ctx, st, ownerID)
	if err != nil {
		return nil, err
	}
	p.XP += amount
	var crossed []int
	for p.XP >= xpThreshold(p.Level) {
		p.Level++
		crossed = append(crossed, p.Level)
	}
	if err := st.UpsertProgression(ctx, p); err != nil {
		return nil, err
	}
	return crossed, nil
}

// RecordActivity updates the daily streak for one calendar day of activity.
// Consecutive days extend the streak, a repeat of the same day is a no-op,
// and any gap resets the streak to 1. Returns the updated progression.
func RecordActivity(ctx context.Context, st store.Store, ownerID string, day time.Time) (*model.Progression, error) {
	p, err := load(ctx, st, ownerID)
	if err != nil {
		return nil, err
	}
	day = truncateDay(day)
	switch {
	case p.LastActiveDate == nil:
		p.Streak = 1
	case day.Equal(truncateDay(*p.LastActiveDate)):
		return p, nil
	case day.Equal(truncateDay(*p.LastActiveDate).AddDate(0, 0, 1)):
		p.Streak++
	default:
		p.Streak = 1
	}
	p.LastActiveDate = &day
	if err := st.UpsertProgression(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Service wraps the progression primitives with locking and notification.
type Service struct {
	store    store.Store
	locks    *ownerlock.Keyed
	notifier notify.Notifier
}

func NewService(st store.Store, locks *ownerlock.Keyed, notifier notify.Notifier) *Service {
	return &Service{store: st, locks: locks, notifier: notifier}
}

// AwardXP credits XP as its own atomic unit and publishes one level_up event
// per level crossed.
func (s *Service) AwardXP(ctx context.Context, ownerID string, amount int64) (*model.Progression, error) {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var crossed []int
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		crossed, err = AwardXP(ctx, tx, ownerID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.PublishLevelUps(ownerID, crossed)
	return s.store.GetProgression(ctx, ownerID)
}

// PublishLevelUps emits one level_up event per reached level. Exposed so the
// reward dispatcher can publish for levels crossed inside a larger unit.
func (s *Service) PublishLevelUps(ownerID string, levels []int) {
	for _, lvl := range levels {
		slog.Info("level up", "owner", ownerID, "level", lvl)
		if s.notifier != nil {
			s.notifier.Publish(notify.Event{
				Type:    notify.TypeLevelUp,
				OwnerID: ownerID,
				Payload: notify.LevelUp{Level: lvl},
			})
		}
	}
}

// RecordActivity registers one day of activity for the streak counter.
func (s *Service) RecordActivity(ctx context.Context, ownerID string, day time.Time) (*model.Progression, error) {
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.Progression
	err = s.store.Atomic(ctx, func(tx store.Store) error {
		out, err = RecordActivity(ctx, tx, ownerID, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns an owner's progression state. Owners with no recorded activity
// read as a fresh level-1 record.
func (s *Service) Get(ctx context.Context, ownerID string) (*model.Progression, error) {
	return load(ctx, s.store, ownerID)
}
