package mission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/reward"
	"github.com/moneynplay/engine/internal/store"
)

// statFunc reads one aggregated owner stat used by achievement requirements.
type statFunc func(ctx context.Context, st store.Store, ownerID string) (int64, error)

// statFuncs maps each requirement type to its evaluator. Requirements are
// always derived from aggregated state; the unlock record is the only thing
// stored.
var statFuncs = map[string]statFunc{
	model.ReqMissionsCompleted: func(ctx context.Context, st store.Store, ownerID string) (int64, error) {
		return st.CountCompletedMissions(ctx, ownerID)
	},
	model.ReqGoalsCompleted: func(ctx context.Context, st store.Store, ownerID string) (int64, error) {
		return st.CountCompletedGoals(ctx, ownerID)
	},
	model.ReqLifetimeCoins: func(ctx context.Context, st store.Store, ownerID string) (int64, error) {
		w, err := st.GetVirtualWallet(ctx, ownerID)
		if errors.Is(err, model.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return w.LifetimeEarned, nil
	},
	model.ReqStreakDays: func(ctx context.Context, st store.Store, ownerID string) (int64, error) {
		p, err := st.GetProgression(ctx, ownerID)
		if errors.Is(err, model.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return int64(p.Streak), nil
	},
	model.ReqLevelReached: func(ctx context.Context, st store.Store, ownerID string) (int64, error) {
		p, err := st.GetProgression(ctx, ownerID)
		if errors.Is(err, model.ErrNotFound) {
			return 1, nil
		}
		if err != nil {
			return 0, err
		}
		return int64(p.Level), nil
	},
}

// CreateAchievement registers an unlockable with a typed requirement.
func (s *Service) CreateAchievement(ctx context.Context, title, reqType string, reqValue, coinReward, xpReward int64) (*model.Achievement, error) {
	if _, ok := statFuncs[reqType]; !ok {
		return nil, model.ErrInvalidAmount
	}
	if reqValue <= 0 || coinReward < 0 || xpReward < 0 {
		return nil, model.ErrInvalidAmount
	}
	a := &model.Achievement{
		ID:               uuid.New().String(),
		Title:            title,
		RequirementType:  reqType,
		RequirementValue: reqValue,
		CoinReward:       coinReward,
		XPReward:         xpReward,
	}
	if err := s.store.CreateAchievement(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// EvaluateAchievements unlocks every achievement whose requirement the owner
// now meets. Each unlock is its own atomic unit: the unlock record and its
// reward land together, and an unlock is never repeated. Evaluation failures
// are logged, not propagated; the triggering operation already committed.
func (s *Service) EvaluateAchievements(ctx context.Context, ownerID string) {
	achievements, err := s.store.ListAchievements(ctx)
	if err != nil {
		slog.Error("achievement evaluation failed", "owner", ownerID, "err", err)
		return
	}
	for _, a := range achievements {
		eval, ok := statFuncs[a.RequirementType]
		if !ok {
			continue
		}
		if _, err := s.store.GetKidAchievement(ctx, ownerID, a.ID); err == nil {
			continue
		}
		stat, err := eval(ctx, s.store, ownerID)
		if err != nil {
			slog.Error("achievement stat read failed", "owner", ownerID, "achievement", a.ID, "err", err)
			continue
		}
		if stat < a.RequirementValue {
			continue
		}

		var events []notify.Event
		var unlocked bool
		err = s.store.Atomic(ctx, func(tx store.Store) error {
			if _, err := tx.GetKidAchievement(ctx, ownerID, a.ID); err == nil {
				return nil
			} else if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			if err := tx.InsertKidAchievement(ctx, &model.KidAchievement{
				OwnerID:       ownerID,
				AchievementID: a.ID,
				UnlockedAt:    time.Now().UTC(),
			}); err != nil {
				return err
			}
			unlocked = true
			events, err = reward.Grant(ctx, tx, ownerID, a.CoinReward, a.XPReward, model.CoinTxAchievement, "achievement:"+a.ID)
			return err
		})
		if err != nil {
			slog.Error("achievement unlock failed", "owner", ownerID, "achievement", a.ID, "err", err)
			continue
		}
		if !unlocked {
			continue
		}
		slog.Info("achievement unlocked", "owner", ownerID, "achievement", a.ID)
		reward.Publish(s.notifier, events)
		if s.notifier != nil {
			s.notifier.Publish(notify.Event{
				Type:    notify.TypeAchievementUnlocked,
				OwnerID: ownerID,
				Payload: notify.AchievementUnlocked{AchievementID: a.ID, Title: a.Title},
			})
		}
	}
}
