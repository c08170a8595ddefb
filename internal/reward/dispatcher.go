// Package reward credits coins and XP for a completed mission, lesson, or
// achievement as one logical step. The dispatcher does not deduplicate:
// callers must check-and-set their completion record in the same atomic unit
// before invoking Grant, otherwise a reward can be claimed twice.
package reward

import (
	"context"

	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/progress"
	"github.com/moneynplay/engine/internal/store"
)

// Grant credits coins and XP inside the caller's atomic unit and returns the
// events to publish after the unit commits. Either amount may be zero;
// negative amounts are rejected. coinType labels the coin transaction
// (mission_reward, content_reward, achievement_reward).
func Grant(ctx context.Context, st store.Store, ownerID string, coins, xp int64, coinType, sourceRef string) ([]notify.Event, error) {
	if coins < 0 || xp < 0 {
		return nil, model.ErrInvalidAmount
	}

	var events []notify.Event
	if coins > 0 {
		if err := ledger.EarnCoins(ctx, st, ownerID, coins, coinType, sourceRef); err != nil {
			return nil, err
		}
	}
	if xp > 0 {
		crossed, err := progress.AwardXP(ctx, st, ownerID, xp)
		if err != nil {
			return nil, err
		}
		for _, lvl := range crossed {
			events = append(events, notify.Event{
				Type:    notify.TypeLevelUp,
				OwnerID: ownerID,
				Payload: notify.LevelUp{Level: lvl},
			})
		}
	}
	if coins > 0 || xp > 0 {
		events = append(events, notify.Event{
			Type:    notify.TypeRewardGranted,
			OwnerID: ownerID,
			Payload: notify.RewardGranted{Coins: coins, XP: xp, SourceRef: sourceRef},
		})
		metrics.RewardsTotal.WithLabelValues(coinType).Inc()
	}
	return events, nil
}

// Publish sends each event through the notifier, skipping nil notifiers.
// Separated from Grant so events only go out after the unit commits.
func Publish(n notify.Notifier, events []notify.Event) {
	if n == nil {
		return
	}
	for _, e := range events {
		n.Publish(e)
	}
}
