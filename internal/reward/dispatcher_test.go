package reward_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneynplay/engine/internal/model"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/reward"
	"github.com/moneynplay/engine/internal/store"
)

func TestGrantCreditsCoinsAndXP(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	var events []notify.Event
	err := ms.Atomic(ctx, func(tx store.Store) error {
		var err error
		events, err = reward.Grant(ctx, tx, "kid1", 50, 120, model.CoinTxMissionReward, "mission:m1")
		return err
	})
	require.NoError(t, err)

	w, err := ms.GetVirtualWallet(ctx, "kid1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), w.Coins)
	assert.Equal(t, int64(50), w.LifetimeEarned)

	p, err := ms.GetProgression(ctx, "kid1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), p.XP)
	assert.Equal(t, 2, p.Level)

	// One level crossed plus the grant itself.
	require.Len(t, events, 2)
	assert.Equal(t, notify.TypeLevelUp, events[0].Type)
	assert.Equal(t, notify.TypeRewardGranted, events[1].Type)
	granted := events[1].Payload.(notify.RewardGranted)
	assert.Equal(t, "mission:m1", granted.SourceRef)
}

func TestGrantZeroAmountsIsNoop(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	var events []notify.Event
	err := ms.Atomic(ctx, func(tx store.Store) error {
		var err error
		events, err = reward.Grant(ctx, tx, "kid1", 0, 0, model.CoinTxMissionReward, "mission:m1")
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = ms.GetVirtualWallet(ctx, "kid1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGrantRejectsNegative(t *testing.T) {
	ms := store.NewMemoryStore()
	_, err := reward.Grant(context.Background(), ms, "kid1", -1, 0, model.CoinTxMissionReward, "x")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

// A failing unit must roll back the coin credit made inside it.
func TestGrantRollsBackWithUnit(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	err := ms.Atomic(ctx, func(tx store.Store) error {
		if _, err := reward.Grant(ctx, tx, "kid1", 50, 0, model.CoinTxMissionReward, "m"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = ms.GetVirtualWallet(ctx, "kid1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

type dropNotifier struct{ n int }

func (d *dropNotifier) Publish(notify.Event) { d.n++ }

func TestPublishHandlesNil(t *testing.T) {
	events := []notify.Event{{Type: notify.TypeRewardGranted}}
	reward.Publish(nil, events) // must not panic

	d := &dropNotifier{}
	reward.Publish(d, events)
	assert.Equal(t, 1, d.n)
}
