// Package ownerlock serializes engine operations per owner. Two concurrent
// mutations for the same child must not interleave reads and writes of the
// same ledgers; operations for different owners run fully in parallel.
package ownerlock

import (
	"context"
	"sync"
	"time"

	"github.com/moneynplay/engine/internal/metrics"
	"github.com/moneynplay/engine/internal/model"
)

// Keyed hands out one cooperative lock per owner ID. Acquire waits up to the
// configured timeout and then fails with ErrBusy instead of hanging.
type Keyed struct {
	mu      sync.Mutex
	sems    map[string]chan struct{}
	timeout time.Duration
}

// New creates a keyed lock set with the given acquire timeout.
func New(timeout time.Duration) *Keyed {
	return &Keyed{
		sems:    make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (k *Keyed) sem(ownerID string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()

	c, ok := k.sems[ownerID]
	if !ok {
		c = make(chan struct{}, 1)
		k.sems[ownerID] = c
	}
	return c
}

// Acquire takes the lock for ownerID, returning a release func. Returns
// ErrBusy if the lock cannot be taken within the timeout, or the context
// error if ctx is cancelled first.
func (k *Keyed) Acquire(ctx context.Context, ownerID string) (func(), error) {
	c := k.sem(ownerID)

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	select {
	case c <- struct{}{}:
		return func() { <-c }, nil
	case <-timer.C:
		metrics.LockTimeouts.Inc()
		return nil, model.ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
