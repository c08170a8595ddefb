package invest

import (
	"math/rand"
	"sync"

	"github.com/moneynplay/engine/internal/model"
)

// Strategy produces the next simulated price for an option. The engine never
// rewrites history; each step appends one point.
type Strategy interface {
	Next(o *model.InvestmentOption) int64
}

// Risk levels accepted on option creation.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// volatility is the maximum fractional move per step for each risk level.
func volatility(riskLevel string) float64 {
	switch riskLevel {
	case RiskHigh:
		return 0.10
	case RiskMedium:
		return 0.05
	default:
		return 0.02
	}
}

// RandomWalk is a bounded symmetric random walk. Each step moves the price by
// a uniform fraction in [-vol, +vol] scaled by risk level, floored at one
// cent so an option can never price at zero.
type RandomWalk struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomWalk(seed int64) *RandomWalk {
	return &RandomWalk{rng: rand.New(rand.NewSource(seed))}
}

func (w *RandomWalk) Next(o *model.InvestmentOption) int64 {
	w.mu.Lock()
	f := w.rng.Float64()
	w.mu.Unlock()

	vol := volatility(o.RiskLevel)
	move := (f*2 - 1) * vol
	next := int64(float64(o.CurrentPriceCents) * (1 + move))
	if next < 1 {
		next = 1
	}
	return next
}
