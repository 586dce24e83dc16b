package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"signal-quorum/internal/domain"
)

var (
	// ErrInvalidWeight is returned when an initial strategy weight falls
	// outside [0, 1].
	ErrInvalidWeight = errors.New("strategy weight must be in [0, 1]")

	// ErrStrategyNotFound is returned when removing an unknown strategy id.
	ErrStrategyNotFound = errors.New("strategy not registered")

	// ErrStrategyExists is returned when adding a strategy id twice.
	ErrStrategyExists = errors.New("strategy already registered")
)

// Strategy is the capability every ensemble member exposes. Implementations
// are supplied by the surrounding system; the ensemble never subclasses them.
type Strategy interface {
	ID() string
	GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error)
	ValidateSignal(sig *domain.TradingSignal) bool
}

// Member pairs a strategy capability handle with its current vote weight.
// nominal is the weight the caller last asked for; effective weights are
// recomputed from the nominal table so that registering 0.6 then 0.3 always
// reads back as 2:1, regardless of call order.
type Member struct {
	Strategy Strategy
	Weight   float64
	nominal  float64
}

// Registry holds the current set of member strategies and their normalized
// weights. It is the only mutable shared state in the engine: mutations take
// the write lock and leave the table renormalized, so readers always observe
// weights summing to one.
type Registry struct {
	mu        sync.RWMutex
	members   []Member
	minWeight float64
	maxWeight float64
}

// NewRegistry creates an empty registry with the default per-strategy weight
// bounds of [0.05, 0.7].
func NewRegistry() *Registry {
	return NewRegistryWithBounds(0.05, 0.7)
}

// NewRegistryWithBounds creates an empty registry with custom bounds.
// Nonsensical bounds fall back to the defaults.
func NewRegistryWithBounds(minWeight, maxWeight float64) *Registry {
	if minWeight < 0 || maxWeight <= minWeight || maxWeight > 1 {
		minWeight, maxWeight = 0.05, 0.7
	}
	return &Registry{minWeight: minWeight, maxWeight: maxWeight}
}

// AddStrategy registers a strategy with an initial weight in [0, 1] and
// renormalizes the table so all weights sum to one, preserving the relative
// proportions of the supplied weights. The registry is left unchanged on
// error.
func (r *Registry) AddStrategy(s Strategy, weight float64) error {
	if s == nil || s.ID() == "" {
		return errors.New("nil or unidentified strategy")
	}
	if weight < 0 || weight > 1 {
		return fmt.Errorf("add strategy %s: %w (got %.4f)", s.ID(), ErrInvalidWeight, weight)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.Strategy.ID() == s.ID() {
			return fmt.Errorf("add strategy %s: %w", s.ID(), ErrStrategyExists)
		}
	}
	r.members = append(r.members, Member{Strategy: s, Weight: weight, nominal: weight})
	r.renormalize()
	return nil
}

// RemoveStrategy deletes a strategy and renormalizes the remaining weights,
// preserving their relative proportions.
func (r *Registry) RemoveStrategy(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.members {
		if m.Strategy.ID() == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			r.renormalize()
			return nil
		}
	}
	return fmt.Errorf("remove strategy %s: %w", id, ErrStrategyNotFound)
}

// GetStrategies returns the current weight table as a consistent snapshot.
func (r *Registry) GetStrategies() []domain.StrategyWeight {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StrategyWeight, len(r.members))
	for i, m := range r.members {
		out[i] = domain.StrategyWeight{StrategyID: m.Strategy.ID(), Weight: m.Weight}
	}
	return out
}

// Members returns a snapshot of the member list for fan-out.
func (r *Registry) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// Weight looks up the current weight for a strategy id.
func (r *Registry) Weight(id string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m.Strategy.ID() == id {
			return m.Weight, true
		}
	}
	return 0, false
}

// Len reports the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Bounds returns the configured per-strategy weight bounds.
func (r *Registry) Bounds() (minWeight, maxWeight float64) {
	return r.minWeight, r.maxWeight
}

// SetWeights atomically replaces the weight table. Ids absent from the map
// keep their current effective weight; the result is clamped to the bounds
// and renormalized before becoming visible to readers.
func (r *Registry) SetWeights(weights map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.members {
		if w, ok := weights[r.members[i].Strategy.ID()]; ok && w >= 0 {
			r.members[i].nominal = w
		} else {
			r.members[i].nominal = r.members[i].Weight
		}
	}
	r.renormalize()
}

// renormalize recomputes effective weights from the nominal table so they
// sum to one, then clamps each into [minWeight, maxWeight] where the member
// count makes that feasible. Caller must hold the write lock.
func (r *Registry) renormalize() {
	n := len(r.members)
	if n == 0 {
		return
	}

	total := 0.0
	for _, m := range r.members {
		total += m.nominal
	}
	if total <= 0 {
		for i := range r.members {
			r.members[i].Weight = 1.0 / float64(n)
		}
	} else {
		for i := range r.members {
			r.members[i].Weight = r.members[i].nominal / total
		}
	}

	// Bounds are only satisfiable when n*min <= 1 <= n*max.
	if float64(n)*r.minWeight > 1 || float64(n)*r.maxWeight < 1 {
		return
	}

	// Clamp outliers, then water-fill the leftover mass across members with
	// room left toward the violated side. The feasibility check above
	// guarantees enough room, so one fill restores the sum even when every
	// member was pinned at a bound.
	for pass := 0; pass < n; pass++ {
		sum := 0.0
		for i := range r.members {
			if r.members[i].Weight < r.minWeight {
				r.members[i].Weight = r.minWeight
			} else if r.members[i].Weight > r.maxWeight {
				r.members[i].Weight = r.maxWeight
			}
			sum += r.members[i].Weight
		}
		leftover := 1 - sum
		if math.Abs(leftover) < 1e-9 {
			return
		}
		room := 0.0
		for _, m := range r.members {
			if leftover > 0 {
				room += r.maxWeight - m.Weight
			} else {
				room += m.Weight - r.minWeight
			}
		}
		if room <= 0 {
			return
		}
		for i := range r.members {
			headroom := r.maxWeight - r.members[i].Weight
			if leftover < 0 {
				headroom = r.members[i].Weight - r.minWeight
			}
			r.members[i].Weight += leftover * headroom / room
		}
	}
}
