package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Strategy produces target allocations from market data. Initialize
// receives the full historical table once, before the replay starts, so
// expensive signal work happens up front; OnData should be a cheap lookup
// against that precomputed state. OnFill and OnOrderStatus are optional
// hooks, no-op'd by BaseStrategy.
type Strategy interface {
	Initialize(table []Bar) error
	OnData(ev *BarEvent) TargetPositions
	OnFill(fill Fill)
	OnOrderStatus(order Order)
}

// BaseStrategy provides the optional hooks for embedding.
type BaseStrategy struct{}

func (BaseStrategy) OnFill(Fill) {}

func (BaseStrategy) OnOrderStatus(Order) {}

// ErrEmptyUniverse rejects strategies constructed with no symbols.
var ErrEmptyUniverse = errors.New("strategy universe must not be empty")

// StrategyParams configures a strategy at construction.
type StrategyParams struct {
	Universe []string
	Settings map[string]float64
}

func (p StrategyParams) Validate() error {
	if len(p.Universe) == 0 {
		return ErrEmptyUniverse
	}
	return nil
}

// Setting returns the named numeric setting, or def when unset.
func (p StrategyParams) Setting(name string, def float64) float64 {
	if v, ok := p.Settings[name]; ok {
		return v
	}
	return def
}

// StrategyFactory builds a configured strategy, failing fast on invalid
// parameters.
type StrategyFactory func(params StrategyParams) (Strategy, error)

// Registry maps strategy names to factories. Callers construct one and
// register into it explicitly; there is no package-global registry.
type Registry struct {
	factories map[string]StrategyFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StrategyFactory)}
}

func (r *Registry) Register(name string, factory StrategyFactory) error {
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("strategy %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) Get(name string) (StrategyFactory, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("no strategy registered under %q (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return factory, nil
}

// Names lists the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
