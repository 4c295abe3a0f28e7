package ranking

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned for ids missing from the registry
var ErrUnknownStrategy = errors.New("unknown ranking strategy")

// Strategy is a named weight map over signals. Weights are percentages
// summing to 100.
type Strategy struct {
	ID          string             `json:"id"`
	Label       string             `json:"name"`
	Description string             `json:"description"`
	Weights     map[SignalName]int `json:"weights"`
}

// Total returns the sum of the weights
func (s Strategy) Total() int {
	total := 0
	for _, w := range s.Weights {
		total += w
	}
	return total
}

// Validate checks the weights cover known signals and sum to 100
func (s Strategy) Validate() error {
	for name := range s.Weights {
		if _, ok := signalCatalog[name]; !ok {
			return fmt.Errorf("strategy %s: unknown signal %q", s.ID, name)
		}
	}
	if total := s.Total(); total != 100 {
		return fmt.Errorf("strategy %s: weights sum to %d, want 100", s.ID, total)
	}
	return nil
}

func (s Strategy) clone() Strategy {
	weights := make(map[SignalName]int, len(s.Weights))
	for k, v := range s.Weights {
		weights[k] = v
	}
	s.Weights = weights
	return s
}

// DefaultStrategyID is active unless configured otherwise
const DefaultStrategyID = "balanced"

var builtinStrategies = []Strategy{
	{
		ID:          "balanced",
		Label:       "Balanced",
		Description: "Equal weight to quality, engagement, and market signals",
		Weights:     weights(40, 20, 15, 10, 15),
	},
	{
		ID:          "quality_focused",
		Label:       "Quality First",
		Description: "Prioritize high-quality, in-depth analysis",
		Weights:     weights(60, 10, 15, 5, 10),
	},
	{
		ID:          "trending",
		Label:       "Market Momentum",
		Description: "Focus on real-time market relevance and timeliness",
		Weights:     weights(25, 15, 10, 35, 15),
	},
	{
		ID:          "expert",
		Label:       "Expert Insights",
		Description: "Prioritize posts from high-reputation authors",
		Weights:     weights(35, 10, 35, 5, 15),
	},
	{
		ID:          "diverse",
		Label:       "Diverse Mix",
		Description: "Maximize variety across tickers and sectors",
		Weights:     weights(30, 20, 10, 15, 25),
	},
}

func weights(quality, engagement, reputation, market, recency int) map[SignalName]int {
	return map[SignalName]int{
		SignalQuality:    quality,
		SignalEngagement: engagement,
		SignalReputation: reputation,
		SignalMarket:     market,
		SignalRecency:    recency,
	}
}

// Registry is a fixed, ordered set of strategies
type Registry struct {
	order []string
	byID  map[string]Strategy
}

// NewRegistry validates strategies and indexes them by id
func NewRegistry(strategies []Strategy) (*Registry, error) {
	if len(strategies) == 0 {
		return nil, errors.New("registry needs at least one strategy")
	}
	r := &Registry{byID: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy id %s", s.ID)
		}
		r.order = append(r.order, s.ID)
		r.byID[s.ID] = s.clone()
	}
	return r, nil
}

// DefaultRegistry returns the built-in strategy table
func DefaultRegistry() *Registry {
	r, err := NewRegistry(builtinStrategies)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in strategies: %v", err))
	}
	return r
}

// List returns every strategy in table order
func (r *Registry) List() []Strategy {
	out := make([]Strategy, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].clone())
	}
	return out
}

// IDs returns strategy ids in table order
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Get looks up a strategy by id
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.byID[id]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
	}
	return s.clone(), nil
}

// Default returns the balanced strategy, or the first one registered
func (r *Registry) Default() Strategy {
	if s, ok := r.byID[DefaultStrategyID]; ok {
		return s.clone()
	}
	return r.byID[r.order[0]].clone()
}
