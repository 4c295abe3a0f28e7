package views

import (
	"go-feed-sync/internal/ranking"
)

// StrategyOption is one row of the strategy picker
type StrategyOption struct {
	ranking.Strategy
	Active bool `json:"active"`
}

// StrategyPanel lists the ranking strategies and switches the active one.
// Switching never triggers a network call; scores are recomputed on read.
type StrategyPanel struct {
	engine *ranking.Engine
}

// NewStrategyPanel creates the panel over engine
func NewStrategyPanel(engine *ranking.Engine) *StrategyPanel {
	return &StrategyPanel{engine: engine}
}

// Options lists every strategy with the active one flagged
func (p *StrategyPanel) Options() []StrategyOption {
	active := p.engine.Strategy().ID
	list := p.engine.Registry().List()

	out := make([]StrategyOption, 0, len(list))
	for _, s := range list {
		out = append(out, StrategyOption{Strategy: s, Active: s.ID == active})
	}
	return out
}

// Active returns the active strategy
func (p *StrategyPanel) Active() ranking.Strategy {
	return p.engine.Strategy()
}

// Select activates strategy id
func (p *StrategyPanel) Select(id string) error {
	return p.engine.SetStrategy(id)
}
