package ranking

import (
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
)

// Tier buckets a signal value for display
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor maps a [0,1] value to its tier (>= 0.7 high, >= 0.4 medium)
func TierFor(value float64) Tier {
	pct := value * 100
	switch {
	case pct >= 70:
		return TierHigh
	case pct >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

// Factor is one line of a score breakdown
type Factor struct {
	Signal       Signal  `json:"signal"`
	Weight       int     `json:"weight"`
	Percent      float64 `json:"percent"`
	Contribution float64 `json:"contribution"`
	Tier         Tier    `json:"tier"`
}

// Explanation breaks a composite score down per factor
type Explanation struct {
	PostID   int64    `json:"post_id"`
	Strategy string   `json:"strategy"`
	Score    float64  `json:"score"`
	Factors  []Factor `json:"factors"`
}

// Ranked pairs a post with its composite score
type Ranked struct {
	Post  models.Post `json:"post"`
	Score float64     `json:"score"`
}

// Engine scores posts under the active strategy. Switching strategy swaps
// the weight map only and never touches signal extraction.
type Engine struct {
	registry  *Registry
	extractor Extractor
	active    atomic.Pointer[Strategy]
	logger    *zap.Logger
}

// NewEngine creates an engine with strategyID active
func NewEngine(registry *Registry, extractor Extractor, strategyID string, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		registry:  registry,
		extractor: extractor,
		logger:    logger,
	}
	if err := e.SetStrategy(strategyID); err != nil {
		return nil, err
	}
	return e, nil
}

// Registry returns the strategy table
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Extractor returns the signal extractor
func (e *Engine) Extractor() Extractor {
	return e.extractor
}

// Strategy returns the active strategy
func (e *Engine) Strategy() Strategy {
	return e.active.Load().clone()
}

// SetStrategy hot-swaps the active strategy
func (e *Engine) SetStrategy(id string) error {
	s, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	prev := e.active.Swap(&s)
	if prev == nil || prev.ID != s.ID {
		e.logger.Info("Ranking strategy activated", zap.String("strategy", s.ID))
	}
	metrics.SetActiveStrategy(s.ID, e.registry.IDs())
	return nil
}

// ScoreSignals is Σ value·weight, a composite in [0,100]
func ScoreSignals(signals []Signal, strategy Strategy) float64 {
	var score float64
	for _, sig := range signals {
		score += sig.Value * float64(strategy.Weights[sig.Name])
	}
	return score
}

// Score computes the composite score of post under strategy
func (e *Engine) Score(post models.Post, market *MarketContext, strategy Strategy) float64 {
	return ScoreSignals(e.extractor.Signals(post, market), strategy)
}

// ScoreActive scores post under the active strategy
func (e *Engine) ScoreActive(post models.Post, market *MarketContext) float64 {
	return e.Score(post, market, *e.active.Load())
}

// Explain breaks the active score of post down per factor
func (e *Engine) Explain(post models.Post, market *MarketContext) Explanation {
	strategy := *e.active.Load()
	signals := e.extractor.Signals(post, market)

	factors := make([]Factor, 0, len(signals))
	for _, sig := range signals {
		weight := strategy.Weights[sig.Name]
		factors = append(factors, Factor{
			Signal:       sig,
			Weight:       weight,
			Percent:      math.Round(sig.Value * 100),
			Contribution: sig.Value * float64(weight),
			Tier:         TierFor(sig.Value),
		})
	}

	return Explanation{
		PostID:   post.ID,
		Strategy: strategy.ID,
		Score:    ScoreSignals(signals, strategy),
		Factors:  factors,
	}
}

// Rank orders posts by active score, highest first; ties keep input order.
// markets is keyed by upper-case ticker and may be nil.
func (e *Engine) Rank(posts []models.Post, markets map[string]*MarketContext) []Ranked {
	strategy := *e.active.Load()

	ranked := make([]Ranked, len(posts))
	for i, post := range posts {
		ranked[i] = Ranked{
			Post:  post,
			Score: e.Score(post, markets[strings.ToUpper(post.Ticker)], strategy),
		}
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return ranked
}
