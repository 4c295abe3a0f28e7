// Package ranking computes the advisory client-side relevance score of a post
// from normalized signals weighted by a named strategy.
package ranking

import (
	"math"
	"time"

	"go-feed-sync/internal/models"
)

// SignalName identifies one ranking signal
type SignalName string

const (
	SignalQuality    SignalName = "quality"
	SignalEngagement SignalName = "engagement"
	SignalReputation SignalName = "reputation"
	SignalMarket     SignalName = "market"
	SignalRecency    SignalName = "recency"
)

// SignalNames lists every signal in display order
var SignalNames = []SignalName{SignalQuality, SignalEngagement, SignalReputation, SignalMarket, SignalRecency}

// Source is the classification of a signal
type Source string

const (
	SourceQuality    Source = "quality"
	SourceEngagement Source = "engagement"
	SourceReputation Source = "reputation"
	SourceMarket     Source = "market"
	SourceRecency    Source = "recency"
)

// Signal is a named value in [0,1]
type Signal struct {
	Name        SignalName `json:"name"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	Source      Source     `json:"source"`
}

type signalInfo struct {
	label       string
	description string
	source      Source
}

var signalCatalog = map[SignalName]signalInfo{
	SignalQuality:    {"Quality", "Content depth, clarity, and analytical rigor", SourceQuality},
	SignalEngagement: {"Engagement", "Community likes, helpful marks, sentiment signals", SourceEngagement},
	SignalReputation: {"Reputation", "Author credibility and historical accuracy", SourceReputation},
	SignalMarket:     {"Market Relevance", "Current market conditions and live data", SourceMarket},
	SignalRecency:    {"Timeliness", "How recent the insight was posted", SourceRecency},
}

// NewSignal builds a signal with its catalog label, clamping value to [0,1]
func NewSignal(name SignalName, value float64) Signal {
	info := signalCatalog[name]
	return Signal{
		Name:        name,
		Label:       info.label,
		Description: info.description,
		Value:       clamp(value),
		Source:      info.source,
	}
}

// MarketContext is the live market state relevant to a post's ticker
type MarketContext struct {
	VolumeSpike     bool
	PriceChange24h  float64
	VolumeChange24h float64
}

// Extractor turns raw entities into normalized signals. Now is the clock
// used for recency; nil uses time.Now.
type Extractor struct {
	Now func() time.Time
}

// Quality is quality_score / 100
func (e Extractor) Quality(post models.Post) float64 {
	return clamp(post.QualityScore / 100)
}

// Reputation is the author's reputation_score / 100, zero without an author
func (e Extractor) Reputation(post models.Post) float64 {
	if post.Author == nil {
		return 0
	}
	return clamp(post.Author.ReputationScore / 100)
}

// Engagement weighs likes, helpful marks and sentiment reactions
func (e Extractor) Engagement(post models.Post) float64 {
	raw := float64(post.LikeCount)*0.5 +
		float64(post.HelpfulCount)*1.0 +
		float64(post.BullishCount)*0.3 +
		float64(post.BearishCount)*0.3
	return clamp(raw / 50)
}

// Market sums indicator bonuses, capped at 1. No context scores zero.
func (e Extractor) Market(ctx *MarketContext) float64 {
	if ctx == nil {
		return 0
	}
	var score float64
	if ctx.VolumeSpike {
		score += 0.3
	}
	if math.Abs(ctx.PriceChange24h) > 3 {
		score += 0.3
	}
	if math.Abs(ctx.VolumeChange24h) > 30 {
		score += 0.2
	}
	return math.Min(score, 1)
}

// Recency steps down with the post's age; an unknown age scores 0.5
func (e Extractor) Recency(post models.Post) float64 {
	if post.CreatedAt == nil || post.CreatedAt.IsZero() {
		return 0.5
	}
	return RecencyForAge(e.now().Sub(post.CreatedAt.Time))
}

// RecencyForAge is the recency step function
func RecencyForAge(age time.Duration) float64 {
	hours := age.Hours()
	switch {
	case hours < 1:
		return 1.0
	case hours < 6:
		return 0.8
	case hours < 24:
		return 0.5
	case hours < 48:
		return 0.3
	default:
		return 0.1
	}
}

// Signals extracts every signal of post in display order
func (e Extractor) Signals(post models.Post, market *MarketContext) []Signal {
	return []Signal{
		NewSignal(SignalQuality, e.Quality(post)),
		NewSignal(SignalEngagement, e.Engagement(post)),
		NewSignal(SignalReputation, e.Reputation(post)),
		NewSignal(SignalMarket, e.Market(market)),
		NewSignal(SignalRecency, e.Recency(post)),
	}
}

func (e Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
