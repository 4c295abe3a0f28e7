package ranking

import (
	"math"

	"go-feed-sync/internal/models"
)

// BadgeType classifies a market intelligence badge
type BadgeType string

const (
	BadgeVolumeSpike BadgeType = "volume_spike"
	BadgePriceMove   BadgeType = "price_move"
	BadgeVolatility  BadgeType = "volatility"
)

// Badge is a live market indicator shown next to a ticker
type Badge struct {
	Type  BadgeType `json:"type"`
	Label string    `json:"label"`
}

// VolumeSpike reports a 24h volume change beyond ±50%
func VolumeSpike(snap models.MarketSnapshot) bool {
	return math.Abs(snap.VolumeChange24h) > 50
}

// MarketContextFromSnapshot derives the ranking context of a live snapshot
func MarketContextFromSnapshot(snap models.MarketSnapshot) *MarketContext {
	return &MarketContext{
		VolumeSpike:     VolumeSpike(snap),
		PriceChange24h:  snap.PriceChange24h,
		VolumeChange24h: snap.VolumeChange24h,
	}
}

// Badges lists the indicators triggered by a snapshot
func Badges(snap models.MarketSnapshot) []Badge {
	var badges []Badge
	if VolumeSpike(snap) {
		badges = append(badges, Badge{Type: BadgeVolumeSpike, Label: "Volume Spike"})
	}
	if math.Abs(snap.PriceChange24h) > 3 {
		label := "Breaking Down"
		if snap.PriceChange24h > 0 {
			label = "Breaking Out"
		}
		badges = append(badges, Badge{Type: BadgePriceMove, Label: label})
	}
	if math.Abs(snap.PriceChange24h) > 5 {
		badges = append(badges, Badge{Type: BadgeVolatility, Label: "High Volatility"})
	}
	return badges
}
