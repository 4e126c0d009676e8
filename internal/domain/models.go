// Package domain provides core domain models and types.
package domain

import "time"

// Signal represents a directional call derived from one or more indicators
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// RecommendationRating is an analyst consensus rating
type RecommendationRating string

const (
	RatingBuy  RecommendationRating = "buy"
	RatingHold RecommendationRating = "hold"
	RatingSell RecommendationRating = "sell"
)

// RiskProfile controls position-sizing ceilings and rebalancing tilt
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// Valid reports whether the profile is one of the known values
func (p RiskProfile) Valid() bool {
	switch p {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// RiskLevel is a qualitative risk bucket
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// PricePoint is one bar of daily OHLCV history.
// Sequences are ordered ascending by date with no duplicate dates and are
// never mutated after being fetched.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Quote is the latest traded price for a symbol
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Recommendation is an analyst consensus record for one symbol
type Recommendation struct {
	Rating            RecommendationRating `json:"recommendation"`
	NumberOfAnalysts  int                  `json:"number_of_analysts"`
	TargetLowPrice    float64              `json:"target_low_price"`
	TargetHighPrice   float64              `json:"target_high_price"`
	TargetMeanPrice   float64              `json:"target_mean_price"`
	TargetMedianPrice float64              `json:"target_median_price"`
	PotentialReturn   float64              `json:"potential_return"` // Percent upside to mean target
	Confidence        float64              `json:"confidence"`       // 0-100
	LastUpdated       time.Time            `json:"last_updated"`
}

// DefaultRecommendationConfidence is used when the recommendation source
// cannot supply data for a symbol.
const DefaultRecommendationConfidence = 20.0

// DefaultRecommendation is the low-confidence substitute used when a
// per-symbol recommendation lookup fails.
func DefaultRecommendation() Recommendation {
	return Recommendation{
		Rating:      RatingHold,
		Confidence:  DefaultRecommendationConfidence,
		LastUpdated: time.Now(),
	}
}

// Holding is one portfolio position as supplied by the portfolio store
type Holding struct {
	Symbol       string  `json:"symbol"`
	Shares       float64 `json:"shares"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
}

// MarketValue returns shares x current price
func (h Holding) MarketValue() float64 {
	return h.Shares * h.CurrentPrice
}
