package domain

import "context"

// MarketDataSource supplies price history and quotes.
// Implementations map provider failures (invalid symbol, rate limit, timeout,
// server error) to ordinary errors; the engine treats every one of them as a
// per-symbol failure.
type MarketDataSource interface {
	GetHistory(ctx context.Context, symbol, rng string) ([]PricePoint, error)
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// RecommendationSource supplies analyst consensus records. May fail per symbol.
type RecommendationSource interface {
	GetRecommendation(ctx context.Context, symbol string) (*Recommendation, error)
}

// PortfolioStore supplies the holdings consumed by the rebalancing analyzer.
// The engine never writes back to this store.
type PortfolioStore interface {
	GetHoldings(ctx context.Context) ([]Holding, error)
}
