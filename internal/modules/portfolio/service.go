package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/domain"
)

// Service exposes holdings with freshly quoted prices. It satisfies
// domain.PortfolioStore for the rebalancing analyzer.
type Service struct {
	repo       *Repository
	marketData domain.MarketDataSource
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	repo *Repository,
	marketData domain.MarketDataSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		marketData: marketData,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// GetHoldings returns all holdings with current prices refreshed from the
// market-data source. A failed quote keeps the stored price; refresh is
// best-effort and never fails the read.
func (s *Service) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	holdings, err := s.repo.GetHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	for i, h := range holdings {
		quote, err := s.marketData.GetQuote(ctx, h.Symbol)
		if err != nil || quote == nil || quote.Price <= 0 {
			s.log.Debug().Err(err).Str("symbol", h.Symbol).Msg("Quote refresh failed, keeping stored price")
			continue
		}
		holdings[i].CurrentPrice = quote.Price
		if err := s.repo.UpdatePrice(ctx, h.Symbol, quote.Price); err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to persist refreshed price")
		}
	}

	return holdings, nil
}
