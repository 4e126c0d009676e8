// Package yahoo provides the Yahoo Finance market-data and recommendation client.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/domain"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Analyst count above which recommendation confidence saturates.
const (
	recommendationBaseConfidence = 30.0
	recommendationPerAnalyst     = 5.0
	recommendationMaxConfidence  = 95.0
)

// Client is a Yahoo Finance API client. It implements domain.MarketDataSource
// and domain.RecommendationSource. Every call is bounded by the configured
// timeout; provider failures come back as ordinary errors for the engine to
// treat as per-symbol failures.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &Client{
		http: http,
		log:  log.With().Str("client", "yahoo").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(baseURL)
}

// GetHistory fetches daily OHLCV history for a symbol over the given range
// (1mo, 3mo, 6mo, 1y, 2y, 5y, max). The returned sequence is ascending by
// date with null bars dropped.
func (c *Client) GetHistory(ctx context.Context, symbol, rng string) ([]domain.PricePoint, error) {
	var result chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    rng,
		}).
		SetResult(&result).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart API returned status %d for %s", resp.StatusCode(), symbol)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return nil, nil
	}

	chartData := result.Chart.Result[0]
	quote := chartData.Indicators.Quote[0]

	points := make([]domain.PricePoint, 0, len(chartData.Timestamp))
	for i := range chartData.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}
		// Yahoo sometimes returns null bars encoded as zeros
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		var volume int64
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		points = append(points, domain.PricePoint{
			Date:   time.Unix(chartData.Timestamp[i], 0).UTC(),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("range", rng).
		Int("count", len(points)).
		Msg("Fetched historical prices")

	return points, nil
}

// GetQuote fetches the latest traded price for a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	result, err := c.getQuoteResult(ctx, symbol, "symbol,regularMarketPrice")
	if err != nil {
		return nil, err
	}
	if result.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("no valid price returned for %s", symbol)
	}

	return &domain.Quote{Symbol: symbol, Price: result.RegularMarketPrice}, nil
}

// GetRecommendation fetches the analyst consensus for a symbol and maps it
// to the engine's Recommendation record. Confidence grows with analyst
// coverage, saturating at 95.
func (c *Client) GetRecommendation(ctx context.Context, symbol string) (*domain.Recommendation, error) {
	result, err := c.getQuoteResult(ctx, symbol,
		"symbol,regularMarketPrice,recommendationKey,numberOfAnalystOpinions,"+
			"targetLowPrice,targetHighPrice,targetMeanPrice,targetMedianPrice")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecommendationUnavailable, err)
	}
	if result.RecommendationKey == "" || result.NumberOfAnalystOpinions == 0 {
		return nil, fmt.Errorf("%w: no analyst coverage for %s", domain.ErrRecommendationUnavailable, symbol)
	}

	potentialReturn := 0.0
	if result.RegularMarketPrice > 0 && result.TargetMeanPrice > 0 {
		potentialReturn = (result.TargetMeanPrice - result.RegularMarketPrice) / result.RegularMarketPrice * 100
	}

	confidence := recommendationBaseConfidence + recommendationPerAnalyst*float64(result.NumberOfAnalystOpinions)
	if confidence > recommendationMaxConfidence {
		confidence = recommendationMaxConfidence
	}

	return &domain.Recommendation{
		Rating:            mapRecommendationKey(result.RecommendationKey),
		NumberOfAnalysts:  result.NumberOfAnalystOpinions,
		TargetLowPrice:    result.TargetLowPrice,
		TargetHighPrice:   result.TargetHighPrice,
		TargetMeanPrice:   result.TargetMeanPrice,
		TargetMedianPrice: result.TargetMedianPrice,
		PotentialReturn:   potentialReturn,
		Confidence:        confidence,
		LastUpdated:       time.Now().UTC(),
	}, nil
}

func (c *Client) getQuoteResult(ctx context.Context, symbol, fields string) (*quoteResult, error) {
	var result quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": symbol,
			"fields":  fields,
		}).
		SetResult(&result).
		Get("/v7/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote API returned status %d for %s", resp.StatusCode(), symbol)
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error for %s: %s", symbol, result.QuoteResponse.Error.Description)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for %s", symbol)
	}

	return &result.QuoteResponse.Result[0], nil
}

// mapRecommendationKey collapses Yahoo's five-grade scale to buy/hold/sell
func mapRecommendationKey(key string) domain.RecommendationRating {
	switch strings.ToLower(key) {
	case "strong_buy", "strongbuy", "buy":
		return domain.RatingBuy
	case "strong_sell", "strongsell", "sell", "underperform":
		return domain.RatingSell
	default:
		return domain.RatingHold
	}
}
