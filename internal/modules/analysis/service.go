package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/cache"
	"github.com/kpetrou/signalfolio/internal/domain"
)

// Config holds orchestrator configuration
type Config struct {
	HistoryRange     string             // Market-data range fetched per analysis
	BatchConcurrency int                // Max in-flight symbol analyses
	RiskProfile      domain.RiskProfile // Profile used for position sizing
}

// Service orchestrates single and batch symbol analysis.
//
// Results are fronted by the analysis cache (read-through, uniform TTL) and
// written behind to the snapshot repository for the dashboard. The service
// holds no other state; price history is fetched per request and discarded.
type Service struct {
	marketData domain.MarketDataSource
	cache      *cache.Cache
	snapshots  *SnapshotRepository // Optional write-behind persistence
	cfg        Config
	log        zerolog.Logger
}

// NewService creates a new analysis orchestrator
func NewService(
	marketData domain.MarketDataSource,
	resultCache *cache.Cache,
	snapshots *SnapshotRepository,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	if cfg.HistoryRange == "" {
		cfg.HistoryRange = "1y"
	}
	if cfg.RiskProfile == "" {
		cfg.RiskProfile = domain.RiskModerate
	}
	return &Service{
		marketData: marketData,
		cache:      resultCache,
		snapshots:  snapshots,
		cfg:        cfg,
		log:        log.With().Str("service", "analysis").Logger(),
	}
}

// Analyze produces the full analysis record for one symbol.
//
// Within the cache TTL a repeat call returns the cached record unchanged.
// A collaborator that cannot supply any history fails the call with
// domain.ErrDataUnavailable.
func (s *Service) Analyze(ctx context.Context, symbol string) (*TechnicalAnalysis, error) {
	cacheKey := cache.NamespaceAnalysis + symbol

	var cached TechnicalAnalysis
	if err := s.cache.Get(cacheKey, &cached); err == nil {
		s.log.Debug().Str("symbol", symbol).Msg("Analysis served from cache")
		return &cached, nil
	}

	points, err := s.marketData.GetHistory(ctx, symbol, s.cfg.HistoryRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrDataUnavailable, symbol, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrDataUnavailable, symbol)
	}

	result, err := s.compute(symbol, points)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache analysis")
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(result); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist analysis snapshot")
		}
	}

	return result, nil
}

// compute runs the indicator -> signal -> sizing pipeline over a price series
func (s *Service) compute(symbol string, points []domain.PricePoint) (*TechnicalAnalysis, error) {
	set := CalculateIndicators(points)
	indicators := BuildIndicators(points, set)
	overall, buys, sells, neutrals, confidence := Aggregate(indicators)

	sizing, err := AdvisePosition(overall, confidence, indicators, points, s.cfg.RiskProfile)
	if err != nil {
		return nil, err
	}

	return &TechnicalAnalysis{
		Symbol:         symbol,
		CurrentPrice:   points[len(points)-1].Close,
		Indicators:     indicators,
		OverallSignal:  overall,
		BuySignals:     buys,
		SellSignals:    sells,
		NeutralSignals: neutrals,
		Confidence:     confidence,
		PositionSizing: sizing,
	}, nil
}

// BatchAnalyze analyzes all symbols concurrently with bounded parallelism.
// A failed symbol is logged and omitted; it never aborts the batch.
func (s *Service) BatchAnalyze(ctx context.Context, symbols []string) []TechnicalAnalysis {
	results := s.batchResults(ctx, symbols)

	analyses := make([]TechnicalAnalysis, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			s.log.Warn().Err(res.Err).Str("symbol", res.Symbol).Msg("Symbol analysis failed, omitting from batch")
			continue
		}
		analyses = append(analyses, *res.Analysis)
	}
	return analyses
}

// batchResults runs Analyze over all symbols through a bounded worker pool
// and collects one result variant per symbol, in input order.
func (s *Service) batchResults(ctx context.Context, symbols []string) []SymbolResult {
	if len(symbols) == 0 {
		return nil
	}

	numWorkers := s.cfg.BatchConcurrency
	if len(symbols) < numWorkers {
		numWorkers = len(symbols)
	}

	type job struct {
		index  int
		symbol string
	}
	jobs := make(chan job, len(symbols))
	results := make([]SymbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				analysis, err := s.Analyze(ctx, j.symbol)
				results[j.index] = SymbolResult{Symbol: j.symbol, Analysis: analysis, Err: err}
			}
		}()
	}

	for idx, symbol := range symbols {
		jobs <- job{index: idx, symbol: symbol}
	}
	close(jobs)
	wg.Wait()

	return results
}

// TopOpportunities filters analyses by overall signal, sorts by confidence
// descending (ties by higher recommended allocation, then symbol ascending
// for determinism) and truncates to limit.
func TopOpportunities(analyses []TechnicalAnalysis, signal domain.Signal, limit int) []TechnicalAnalysis {
	matches := make([]TechnicalAnalysis, 0, len(analyses))
	for _, a := range analyses {
		if a.OverallSignal == signal {
			matches = append(matches, a)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].PositionSizing.RecommendedAllocation != matches[j].PositionSizing.RecommendedAllocation {
			return matches[i].PositionSizing.RecommendedAllocation > matches[j].PositionSizing.RecommendedAllocation
		}
		return matches[i].Symbol < matches[j].Symbol
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Opportunities returns the ranked opportunity list for a signal across the
// given symbols, fronted by its own cache namespace so per-symbol
// invalidation leaves the lists untouched and vice versa.
func (s *Service) Opportunities(ctx context.Context, symbols []string, signal domain.Signal, limit int) ([]TechnicalAnalysis, error) {
	if signal != domain.SignalBuy && signal != domain.SignalSell {
		return nil, fmt.Errorf("%w: opportunity type must be buy or sell, got %q", domain.ErrInvalidConfiguration, signal)
	}

	cacheKey := opportunityCacheKey(signal, symbols)

	var ranked []TechnicalAnalysis
	if err := s.cache.Get(cacheKey, &ranked); err == nil {
		return truncate(ranked, limit), nil
	}

	analyses := s.BatchAnalyze(ctx, symbols)
	ranked = TopOpportunities(analyses, signal, 0)

	if err := s.cache.Set(cacheKey, ranked); err != nil {
		s.log.Warn().Err(err).Str("signal", string(signal)).Msg("Failed to cache opportunity list")
	}

	return truncate(ranked, limit), nil
}

// opportunityCacheKey keys the ranked list by signal and by the requested
// symbol universe, so two requests over different symbol sets never share a
// cache entry. Symbols are sorted before hashing so the key is order-independent.
func opportunityCacheKey(signal domain.Signal, symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	digest := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return cache.NamespaceOpportunities + string(signal) + ":" + hex.EncodeToString(digest[:8])
}

func truncate(analyses []TechnicalAnalysis, limit int) []TechnicalAnalysis {
	if limit > 0 && len(analyses) > limit {
		return analyses[:limit]
	}
	return analyses
}
