package rebalancing

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kpetrou/signalfolio/internal/domain"
)

// Rebalancing constants.
const (
	// Allocation drift (percentage points) inside which a holding reads as
	// balanced and no trade is suggested.
	balanceTolerancePct = 2.0

	// Suggested share quantities are rounded to this many decimal places.
	// Fractional shares are allowed; four places covers every broker
	// increment we target.
	sharesRoundPlaces = 4

	// Tilt applied to the equal-weight baseline per recommendation: a buy
	// tilts a symbol's target up by at most buyTiltCap, a sell tilts it
	// down by sellTilt, both scaled by recommendation confidence and the
	// profile's tilt scale.
	buyTiltCap = 0.50
	sellTilt   = 0.30

	// Priority thresholds on |drift| in percentage points
	highPriorityDrift   = 10.0
	mediumPriorityDrift = 5.0
	highPriorityMinConf = 70.0

	// Summary risk thresholds
	balancedScoreMin      = 80.0
	moderateScoreMin      = 50.0
	concentrationLimitPct = 50.0
)

// tiltScale returns how aggressively a profile leans into recommendations
func tiltScale(profile domain.RiskProfile) float64 {
	switch profile {
	case domain.RiskConservative:
		return 0.5
	case domain.RiskAggressive:
		return 1.5
	default:
		return 1.0
	}
}

// Service computes rebalancing reports. Pure computation over a portfolio
// snapshot - it never writes back to the portfolio store.
type Service struct {
	portfolio       domain.PortfolioStore
	recommendations domain.RecommendationSource
	log             zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(
	portfolio domain.PortfolioStore,
	recommendations domain.RecommendationSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolio:       portfolio,
		recommendations: recommendations,
		log:             log.With().Str("service", "rebalancing").Logger(),
	}
}

// AnalyzeRebalancing builds the full rebalancing report for the current
// portfolio under a risk profile (default moderate).
//
// An unknown risk profile fails the whole call with
// domain.ErrInvalidConfiguration. Per-symbol recommendation failures degrade
// to the low-confidence hold default and never abort the analysis.
func (s *Service) AnalyzeRebalancing(ctx context.Context, profile domain.RiskProfile) (*Report, error) {
	if profile == "" {
		profile = domain.RiskModerate
	}
	if !profile.Valid() {
		return nil, fmt.Errorf("%w: unknown risk profile %q", domain.ErrInvalidConfiguration, profile)
	}

	holdings, err := s.portfolio.GetHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	totalValue := 0.0
	for _, h := range holdings {
		totalValue += h.MarketValue()
	}

	currentAllocations := calculateCurrentAllocations(holdings, totalValue)

	// Empty portfolio is terminal: nothing to target, nothing to trade
	if totalValue == 0 {
		return &Report{
			TotalValue:         totalValue,
			CurrentAllocations: currentAllocations,
			TargetAllocations:  []TargetAllocation{},
			Suggestions:        []Suggestion{},
			Summary: Summary{
				RebalancingScore: 100,
				RiskLevel:        domain.RiskLevelLow,
			},
		}, nil
	}

	recommendations := s.fetchRecommendations(ctx, holdings)
	targetAllocations := calculateTargetAllocations(holdings, recommendations, profile)
	suggestions := generateSuggestions(holdings, currentAllocations, targetAllocations, recommendations, totalValue)
	summary := calculateSummary(suggestions, currentAllocations)

	s.log.Info().
		Int("holdings", len(holdings)).
		Float64("total_value", totalValue).
		Float64("score", summary.RebalancingScore).
		Str("profile", string(profile)).
		Msg("Rebalancing analysis complete")

	return &Report{
		TotalValue:         totalValue,
		CurrentAllocations: currentAllocations,
		TargetAllocations:  targetAllocations,
		Suggestions:        suggestions,
		Summary:            summary,
	}, nil
}

// calculateCurrentAllocations computes value and portfolio share per holding.
// With a zero total the percentage is left nil rather than dividing by zero.
func calculateCurrentAllocations(holdings []domain.Holding, totalValue float64) []Allocation {
	allocations := make([]Allocation, 0, len(holdings))
	for _, h := range holdings {
		alloc := Allocation{Symbol: h.Symbol, Value: h.MarketValue()}
		if totalValue > 0 {
			pct := 100 * alloc.Value / totalValue
			alloc.AllocationPct = &pct
		}
		allocations = append(allocations, alloc)
	}
	return allocations
}

// fetchRecommendations looks up the analyst consensus per symbol,
// substituting the low-confidence hold default on any per-symbol failure.
func (s *Service) fetchRecommendations(ctx context.Context, holdings []domain.Holding) map[string]domain.Recommendation {
	recs := make(map[string]domain.Recommendation, len(holdings))
	for _, h := range holdings {
		rec, err := s.recommendations.GetRecommendation(ctx, h.Symbol)
		if err != nil || rec == nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Recommendation lookup failed, using hold default")
			recs[h.Symbol] = domain.DefaultRecommendation()
			continue
		}
		recs[h.Symbol] = *rec
	}
	return recs
}

// calculateTargetAllocations starts from an equal-weight baseline, tilts each
// symbol by its recommendation (up for buys, down for sells, magnitude
// growing with potential return and confidence, scaled by the profile), then
// renormalizes so targets sum to 100.
func calculateTargetAllocations(
	holdings []domain.Holding,
	recommendations map[string]domain.Recommendation,
	profile domain.RiskProfile,
) []TargetAllocation {
	if len(holdings) == 0 {
		return []TargetAllocation{}
	}

	scale := tiltScale(profile)
	baseline := 100.0 / float64(len(holdings))

	weights := make([]float64, len(holdings))
	weightSum := 0.0
	for i, h := range holdings {
		rec := recommendations[h.Symbol]
		weight := baseline
		confFrac := rec.Confidence / 100

		switch rec.Rating {
		case domain.RatingBuy:
			tilt := math.Min(buyTiltCap, math.Max(0, rec.PotentialReturn/100)*confFrac)
			weight *= 1 + scale*tilt
		case domain.RatingSell:
			weight *= 1 - scale*sellTilt*confFrac
		}
		if weight < 0 {
			weight = 0
		}
		weights[i] = weight
		weightSum += weight
	}

	targets := make([]TargetAllocation, len(holdings))
	for i, h := range holdings {
		target := 0.0
		if weightSum > 0 {
			target = 100 * weights[i] / weightSum
		}
		targets[i] = TargetAllocation{Symbol: h.Symbol, TargetAllocation: target}
	}
	return targets
}

// generateSuggestions derives one trade suggestion per holding from the
// drift between current and target allocation.
func generateSuggestions(
	holdings []domain.Holding,
	current []Allocation,
	targets []TargetAllocation,
	recommendations map[string]domain.Recommendation,
	totalValue float64,
) []Suggestion {
	currentBySymbol := make(map[string]float64, len(current))
	for _, a := range current {
		if a.AllocationPct != nil {
			currentBySymbol[a.Symbol] = *a.AllocationPct
		}
	}
	targetBySymbol := make(map[string]float64, len(targets))
	for _, t := range targets {
		targetBySymbol[t.Symbol] = t.TargetAllocation
	}

	suggestions := make([]Suggestion, 0, len(holdings))
	for _, h := range holdings {
		currentPct := currentBySymbol[h.Symbol]
		targetPct := targetBySymbol[h.Symbol]
		delta := targetPct - currentPct
		rec := recommendations[h.Symbol]

		sug := Suggestion{
			Symbol:              h.Symbol,
			CurrentAllocation:   currentPct,
			SuggestedAllocation: targetPct,
			Confidence:          rec.Confidence,
		}

		if math.Abs(delta) <= balanceTolerancePct {
			sug.Action = ActionHold
			sug.Reason = fmt.Sprintf("within %.1f points of target", balanceTolerancePct)
			sug.Priority = PriorityLow
			suggestions = append(suggestions, sug)
			continue
		}

		tradeValue := delta / 100 * totalValue
		sug.SharesToTrade = roundShares(tradeValue, h.CurrentPrice)
		sug.EstimatedValue = math.Abs(tradeValue)
		sug.Priority = suggestionPriority(delta, rec.Confidence)

		if delta > 0 {
			sug.Action = ActionBuy
			sug.Reason = fmt.Sprintf("underweight by %.1f points (%s consensus)", delta, rec.Rating)
		} else {
			sug.Action = ActionSell
			sug.Reason = fmt.Sprintf("overweight by %.1f points (%s consensus)", -delta, rec.Rating)
		}

		suggestions = append(suggestions, sug)
	}
	return suggestions
}

// roundShares converts a signed trade value into a share count at the current
// price, rounded half-up to the minimum tradable increment.
func roundShares(tradeValue, price float64) float64 {
	if price <= 0 {
		return 0
	}
	shares := decimal.NewFromFloat(tradeValue).
		Div(decimal.NewFromFloat(price)).
		Round(sharesRoundPlaces)
	f, _ := shares.Float64()
	return f
}

// suggestionPriority grows with drift magnitude and recommendation confidence
func suggestionPriority(delta, confidence float64) Priority {
	drift := math.Abs(delta)
	switch {
	case drift >= highPriorityDrift:
		return PriorityHigh
	case drift >= mediumPriorityDrift && confidence >= highPriorityMinConf:
		return PriorityHigh
	case drift >= mediumPriorityDrift:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// calculateSummary aggregates suggestions into a portfolio-level score.
//
// The score is 100 minus the total absolute drift, floored at 0, so a
// portfolio with no out-of-tolerance drift scores exactly 100. Risk level
// combines the score with concentration (largest single-holding allocation).
func calculateSummary(suggestions []Suggestion, current []Allocation) Summary {
	totalBuy := 0.0
	totalSell := 0.0
	totalDrift := 0.0
	hasTrades := false
	for _, sug := range suggestions {
		switch sug.Action {
		case ActionBuy:
			totalBuy += sug.EstimatedValue
			hasTrades = true
		case ActionSell:
			totalSell += sug.EstimatedValue
			hasTrades = true
		}
		totalDrift += math.Abs(sug.SuggestedAllocation - sug.CurrentAllocation)
	}

	score := 100.0
	if hasTrades {
		score = math.Max(0, 100-totalDrift)
	}

	maxAllocation := 0.0
	for _, a := range current {
		if a.AllocationPct != nil && *a.AllocationPct > maxAllocation {
			maxAllocation = *a.AllocationPct
		}
	}

	risk := domain.RiskLevelHigh
	switch {
	case score >= balancedScoreMin && maxAllocation <= concentrationLimitPct:
		risk = domain.RiskLevelLow
	case score >= balancedScoreMin:
		risk = domain.RiskLevelMedium
	case score >= moderateScoreMin:
		risk = domain.RiskLevelMedium
	}

	return Summary{
		TotalBuyValue:    totalBuy,
		TotalSellValue:   totalSell,
		RebalancingScore: score,
		RiskLevel:        risk,
	}
}
