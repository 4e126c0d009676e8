package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kpetrou/signalfolio/internal/domain"
)

// Position-sizing constants per risk profile, in percent of portfolio.
// The ceiling is independent of confidence; the recommendation scales with
// confidence underneath it.
const (
	maxPositionConservative = 5.0
	maxPositionModerate     = 10.0
	maxPositionAggressive   = 15.0

	// Below this confidence no allocation is recommended
	minConfidenceForAllocation = 40.0
)

// Risk-level thresholds
const (
	lowRiskMinConfidence  = 70.0
	highRiskMaxConfidence = 40.0
	lowRiskMaxOpposition  = 0.20 // Share of indicators directly opposing the call
	highRiskMinOpposition = 0.40
	lowRiskMaxVolatility  = 0.25 // Annualized close-to-close volatility
	highRiskMinVolatility = 0.45

	tradingDaysPerYear = 252
)

// MaxPositionSize returns the allocation ceiling for a risk profile
func MaxPositionSize(profile domain.RiskProfile) (float64, error) {
	switch profile {
	case domain.RiskConservative:
		return maxPositionConservative, nil
	case domain.RiskModerate:
		return maxPositionModerate, nil
	case domain.RiskAggressive:
		return maxPositionAggressive, nil
	}
	return 0, fmt.Errorf("%w: unknown risk profile %q", domain.ErrInvalidConfiguration, profile)
}

// AdvisePosition proposes a recommended allocation, a ceiling, and a
// qualitative risk level for the aggregated signal.
//
// The recommendation is 0 for a sell call or when confidence is below the
// minimum threshold; otherwise it scales linearly with confidence up to the
// profile ceiling, so it can never exceed MaxPositionSize.
func AdvisePosition(
	overall domain.Signal,
	confidence float64,
	indicators []TechnicalIndicator,
	points []domain.PricePoint,
	profile domain.RiskProfile,
) (PositionSizing, error) {
	if profile == "" {
		profile = domain.RiskModerate
	}

	maxPosition, err := MaxPositionSize(profile)
	if err != nil {
		return PositionSizing{}, err
	}

	recommended := 0.0
	if overall != domain.SignalSell && confidence >= minConfidenceForAllocation {
		recommended = maxPosition * confidence / 100
	}

	return PositionSizing{
		RecommendedAllocation: recommended,
		MaxPositionSize:       maxPosition,
		RiskLevel:             riskLevel(overall, confidence, indicators, points),
	}, nil
}

// riskLevel buckets risk from confidence, indicator disagreement and realized
// volatility. Low confidence or heavy disagreement always reads as higher
// risk even when volatility is tame.
func riskLevel(
	overall domain.Signal,
	confidence float64,
	indicators []TechnicalIndicator,
	points []domain.PricePoint,
) domain.RiskLevel {
	opposition := oppositionShare(overall, indicators)
	vol := AnnualizedVolatility(points)

	if confidence < highRiskMaxConfidence || opposition > highRiskMinOpposition || vol > highRiskMinVolatility {
		return domain.RiskLevelHigh
	}
	if confidence >= lowRiskMinConfidence && opposition < lowRiskMaxOpposition && vol < lowRiskMaxVolatility {
		return domain.RiskLevelLow
	}
	return domain.RiskLevelMedium
}

// oppositionShare is the fraction of indicators calling the opposite
// direction of the overall signal. Neutral readings do not count as
// opposition, and a neutral overall has none.
func oppositionShare(overall domain.Signal, indicators []TechnicalIndicator) float64 {
	if len(indicators) == 0 || overall == domain.SignalNeutral {
		return 0
	}
	opposite := domain.SignalSell
	if overall == domain.SignalSell {
		opposite = domain.SignalBuy
	}
	opposed := 0
	for _, ind := range indicators {
		if ind.Signal == opposite {
			opposed++
		}
	}
	return float64(opposed) / float64(len(indicators))
}

// AnnualizedVolatility computes the annualized standard deviation of daily
// log returns. Returns 0 for series too short to measure.
func AnnualizedVolatility(points []domain.PricePoint) float64 {
	if len(points) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Close, points[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}

	return stat.StdDev(returns, nil) * math.Sqrt(tradingDaysPerYear)
}
