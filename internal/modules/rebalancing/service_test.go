package rebalancing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpetrou/signalfolio/internal/domain"
)

type fakePortfolio struct {
	holdings []domain.Holding
	err      error
}

func (f *fakePortfolio) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	return f.holdings, f.err
}

type fakeRecommendations struct {
	recs map[string]domain.Recommendation
	err  error
}

func (f *fakeRecommendations) GetRecommendation(ctx context.Context, symbol string) (*domain.Recommendation, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.recs[symbol]
	if !ok {
		return nil, domain.ErrRecommendationUnavailable
	}
	return &rec, nil
}

func newTestService(portfolio *fakePortfolio, recs *fakeRecommendations) *Service {
	return NewService(portfolio, recs, zerolog.Nop())
}

func TestAnalyzeRebalancingEmptyPortfolio(t *testing.T) {
	svc := newTestService(&fakePortfolio{}, &fakeRecommendations{})

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)

	assert.Zero(t, report.TotalValue)
	assert.Empty(t, report.CurrentAllocations)
	assert.Empty(t, report.TargetAllocations)
	assert.Empty(t, report.Suggestions)
	assert.Equal(t, 100.0, report.Summary.RebalancingScore)
	assert.Equal(t, domain.RiskLevelLow, report.Summary.RiskLevel)
}

func TestAnalyzeRebalancingInvalidProfile(t *testing.T) {
	svc := newTestService(&fakePortfolio{}, &fakeRecommendations{})

	_, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskProfile("yolo"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

func TestAnalyzeRebalancingCurrentAllocations(t *testing.T) {
	portfolio := &fakePortfolio{holdings: []domain.Holding{
		{Symbol: "AAPL", Shares: 100, CurrentPrice: 175.50},
		{Symbol: "MSFT", Shares: 50, CurrentPrice: 350.00},
	}}
	recs := &fakeRecommendations{recs: map[string]domain.Recommendation{
		"AAPL": {Rating: domain.RatingHold, Confidence: 60},
		"MSFT": {Rating: domain.RatingHold, Confidence: 60},
	}}
	svc := newTestService(portfolio, recs)

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)

	assert.InDelta(t, 35050.0, report.TotalValue, 1e-9)
	require.Len(t, report.CurrentAllocations, 2)
	require.NotNil(t, report.CurrentAllocations[0].AllocationPct)
	require.NotNil(t, report.CurrentAllocations[1].AllocationPct)
	assert.InDelta(t, 50.07, *report.CurrentAllocations[0].AllocationPct, 0.01)
	assert.InDelta(t, 49.93, *report.CurrentAllocations[1].AllocationPct, 0.01)

	// Two equal-weight holds within tolerance: nothing to trade
	for _, sug := range report.Suggestions {
		assert.Equal(t, ActionHold, sug.Action)
	}
	assert.Equal(t, 100.0, report.Summary.RebalancingScore)
}

func TestAnalyzeRebalancingDriftGeneratesTrades(t *testing.T) {
	// 70/30 split against an equal-weight baseline with neutral consensus
	portfolio := &fakePortfolio{holdings: []domain.Holding{
		{Symbol: "KO", Shares: 700, CurrentPrice: 100},
		{Symbol: "PEP", Shares: 300, CurrentPrice: 100},
	}}
	recs := &fakeRecommendations{recs: map[string]domain.Recommendation{
		"KO":  {Rating: domain.RatingHold, Confidence: 50},
		"PEP": {Rating: domain.RatingHold, Confidence: 50},
	}}
	svc := newTestService(portfolio, recs)

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)
	require.Len(t, report.Suggestions, 2)

	var ko, pep Suggestion
	for _, sug := range report.Suggestions {
		switch sug.Symbol {
		case "KO":
			ko = sug
		case "PEP":
			pep = sug
		}
	}

	assert.Equal(t, ActionSell, ko.Action)
	assert.Equal(t, ActionBuy, pep.Action)
	assert.Equal(t, PriorityHigh, ko.Priority) // 20 point drift
	assert.Equal(t, PriorityHigh, pep.Priority)

	// 20% of a 100k portfolio at 100/share is 200 shares each way
	assert.InDelta(t, -200, ko.SharesToTrade, 1e-6)
	assert.InDelta(t, 200, pep.SharesToTrade, 1e-6)
	assert.InDelta(t, 20000, ko.EstimatedValue, 1e-6)
	assert.InDelta(t, 20000, pep.EstimatedValue, 1e-6)

	assert.InDelta(t, 20000, report.Summary.TotalBuyValue, 1e-6)
	assert.InDelta(t, 20000, report.Summary.TotalSellValue, 1e-6)
	assert.InDelta(t, 60, report.Summary.RebalancingScore, 1e-6)
	assert.Equal(t, domain.RiskLevelMedium, report.Summary.RiskLevel)
}

func TestAnalyzeRebalancingAllRecommendationsFail(t *testing.T) {
	portfolio := &fakePortfolio{holdings: []domain.Holding{
		{Symbol: "T", Shares: 10, CurrentPrice: 20},
		{Symbol: "VZ", Shares: 10, CurrentPrice: 40},
	}}
	recs := &fakeRecommendations{err: errors.New("upstream down")}
	svc := newTestService(portfolio, recs)

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)

	// Analysis degrades to hold defaults rather than failing
	require.Len(t, report.Suggestions, 2)
	for _, sug := range report.Suggestions {
		assert.Equal(t, domain.DefaultRecommendationConfidence, sug.Confidence)
	}
	require.Len(t, report.TargetAllocations, 2)
	// Hold defaults mean no tilt: targets stay equal-weight
	assert.InDelta(t, 50, report.TargetAllocations[0].TargetAllocation, 1e-9)
	assert.InDelta(t, 50, report.TargetAllocations[1].TargetAllocation, 1e-9)
}

func TestAnalyzeRebalancingBuyTilt(t *testing.T) {
	portfolio := &fakePortfolio{holdings: []domain.Holding{
		{Symbol: "GROW", Shares: 50, CurrentPrice: 100},
		{Symbol: "FLAT", Shares: 50, CurrentPrice: 100},
	}}
	recs := &fakeRecommendations{recs: map[string]domain.Recommendation{
		"GROW": {Rating: domain.RatingBuy, Confidence: 80, PotentialReturn: 25},
		"FLAT": {Rating: domain.RatingHold, Confidence: 50},
	}}
	svc := newTestService(portfolio, recs)

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)

	targets := make(map[string]float64)
	sum := 0.0
	for _, tgt := range report.TargetAllocations {
		targets[tgt.Symbol] = tgt.TargetAllocation
		sum += tgt.TargetAllocation
	}
	assert.InDelta(t, 100, sum, 1e-9)
	assert.Greater(t, targets["GROW"], targets["FLAT"])
}

func TestAnalyzeRebalancingSellTilt(t *testing.T) {
	portfolio := &fakePortfolio{holdings: []domain.Holding{
		{Symbol: "DUMP", Shares: 50, CurrentPrice: 100},
		{Symbol: "KEEP", Shares: 50, CurrentPrice: 100},
	}}
	recs := &fakeRecommendations{recs: map[string]domain.Recommendation{
		"DUMP": {Rating: domain.RatingSell, Confidence: 90},
		"KEEP": {Rating: domain.RatingHold, Confidence: 50},
	}}
	svc := newTestService(portfolio, recs)

	report, err := svc.AnalyzeRebalancing(context.Background(), domain.RiskModerate)
	require.NoError(t, err)

	targets := make(map[string]float64)
	for _, tgt := range report.TargetAllocations {
		targets[tgt.Symbol] = tgt.TargetAllocation
	}
	assert.Less(t, targets["DUMP"], targets["KEEP"])
}

func TestAnalyzeRebalancingProfileScalesTilt(t *testing.T) {
	holdings := []domain.Holding{
		{Symbol: "GROW", Shares: 50, CurrentPrice: 100},
		{Symbol: "FLAT", Shares: 50, CurrentPrice: 100},
	}
	recs := &fakeRecommendations{recs: map[string]domain.Recommendation{
		"GROW": {Rating: domain.RatingBuy, Confidence: 80, PotentialReturn: 20},
		"FLAT": {Rating: domain.RatingHold, Confidence: 50},
	}}

	growTarget := func(profile domain.RiskProfile) float64 {
		svc := newTestService(&fakePortfolio{holdings: holdings}, recs)
		report, err := svc.AnalyzeRebalancing(context.Background(), profile)
		require.NoError(t, err)
		for _, tgt := range report.TargetAllocations {
			if tgt.Symbol == "GROW" {
				return tgt.TargetAllocation
			}
		}
		t.Fatal("GROW target missing")
		return 0
	}

	conservative := growTarget(domain.RiskConservative)
	moderate := growTarget(domain.RiskModerate)
	aggressive := growTarget(domain.RiskAggressive)

	assert.Less(t, conservative, moderate)
	assert.Less(t, moderate, aggressive)
}

func TestAnalyzeRebalancingPortfolioError(t *testing.T) {
	svc := newTestService(&fakePortfolio{err: errors.New("db locked")}, &fakeRecommendations{})

	_, err := svc.AnalyzeRebalancing(context.Background(), "")
	require.Error(t, err)
}

func TestRoundShares(t *testing.T) {
	tests := []struct {
		name       string
		tradeValue float64
		price      float64
		expected   float64
	}{
		{"whole shares", 1000, 100, 10},
		{"fractional rounds to four places", 100, 3, 33.3333},
		{"negative for sells", -1000, 100, -10},
		{"zero price guards division", 500, 0, 0},
		{"negative price guards", 500, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, roundShares(tt.tradeValue, tt.price), 1e-9)
		})
	}
}

func TestSuggestionPriority(t *testing.T) {
	tests := []struct {
		name       string
		delta      float64
		confidence float64
		expected   Priority
	}{
		{"large drift is high", 12, 10, PriorityHigh},
		{"large negative drift is high", -15, 10, PriorityHigh},
		{"medium drift with conviction is high", 6, 75, PriorityHigh},
		{"medium drift without conviction is medium", 6, 50, PriorityMedium},
		{"small drift is low", 3, 95, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, suggestionPriority(tt.delta, tt.confidence))
		})
	}
}

func TestCalculateSummaryConcentration(t *testing.T) {
	// Balanced but concentrated: score stays high, risk does not drop to low
	pct60 := 60.0
	pct40 := 40.0
	current := []Allocation{
		{Symbol: "BIG", Value: 60000, AllocationPct: &pct60},
		{Symbol: "SMALL", Value: 40000, AllocationPct: &pct40},
	}
	suggestions := []Suggestion{
		{Symbol: "BIG", Action: ActionHold, CurrentAllocation: 60, SuggestedAllocation: 60},
		{Symbol: "SMALL", Action: ActionHold, CurrentAllocation: 40, SuggestedAllocation: 40},
	}

	summary := calculateSummary(suggestions, current)
	assert.Equal(t, 100.0, summary.RebalancingScore)
	assert.Equal(t, domain.RiskLevelMedium, summary.RiskLevel)
}

func TestCalculateSummaryHeavyDrift(t *testing.T) {
	suggestions := []Suggestion{
		{Symbol: "A", Action: ActionSell, CurrentAllocation: 90, SuggestedAllocation: 50, EstimatedValue: 40000},
		{Symbol: "B", Action: ActionBuy, CurrentAllocation: 10, SuggestedAllocation: 50, EstimatedValue: 40000},
	}
	pct90 := 90.0
	pct10 := 10.0
	current := []Allocation{
		{Symbol: "A", Value: 90000, AllocationPct: &pct90},
		{Symbol: "B", Value: 10000, AllocationPct: &pct10},
	}

	summary := calculateSummary(suggestions, current)
	assert.InDelta(t, 20, summary.RebalancingScore, 1e-9)
	assert.Equal(t, domain.RiskLevelHigh, summary.RiskLevel)
	assert.InDelta(t, 40000, summary.TotalBuyValue, 1e-9)
	assert.InDelta(t, 40000, summary.TotalSellValue, 1e-9)
}

func TestTargetAllocationsAlwaysSumToHundred(t *testing.T) {
	holdings := []domain.Holding{
		{Symbol: "A", Shares: 1, CurrentPrice: 100},
		{Symbol: "B", Shares: 2, CurrentPrice: 100},
		{Symbol: "C", Shares: 3, CurrentPrice: 100},
	}
	recs := map[string]domain.Recommendation{
		"A": {Rating: domain.RatingBuy, Confidence: 95, PotentialReturn: 60},
		"B": {Rating: domain.RatingSell, Confidence: 100},
		"C": {Rating: domain.RatingHold, Confidence: 40},
	}

	for _, profile := range []domain.RiskProfile{domain.RiskConservative, domain.RiskModerate, domain.RiskAggressive} {
		targets := calculateTargetAllocations(holdings, recs, profile)
		sum := 0.0
		for _, tgt := range targets {
			assert.False(t, math.IsNaN(tgt.TargetAllocation))
			assert.GreaterOrEqual(t, tgt.TargetAllocation, 0.0)
			sum += tgt.TargetAllocation
		}
		assert.InDelta(t, 100, sum, 1e-9)
	}
}
