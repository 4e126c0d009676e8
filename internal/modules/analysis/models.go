// Package analysis implements the technical-signal engine: indicator
// calculation, signal aggregation, position sizing and the single/batch
// analysis orchestrator.
package analysis

import (
	"github.com/kpetrou/signalfolio/internal/domain"
)

// Indicator name constants. Tagged names keep the indicator -> signal mapping
// independently testable.
const (
	IndicatorRSI         = "RSI_14"
	IndicatorMACD        = "MACD_12_26_9"
	IndicatorSMA50       = "SMA_50"
	IndicatorSMA200      = "SMA_200"
	IndicatorTrend       = "SMA_CROSS_50_200"
	IndicatorStochastic  = "STOCH_K_14_3_3"
	IndicatorVolumeRatio = "VOLUME_RATIO_20"
)

// TechnicalIndicator is one indicator reading with its mapped signal.
// Produced fresh per analysis call and never mutated.
type TechnicalIndicator struct {
	Name        string        `json:"name" msgpack:"name"`
	Value       float64       `json:"value" msgpack:"value"`
	Signal      domain.Signal `json:"signal" msgpack:"signal"`
	Strength    float64       `json:"strength" msgpack:"strength"` // 0-100
	Description string        `json:"description" msgpack:"description"`
}

// PositionSizing is the advisor's output for one symbol
type PositionSizing struct {
	RecommendedAllocation float64          `json:"recommended_allocation" msgpack:"recommended_allocation"` // Percent of portfolio
	MaxPositionSize       float64          `json:"max_position_size" msgpack:"max_position_size"`           // Percent ceiling
	RiskLevel             domain.RiskLevel `json:"risk_level" msgpack:"risk_level"`
}

// TechnicalAnalysis is the full per-symbol analysis record
type TechnicalAnalysis struct {
	Symbol         string               `json:"symbol" msgpack:"symbol"`
	CurrentPrice   float64              `json:"current_price" msgpack:"current_price"`
	Indicators     []TechnicalIndicator `json:"indicators" msgpack:"indicators"`
	OverallSignal  domain.Signal        `json:"overall_signal" msgpack:"overall_signal"`
	BuySignals     int                  `json:"buy_signals" msgpack:"buy_signals"`
	SellSignals    int                  `json:"sell_signals" msgpack:"sell_signals"`
	NeutralSignals int                  `json:"neutral_signals" msgpack:"neutral_signals"`
	Confidence     float64              `json:"confidence" msgpack:"confidence"` // 0-100
	PositionSizing PositionSizing       `json:"position_sizing" msgpack:"position_sizing"`
}

// SymbolResult is the per-symbol outcome of a batch analysis. Exactly one of
// Analysis and Err is set; failures never cross the batch boundary as errors.
type SymbolResult struct {
	Symbol   string
	Analysis *TechnicalAnalysis
	Err      error
}
