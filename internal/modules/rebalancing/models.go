// Package rebalancing computes portfolio-wide rebalancing reports from
// current holdings and per-symbol analyst recommendations.
package rebalancing

import (
	"github.com/kpetrou/signalfolio/internal/domain"
)

// Allocation is a holding's value and share of the portfolio.
// AllocationPct is nil when the portfolio total is zero - left undefined
// rather than producing NaN or Infinity.
type Allocation struct {
	Symbol        string   `json:"symbol"`
	Value         float64  `json:"value"`
	AllocationPct *float64 `json:"allocation"`
}

// TargetAllocation is the risk-adjusted target share for one symbol.
// Targets sum to 100 across the portfolio (0 when the portfolio is empty).
type TargetAllocation struct {
	Symbol           string  `json:"symbol"`
	TargetAllocation float64 `json:"target_allocation"`
}

// Action is the trade direction of a suggestion
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Priority expresses urgency of a suggestion
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Suggestion is one per-symbol trade suggestion.
// SharesToTrade is signed: positive means buy.
type Suggestion struct {
	Symbol              string   `json:"symbol"`
	CurrentAllocation   float64  `json:"current_allocation"`
	SuggestedAllocation float64  `json:"suggested_allocation"`
	Action              Action   `json:"action"`
	SharesToTrade       float64  `json:"shares_to_trade"`
	EstimatedValue      float64  `json:"estimated_value"`
	Reason              string   `json:"reason"`
	Confidence          float64  `json:"confidence"`
	Priority            Priority `json:"priority"`
}

// Summary is the portfolio-level rebalancing summary.
// RebalancingScore is 0-100; 100 means no trades are needed.
type Summary struct {
	TotalBuyValue    float64          `json:"total_buy_value"`
	TotalSellValue   float64          `json:"total_sell_value"`
	RebalancingScore float64          `json:"rebalancing_score"`
	RiskLevel        domain.RiskLevel `json:"risk_level"`
}

// Report is the full output of a rebalancing analysis
type Report struct {
	TotalValue         float64            `json:"total_value"`
	CurrentAllocations []Allocation       `json:"current_allocations"`
	TargetAllocations  []TargetAllocation `json:"target_allocations"`
	Suggestions        []Suggestion       `json:"suggestions"`
	Summary            Summary            `json:"summary"`
}
