package analysis

import (
	"fmt"

	"github.com/kpetrou/signalfolio/internal/domain"
)

// Signal mapping thresholds. Strength is 0-100, growing with distance into
// the buy/sell zone and saturating at the zone width below.
const (
	rsiBuyThreshold   = 30.0
	rsiSellThreshold  = 70.0
	rsiZoneWidth      = 15.0
	stochBuyThreshold = 20.0
	stochSellThresh   = 80.0
	stochZoneWidth    = 20.0

	// Percent distance from a moving average before it reads directional,
	// and the band over which strength saturates.
	smaBandPct       = 2.0
	smaSaturationPct = 12.0

	// MACD histogram magnitude (as a fraction of price) at which the trend
	// reading saturates.
	macdSaturationFrac = 0.005

	// Volume ratio below which the reading is neutral, and the ratio at
	// which it saturates.
	volumeRatioThreshold  = 1.5
	volumeRatioSaturation = 3.0

	// Baseline strength assigned to in-range (neutral) readings.
	neutralStrength = 30.0
)

// BuildIndicators maps raw indicator values to signal readings. Indicators
// whose value could not be computed are omitted.
func BuildIndicators(points []domain.PricePoint, set IndicatorSet) []TechnicalIndicator {
	if len(points) == 0 {
		return nil
	}
	price := points[len(points)-1].Close

	var out []TechnicalIndicator

	if set.RSI != nil {
		signal, strength := evaluateOscillator(*set.RSI, rsiBuyThreshold, rsiSellThreshold, rsiZoneWidth)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorRSI,
			Value:       *set.RSI,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("RSI(%d) at %.1f", rsiPeriod, *set.RSI),
		})
	}

	if set.MACD != nil && set.MACDSignal != nil && set.MACDHistogram != nil {
		signal, strength := evaluateMACD(*set.MACD, *set.MACDSignal, *set.MACDHistogram, price)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorMACD,
			Value:       *set.MACDHistogram,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("MACD %.3f vs signal %.3f", *set.MACD, *set.MACDSignal),
		})
	}

	if set.SMA50 != nil {
		signal, strength := evaluateDistance(price, *set.SMA50)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorSMA50,
			Value:       *set.SMA50,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("Price %.2f vs SMA50 %.2f", price, *set.SMA50),
		})
	}

	if set.SMA200 != nil {
		signal, strength := evaluateDistance(price, *set.SMA200)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorSMA200,
			Value:       *set.SMA200,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("Price %.2f vs SMA200 %.2f", price, *set.SMA200),
		})
	}

	if set.SMA50 != nil && set.SMA200 != nil {
		// Golden/death cross reading: short average relative to long average
		signal, strength := evaluateDistance(*set.SMA50, *set.SMA200)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorTrend,
			Value:       *set.SMA50 - *set.SMA200,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("SMA50 %.2f vs SMA200 %.2f", *set.SMA50, *set.SMA200),
		})
	}

	if set.StochasticK != nil {
		signal, strength := evaluateOscillator(*set.StochasticK, stochBuyThreshold, stochSellThresh, stochZoneWidth)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorStochastic,
			Value:       *set.StochasticK,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("Stochastic %%K at %.1f", *set.StochasticK),
		})
	}

	if set.VolumeRatio != nil && len(points) >= 2 {
		priceUp := points[len(points)-1].Close >= points[len(points)-2].Close
		signal, strength := evaluateVolumeRatio(*set.VolumeRatio, priceUp)
		out = append(out, TechnicalIndicator{
			Name:        IndicatorVolumeRatio,
			Value:       *set.VolumeRatio,
			Signal:      signal,
			Strength:    strength,
			Description: fmt.Sprintf("Volume at %.1fx the %d-day average", *set.VolumeRatio, volumeAvgPeriod),
		})
	}

	return out
}

// evaluateOscillator maps a bounded oscillator to a directional signal:
// below the buy threshold reads buy, above the sell threshold reads sell,
// with strength proportional to the distance into the zone.
func evaluateOscillator(value, buyBelow, sellAbove, zoneWidth float64) (domain.Signal, float64) {
	switch {
	case value < buyBelow:
		return domain.SignalBuy, saturate((buyBelow - value) / zoneWidth * 100)
	case value > sellAbove:
		return domain.SignalSell, saturate((value - sellAbove) / zoneWidth * 100)
	default:
		return domain.SignalNeutral, neutralStrength
	}
}

// evaluateMACD reads the cross of the MACD line over its signal line, with
// strength from the histogram magnitude relative to price.
func evaluateMACD(macd, signal, histogram, price float64) (domain.Signal, float64) {
	if price <= 0 {
		return domain.SignalNeutral, neutralStrength
	}
	strength := saturate(abs(histogram) / (macdSaturationFrac * price) * 100)
	switch {
	case macd > signal:
		return domain.SignalBuy, strength
	case macd < signal:
		return domain.SignalSell, strength
	default:
		return domain.SignalNeutral, neutralStrength
	}
}

// evaluateDistance maps the percent distance of value above/below a reference
// (price vs moving average, or short vs long average). Within the band it
// reads neutral.
func evaluateDistance(value, reference float64) (domain.Signal, float64) {
	if reference <= 0 {
		return domain.SignalNeutral, neutralStrength
	}
	diffPct := (value - reference) / reference * 100
	if diffPct > smaBandPct {
		return domain.SignalBuy, saturate((diffPct - smaBandPct) / (smaSaturationPct - smaBandPct) * 100)
	}
	if diffPct < -smaBandPct {
		return domain.SignalSell, saturate((-diffPct - smaBandPct) / (smaSaturationPct - smaBandPct) * 100)
	}
	return domain.SignalNeutral, neutralStrength
}

// evaluateVolumeRatio reads elevated volume as confirmation in the direction
// of the latest close; normal volume is neutral.
func evaluateVolumeRatio(ratio float64, priceUp bool) (domain.Signal, float64) {
	if ratio < volumeRatioThreshold {
		return domain.SignalNeutral, neutralStrength
	}
	strength := saturate((ratio - volumeRatioThreshold) / (volumeRatioSaturation - volumeRatioThreshold) * 100)
	if priceUp {
		return domain.SignalBuy, strength
	}
	return domain.SignalSell, strength
}

// Vote weights in the confidence denominator: a directly opposed indicator
// drags confidence down four times harder than a neutral one.
const (
	neutralDisagreeWeight = 0.5
	opposedDisagreeWeight = 2.0
)

// Aggregate combines indicator readings into the overall call.
//
// The overall signal is the plurality bucket; a tie involving neutral
// resolves to neutral, and a buy/sell tie resolves to buy. Confidence is the
// mean strength of the agreeing indicators scaled down by the disagreeing
// vote, so it is non-decreasing in agreeing strength, non-increasing in
// disagreement, and always within [0,100].
func Aggregate(indicators []TechnicalIndicator) (domain.Signal, int, int, int, float64) {
	var buys, sells, neutrals int
	for _, ind := range indicators {
		switch ind.Signal {
		case domain.SignalBuy:
			buys++
		case domain.SignalSell:
			sells++
		default:
			neutrals++
		}
	}

	if len(indicators) == 0 {
		return domain.SignalNeutral, 0, 0, 0, 0
	}

	overall := domain.SignalNeutral
	switch {
	case neutrals >= buys && neutrals >= sells:
		overall = domain.SignalNeutral
	case buys >= sells:
		overall = domain.SignalBuy
	default:
		overall = domain.SignalSell
	}

	var agreeing, opposed, neutralDisagree float64
	var strengthSum float64
	for _, ind := range indicators {
		if ind.Signal == overall {
			agreeing++
			strengthSum += ind.Strength
			continue
		}
		if overall == domain.SignalNeutral {
			neutralDisagree++
			continue
		}
		if ind.Signal == domain.SignalNeutral {
			neutralDisagree++
		} else {
			opposed++
		}
	}

	confidence := 0.0
	if agreeing > 0 {
		avgStrength := strengthSum / agreeing
		confidence = avgStrength * agreeing /
			(agreeing + neutralDisagreeWeight*neutralDisagree + opposedDisagreeWeight*opposed)
	}

	return overall, buys, sells, neutrals, clamp(confidence, 0, 100)
}

func saturate(v float64) float64 {
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
